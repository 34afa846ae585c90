package samples

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/prompterlab/fedopt/pkg/logging"
)

// referenceSuffix marks sidecar files holding the human reference text
// for the media file with the same base name.
const referenceSuffix = ".txt"

// FSSource serves samples from a directory tree with one subdirectory per
// domain. Media files are picked uniformly at random on every call; a
// sidecar "<name>.txt" next to a media file supplies its reference text.
type FSSource struct {
	root   string
	mu     sync.Mutex
	rng    *rand.Rand
	logger *logging.Logger
}

func NewFSSource(root string, seed int64) *FSSource {
	return &FSSource{
		root:   root,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logging.GetLogger(),
	}
}

func (s *FSSource) Sample(ctx context.Context, domain string) (*Sample, error) {
	dir := filepath.Join(s.root, domain)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var media []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), referenceSuffix) {
			continue
		}
		media = append(media, entry.Name())
	}

	if len(media) == 0 {
		s.logger.Debug(ctx, "no samples in domain %q", domain)
		return nil, nil
	}

	s.mu.Lock()
	name := media[s.rng.Intn(len(media))]
	s.mu.Unlock()

	sample := &Sample{MediaPath: filepath.Join(dir, name)}

	refPath := filepath.Join(dir, trimExt(name)+referenceSuffix)
	if ref, err := os.ReadFile(refPath); err == nil {
		sample.ReferenceText = strings.TrimSpace(string(ref))
	}

	return sample, nil
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
