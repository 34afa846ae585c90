// Package providers implements the external generation backends behind
// the core.Provider interface.
package providers

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/prompterlab/fedopt/pkg/errors"
)

var imageMimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// media is a loaded sample ready to attach to a provider request. Text
// samples (scraped articles, transcripts) carry their content in Text;
// image samples carry raw bytes plus a mime type.
type media struct {
	Data     []byte
	MimeType string
	Text     string
}

func loadMedia(path string) (*media, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.ProviderFailed, "failed to read media sample"),
			errors.Fields{"path": path})
	}

	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := imageMimeTypes[ext]; ok {
		return &media{Data: data, MimeType: mime}, nil
	}

	// Anything non-image is treated as text content.
	return &media{Text: string(data)}, nil
}
