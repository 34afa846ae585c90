package fpo

import (
	"context"
	"encoding/json"

	"github.com/prompterlab/fedopt/pkg/errors"
	"github.com/prompterlab/fedopt/pkg/storage"
)

const populationKey = "population"

// PopulationStore persists the population as one atomic document. There
// is no module-level cached state: every orchestrator iteration loads at
// the start and saves at the end.
type PopulationStore interface {
	// Load returns the persisted population, or a NotFound error when no
	// population has been bootstrapped yet.
	Load(ctx context.Context) (*Population, error)

	// Save atomically replaces the persisted population.
	Save(ctx context.Context, pop *Population) error
}

// Store implements PopulationStore on a storage.Store blob.
type Store struct {
	backend storage.Store
}

func NewStore(backend storage.Store) *Store {
	return &Store{backend: backend}
}

func (s *Store) Load(ctx context.Context) (*Population, error) {
	data, ok, err := s.backend.Get(ctx, populationKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(errors.NotFound, "no population found")
	}

	var pop Population
	if err := json.Unmarshal(data, &pop); err != nil {
		return nil, errors.Wrap(err, errors.StorageUnavailable, "failed to decode population")
	}
	return &pop, nil
}

func (s *Store) Save(ctx context.Context, pop *Population) error {
	data, err := json.Marshal(pop)
	if err != nil {
		return errors.Wrap(err, errors.StorageUnavailable, "failed to encode population")
	}
	return s.backend.Put(ctx, populationKey, data)
}
