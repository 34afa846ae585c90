package fpo

import (
	"context"
	"time"

	"github.com/prompterlab/fedopt/pkg/errors"
	"github.com/prompterlab/fedopt/pkg/logging"
	"github.com/prompterlab/fedopt/pkg/samples"
)

// IterationRecord summarizes one completed orchestrator iteration.
type IterationRecord struct {
	Iteration      int    `json:"iteration"`
	BestID         string `json:"best_id"`
	PopulationSize int    `json:"population_size"`
	EvolvedCount   int    `json:"evolved_count"`
	MaxGeneration  int    `json:"max_generation"`
}

// RunSummary is the result of a multi-iteration optimization run. A run
// aborted by a storage failure carries the records of the iterations
// that completed before the failure.
type RunSummary struct {
	Iterations []IterationRecord `json:"iterations"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Orchestrator drives the iterate-evaluate-evolve loop. The population
// is loaded at the start and persisted at the end of every iteration, so
// no in-memory state survives a crash.
type Orchestrator struct {
	store         PopulationStore
	aggregator    *Aggregator
	evolution     *Evolution // nil disables evolution entirely
	source        samples.Source
	maxPopulation int
	logger        *logging.Logger
}

func NewOrchestrator(store PopulationStore, aggregator *Aggregator, evolution *Evolution, source samples.Source, maxPopulation int) *Orchestrator {
	return &Orchestrator{
		store:         store,
		aggregator:    aggregator,
		evolution:     evolution,
		source:        source,
		maxPopulation: maxPopulation,
		logger:        logging.GetLogger(),
	}
}

// Bootstrap ensures a population exists, creating the generation-0 seed
// set if storage holds none yet.
func (o *Orchestrator) Bootstrap(ctx context.Context, seeds []Seed, domains []string) (*Population, error) {
	pop, err := o.store.Load(ctx)
	if err == nil {
		return pop, nil
	}
	if !errors.HasCode(err, errors.NotFound) {
		return nil, err
	}

	pop = NewSeedPopulation(seeds, domains)
	if err := o.store.Save(ctx, pop); err != nil {
		return nil, err
	}
	o.logger.Info(ctx, "bootstrapped population with %d seed templates across %d domains",
		len(pop.Templates), len(domains))
	return pop, nil
}

// RunIterations executes n iterations, invoking evolution every
// evolutionEvery iterations (never on the first). Per-sample provider
// failures degrade scores but never abort; the run stops early only on a
// storage failure or context cancellation, returning the partial summary
// alongside the error.
func (o *Orchestrator) RunIterations(ctx context.Context, n, evolutionEvery int) (*RunSummary, error) {
	if n <= 0 {
		return nil, errors.WithFields(
			errors.New(errors.InvalidConfiguration, "iteration count must be positive"),
			errors.Fields{"iterations": n})
	}
	if o.evolution != nil && evolutionEvery <= 0 {
		return nil, errors.WithFields(
			errors.New(errors.InvalidConfiguration, "evolution cadence must be positive when evolution is enabled"),
			errors.Fields{"evolution_every": evolutionEvery})
	}

	summary := &RunSummary{StartedAt: time.Now()}

	for i := 1; i <= n; i++ {
		if err := errors.CheckContext(ctx, "fpo run"); err != nil {
			summary.FinishedAt = time.Now()
			return summary, err
		}

		pop, err := o.store.Load(ctx)
		if err != nil {
			summary.FinishedAt = time.Now()
			return summary, err
		}

		samplesByDomain := o.drawSamples(ctx, pop.Domains)

		if err := o.aggregator.EvaluateGeneration(ctx, pop, samplesByDomain); err != nil {
			summary.FinishedAt = time.Now()
			return summary, err
		}

		evolvedCount := 0
		if o.evolution != nil && i%evolutionEvery == 0 && i > 1 {
			created := o.evolution.EvolvePopulation(ctx, pop, o.maxPopulation)
			evolvedCount = len(created)
		}

		if err := o.store.Save(ctx, pop); err != nil {
			summary.FinishedAt = time.Now()
			return summary, err
		}

		record := IterationRecord{
			Iteration:      i,
			BestID:         pop.BestID,
			PopulationSize: len(pop.Templates),
			EvolvedCount:   evolvedCount,
			MaxGeneration:  pop.MaxGeneration(),
		}
		summary.Iterations = append(summary.Iterations, record)

		o.logger.Info(ctx, "iteration %d/%d done: best=%s size=%d evolved=%d maxGen=%d",
			i, n, record.BestID, record.PopulationSize, record.EvolvedCount, record.MaxGeneration)
	}

	summary.FinishedAt = time.Now()
	return summary, nil
}

// drawSamples fetches one sample per domain, independently each
// iteration so successive passes see varied inputs. Source errors and
// missing samples degrade to skips.
func (o *Orchestrator) drawSamples(ctx context.Context, domains []string) map[string]*samples.Sample {
	byDomain := make(map[string]*samples.Sample, len(domains))
	for _, domain := range domains {
		sample, err := o.source.Sample(ctx, domain)
		if err != nil {
			o.logger.Warn(ctx, "sample source failed for domain %q: %v", domain, err)
			continue
		}
		if sample != nil {
			byDomain[domain] = sample
		}
	}
	return byDomain
}
