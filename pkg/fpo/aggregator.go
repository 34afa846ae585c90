package fpo

import (
	"context"
	"time"

	"github.com/prompterlab/fedopt/pkg/errors"
	"github.com/prompterlab/fedopt/pkg/logging"
	"github.com/prompterlab/fedopt/pkg/samples"
)

// Aggregator runs the evaluator across all federated domains and merges
// the results into updated weights and history.
type Aggregator struct {
	evaluator *Evaluator
	logger    *logging.Logger
}

func NewAggregator(evaluator *Evaluator) *Aggregator {
	return &Aggregator{
		evaluator: evaluator,
		logger:    logging.GetLogger(),
	}
}

// EvaluateGeneration scores every template against the current sample of
// every domain, in the fixed order of pop.Domains. A domain without a
// sample is skipped with a log line. Each evaluation appends a history
// entry; afterwards every evaluated template's weight becomes the mean
// of this pass's scores only (history accumulates forever, weight
// reflects the latest pass) and BestID is recomputed.
//
// Provider failures surface as zero scores, not errors: a degraded pass
// still completes. The only error returned is context cancellation.
func (a *Aggregator) EvaluateGeneration(ctx context.Context, pop *Population, samplesByDomain map[string]*samples.Sample) error {
	passScores := make(map[string][]float64, len(pop.Templates))

	for _, domain := range pop.Domains {
		if err := errors.CheckContext(ctx, "aggregation pass"); err != nil {
			return err
		}

		sample := samplesByDomain[domain]
		if sample == nil {
			a.logger.Info(ctx, "no sample for domain %q, skipping", domain)
			continue
		}

		for _, tmpl := range pop.Templates {
			result := a.evaluator.Evaluate(ctx, tmpl.Text, sample.MediaPath, sample.ReferenceText)
			if result.Err != nil {
				a.logger.Warn(ctx, "evaluation failed for template %s in domain %q: %v",
					tmpl.ID, domain, result.Err)
			}

			tmpl.History = append(tmpl.History, PerformanceSample{
				Score:     result.Score,
				Timestamp: time.Now(),
				SampleRef: sample.MediaPath,
			})
			passScores[tmpl.ID] = append(passScores[tmpl.ID], result.Score)
		}
	}

	for _, tmpl := range pop.Templates {
		scores := passScores[tmpl.ID]
		if len(scores) == 0 {
			// Every domain was skipped; the previous weight stands.
			continue
		}
		tmpl.Weight = mean(scores)
	}

	pop.RecomputeBest()
	return nil
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
