package fpo

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/prompterlab/fedopt/pkg/core"
	"github.com/prompterlab/fedopt/pkg/errors"
	"github.com/prompterlab/fedopt/pkg/logging"
	"github.com/prompterlab/fedopt/pkg/similarity"
)

// NeutralScore is recorded when a sample has no reference text to score
// the generated description against.
const NeutralScore = 0.5

// EvalResult is the outcome of scoring one template against one sample.
type EvalResult struct {
	Score   float64
	Latency time.Duration
	// Err is set when the describe call failed; Score is 0 in that case.
	// The failure is recorded, not retried: retry policy lives with the
	// enclosing queue job.
	Err error
}

// Evaluator scores one template against one sample by generating a
// description and comparing it to the reference text. Provider calls are
// issued one at a time with an enforced minimum inter-call delay, since
// the external quota treats them as rate-limited I/O.
type Evaluator struct {
	describer core.Describer
	scorer    similarity.Scorer
	limiter   *rate.Limiter
	logger    *logging.Logger
}

// NewEvaluator builds an evaluator. minInterval <= 0 disables the
// inter-call delay.
func NewEvaluator(describer core.Describer, scorer similarity.Scorer, minInterval time.Duration) *Evaluator {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Evaluator{
		describer: describer,
		scorer:    scorer,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logging.GetLogger(),
	}
}

// Evaluate generates a description of the sample with the template text
// and scores it against referenceText. A missing reference yields the
// neutral score. Provider failure yields score 0 with Err set.
func (e *Evaluator) Evaluate(ctx context.Context, templateText, samplePath, referenceText string) EvalResult {
	if err := e.limiter.Wait(ctx); err != nil {
		return EvalResult{Err: errors.Wrap(err, errors.Canceled, "evaluation canceled while rate limited")}
	}

	start := time.Now()
	resp, err := e.describer.Describe(ctx, samplePath, templateText)
	latency := time.Since(start)

	if err != nil {
		return EvalResult{
			Score:   0,
			Latency: latency,
			Err:     errors.Wrap(err, errors.ProviderFailed, "describe call failed"),
		}
	}

	score := NeutralScore
	if referenceText != "" {
		score = e.scorer(resp.Content, referenceText)
	}

	e.logger.Debug(ctx, "evaluated sample %s: score=%.3f latency=%s", samplePath, score, latency)
	return EvalResult{Score: score, Latency: latency}
}
