package fpo

import (
	"context"
	"encoding/json"

	"github.com/prompterlab/fedopt/pkg/errors"
	"github.com/prompterlab/fedopt/pkg/logging"
)

// QueueCategory is the job-queue category that serializes optimization
// runs. Routing every population write through it is what makes a
// separate population lock unnecessary.
const QueueCategory = "fpo"

// RunRequest is the payload of an enqueued optimization job.
type RunRequest struct {
	Iterations     int `json:"iterations"`
	EvolutionEvery int `json:"evolution_every"`
}

// TemplateStatus is the externally visible view of one template.
type TemplateStatus struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Text         string  `json:"text"`
	Weight       float64 `json:"weight"`
	Generation   int     `json:"generation"`
	AverageScore float64 `json:"average_score"`
	Evaluations  int     `json:"evaluations"`
}

// StatusReport summarizes the current population, templates sorted by
// weight descending.
type StatusReport struct {
	BestID         string           `json:"best_id"`
	PopulationSize int              `json:"population_size"`
	MaxGeneration  int              `json:"max_generation"`
	Templates      []TemplateStatus `json:"templates"`
}

// Service exposes the optimization engine to the queue worker and the
// HTTP layer.
type Service struct {
	orchestrator *Orchestrator
	store        PopulationStore
	logger       *logging.Logger
}

func NewService(orchestrator *Orchestrator, store PopulationStore) *Service {
	return &Service{
		orchestrator: orchestrator,
		store:        store,
		logger:       logging.GetLogger(),
	}
}

// HandleRunJob executes one queued optimization run. A returned error
// feeds the queue's bounded-retry path.
func (s *Service) HandleRunJob(ctx context.Context, payload json.RawMessage) error {
	var req RunRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return errors.Wrap(err, errors.InvalidInput, "failed to decode run request")
	}

	summary, err := s.orchestrator.RunIterations(ctx, req.Iterations, req.EvolutionEvery)
	if err != nil {
		completed := 0
		if summary != nil {
			completed = len(summary.Iterations)
		}
		s.logger.Error(ctx, "optimization run failed after %d iterations: %v", completed, err)
		return errors.Wrap(err, errors.JobExecutionFailed, "optimization run failed")
	}

	s.logger.Info(ctx, "optimization run finished: %d iterations in %s",
		len(summary.Iterations), summary.FinishedAt.Sub(summary.StartedAt))
	return nil
}

// Status reports the current population state.
func (s *Service) Status(ctx context.Context) (*StatusReport, error) {
	pop, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{
		BestID:         pop.BestID,
		PopulationSize: len(pop.Templates),
		MaxGeneration:  pop.MaxGeneration(),
	}
	for _, t := range pop.SortedByWeight() {
		report.Templates = append(report.Templates, TemplateStatus{
			ID:           t.ID,
			Name:         t.Name,
			Text:         t.Text,
			Weight:       t.Weight,
			Generation:   t.Generation,
			AverageScore: t.AverageScore(),
			Evaluations:  len(t.History),
		})
	}
	return report, nil
}
