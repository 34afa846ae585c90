package fpo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/prompterlab/fedopt/pkg/core"
	"github.com/prompterlab/fedopt/pkg/logging"
)

// Evolution recombines top-performing templates into new candidates via
// an external text-generation service. Provider failures are absorbed:
// a failed crossover or mutation means no new template this cycle, never
// an aborted iteration.
type Evolution struct {
	synthesizer     core.Synthesizer
	mutationEnabled bool
	logger          *logging.Logger
}

type EvolutionOption func(*Evolution)

// WithMutation enables the single-parent mutation variant alongside
// crossover. Disabled by default.
func WithMutation(enabled bool) EvolutionOption {
	return func(e *Evolution) {
		e.mutationEnabled = enabled
	}
}

func NewEvolution(synthesizer core.Synthesizer, opts ...EvolutionOption) *Evolution {
	e := &Evolution{
		synthesizer: synthesizer,
		logger:      logging.GetLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Crossover synthesizes a child template combining the strengths of both
// parents. The child starts at weight 0 with an empty history and a
// generation one past its deepest parent. Returns nil when the
// synthesizer fails or produces unusable content.
func (e *Evolution) Crossover(ctx context.Context, parent1, parent2 *PromptTemplate) *PromptTemplate {
	if parent2.Weight > parent1.Weight {
		parent1, parent2 = parent2, parent1
	}

	prompt := fmt.Sprintf(`Combine the strengths of these two media-description instructions into one new instruction.

Instruction A (current weight %.3f): %q
Instruction B (current weight %.3f): %q

Requirements:
1. Merge the effective elements of both instructions
2. Keep the result a single clear instruction
3. Reply with the new instruction only, no commentary`,
		parent1.Weight, parent1.Text,
		parent2.Weight, parent2.Text)

	resp, err := e.synthesizer.Synthesize(ctx, prompt)
	if err != nil {
		e.logger.Warn(ctx, "crossover synthesis failed, skipping evolution this cycle: %v", err)
		return nil
	}

	text := extractInstruction(resp.Content)
	if text == "" {
		e.logger.Warn(ctx, "crossover produced empty content, skipping evolution this cycle")
		return nil
	}

	generation := parent1.Generation
	if parent2.Generation > generation {
		generation = parent2.Generation
	}
	generation++

	id := uuid.NewString()
	return &PromptTemplate{
		ID:         id,
		Name:       fmt.Sprintf("evolved-g%d-%s", generation, id[:8]),
		Text:       text,
		Weight:     0,
		Generation: generation,
		Parents:    []string{parent1.ID, parent2.ID},
	}
}

// Mutate synthesizes a slightly improved variant of a single parent,
// under the same contract as Crossover.
func (e *Evolution) Mutate(ctx context.Context, parent *PromptTemplate) *PromptTemplate {
	prompt := fmt.Sprintf(`Produce a slightly improved variant of this media-description instruction.

Instruction (current weight %.3f): %q

Requirements:
1. Keep the core intent
2. Make one focused improvement (clarity, specificity, or structure)
3. Reply with the new instruction only, no commentary`,
		parent.Weight, parent.Text)

	resp, err := e.synthesizer.Synthesize(ctx, prompt)
	if err != nil {
		e.logger.Warn(ctx, "mutation synthesis failed, skipping: %v", err)
		return nil
	}

	text := extractInstruction(resp.Content)
	if text == "" || text == parent.Text {
		e.logger.Warn(ctx, "mutation produced unusable content, skipping")
		return nil
	}

	id := uuid.NewString()
	return &PromptTemplate{
		ID:         id,
		Name:       fmt.Sprintf("mutated-g%d-%s", parent.Generation+1, id[:8]),
		Text:       text,
		Weight:     0,
		Generation: parent.Generation + 1,
		Parents:    []string{parent.ID},
	}
}

// EvolvePopulation crosses the two highest-weight templates, optionally
// mutates the best one, and evicts evolved stragglers until the size
// bound holds. Returns the templates created this cycle.
func (e *Evolution) EvolvePopulation(ctx context.Context, pop *Population, maxSize int) []*PromptTemplate {
	parent1, parent2 := pop.TopTwo()
	if parent1 == nil {
		e.logger.Info(ctx, "population too small to evolve (%d templates)", len(pop.Templates))
		return nil
	}

	var created []*PromptTemplate

	if child := e.Crossover(ctx, parent1, parent2); child != nil {
		if err := pop.Add(child); err != nil {
			e.logger.Error(ctx, "failed to add crossover child: %v", err)
		} else {
			created = append(created, child)
			e.logger.Info(ctx, "created template %s (generation %d) from %s and %s",
				child.ID, child.Generation, parent1.ID, parent2.ID)
		}
	}

	if e.mutationEnabled {
		if variant := e.Mutate(ctx, parent1); variant != nil {
			if err := pop.Add(variant); err != nil {
				e.logger.Error(ctx, "failed to add mutated variant: %v", err)
			} else {
				created = append(created, variant)
				e.logger.Info(ctx, "created template %s (generation %d) by mutating %s",
					variant.ID, variant.Generation, parent1.ID)
			}
		}
	}

	if evicted := pop.EvictToSize(maxSize); len(evicted) > 0 {
		e.logger.Info(ctx, "evicted %d low-weight evolved templates: %v", len(evicted), evicted)
	}
	if len(pop.Templates) > maxSize {
		e.logger.Warn(ctx, "population size %d exceeds bound %d; only seeds remain above it",
			len(pop.Templates), maxSize)
	}

	return created
}

// extractInstruction pulls the instruction line out of a synthesis
// response, stripping numbering, quotes, and boilerplate prefixes.
func extractInstruction(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "1.")
		line = strings.TrimPrefix(line, "-")
		line = strings.TrimSpace(line)
		line = strings.Trim(line, "\"'`")

		if len(line) > 10 {
			return line
		}
	}
	return ""
}
