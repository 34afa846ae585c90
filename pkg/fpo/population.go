// Package fpo implements the federated prompt-optimization engine: a
// weighted population of prompt templates that is repeatedly scored
// across domains, aggregated into a ranking, and periodically evolved.
package fpo

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/prompterlab/fedopt/pkg/errors"
)

// SeedWeight is the starting weight for generation-0 templates. Evolved
// templates start at 0 and must earn their ranking.
const SeedWeight = 0.5

// PerformanceSample is one recorded evaluation outcome. History entries
// are append-only and never rewritten.
type PerformanceSample struct {
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
	SampleRef string    `json:"sample_ref"`
}

// PromptTemplate is a unit of optimization: an instruction string plus
// performance metadata.
type PromptTemplate struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Text       string              `json:"text"`
	Weight     float64             `json:"weight"`
	Generation int                 `json:"generation"`
	Parents    []string            `json:"parents,omitempty"`
	History    []PerformanceSample `json:"performance_history,omitempty"`
}

// AverageScore returns the arithmetic mean over the full history, or 0
// for a template that has never been evaluated.
func (t *PromptTemplate) AverageScore() float64 {
	if len(t.History) == 0 {
		return 0
	}
	var sum float64
	for _, s := range t.History {
		sum += s.Score
	}
	return sum / float64(len(t.History))
}

// Seed describes one generation-0 template to create at bootstrap.
type Seed struct {
	Name string
	Text string
}

// Population is the full template set plus the current best pointer and
// the fixed list of federated evaluation domains. Template order is
// insertion order; ties on weight resolve to the earlier template.
type Population struct {
	Templates []*PromptTemplate `json:"templates"`
	BestID    string            `json:"best_id"`
	Domains   []string          `json:"domains"`
}

// NewSeedPopulation creates the bootstrap population: every seed becomes
// a generation-0 template with the same positive starting weight.
func NewSeedPopulation(seeds []Seed, domains []string) *Population {
	pop := &Population{Domains: domains}
	for _, seed := range seeds {
		pop.Templates = append(pop.Templates, &PromptTemplate{
			ID:         uuid.NewString(),
			Name:       seed.Name,
			Text:       seed.Text,
			Weight:     SeedWeight,
			Generation: 0,
		})
	}
	pop.RecomputeBest()
	return pop
}

// Get returns the template with the given id, or nil.
func (p *Population) Get(id string) *PromptTemplate {
	for _, t := range p.Templates {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Add appends a template, enforcing id uniqueness.
func (p *Population) Add(t *PromptTemplate) error {
	if p.Get(t.ID) != nil {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "duplicate template id"),
			errors.Fields{"id": t.ID})
	}
	p.Templates = append(p.Templates, t)
	return nil
}

// RecomputeBest repoints BestID at the template with maximal weight.
// Ties break to the first template in insertion order.
func (p *Population) RecomputeBest() {
	p.BestID = ""
	var best *PromptTemplate
	for _, t := range p.Templates {
		if best == nil || t.Weight > best.Weight {
			best = t
		}
	}
	if best != nil {
		p.BestID = best.ID
	}
}

// MaxGeneration returns the deepest lineage in the population.
func (p *Population) MaxGeneration() int {
	max := 0
	for _, t := range p.Templates {
		if t.Generation > max {
			max = t.Generation
		}
	}
	return max
}

// TopTwo returns the two highest-weight templates, best first. Ties
// resolve to earlier insertion order. Returns nil if the population has
// fewer than two templates.
func (p *Population) TopTwo() (*PromptTemplate, *PromptTemplate) {
	if len(p.Templates) < 2 {
		return nil, nil
	}
	var first, second *PromptTemplate
	for _, t := range p.Templates {
		switch {
		case first == nil || t.Weight > first.Weight:
			second = first
			first = t
		case second == nil || t.Weight > second.Weight:
			second = t
		}
	}
	return first, second
}

// SortedByWeight returns the templates ordered by weight descending.
// Equal weights keep insertion order. The slice is fresh; the templates
// are shared.
func (p *Population) SortedByWeight() []*PromptTemplate {
	sorted := make([]*PromptTemplate, len(p.Templates))
	copy(sorted, p.Templates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight > sorted[j].Weight
	})
	return sorted
}

// EvictToSize removes evolved templates, lowest weight first, until the
// population fits maxSize. Generation-0 templates are never evicted, so
// the bound can be unsatisfiable if the seed set alone exceeds it; the
// caller decides whether that is worth logging. Returns evicted ids.
func (p *Population) EvictToSize(maxSize int) []string {
	var evicted []string
	for len(p.Templates) > maxSize {
		victim := -1
		for i, t := range p.Templates {
			if t.Generation == 0 {
				continue
			}
			if victim == -1 || t.Weight < p.Templates[victim].Weight {
				victim = i
			}
		}
		if victim == -1 {
			break
		}
		evicted = append(evicted, p.Templates[victim].ID)
		p.Templates = append(p.Templates[:victim], p.Templates[victim+1:]...)
	}
	if len(evicted) > 0 {
		p.RecomputeBest()
	}
	return evicted
}

// Validate checks the structural invariants: unique ids, BestID pointing
// at a maximal-weight template, and parent/generation consistency.
func (p *Population) Validate() error {
	seen := make(map[string]bool, len(p.Templates))
	for _, t := range p.Templates {
		if seen[t.ID] {
			return errors.WithFields(
				errors.New(errors.InvalidInput, "duplicate template id"),
				errors.Fields{"id": t.ID})
		}
		seen[t.ID] = true

		if t.Generation > 0 && (len(t.Parents) < 1 || len(t.Parents) > 2) {
			return errors.WithFields(
				errors.New(errors.InvalidInput, "evolved template must have 1 or 2 parents"),
				errors.Fields{"id": t.ID, "parents": len(t.Parents)})
		}
		if t.Generation == 0 && len(t.Parents) != 0 {
			return errors.WithFields(
				errors.New(errors.InvalidInput, "seed template cannot have parents"),
				errors.Fields{"id": t.ID})
		}
	}

	if len(p.Templates) == 0 {
		if p.BestID != "" {
			return errors.New(errors.InvalidInput, "best id set on empty population")
		}
		return nil
	}

	best := p.Get(p.BestID)
	if best == nil {
		return fmt.Errorf("best id %q does not exist", p.BestID)
	}
	for _, t := range p.Templates {
		if t.Weight > best.Weight {
			return fmt.Errorf("best id %q is not maximal: %q has higher weight", p.BestID, t.ID)
		}
	}
	return nil
}
