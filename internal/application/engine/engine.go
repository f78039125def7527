package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentflow/agentflow/internal/domain/decision"
	"github.com/agentflow/agentflow/internal/domain/rule"
	"github.com/agentflow/agentflow/internal/domain/task"
)

// Weights tune how rule matches and historical precedent blend into the
// final confidence, and how similar a past description must be before its
// decisions count as precedent.
type Weights struct {
	Rule                float64
	History             float64
	SimilarityThreshold float64
}

// DefaultWeights favor explicit rules while letting precedent nudge ties.
func DefaultWeights() Weights {
	return Weights{Rule: 0.7, History: 0.3, SimilarityThreshold: 0.7}
}

// Service ranks candidate agents for a task by combining static rule
// matching with weighted historical precedent.
type Service struct {
	rules   []rule.Routing
	history decision.HistoryRepository
	weights Weights
	logger  zerolog.Logger
}

// NewService creates a decision engine over an ordered rule table.
func NewService(rules []rule.Routing, history decision.HistoryRepository, weights Weights, logger zerolog.Logger) *Service {
	return &Service{
		rules:   rules,
		history: history,
		weights: weights,
		logger:  logger.With().Str("service", "engine").Logger(),
	}
}

// candidate accumulates both scoring sources for one agent until the merge.
type candidate struct {
	ruleSum      float64
	historySum   float64
	reasons      []string
	alternatives []string
}

func (c *candidate) addAlternative(name string) {
	for _, a := range c.alternatives {
		if a == name {
			return
		}
	}
	c.alternatives = append(c.alternatives, name)
}

// DetermineAgents returns candidate agents for the intent, sorted descending
// by confidence; equal confidences keep first-seen order. The result is
// recorded into the decision history before returning.
func (s *Service) DetermineAgents(ctx context.Context, intent task.Task) ([]decision.Decision, error) {
	description := intent.Description

	order := make([]string, 0, 4)
	byAgent := make(map[string]*candidate)
	get := func(name string) *candidate {
		c, ok := byAgent[name]
		if !ok {
			c = &candidate{}
			byAgent[name] = c
			order = append(order, name)
		}
		return c
	}

	// Rule pass: every matching rule contributes its base confidence for
	// each agent in its set.
	for _, r := range s.rules {
		if !r.Matches(description) {
			continue
		}
		for _, name := range r.Agents {
			c := get(name)
			c.ruleSum += r.Confidence
			c.reasons = append(c.reasons, fmt.Sprintf("rule %s matched", r.Name))
			for _, alt := range r.Agents {
				if alt != name {
					c.addAlternative(alt)
				}
			}
		}
	}

	// History pass: past descriptions above the similarity threshold replay
	// their stored decisions, rescaled by the similarity factor.
	entries, err := s.history.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load decision history: %w", err)
	}
	for _, entry := range entries {
		sim := jaccard(description, entry.Description)
		if sim <= s.weights.SimilarityThreshold {
			continue
		}
		for _, d := range entry.Decisions {
			c := get(d.AgentName)
			c.historySum += d.Confidence * sim
			c.reasons = append(c.reasons, fmt.Sprintf("precedent %.0f%% similar", sim*100))
		}
	}

	decisions := make([]decision.Decision, 0, len(order))
	for _, name := range order {
		c := byAgent[name]
		confidence := s.weights.Rule*c.ruleSum + s.weights.History*c.historySum
		if confidence > 1 {
			confidence = 1
		}
		decisions = append(decisions, decision.Decision{
			AgentName:         name,
			Confidence:        confidence,
			Reasoning:         strings.Join(c.reasons, "; "),
			AlternativeAgents: c.alternatives,
		})
	}

	sort.SliceStable(decisions, func(i, j int) bool {
		return decisions[i].Confidence > decisions[j].Confidence
	})

	if err := s.history.Record(ctx, decision.HistoryEntry{
		Description: description,
		Decisions:   decisions,
		RecordedAt:  time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("failed to record decision history: %w", err)
	}

	s.logger.Debug().
		Str("task_id", intent.ID).
		Int("candidates", len(decisions)).
		Msg("agents ranked")

	return decisions, nil
}

// ClearHistory drops all recorded precedent.
func (s *Service) ClearHistory(ctx context.Context) error {
	if err := s.history.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear decision history: %w", err)
	}
	s.logger.Info().Msg("decision history cleared")
	return nil
}
