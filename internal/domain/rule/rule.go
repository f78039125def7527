package rule

import (
	"errors"
	"fmt"
	"regexp"
)

// Routing maps a description pattern to the candidate agents that can serve
// it. Patterns are case-insensitive regular expressions, so a plain
// alternation like "code|implement|build" behaves as a word/substring match.
type Routing struct {
	Name       string         `json:"name"`
	Pattern    *regexp.Regexp `json:"-"`
	Agents     []string       `json:"agents"`
	Confidence float64        `json:"confidence"`
}

// NewRouting compiles pattern case-insensitively and validates the rule.
func NewRouting(name, pattern string, confidence float64, agents ...string) (Routing, error) {
	if name == "" {
		return Routing{}, errors.New("name is required")
	}
	if len(agents) == 0 {
		return Routing{}, errors.New("at least one agent is required")
	}
	if confidence < 0 || confidence > 1 {
		return Routing{}, fmt.Errorf("confidence %v out of range [0,1]", confidence)
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return Routing{}, fmt.Errorf("compile pattern: %w", err)
	}
	return Routing{Name: name, Pattern: re, Agents: agents, Confidence: confidence}, nil
}

// MustRouting is NewRouting for static tables; it panics on invalid input.
func MustRouting(name, pattern string, confidence float64, agents ...string) Routing {
	r, err := NewRouting(name, pattern, confidence, agents...)
	if err != nil {
		panic(err)
	}
	return r
}

// Matches reports whether description matches the routing pattern.
func (r Routing) Matches(description string) bool {
	return r.Pattern.MatchString(description)
}

// Defaults returns the preloaded routing table. Order matters: earlier rules
// determine first-seen position when the engine breaks confidence ties.
func Defaults() []Routing {
	return []Routing{
		MustRouting("code-generation", `code|implement|develop|program|build`, 0.9,
			"GenerationAgent", "AssemblyAgent"),
		MustRouting("analysis", `analyze|parse|understand|extract`, 0.85,
			"NLInputAgent", "ParserAgent"),
		MustRouting("component-selection", `select|choose|match|component`, 0.8,
			"ComponentDeciderAgent", "MatchRateAgent", "SearchAgent"),
		MustRouting("packaging", `package|download|bundle|export`, 0.85,
			"DownloadAgent"),
		MustRouting("verification", `test|verify|validate|check`, 0.75,
			"ObserverAgent"),
	}
}
