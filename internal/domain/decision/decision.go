package decision

import (
	"time"
)

// Decision is the engine's verdict for one candidate agent. A list of
// decisions is always sorted descending by confidence.
type Decision struct {
	AgentName         string   `json:"agentName"`
	Confidence        float64  `json:"confidence"`
	Reasoning         string   `json:"reasoning"`
	AlternativeAgents []string `json:"alternativeAgents,omitempty"`
}

// HistoryEntry pins the decisions produced for one description so later,
// similar descriptions can draw on them as precedent.
type HistoryEntry struct {
	Description string     `json:"description"`
	Decisions   []Decision `json:"decisions"`
	RecordedAt  time.Time  `json:"recordedAt"`
}
