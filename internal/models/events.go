package models

import "time"

// NATS subjects.
const (
	SubjectResearchCompleted  = "research.completed"
	SubjectResearchTranslated = "research.translated"
)

// ResearchCompletedEvent is published once per finished search, including
// searches that failed at the provider.
type ResearchCompletedEvent struct {
	Result *Result `json:"result"`
	// Error is the provider failure, if any; Result.Outcome is then "error".
	Error string `json:"error,omitempty"`
}

// ResearchTranslatedEvent is published after a card translation.
type ResearchTranslatedEvent struct {
	Kind     Kind          `json:"kind"`
	Language string        `json:"language"`
	Fields   int           `json:"fields"`
	Failed   bool          `json:"failed"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
}
