package models

import (
	"time"

	"github.com/google/uuid"
)

// Query describes what the user asked for.
type Query struct {
	Kind     Kind   `json:"kind"`
	Text     string `json:"query"`
	Country  string `json:"country"`
	Language string `json:"language"`

	// Exactly one of these is set, matching Kind.
	RegulationFilters *RegulationFilters `json:"regulationFilters,omitempty"`
	PolicyFilters     *PolicyFilters     `json:"policyFilters,omitempty"`
}

// Result is the classified outcome of one search.
type Result struct {
	ID          uuid.UUID     `json:"id"`
	Query       Query         `json:"query"`
	Outcome     Outcome       `json:"outcome"`
	Regulations []Regulation  `json:"regulations,omitempty"`
	Policies    []Policy      `json:"policies,omitempty"`
	Sources     []Source      `json:"sources"`
	RawText     string        `json:"rawText,omitempty"`
	Message     string        `json:"message,omitempty"`
	Model       string        `json:"model,omitempty"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Count returns the number of records, whichever kind they are.
func (r *Result) Count() int {
	if r.Query.Kind == KindPolicy {
		return len(r.Policies)
	}
	return len(r.Regulations)
}
