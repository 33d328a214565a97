package session

import (
	"github.com/blockedby/lexscout/internal/models"
)

// CardState is the translation state of one result card.
type CardState struct {
	Translating bool   `json:"translating"`
	Language    string `json:"language,omitempty"`
	Error       string `json:"error,omitempty"`

	Regulation *models.RegulationTranslation `json:"regulation,omitempty"`
	Policy     *models.PolicyTranslation     `json:"policy,omitempty"`
}

// Translated reports whether the card holds a finished translation.
func (c CardState) Translated() bool {
	return c.Regulation != nil || c.Policy != nil
}

// TabState is a snapshot of one search tab.
type TabState struct {
	Kind     models.Kind `json:"kind"`
	Query    string      `json:"query"`
	Loading  bool        `json:"loading"`
	Progress int         `json:"progress"`
	Error    string      `json:"error,omitempty"`

	RegulationFilters models.RegulationFilters `json:"regulationFilters"`
	PolicyFilters     models.PolicyFilters     `json:"policyFilters"`

	Regulations []models.Regulation `json:"regulations"`
	Policies    []models.Policy     `json:"policies"`
	Sources     []models.Source     `json:"sources"`
	RawText     string              `json:"rawText,omitempty"`
	Cards       []CardState         `json:"cards"`
	ResultID    string              `json:"resultId,omitempty"`
}

// HasResults reports whether cards are shown.
func (t TabState) HasResults() bool {
	return len(t.Regulations) > 0 || len(t.Policies) > 0
}

// State is a snapshot of a whole workspace.
type State struct {
	ID        string      `json:"id"`
	Country   string      `json:"country"`
	Language  string      `json:"language"`
	Languages []string    `json:"languages"`
	Active    models.Kind `json:"active"`
	Law       TabState    `json:"law"`
	Policy    TabState    `json:"policy"`
}

// Tab returns the snapshot of the given tab.
func (s State) Tab(kind models.Kind) TabState {
	if kind == models.KindPolicy {
		return s.Policy
	}
	return s.Law
}

// Event types sent to the browser.
const (
	EventProgress = "progress"
	EventTab      = "tab"
	EventSettings = "settings"
)

// Event is a state change notification.
type Event struct {
	Type     string      `json:"type"`
	Kind     models.Kind `json:"kind,omitempty"`
	Progress int         `json:"progress,omitempty"`
	Tab      *TabState   `json:"tab,omitempty"`
	State    *State      `json:"state,omitempty"`
}
