package models

// RegulationTranslation holds the translated fields of a regulation card.
type RegulationTranslation struct {
	Language string `json:"language"`
	Content  string `json:"content"`
	Penalty  string `json:"penalty"`
}

// PolicyTranslation holds the translated fields of a policy card.
type PolicyTranslation struct {
	Language  string   `json:"language"`
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"keyPoints"`
}
