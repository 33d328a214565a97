// Package models holds the research domain types shared across packages.
package models

import (
	"strings"
)

// Kind identifies which research tab a search belongs to.
type Kind string

// Kind constants.
const (
	KindLaw    Kind = "law"
	KindPolicy Kind = "policy"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	return k == KindLaw || k == KindPolicy
}

// Outcome classifies a finished search.
type Outcome string

// Outcome constants.
const (
	// OutcomeSuccess means records and sources were both present.
	OutcomeSuccess Outcome = "success"
	// OutcomeRaw means the response could not be used as records but carried meaningful text.
	OutcomeRaw Outcome = "raw"
	// OutcomeEmpty means nothing useful came back.
	OutcomeEmpty Outcome = "empty"
	// OutcomeError means the provider call failed.
	OutcomeError Outcome = "error"
)

// Regulation is a single article of a regulation returned by the model.
type Regulation struct {
	RegulationName     string `json:"regulationName"`
	CompetentAuthority string `json:"competentAuthority"`
	LastAmendedDate    string `json:"lastAmendedDate"`
	Article            string `json:"article"`
	Content            string `json:"content"`
	Penalty            string `json:"penalty"`
}

// Policy is a government policy, plan or white paper returned by the model.
type Policy struct {
	PolicyName      string   `json:"policyName"`
	IssuingAgency   string   `json:"issuingAgency"`
	PublicationDate string   `json:"publicationDate"`
	Status          string   `json:"status"`
	Summary         string   `json:"summary"`
	KeyPoints       []string `json:"keyPoints"`
}

// Source is a web page the answer was grounded on.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

// RegulationFilters narrow a regulation search.
type RegulationFilters struct {
	CompetentAuthority string `json:"competentAuthority,omitempty"`
	DateFrom           string `json:"dateFrom,omitempty"`
	DateTo             string `json:"dateTo,omitempty"`
}

// PolicyFilters narrow a policy search.
type PolicyFilters struct {
	DateFrom        string `json:"dateFrom,omitempty"`
	DateTo          string `json:"dateTo,omitempty"`
	IncludeKeywords string `json:"includeKeywords,omitempty"`
	ExcludeKeywords string `json:"excludeKeywords,omitempty"`
}

// CleanSources drops sources without a URI and de-duplicates by URI,
// keeping the first occurrence.
func CleanSources(in []Source) []Source {
	out := make([]Source, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		uri := strings.TrimSpace(s.URI)
		if uri == "" || seen[uri] {
			continue
		}
		seen[uri] = true
		out = append(out, Source{URI: uri, Title: strings.TrimSpace(s.Title)})
	}
	return out
}
