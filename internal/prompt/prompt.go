// Package prompt builds the system instructions and user contents sent to the
// language model for regulation, policy and translation requests.
package prompt

import (
	"embed"
	"encoding/xml"
	"fmt"
	"io/fs"
	"strings"

	"github.com/blockedby/lexscout/internal/models"
)

//go:embed templates/*.xml
var embedded embed.FS

// Style selects how sources are obtained from the provider.
type Style string

const (
	// StyleGrounded is for providers with a search tool that report
	// grounding metadata alongside the answer.
	StyleGrounded Style = "grounded"
	// StyleInline asks the model to list its sources inside every record.
	StyleInline Style = "inline"
)

// Prompt is a ready-to-send pair of system instruction and user content.
type Prompt struct {
	System string
	User   string
}

// Template is a prompt loaded from an XML file. Placeholders look like
// {{COUNTRY}} and are substituted in a single pass.
type Template struct {
	XMLName xml.Name `xml:"prompt"`
	System  string   `xml:"system"`
	User    string   `xml:"user"`
}

// LoadTemplate reads and parses a prompt template from fsys.
func LoadTemplate(fsys fs.FS, name string) (*Template, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}

	var t Template
	if err := xml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse prompt xml %s: %w", name, err)
	}
	t.System = strings.TrimSpace(t.System)
	t.User = strings.TrimSpace(t.User)
	if t.User == "" {
		return nil, fmt.Errorf("prompt %s: empty user template", name)
	}

	return &t, nil
}

// Render substitutes vars, keyed by placeholder name, into both parts.
func (t *Template) Render(vars map[string]string) Prompt {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	r := strings.NewReplacer(pairs...)
	return Prompt{System: r.Replace(t.System), User: r.Replace(t.User)}
}

// Jurisdictions provides country-specific instructions appended to
// regulation prompts. *catalog.Catalog satisfies it.
type Jurisdictions interface {
	Instructions(country string) string
}

// Builder renders the three prompt kinds for one provider style.
type Builder struct {
	style         Style
	jurisdictions Jurisdictions

	regulations *Template
	policies    *Template
	translation *Template
}

// NewBuilder loads the embedded templates. jurisdictions may be nil.
func NewBuilder(style Style, jurisdictions Jurisdictions) (*Builder, error) {
	return NewBuilderFS(embedded, style, jurisdictions)
}

// NewBuilderFS loads regulations.xml, policies.xml and translation.xml from
// the templates directory of fsys.
func NewBuilderFS(fsys fs.FS, style Style, jurisdictions Jurisdictions) (*Builder, error) {
	if style != StyleGrounded && style != StyleInline {
		return nil, fmt.Errorf("unknown prompt style %q", style)
	}

	b := &Builder{style: style, jurisdictions: jurisdictions}
	var err error
	if b.regulations, err = LoadTemplate(fsys, "templates/regulations.xml"); err != nil {
		return nil, err
	}
	if b.policies, err = LoadTemplate(fsys, "templates/policies.xml"); err != nil {
		return nil, err
	}
	if b.translation, err = LoadTemplate(fsys, "templates/translation.xml"); err != nil {
		return nil, err
	}
	return b, nil
}

// Style returns the builder's source style.
func (b *Builder) Style() Style {
	return b.style
}

// Regulations builds the prompt for a law and regulation search.
func (b *Builder) Regulations(query, country, language string, f *models.RegulationFilters) Prompt {
	vars := b.common(query, country, language)
	vars["FILTERS"] = filterSection(RegulationRules(f))
	vars["JURISDICTION"] = ""
	if b.jurisdictions != nil {
		if extra := strings.TrimSpace(b.jurisdictions.Instructions(country)); extra != "" {
			vars["JURISDICTION"] = "\n\n" + extra
		}
	}
	return b.regulations.Render(vars)
}

// Policies builds the prompt for a government policy search.
func (b *Builder) Policies(query, country, language string, f *models.PolicyFilters) Prompt {
	vars := b.common(query, country, language)
	vars["FILTERS"] = filterSection(PolicyRules(f))
	return b.policies.Render(vars)
}

// Translation builds a plain text translation prompt. The whole request
// travels as user content.
func (b *Builder) Translation(text, language string) Prompt {
	return b.translation.Render(map[string]string{
		"TEXT":     text,
		"LANGUAGE": language,
	})
}

func (b *Builder) common(query, country, language string) map[string]string {
	vars := map[string]string{
		"QUERY":    strings.TrimSpace(query),
		"COUNTRY":  country,
		"LANGUAGE": language,
	}
	switch b.style {
	case StyleInline:
		vars["SEARCH_TOOL"] = "web search"
		vars["SEARCH_RESULTS"] = `the web pages you found through search, and every page you rely on MUST be listed in the "sources" field of the object it supports`
		vars["SOURCES_FIELD"] = ",\n  \"sources\": [{\"uri\": \"The full URL of a web page this entry is based on\", \"title\": \"The title of that page\"}]"
	default:
		vars["SEARCH_TOOL"] = "the integrated Google Search tool"
		vars["SEARCH_RESULTS"] = "the Google Search results provided to you"
		vars["SOURCES_FIELD"] = ""
	}
	return vars
}

const filterHeader = "ADDITIONAL FILTERING CRITERIA:\n" +
	"You MUST strictly adhere to the following filters when searching and constructing your JSON response. " +
	"These are not suggestions, but mandatory constraints on the output:"

func filterSection(rules []string) string {
	if len(rules) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(filterHeader)
	for _, r := range rules {
		sb.WriteString("\n- ")
		sb.WriteString(r)
	}
	return sb.String()
}

// RegulationRules turns regulation filters into prompt constraints.
// Blank values are ignored.
func RegulationRules(f *models.RegulationFilters) []string {
	if f == nil {
		return nil
	}
	var rules []string
	if authority := strings.TrimSpace(f.CompetentAuthority); authority != "" {
		rules = append(rules, fmt.Sprintf(`The "competentAuthority" field in the JSON output MUST exactly match "%s".`, authority))
	}
	if r := dateRule("lastAmendedDate", f.DateFrom, f.DateTo); r != "" {
		rules = append(rules, r)
	}
	return rules
}

// PolicyRules turns policy filters into prompt constraints.
// Blank values are ignored.
func PolicyRules(f *models.PolicyFilters) []string {
	if f == nil {
		return nil
	}
	var rules []string
	if r := dateRule("publicationDate", f.DateFrom, f.DateTo); r != "" {
		rules = append(rules, r)
	}
	if kw := strings.TrimSpace(f.IncludeKeywords); kw != "" {
		rules = append(rules, fmt.Sprintf(`The search results and generated JSON MUST be directly and primarily related to the following keywords: "%s".`, kw))
	}
	if kw := strings.TrimSpace(f.ExcludeKeywords); kw != "" {
		rules = append(rules, fmt.Sprintf(`You MUST explicitly EXCLUDE any policies or documents primarily focused on the following keywords: "%s".`, kw))
	}
	return rules
}

func dateRule(field, from, to string) string {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	switch {
	case from != "" && to != "":
		return fmt.Sprintf(`The "%s" field in the JSON output MUST be a date between %s and %s, inclusive.`, field, from, to)
	case from != "":
		return fmt.Sprintf(`The "%s" field in the JSON output MUST be a date on or after %s.`, field, from)
	case to != "":
		return fmt.Sprintf(`The "%s" field in the JSON output MUST be a date on or before %s.`, field, to)
	}
	return ""
}
