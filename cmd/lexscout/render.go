package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/blockedby/lexscout/internal/models"
)

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func printResult(out io.Writer, format string, res *models.Result) error {
	if format == "json" {
		return writeJSON(out, res)
	}

	var b strings.Builder
	switch res.Outcome {
	case models.OutcomeSuccess:
		for i, r := range res.Regulations {
			fmt.Fprintf(&b, "%d. %s %s\n", i+1, r.RegulationName, r.Article)
			fmt.Fprintf(&b, "   Authority: %s   Last amended: %s\n", r.CompetentAuthority, r.LastAmendedDate)
			writeIndented(&b, r.Content)
			if r.Penalty != "" {
				fmt.Fprintf(&b, "   Penalty: %s\n", r.Penalty)
			}
			b.WriteString("\n")
		}
		for i, p := range res.Policies {
			fmt.Fprintf(&b, "%d. %s [%s]\n", i+1, p.PolicyName, p.Status)
			fmt.Fprintf(&b, "   Agency: %s   Published: %s\n", p.IssuingAgency, p.PublicationDate)
			writeIndented(&b, p.Summary)
			for _, kp := range p.KeyPoints {
				fmt.Fprintf(&b, "   - %s\n", kp)
			}
			b.WriteString("\n")
		}
	case models.OutcomeRaw:
		fmt.Fprintf(&b, "%s\n\n", res.Message)
		b.WriteString(res.RawText)
		b.WriteString("\n")
	default:
		fmt.Fprintf(&b, "%s\n", res.Message)
	}

	if len(res.Sources) > 0 {
		b.WriteString("\nSources:\n")
		for _, s := range res.Sources {
			if s.Title != "" {
				fmt.Fprintf(&b, "  - %s <%s>\n", s.Title, s.URI)
			} else {
				fmt.Fprintf(&b, "  - %s\n", s.URI)
			}
		}
	}

	_, err := io.WriteString(out, b.String())
	return err
}

func writeIndented(b *strings.Builder, text string) {
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		fmt.Fprintf(b, "   %s\n", line)
	}
}
