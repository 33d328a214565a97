package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/blockedby/lexscout/internal/models"
)

const historySheet = "History"

var historyHeaders = []string{
	"ID", "Created", "Kind", "Query", "Country", "Language",
	"Outcome", "Records", "Sources", "Duration (ms)", "Model", "Message",
}

// WriteHistoryXLSX writes one row per search to w as an XLSX workbook.
func WriteHistoryXLSX(w io.Writer, results []models.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range historyHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(historySheet, cell, h); err != nil {
			return fmt.Errorf("set header %s: %w", h, err)
		}
	}

	for r, res := range results {
		row := []any{
			res.ID.String(),
			res.CreatedAt.Format("2006-01-02 15:04:05"),
			string(res.Query.Kind),
			res.Query.Text,
			res.Query.Country,
			res.Query.Language,
			string(res.Outcome),
			res.Count(),
			sourceList(res.Sources),
			res.Duration.Milliseconds(),
			res.Model,
			res.Message,
		}
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(historySheet, cell, v); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetColWidth(historySheet, "D", "D", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(historySheet, "I", "I", 60); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func sourceList(sources []models.Source) string {
	uris := make([]string, len(sources))
	for i, s := range sources {
		uris[i] = s.URI
	}
	return strings.Join(uris, "\n")
}
