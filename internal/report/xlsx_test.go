package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/blockedby/lexscout/internal/models"
)

func TestWriteHistoryXLSX(t *testing.T) {
	law := sampleResult()
	law.Duration = 1500 * time.Millisecond
	law.Sources = append(law.Sources, models.Source{URI: "https://example.gov/a"})

	policy := models.Result{
		ID:      uuid.New(),
		Query:   models.Query{Kind: models.KindPolicy, Text: "housing", Country: "Japan", Language: "日本語"},
		Outcome: models.OutcomeEmpty,
		Message: "no results",
	}

	var buf bytes.Buffer
	require.NoError(t, WriteHistoryXLSX(&buf, []models.Result{*law, policy}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(historySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, historyHeaders, rows[0])
	assert.Equal(t, law.ID.String(), rows[1][0])
	assert.Equal(t, "law", rows[1][2])
	assert.Equal(t, "加班費 <script>", rows[1][3])
	assert.Equal(t, "1", rows[1][7])
	assert.Equal(t, "https://law.moj.gov.tw/\nhttps://example.gov/a", rows[1][8])
	assert.Equal(t, "1500", rows[1][9])
	assert.Equal(t, "policy", rows[2][2])
	assert.Equal(t, "empty", rows[2][6])
	assert.Equal(t, "no results", rows[2][11])
}

func TestWriteHistoryXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHistoryXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(historySheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
