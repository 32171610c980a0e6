package digest

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mysqft/leadcapture/internal/core"
)

func TestBuildExport_UnionOfKeys(t *testing.T) {
	ts := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	leads := []*core.Lead{
		{ID: 1, Fields: core.Fields{"x": "1"}, CreatedAt: ts},
		{ID: 2, Fields: core.Fields{"y": "2"}, CreatedAt: ts},
		{ID: 3, Fields: core.Fields{"y": "3", "x": "4"}, CreatedAt: ts},
	}

	export := BuildExport(leads)

	assert.Equal(t, []string{"x", "y", "created_at"}, export.Columns)
	assert.Equal(t, [][]string{
		{"1", "", "2026-10-19T09:00:00Z"},
		{"", "2", "2026-10-19T09:00:00Z"},
		{"4", "3", "2026-10-19T09:00:00Z"},
	}, export.Rows)
}

func TestExport_CSVQuotesValues(t *testing.T) {
	export := &Export{
		Columns: []string{"note", "created_at"},
		Rows:    [][]string{{"hello, \"world\"", "2026-10-19T09:00:00Z"}},
	}

	data, err := export.CSV()
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"note", "created_at"}, {"hello, \"world\"", "2026-10-19T09:00:00Z"}}, records)
}

func TestExport_XLSX(t *testing.T) {
	export := &Export{
		Columns: []string{"x", "created_at"},
		Rows:    [][]string{{"1", "2026-10-19T09:00:00Z"}, {"2", "2026-10-19T10:00:00Z"}},
	}

	data, err := export.XLSX()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x", "created_at"}, {"1", "2026-10-19T09:00:00Z"}, {"2", "2026-10-19T10:00:00Z"}}, rows)
}

func TestExport_Attachments(t *testing.T) {
	export := &Export{Columns: []string{"created_at"}}

	csvOnly, err := export.Attachments(false)
	require.NoError(t, err)
	require.Len(t, csvOnly, 1)
	assert.Equal(t, "leads.csv", csvOnly[0].Name)

	both, err := export.Attachments(true)
	require.NoError(t, err)
	require.Len(t, both, 2)
	assert.Equal(t, "leads.xlsx", both[1].Name)
}
