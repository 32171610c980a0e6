package digest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mysqft/leadcapture/internal/core"
	"github.com/mysqft/leadcapture/internal/notify"
)

const (
	TimestampColumn = "created_at"
	sheetName       = "Leads"
)

// Export is one tenant's daily leads in tabular form. Columns are the sorted
// union of submitted field names followed by the submission timestamp.
type Export struct {
	Columns []string
	Rows    [][]string
}

func BuildExport(leads []*core.Lead) *Export {
	seen := make(map[string]struct{})
	for _, lead := range leads {
		for k := range lead.Fields {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(leads))
	for _, lead := range leads {
		row := make([]string, 0, len(keys)+1)
		for _, k := range keys {
			row = append(row, lead.Fields[k])
		}
		row = append(row, lead.CreatedAt.UTC().Format(time.RFC3339))
		rows = append(rows, row)
	}

	return &Export{
		Columns: append(keys, TimestampColumn),
		Rows:    rows,
	}
}

func (e *Export) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(e.Columns); err != nil {
		return nil, err
	}
	if err := w.WriteAll(e.Rows); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Export) XLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &e.Columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(e.Columns), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range e.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// Attachments renders the export as email attachments: always CSV, plus XLSX
// when requested.
func (e *Export) Attachments(withXLSX bool) ([]notify.Attachment, error) {
	data, err := e.CSV()
	if err != nil {
		return nil, err
	}
	out := []notify.Attachment{{Name: "leads.csv", ContentType: "text/csv", Data: data}}

	if withXLSX {
		data, err := e.XLSX()
		if err != nil {
			return nil, err
		}
		out = append(out, notify.Attachment{
			Name:        "leads.xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		})
	}
	return out, nil
}
