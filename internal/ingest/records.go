package ingest

import (
	"strconv"
	"strings"

	"csvqa/internal/domain"
)

// TextColumns returns the indexes of columns holding text: at least one
// non-empty cell that does not parse as a number. Empty and purely numeric
// columns are skipped.
func TextColumns(t *domain.Table) []int {
	var cols []int
	for c := range t.Columns {
		for _, row := range t.Rows {
			cell := strings.TrimSpace(row[c])
			if cell == "" {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				cols = append(cols, c)
				break
			}
		}
	}
	return cols
}

// Records flattens every row into a record. Record ids are row ordinals.
// Rows whose text cells are all empty still produce a record with empty text
// so ids stay aligned with row numbers.
func Records(t *domain.Table) ([]domain.Record, error) {
	cols := TextColumns(t)
	if len(cols) == 0 {
		return nil, domain.ErrNoTextColumns
	}
	records := make([]domain.Record, len(t.Rows))
	parts := make([]string, 0, len(cols))
	for i, row := range t.Rows {
		parts = parts[:0]
		for _, c := range cols {
			if cell := strings.TrimSpace(row[c]); cell != "" {
				parts = append(parts, cell)
			}
		}
		records[i] = domain.Record{ID: strconv.Itoa(i), Text: strings.Join(parts, " ")}
	}
	return records, nil
}

// Head returns up to n leading rows.
func Head(t *domain.Table, n int) [][]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n <= 0 {
		return nil
	}
	return t.Rows[:n]
}
