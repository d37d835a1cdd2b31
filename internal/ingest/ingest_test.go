package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"csvqa/internal/domain"
)

const studentsCSV = `name,age,course,notes
Alice,21,Biology,likes cats
Bob,22,,
Carol,,Chemistry,"stressed, exams"
`

func TestReadCSV(t *testing.T) {
	table, err := Read(strings.NewReader(studentsCSV), "students.csv", Options{})
	require.NoError(t, err)
	assert.Equal(t, "students.csv", table.Source)
	assert.Equal(t, []string{"name", "age", "course", "notes"}, table.Columns)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"Carol", "", "Chemistry", "stressed, exams"}, table.Rows[2])
}

func TestReadCSVStripsBOMAndPadsShortRows(t *testing.T) {
	in := "\xEF\xBB\xBFtitle,body\nhello\nfoo,bar,extra\n"
	table, err := Read(strings.NewReader(in), "x.csv", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "body", "column_2"}, table.Columns)
	assert.Equal(t, []string{"hello", "", ""}, table.Rows[0])
	assert.Equal(t, []string{"foo", "bar", "extra"}, table.Rows[1])
}

func TestReadCustomDelimiter(t *testing.T) {
	table, err := Read(strings.NewReader("a;b\nx;y\n"), "semi.csv", Options{Delimiter: ";"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x", "y"}}, table.Rows)

	_, err = Read(strings.NewReader("a;b\n"), "semi.csv", Options{Delimiter: ";;"})
	assert.Error(t, err)
}

func TestReadTSV(t *testing.T) {
	table, err := Read(strings.NewReader("k\tv\none\ttwo\n"), "data.TSV", Options{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"one", "two"}}, table.Rows)
}

func TestReadTXT(t *testing.T) {
	table, err := Read(strings.NewReader("first line\n\n  second line  \n"), "notes.txt", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"text"}, table.Columns)
	assert.Equal(t, [][]string{{"first line"}, {"second line"}}, table.Rows)
}

func TestReadUnsupported(t *testing.T) {
	_, err := Read(strings.NewReader(""), "data.parquet", Options{})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.False(t, Supported("data.parquet"))
	assert.True(t, Supported("DATA.XLSX"))
}

func TestReadEmptyCSV(t *testing.T) {
	table, err := Read(strings.NewReader(""), "empty.csv", Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	_, err = Records(table)
	assert.ErrorIs(t, err, domain.ErrNoTextColumns)
}

func writeXLSX(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}
	path := filepath.Join(t.TempDir(), "sheet.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadXLSXWithoutHeader(t *testing.T) {
	path := writeXLSX(t, [][]any{
		{"name", "score"},
		{"Dana", 7},
	})
	table, err := ReadFile(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1"}, table.Columns)
	assert.Equal(t, [][]string{{"name", "score"}, {"Dana", "7"}}, table.Rows)
}

func TestReadXLSXWithHeader(t *testing.T) {
	path := writeXLSX(t, [][]any{
		{"name", "score"},
		{"Dana", 7},
	})
	table, err := ReadFile(path, Options{ExcelHeader: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "score"}, table.Columns)
	assert.Equal(t, [][]string{{"Dana", "7"}}, table.Rows)

	records, err := Records(table)
	require.NoError(t, err)
	assert.Equal(t, []domain.Record{{ID: "0", Text: "Dana"}}, records)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "gone.csv"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTextColumns(t *testing.T) {
	table, err := Read(strings.NewReader(studentsCSV), "students.csv", Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3}, TextColumns(table))
}

func TestRecords(t *testing.T) {
	table, err := Read(strings.NewReader(studentsCSV), "students.csv", Options{})
	require.NoError(t, err)
	records, err := Records(table)
	require.NoError(t, err)
	assert.Equal(t, []domain.Record{
		{ID: "0", Text: "Alice Biology likes cats"},
		{ID: "1", Text: "Bob"},
		{ID: "2", Text: "Carol Chemistry stressed, exams"},
	}, records)
}

func TestRecordsNumericOnly(t *testing.T) {
	table, err := Read(strings.NewReader("a,b\n1,2.5\n3,-4e2\n"), "n.csv", Options{})
	require.NoError(t, err)
	_, err = Records(table)
	assert.ErrorIs(t, err, domain.ErrNoTextColumns)
}

func TestHead(t *testing.T) {
	table, err := Read(strings.NewReader(studentsCSV), "students.csv", Options{})
	require.NoError(t, err)
	assert.Len(t, Head(table, 2), 2)
	assert.Len(t, Head(table, 10), 3)
	assert.Nil(t, Head(table, 0))
}
