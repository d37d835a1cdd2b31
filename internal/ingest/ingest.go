// Package ingest reads table files into rows and flattens each row into a
// domain.Record. A row's record text is the space-joined values of its text
// columns, skipping empty cells.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"csvqa/internal/domain"
)

// Options controls parsing.
type Options struct {
	// Delimiter separates fields in .csv files. Defaults to ','.
	Delimiter string
	// ExcelHeader treats the first sheet row as column names. When false
	// every row is data and columns are numbered from 0.
	ExcelHeader bool
}

// Supported reports whether ingest can read files with this name.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".txt", ".xlsx":
		return true
	}
	return false
}

// ReadFile opens path and parses it according to its extension.
func ReadFile(path string, opts Options) (*domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, path, opts)
}

// Read parses r as a table. name is only used for its extension and as the
// table's Source.
func Read(r io.Reader, name string, opts Options) (*domain.Table, error) {
	var (
		t   *domain.Table
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		delim, derr := delimiter(opts.Delimiter)
		if derr != nil {
			return nil, derr
		}
		t, err = readDelimited(r, delim)
	case ".tsv":
		t, err = readDelimited(r, '\t')
	case ".txt":
		t, err = readLines(r)
	case ".xlsx":
		t, err = readXLSX(r, opts.ExcelHeader)
	default:
		return nil, fmt.Errorf("%s: %w (want .csv, .tsv, .txt or .xlsx)", name, domain.ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	t.Source = name
	return t, nil
}

func delimiter(s string) (rune, error) {
	if s == "" {
		return ',', nil
	}
	if s == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) {
		return 0, fmt.Errorf("delimiter %q must be a single character", s)
	}
	return r, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readDelimited(r io.Reader, delim rune) (*domain.Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &domain.Table{}, nil
	}
	if err != nil {
		return nil, err
	}
	t := &domain.Table{Columns: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, row)
	}
	pad(t)
	return t, nil
}

func readLines(r io.Reader) (*domain.Table, error) {
	t := &domain.Table{Columns: []string{"text"}}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		t.Rows = append(t.Rows, []string{line})
	}
	return t, sc.Err()
}

func readXLSX(r io.Reader, header bool) (*domain.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &domain.Table{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	t := &domain.Table{}
	if header && len(rows) > 0 {
		t.Columns = rows[0]
		rows = rows[1:]
	}
	t.Rows = rows
	if !header {
		width := 0
		for _, row := range rows {
			width = max(width, len(row))
		}
		t.Columns = make([]string, width)
		for i := range t.Columns {
			t.Columns[i] = strconv.Itoa(i)
		}
	}
	pad(t)
	return t, nil
}

// pad widens short rows and the header so every row has len(Columns) cells.
func pad(t *domain.Table) {
	width := len(t.Columns)
	for _, row := range t.Rows {
		width = max(width, len(row))
	}
	for i := len(t.Columns); i < width; i++ {
		t.Columns = append(t.Columns, "column_"+strconv.Itoa(i))
	}
	for i, row := range t.Rows {
		if len(row) < width {
			t.Rows[i] = append(row, make([]string, width-len(row))...)
		}
	}
}
