package domain

import "iter"

// Record is one corpus unit handed to the index by a host: a table row
// whose text cells have already been joined into Text.
type Record struct {
	ID   string
	Text string
}

// Tokenizer turns raw text into normalized terms.
// Implementations must be pure: the same input always yields the same terms,
// because index build and query vectorization share one tokenizer.
type Tokenizer interface {
	Tokenize(text string) iter.Seq[string]
}

// Table is a parsed tabular source before rows are flattened into records.
type Table struct {
	Source  string
	Columns []string
	Rows    [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }
