package domain

import "errors"

var (
	// ErrEmptyCorpus is returned when no record yields at least one term.
	ErrEmptyCorpus = errors.New("corpus has no indexable text")

	// ErrEmptyIndex is returned when a query runs before any successful build.
	ErrEmptyIndex = errors.New("no data loaded yet")

	// ErrDocumentNotFound is returned for an out-of-range document id.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrNoTextColumns is returned when a table has no column holding text.
	ErrNoTextColumns = errors.New("CSV must contain at least one text column")

	// ErrUnsupportedFormat is returned for file extensions ingest cannot read.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)
