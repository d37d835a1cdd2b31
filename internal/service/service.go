package service

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"csvqa/internal/domain"
	"csvqa/internal/engine"
	"csvqa/internal/ingest"
	"csvqa/internal/logger"
	"csvqa/internal/tfidf"
)

const (
	previewRows  = 3
	summaryTerms = 8
)

// LoadResult describes a table that was just indexed.
type LoadResult struct {
	Source      string     `json:"source"`
	Rows        int        `json:"rows"`
	Columns     []string   `json:"columns"`
	TextColumns []string   `json:"text_columns"`
	Preview     [][]string `json:"preview"`
	KeyTerms    []string   `json:"key_terms"`
}

// Status is the one-line message shown after a load.
func (r *LoadResult) Status() string {
	return fmt.Sprintf("CSV loaded with %d rows", r.Rows)
}

// Summary lists the most widespread terms of the table.
func (r *LoadResult) Summary() string {
	if len(r.KeyTerms) == 0 {
		return ""
	}
	return "Key terms: " + strings.Join(r.KeyTerms, ", ")
}

// QAService answers questions about one loaded table at a time.
type QAService struct {
	engine *engine.Engine
	opts   ingest.Options
	log    *logrus.Entry
}

// NewQAService wires a service around an engine.
func NewQAService(e *engine.Engine, opts ingest.Options, log *logrus.Entry) *QAService {
	if log == nil {
		log = logger.Discard()
	}
	return &QAService{engine: e, opts: opts, log: log}
}

// Engine exposes the underlying engine.
func (s *QAService) Engine() *engine.Engine { return s.engine }

// LoadFile reads, indexes and publishes the table at path.
func (s *QAService) LoadFile(path string) (*LoadResult, error) {
	t, err := ingest.ReadFile(path, s.opts)
	if err != nil {
		return nil, err
	}
	return s.LoadTable(t)
}

// LoadReader is LoadFile for an uploaded stream; name supplies the extension.
func (s *QAService) LoadReader(r io.Reader, name string) (*LoadResult, error) {
	t, err := ingest.Read(r, name, s.opts)
	if err != nil {
		return nil, err
	}
	return s.LoadTable(t)
}

// LoadTable indexes an already parsed table and publishes it.
func (s *QAService) LoadTable(t *domain.Table) (*LoadResult, error) {
	records, err := ingest.Records(t)
	if err != nil {
		return nil, err
	}
	snap, err := s.engine.Load(t.Source, records)
	if err != nil {
		return nil, err
	}
	res := &LoadResult{
		Source:  t.Source,
		Rows:    t.Len(),
		Columns: t.Columns,
		Preview: ingest.Head(t, previewRows),
	}
	for _, c := range ingest.TextColumns(t) {
		res.TextColumns = append(res.TextColumns, t.Columns[c])
	}
	for _, ts := range snap.Index.TopTerms(summaryTerms) {
		res.KeyTerms = append(res.KeyTerms, ts.Term)
	}
	s.log.WithFields(logrus.Fields{
		"source":       t.Source,
		"rows":         res.Rows,
		"text_columns": len(res.TextColumns),
	}).Info("table loaded")
	return res, nil
}

// Query returns the k rows most similar to question.
func (s *QAService) Query(question string, k int) ([]tfidf.Match, error) {
	return s.engine.Answer(question, k)
}

// Respond turns a chat message into the reply shown to the user.
func (s *QAService) Respond(message string) string {
	if IsQuit(message) {
		return "Goodbye!"
	}
	matches, err := s.engine.Answer(message, 0)
	if err != nil {
		return UserMessage(err)
	}
	return FormatMatches(matches)
}

// IsQuit reports whether message asks to end the conversation.
func IsQuit(message string) bool {
	return strings.EqualFold(strings.TrimSpace(message), "quit")
}

// FormatMatches renders matches as a numbered list.
func FormatMatches(matches []tfidf.Match) string {
	var b strings.Builder
	b.WriteString("Here's what I found in the CSV:\n\n")
	for i, m := range matches {
		fmt.Fprintf(&b, "%d. %s\n\n", i+1, m.Doc.Text)
	}
	return b.String()
}

// UserMessage maps an error to the text shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrEmptyIndex):
		return "No CSV data loaded"
	case errors.Is(err, domain.ErrNoTextColumns):
		return "Error: " + domain.ErrNoTextColumns.Error()
	case errors.Is(err, domain.ErrEmptyCorpus):
		return "Error loading CSV: no row contains searchable text"
	default:
		return "Error loading CSV: " + err.Error()
	}
}
