// Package engine holds the live TF-IDF index and answers questions against
// it. Loading a corpus builds a complete new index and publishes it with one
// atomic pointer swap, so readers always see either the previous index or the
// new one, never a partial build. Queries run lock-free on the snapshot they
// picked up.
package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"csvqa/internal/domain"
	"csvqa/internal/logger"
	"csvqa/internal/metrics"
	"csvqa/internal/tfidf"
)

// DefaultTopK is used when Answer is called with k <= 0.
const DefaultTopK = 3

// State is the lifecycle state of an Engine.
type State int

const (
	StateUnbuilt State = iota
	StateReady
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	default:
		return "unbuilt"
	}
}

// Snapshot is one published index together with where it came from.
type Snapshot struct {
	Index    *tfidf.Index
	Source   string
	LoadedAt time.Time
}

// Stats summarizes the live snapshot.
type Stats struct {
	State     State
	Source    string
	Documents int
	Terms     int
	LoadedAt  time.Time
}

// Engine owns the current index. It is safe for concurrent use.
type Engine struct {
	tok     domain.Tokenizer
	topK    int
	log     *logrus.Entry
	metrics *metrics.Metrics
	current atomic.Pointer[Snapshot]
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger entry.
func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTopK sets the default number of answers.
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// New creates an engine in the unbuilt state.
func New(tok domain.Tokenizer, opts ...Option) *Engine {
	e := &Engine{tok: tok, topK: DefaultTopK}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Discard()
	}
	return e
}

// BuildIndex builds an index from records without publishing it.
func (e *Engine) BuildIndex(records []domain.Record) (*tfidf.Index, error) {
	start := time.Now()
	ix, err := tfidf.Build(records, e.tok)
	elapsed := time.Since(start)
	switch {
	case errors.Is(err, domain.ErrEmptyCorpus):
		e.metrics.ObserveBuild("empty_corpus", elapsed, 0, 0)
		return nil, err
	case err != nil:
		e.metrics.ObserveBuild("error", elapsed, 0, 0)
		return nil, err
	}
	e.metrics.ObserveBuild("ok", elapsed, ix.Len(), ix.Vocabulary().Len())
	e.log.WithFields(logrus.Fields{
		"documents": ix.Len(),
		"terms":     ix.Vocabulary().Len(),
		"elapsed":   elapsed,
	}).Debug("index built")
	return ix, nil
}

// LoadNewCorpus builds an index from records and makes it the live index.
// On error the previous index stays live.
func (e *Engine) LoadNewCorpus(records []domain.Record) error {
	_, err := e.Load("", records)
	return err
}

// Load is LoadNewCorpus with a source label kept for Stats.
func (e *Engine) Load(source string, records []domain.Record) (*Snapshot, error) {
	ix, err := e.BuildIndex(records)
	if err != nil {
		e.log.WithError(err).WithField("source", source).Warn("corpus rejected, keeping previous index")
		return nil, fmt.Errorf("loading corpus %s: %w", source, err)
	}
	snap := &Snapshot{Index: ix, Source: source, LoadedAt: time.Now()}
	prev := e.current.Swap(snap)
	e.log.WithFields(logrus.Fields{
		"source":    source,
		"documents": ix.Len(),
		"terms":     ix.Vocabulary().Len(),
		"replaced":  prev != nil,
	}).Info("index published")
	return snap, nil
}

// Snapshot returns the live snapshot, or nil before the first load.
func (e *Engine) Snapshot() *Snapshot {
	return e.current.Load()
}

// State reports whether an index has been published.
func (e *Engine) State() State {
	if e.current.Load() == nil {
		return StateUnbuilt
	}
	return StateReady
}

// Answer ranks the live index against query and returns the k best matches.
// k <= 0 uses the configured default.
func (e *Engine) Answer(query string, k int) ([]tfidf.Match, error) {
	matches, _, err := e.AnswerSnapshot(query, k)
	return matches, err
}

// AnswerSnapshot is Answer that also returns the snapshot the matches point
// into.
func (e *Engine) AnswerSnapshot(query string, k int) ([]tfidf.Match, *Snapshot, error) {
	start := time.Now()
	snap := e.current.Load()
	if snap == nil {
		e.metrics.ObserveQuery(metrics.OutcomeNoIndex, time.Since(start))
		return nil, nil, domain.ErrEmptyIndex
	}
	if k <= 0 {
		k = e.topK
	}
	matches, err := snap.Index.Rank(snap.Index.Vectorize(query), k)
	if err != nil {
		e.metrics.ObserveQuery(metrics.OutcomeError, time.Since(start))
		return nil, nil, fmt.Errorf("answering %q: %w", query, err)
	}
	outcome := metrics.OutcomeZeroResult
	if len(matches) > 0 && matches[0].Score > 0 {
		outcome = metrics.OutcomeHit
	}
	e.metrics.ObserveQuery(outcome, time.Since(start))
	e.log.WithFields(logrus.Fields{
		"query":   query,
		"k":       k,
		"outcome": outcome,
	}).Debug("question answered")
	return matches, snap, nil
}

// Text returns the original text of document id in the live index.
func (e *Engine) Text(id int) (string, error) {
	snap := e.current.Load()
	if snap == nil {
		return "", domain.ErrEmptyIndex
	}
	doc, ok := snap.Index.Document(id)
	if !ok {
		return "", fmt.Errorf("document %d: %w", id, domain.ErrDocumentNotFound)
	}
	return doc.Text, nil
}

// Stats summarizes the live index.
func (e *Engine) Stats() Stats {
	snap := e.current.Load()
	if snap == nil {
		return Stats{State: StateUnbuilt}
	}
	return Stats{
		State:     StateReady,
		Source:    snap.Source,
		Documents: snap.Index.Len(),
		Terms:     snap.Index.Vocabulary().Len(),
		LoadedAt:  snap.LoadedAt,
	}
}
