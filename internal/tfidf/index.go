// Package tfidf builds an immutable TF-IDF index over a corpus of records and
// ranks its documents against free-text queries by cosine similarity.
//
// Term frequency is the raw count of a term in a document. Inverse document
// frequency is smoothed as ln((1+N)/(1+df)) + 1, so every term has a positive
// weight. Document and query vectors are L2-normalized, which reduces cosine
// similarity to a sparse dot product.
package tfidf

import (
	"fmt"
	"iter"
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"csvqa/internal/domain"
)

// Document is one indexed record.
type Document struct {
	// ID is the ordinal of the record in the corpus the index was built from.
	ID int
	// Key is the id the host gave the record.
	Key    string
	Text   string
	Vector Vector
}

// Index is a read-only snapshot of a built corpus. All methods are safe for
// concurrent use.
type Index struct {
	tok      domain.Tokenizer
	vocab    *Vocabulary
	docs     []Document
	idf      []float64
	postings []*roaring.Bitmap
}

// Build tokenizes every record, assigns term ids in first-seen order and
// computes the normalized tf-idf vector of each document.
func Build(records []domain.Record, tok domain.Tokenizer) (*Index, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("indexing 0 records: %w", domain.ErrEmptyCorpus)
	}
	vocab := newVocabulary()
	counts := make([]map[int]int, len(records))
	for i, r := range records {
		c := make(map[int]int)
		for term := range tok.Tokenize(r.Text) {
			c[vocab.add(term)]++
		}
		counts[i] = c
	}
	if vocab.Len() == 0 {
		return nil, fmt.Errorf("indexing %d records: %w", len(records), domain.ErrEmptyCorpus)
	}

	postings := make([]*roaring.Bitmap, vocab.Len())
	for id := range postings {
		postings[id] = roaring.New()
	}
	for doc, c := range counts {
		for id := range c {
			postings[id].Add(uint32(doc))
		}
	}

	n := float64(len(records))
	idf := make([]float64, vocab.Len())
	for id, p := range postings {
		p.RunOptimize()
		df := float64(p.GetCardinality())
		idf[id] = math.Log((1+n)/(1+df)) + 1
	}

	docs := make([]Document, len(records))
	for i, r := range records {
		docs[i] = Document{
			ID:     i,
			Key:    r.ID,
			Text:   r.Text,
			Vector: newVector(counts[i], idf),
		}
	}
	return &Index{
		tok:      tok,
		vocab:    vocab,
		docs:     docs,
		idf:      idf,
		postings: postings,
	}, nil
}

// Len returns the number of documents.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.docs)
}

// Vocabulary returns the frozen vocabulary.
func (ix *Index) Vocabulary() *Vocabulary { return ix.vocab }

// Tokenizer returns the tokenizer the index was built with.
func (ix *Index) Tokenizer() domain.Tokenizer { return ix.tok }

// Document returns the document with the given id.
func (ix *Index) Document(id int) (*Document, bool) {
	if ix == nil || id < 0 || id >= len(ix.docs) {
		return nil, false
	}
	return &ix.docs[id], true
}

// Documents yields every document in id order.
func (ix *Index) Documents() iter.Seq[*Document] {
	return func(yield func(*Document) bool) {
		for i := range ix.docs {
			if !yield(&ix.docs[i]) {
				return
			}
		}
	}
}

// IDF returns the inverse document frequency of a term id, or 0 for an
// unknown id.
func (ix *Index) IDF(id int) float64 {
	if id < 0 || id >= len(ix.idf) {
		return 0
	}
	return ix.idf[id]
}

// DocumentFrequency returns the number of documents containing term id.
func (ix *Index) DocumentFrequency(id int) int {
	if id < 0 || id >= len(ix.postings) {
		return 0
	}
	return int(ix.postings[id].GetCardinality())
}

// TermStat describes how widespread a term is in the corpus.
type TermStat struct {
	Term    string
	DocFreq int
}

// TopTerms returns up to n terms ordered by document frequency, most common
// first, ties by term id.
func (ix *Index) TopTerms(n int) []TermStat {
	if n <= 0 || ix.vocab == nil {
		return nil
	}
	stats := make([]TermStat, 0, ix.vocab.Len())
	for id, term := range ix.vocab.All() {
		stats = append(stats, TermStat{Term: term, DocFreq: ix.DocumentFrequency(id)})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].DocFreq > stats[j].DocFreq
	})
	if n < len(stats) {
		stats = stats[:n]
	}
	return stats
}
