package tfidf

import (
	"fmt"
	"iter"

	"csvqa/internal/domain"
)

// Vocabulary maps terms to dense ids assigned in first-seen order.
// A Vocabulary returned by BuildVocabulary or held by an Index is frozen.
type Vocabulary struct {
	terms []string
	ids   map[string]int
}

func newVocabulary() *Vocabulary {
	return &Vocabulary{ids: make(map[string]int)}
}

// add returns the id of term, assigning the next id if it is new.
func (v *Vocabulary) add(term string) int {
	if id, ok := v.ids[term]; ok {
		return id
	}
	id := len(v.terms)
	v.ids[term] = id
	v.terms = append(v.terms, term)
	return id
}

// BuildVocabulary tokenizes texts in order and assigns ids to terms as they
// are first encountered.
func BuildVocabulary(texts []string, tok domain.Tokenizer) (*Vocabulary, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("building vocabulary from 0 texts: %w", domain.ErrEmptyCorpus)
	}
	v := newVocabulary()
	for _, text := range texts {
		for term := range tok.Tokenize(text) {
			v.add(term)
		}
	}
	if v.Len() == 0 {
		return nil, fmt.Errorf("building vocabulary from %d texts: %w", len(texts), domain.ErrEmptyCorpus)
	}
	return v, nil
}

// ID returns the id of term and whether the term is known.
func (v *Vocabulary) ID(term string) (int, bool) {
	id, ok := v.ids[term]
	return id, ok
}

// Term returns the term with the given id.
func (v *Vocabulary) Term(id int) (string, bool) {
	if id < 0 || id >= len(v.terms) {
		return "", false
	}
	return v.terms[id], true
}

// Len returns the number of distinct terms.
func (v *Vocabulary) Len() int { return len(v.terms) }

// All yields (id, term) pairs in id order.
func (v *Vocabulary) All() iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for id, term := range v.terms {
			if !yield(id, term) {
				return
			}
		}
	}
}
