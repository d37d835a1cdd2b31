// Package tokenizer splits text into normalized terms for indexing and
// querying. Input is NFKC-normalized and case-folded, then scanned for runs
// of letters, digits and underscores.
package tokenizer

import (
	"fmt"
	"iter"
	"regexp"
	"slices"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultPattern matches word-character runs, letters and digits in any script.
const DefaultPattern = `[\p{L}\p{N}_]+`

// DefaultMinLength drops single-character terms.
const DefaultMinLength = 2

// Stopword list names accepted by Options.Stopwords.
const (
	StopwordsNone    = "none"
	StopwordsEnglish = "english"
)

// Options configures a Tokenizer.
type Options struct {
	Pattern        string
	MinLength      int
	Stopwords      string
	ExtraStopwords []string
}

// Tokenizer is safe for concurrent use.
type Tokenizer struct {
	pattern   *regexp.Regexp
	minLength int
	stopwords map[string]struct{}
}

// New compiles a tokenizer from opts. Zero values fall back to the defaults.
func New(opts Options) (*Tokenizer, error) {
	pattern := opts.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling token pattern %q: %w", pattern, err)
	}
	minLength := opts.MinLength
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	t := &Tokenizer{
		pattern:   re,
		minLength: minLength,
		stopwords: make(map[string]struct{}),
	}
	switch opts.Stopwords {
	case "", StopwordsNone:
	case StopwordsEnglish:
		for _, w := range englishStopwords {
			t.stopwords[w] = struct{}{}
		}
	default:
		return nil, fmt.Errorf("unknown stopword list %q", opts.Stopwords)
	}
	for _, w := range opts.ExtraStopwords {
		t.stopwords[fold(w)] = struct{}{}
	}
	return t, nil
}

// Default returns a tokenizer with default options.
func Default() *Tokenizer {
	t, err := New(Options{})
	if err != nil {
		panic(err)
	}
	return t
}

// Tokenize returns the terms of text in order of appearance.
// The sequence is lazy and can be ranged over any number of times.
func (t *Tokenizer) Tokenize(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if text == "" {
			return
		}
		rest := fold(text)
		for len(rest) > 0 {
			loc := t.pattern.FindStringIndex(rest)
			if loc == nil {
				return
			}
			term := rest[loc[0]:loc[1]]
			rest = rest[loc[1]:]
			if loc[0] == loc[1] {
				// empty match: step over one rune to make progress
				if len(rest) == 0 {
					return
				}
				_, size := utf8.DecodeRuneInString(rest)
				rest = rest[size:]
				continue
			}
			if utf8.RuneCountInString(term) < t.minLength {
				continue
			}
			if _, stop := t.stopwords[term]; stop {
				continue
			}
			if !yield(term) {
				return
			}
		}
	}
}

// Terms collects Tokenize(text) into a slice.
func (t *Tokenizer) Terms(text string) []string {
	return slices.Collect(t.Tokenize(text))
}

// fold builds a fresh Caser per call; cases.Caser is not safe to share.
func fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}
