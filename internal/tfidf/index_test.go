package tfidf

import (
	"math"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvqa/internal/domain"
	"csvqa/internal/tokenizer"
)

const tolerance = 1e-9

func petsCorpus() []domain.Record {
	return []domain.Record{
		{ID: "0", Text: "cats are great pets"},
		{ID: "1", Text: "dogs are loyal animals"},
		{ID: "2", Text: "cats and dogs are both pets"},
	}
}

func mustBuild(t *testing.T, records []domain.Record) *Index {
	t.Helper()
	ix, err := Build(records, tokenizer.Default())
	require.NoError(t, err)
	return ix
}

func TestBuildVocabularyFirstSeenOrder(t *testing.T) {
	v, err := BuildVocabulary([]string{"cats are great pets", "dogs are loyal"}, tokenizer.Default())
	require.NoError(t, err)

	want := []string{"cats", "are", "great", "pets", "dogs", "loyal"}
	require.Equal(t, len(want), v.Len())
	for id, term := range want {
		got, ok := v.ID(term)
		require.True(t, ok)
		assert.Equal(t, id, got)
		back, ok := v.Term(id)
		require.True(t, ok)
		assert.Equal(t, term, back)
	}
	_, ok := v.Term(len(want))
	assert.False(t, ok)
}

func TestBuildVocabularyEmpty(t *testing.T) {
	_, err := BuildVocabulary(nil, tokenizer.Default())
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)

	_, err = BuildVocabulary([]string{"", " ! "}, tokenizer.Default())
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
}

func TestBuildEmptyCorpus(t *testing.T) {
	_, err := Build(nil, tokenizer.Default())
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)

	_, err = Build([]domain.Record{{ID: "1", Text: ""}}, tokenizer.Default())
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
}

func TestSmoothedIDF(t *testing.T) {
	ix := mustBuild(t, petsCorpus())
	n := 3.0
	cases := map[string]float64{
		"are":   1,
		"cats":  math.Log((1+n)/(1+2)) + 1,
		"great": math.Log((1+n)/(1+1)) + 1,
	}
	for term, want := range cases {
		id, ok := ix.Vocabulary().ID(term)
		require.True(t, ok, term)
		assert.InDelta(t, want, ix.IDF(id), tolerance, term)
	}
	assert.Equal(t, 0.0, ix.IDF(-1))
}

func TestDocumentVectorsAreUnitLength(t *testing.T) {
	records := append(petsCorpus(), domain.Record{ID: "3", Text: "x"})
	ix := mustBuild(t, records)
	for doc := range ix.Documents() {
		if doc.Vector.IsZero() {
			assert.Equal(t, "x", doc.Text)
			continue
		}
		assert.InDelta(t, 1.0, doc.Vector.Norm(), tolerance)
	}
}

func TestRawCountTermFrequency(t *testing.T) {
	ix := mustBuild(t, []domain.Record{{ID: "a", Text: "red red blue"}, {ID: "b", Text: "green"}})
	doc, ok := ix.Document(0)
	require.True(t, ok)
	red, _ := ix.Vocabulary().ID("red")
	blue, _ := ix.Vocabulary().ID("blue")
	assert.InDelta(t, 2.0, doc.Vector.Weight(red)/doc.Vector.Weight(blue), tolerance)
}

func TestPetsRegression(t *testing.T) {
	ix := mustBuild(t, petsCorpus())
	got, err := ix.Rank(ix.Vectorize("pets"), 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, 0, got[0].Doc.ID)
	assert.Equal(t, 2, got[1].Doc.ID)
	assert.Equal(t, 1, got[2].Doc.ID)
	assert.InDelta(t, 0.4805, got[0].Score, 1e-4)
	assert.InDelta(t, 0.3763, got[1].Score, 1e-4)
	assert.Equal(t, 0.0, got[2].Score)
}

func TestSelfSimilarityRanksFirst(t *testing.T) {
	ix := mustBuild(t, petsCorpus())
	for doc := range ix.Documents() {
		got, err := ix.Rank(ix.Vectorize(doc.Text), 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, doc.ID, got[0].Doc.ID)
		assert.InDelta(t, 1.0, got[0].Score, tolerance)
	}
}

func TestRankTieBreakByLowestID(t *testing.T) {
	ix := mustBuild(t, []domain.Record{
		{ID: "a", Text: "alpha"},
		{ID: "b", Text: "beta gamma"},
		{ID: "c", Text: "beta gamma"},
		{ID: "d", Text: "beta gamma"},
	})
	got, err := ix.Rank(ix.Vectorize("beta gamma"), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Doc.ID)
	assert.Equal(t, 2, got[1].Doc.ID)
	assert.Equal(t, got[0].Score, got[1].Score)
}

func TestRankKBound(t *testing.T) {
	ix := mustBuild(t, petsCorpus())
	for _, k := range []int{-1, 0, 1, 2, 3, 10} {
		t.Run(strconv.Itoa(k), func(t *testing.T) {
			got, err := ix.Rank(ix.Vectorize("cats dogs"), k)
			require.NoError(t, err)
			assert.Len(t, got, max(0, min(k, ix.Len())))
			for i := 1; i < len(got); i++ {
				assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
			}
		})
	}
}

func TestZeroQuery(t *testing.T) {
	ix := mustBuild(t, petsCorpus())
	vocabSize := ix.Vocabulary().Len()

	for _, q := range []string{"", "zebra unicorn", "?!"} {
		v := ix.Vectorize(q)
		assert.True(t, v.IsZero(), q)
		got, err := ix.Rank(v, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 0, got[0].Doc.ID)
		assert.Equal(t, 1, got[1].Doc.ID)
		assert.Equal(t, 0.0, got[0].Score)
	}
	assert.Equal(t, vocabSize, ix.Vocabulary().Len())
	_, ok := ix.Vocabulary().ID("zebra")
	assert.False(t, ok)
}

func TestQueryVectorIsUnitLength(t *testing.T) {
	ix := mustBuild(t, petsCorpus())
	v := ix.Vectorize("cats cats pets and moon")
	assert.InDelta(t, 1.0, v.Norm(), tolerance)
	moon := false
	for id := range v.All() {
		term, _ := ix.Vocabulary().Term(id)
		moon = moon || term == "moon"
	}
	assert.False(t, moon)
}

func TestRankEmptyIndex(t *testing.T) {
	var ix *Index
	_, err := ix.Rank(Vector{}, 3)
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
	assert.True(t, ix.Vectorize("anything").IsZero())
}

func TestRankDeterministic(t *testing.T) {
	ix := mustBuild(t, petsCorpus())
	q := ix.Vectorize("dogs are pets")
	first, err := ix.Rank(q, 3)
	require.NoError(t, err)
	second, err := ix.Rank(q, 3)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRankConcurrentReaders(t *testing.T) {
	ix := mustBuild(t, petsCorpus())
	want, err := ix.Rank(ix.Vectorize("loyal dogs"), 3)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := ix.Rank(ix.Vectorize("loyal dogs"), 3)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestDocumentLookup(t *testing.T) {
	ix := mustBuild(t, petsCorpus())
	doc, ok := ix.Document(1)
	require.True(t, ok)
	assert.Equal(t, "1", doc.Key)
	assert.Equal(t, "dogs are loyal animals", doc.Text)

	_, ok = ix.Document(3)
	assert.False(t, ok)
	_, ok = ix.Document(-1)
	assert.False(t, ok)
}

func TestTopTerms(t *testing.T) {
	ix := mustBuild(t, petsCorpus())
	got := ix.TopTerms(3)
	assert.Equal(t, []TermStat{
		{Term: "are", DocFreq: 3},
		{Term: "cats", DocFreq: 2},
		{Term: "pets", DocFreq: 2},
	}, got)
	assert.Nil(t, ix.TopTerms(0))
}
