package service

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvqa/internal/domain"
	"csvqa/internal/engine"
	"csvqa/internal/ingest"
	"csvqa/internal/tokenizer"
)

const petsCSV = `id,description,weight
0,cats are great pets,4.5
1,dogs are loyal animals,30
2,cats and dogs are both pets,12
`

func newService() *QAService {
	return NewQAService(engine.New(tokenizer.Default()), ingest.Options{}, nil)
}

func TestRespondBeforeLoad(t *testing.T) {
	s := newService()
	assert.Equal(t, "No CSV data loaded", s.Respond("what pets?"))
	assert.Equal(t, "Goodbye!", s.Respond("  QUIT "))
}

func TestLoadReaderAndRespond(t *testing.T) {
	s := newService()
	res, err := s.LoadReader(strings.NewReader(petsCSV), "pets.csv")
	require.NoError(t, err)

	assert.Equal(t, "CSV loaded with 3 rows", res.Status())
	assert.Equal(t, []string{"description"}, res.TextColumns)
	assert.Len(t, res.Preview, 3)
	assert.Equal(t, "are", res.KeyTerms[0])
	assert.True(t, strings.HasPrefix(res.Summary(), "Key terms: are, "))

	want := "Here's what I found in the CSV:\n\n" +
		"1. cats are great pets\n\n" +
		"2. cats and dogs are both pets\n\n" +
		"3. dogs are loyal animals\n\n"
	assert.Equal(t, want, s.Respond("pets"))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pets.csv")
	require.NoError(t, os.WriteFile(path, []byte(petsCSV), 0o644))

	s := newService()
	res, err := s.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, res.Source)
	assert.Equal(t, path, s.Engine().Stats().Source)

	matches, err := s.Query("loyal", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "1", matches[0].Doc.Key)
}

func TestLoadErrorsKeepPreviousTable(t *testing.T) {
	s := newService()
	_, err := s.LoadReader(strings.NewReader(petsCSV), "pets.csv")
	require.NoError(t, err)

	_, err = s.LoadReader(strings.NewReader("a,b\n1,2\n"), "numbers.csv")
	assert.ErrorIs(t, err, domain.ErrNoTextColumns)
	assert.Equal(t, "Error: CSV must contain at least one text column", UserMessage(err))

	_, err = s.LoadReader(strings.NewReader("a\n\"\"\n"), "blank.csv")
	assert.Error(t, err)

	_, err = s.LoadReader(strings.NewReader("x"), "x.pdf")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	assert.Equal(t, "pets.csv", s.Engine().Stats().Source)
}

func TestLoadEmptyTextRows(t *testing.T) {
	s := newService()
	_, err := s.LoadReader(strings.NewReader("name,n\nx,1\n"), "tiny.csv")
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
	assert.Equal(t, "Error loading CSV: no row contains searchable text", UserMessage(err))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "No CSV data loaded", UserMessage(domain.ErrEmptyIndex))
	assert.Equal(t, "Error loading CSV: boom", UserMessage(errors.New("boom")))
}
