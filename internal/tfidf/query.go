package tfidf

// Vectorize turns query into a unit vector in the index's term space using
// the tokenizer and idf weights fixed at build time. Terms the vocabulary has
// never seen are dropped; the vocabulary is not modified. A query with no
// known terms yields the zero vector.
func (ix *Index) Vectorize(query string) Vector {
	if ix == nil || ix.vocab == nil {
		return Vector{}
	}
	counts := make(map[int]int)
	for term := range ix.tok.Tokenize(query) {
		if id, ok := ix.vocab.ID(term); ok {
			counts[id]++
		}
	}
	return newVector(counts, ix.idf)
}
