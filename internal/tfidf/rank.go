package tfidf

import (
	"container/heap"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"csvqa/internal/domain"
)

// Match pairs a document of the index with its similarity to a query.
type Match struct {
	Doc   *Document
	Score float64
}

// Rank scores every document against q and returns the k best, highest score
// first, ties broken by lower document id. Documents sharing no term with q
// score 0. k larger than the corpus returns every document; k <= 0 returns
// no matches.
func (ix *Index) Rank(q Vector, k int) ([]Match, error) {
	if ix.Len() == 0 {
		return nil, fmt.Errorf("ranking: %w", domain.ErrEmptyIndex)
	}
	if k <= 0 {
		return []Match{}, nil
	}
	k = min(k, len(ix.docs))

	scores := make([]float64, len(ix.docs))
	it := ix.candidates(q).Iterator()
	for it.HasNext() {
		d := it.Next()
		scores[d] = q.Dot(ix.docs[d].Vector)
	}

	h := &topK{scores: scores, ids: make([]int, 0, k)}
	for d := range ix.docs {
		if h.Len() < k {
			heap.Push(h, d)
			continue
		}
		if h.better(d, h.ids[0]) {
			h.ids[0] = d
			heap.Fix(h, 0)
		}
	}

	out := make([]Match, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		d := heap.Pop(h).(int)
		out[i] = Match{Doc: &ix.docs[d], Score: scores[d]}
	}
	return out, nil
}

// candidates returns the documents that contain at least one term of q.
func (ix *Index) candidates(q Vector) *roaring.Bitmap {
	if q.IsZero() {
		return roaring.New()
	}
	lists := make([]*roaring.Bitmap, 0, q.Len())
	for _, id := range q.IDs {
		if id < len(ix.postings) {
			lists = append(lists, ix.postings[id])
		}
	}
	return roaring.FastOr(lists...)
}

// topK is a min-heap of document ids whose root is the worst kept match.
type topK struct {
	scores []float64
	ids    []int
}

func (h *topK) better(a, b int) bool {
	if h.scores[a] != h.scores[b] {
		return h.scores[a] > h.scores[b]
	}
	return a < b
}

func (h *topK) Len() int           { return len(h.ids) }
func (h *topK) Less(i, j int) bool { return h.better(h.ids[j], h.ids[i]) }
func (h *topK) Swap(i, j int)      { h.ids[i], h.ids[j] = h.ids[j], h.ids[i] }
func (h *topK) Push(x any)         { h.ids = append(h.ids, x.(int)) }

func (h *topK) Pop() any {
	n := len(h.ids)
	x := h.ids[n-1]
	h.ids = h.ids[:n-1]
	return x
}
