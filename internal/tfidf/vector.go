package tfidf

import (
	"iter"
	"math"
	"sort"
)

// Vector is a sparse vector over vocabulary term ids. IDs are strictly
// increasing and Weights[i] belongs to IDs[i]. The zero Vector is the zero
// vector.
type Vector struct {
	IDs     []int
	Weights []float64
}

// newVector builds a Vector from raw term counts, weighting each count by
// idf and scaling the result to unit length.
func newVector(counts map[int]int, idf []float64) Vector {
	if len(counts) == 0 {
		return Vector{}
	}
	ids := make([]int, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	weights := make([]float64, len(ids))
	for i, id := range ids {
		weights[i] = float64(counts[id]) * idf[id]
	}
	v := Vector{IDs: ids, Weights: weights}
	v.normalize()
	return v
}

func (v *Vector) normalize() {
	n := v.Norm()
	if n == 0 {
		return
	}
	for i := range v.Weights {
		v.Weights[i] /= n
	}
}

// Len returns the number of nonzero entries.
func (v Vector) Len() int { return len(v.IDs) }

// IsZero reports whether v has no nonzero entries.
func (v Vector) IsZero() bool { return len(v.IDs) == 0 }

// Norm returns the Euclidean norm.
func (v Vector) Norm() float64 {
	sum := 0.0
	for _, w := range v.Weights {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Weight returns the weight stored for term id, or 0.
func (v Vector) Weight(id int) float64 {
	i := sort.SearchInts(v.IDs, id)
	if i < len(v.IDs) && v.IDs[i] == id {
		return v.Weights[i]
	}
	return 0
}

// All yields (term id, weight) pairs in id order.
func (v Vector) All() iter.Seq2[int, float64] {
	return func(yield func(int, float64) bool) {
		for i, id := range v.IDs {
			if !yield(id, v.Weights[i]) {
				return
			}
		}
	}
}

// Dot returns the dot product, walking only the ids both vectors share.
// For unit vectors this is their cosine similarity.
func (v Vector) Dot(o Vector) float64 {
	sum := 0.0
	i, j := 0, 0
	for i < len(v.IDs) && j < len(o.IDs) {
		switch {
		case v.IDs[i] < o.IDs[j]:
			i++
		case v.IDs[i] > o.IDs[j]:
			j++
		default:
			sum += v.Weights[i] * o.Weights[j]
			i++
			j++
		}
	}
	return sum
}
