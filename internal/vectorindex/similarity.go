package vectorindex

import (
	"math"
	"sort"
)

// entry is a chunk with its embedding, as held by an index.
type entry struct {
	chunk     Chunk
	embedding []float32
}

// rank scores entries against query and returns the top limit results.
// Sorting is stable on score descending, then position ascending, so equal
// inputs give equal outputs.
func rank(query []float32, entries []entry, limit int) []Result {
	results := make([]Result, len(entries))
	for i, e := range entries {
		results[i] = Result{Chunk: e.chunk, Score: cosineSimilarity(query, e.embedding)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Position < results[j].Position
	})

	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// cosineSimilarity returns 0 for mismatched or zero vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
