package memory

import (
	"hash/fnv"
	"math"
)

const embeddingDims = 384

// hashEmbedding produces a deterministic unit vector from text. It carries no
// semantic signal, but it keeps the local vector provider self-contained:
// identical texts always land on identical vectors, which is enough for
// exact-recall behavior in dev and tests.
func hashEmbedding(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	embedding := make([]float32, embeddingDims)
	for i := range embedding {
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return normalize(embedding)
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}
