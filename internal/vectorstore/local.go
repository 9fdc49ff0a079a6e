package vectorstore

import (
	"context"
	"hash/fnv"
	"strings"
)

const localDimensions = 256

// LocalEmbedder is an offline Embedder: a hashed bag-of-words vector.
// Far weaker than a real embedding model, but deterministic and free,
// which keeps retrieval working when no API key is configured.
type LocalEmbedder struct{}

func (LocalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, localDimensions)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%localDimensions]++
	}
	return vec, nil
}
