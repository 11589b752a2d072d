package search

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync/atomic"

	"teamwiki/src/infrastructure/integrations/yandex"
	"teamwiki/src/infrastructure/log"
)

// Embedder maps text to a fixed-dimension vector. It prefers the remote
// provider and keeps a deterministic local projection as the degraded mode:
// rejected credentials latch the fallback permanently, an unreachable
// endpoint triggers it per call, and every other provider failure is fatal
// to the request because a silently degraded vector would rank wrong
// neighbors.
type Embedder struct {
	provider   EmbeddingProvider
	dim        int
	authFailed atomic.Bool
}

// NewEmbedder creates an Embedder of the given dimension. provider may be
// nil, in which case every call uses the local fallback.
func NewEmbedder(provider EmbeddingProvider, dim int) *Embedder {
	return &Embedder{
		provider: provider,
		dim:      dim,
	}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.provider == nil || !e.provider.Configured() || e.authFailed.Load() {
		return e.localEmbed(text), nil
	}

	vector, err := e.provider.Embed(ctx, text)
	if err == nil {
		return vector, nil
	}

	switch {
	case errors.Is(err, yandex.ErrUnauthorized):
		// No point retrying remote with the same key.
		e.authFailed.Store(true)
		log.Error(err, "embedding provider rejected credentials, switching to local embeddings")
		return e.localEmbed(text), nil
	case errors.Is(err, yandex.ErrUnreachable):
		log.Error(err, "embedding provider unreachable, using local embedding for this query")
		return e.localEmbed(text), nil
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingProvider, err)
	}
}

// localEmbed is a hashing bag-of-words projection: each whitespace token
// increments the component at hash(token) mod dim. Pure function of the
// input, so repeated calls are reproducible.
func (e *Embedder) localEmbed(text string) []float32 {
	vector := make([]float32, e.dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vector[h.Sum32()%uint32(e.dim)]++
	}
	return vector
}
