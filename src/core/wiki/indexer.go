package wiki

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// chunkThreshold is the content length above which an article is split
	// before embedding. Providers cap input size, so long articles are
	// embedded chunk by chunk and the chunk vectors are mean-pooled.
	chunkThreshold = 2000
	chunkSize      = 1500
	chunkOverlap   = 200
)

// Indexer embeds an article and writes the vector into the similarity index
type Indexer struct {
	embedder Embedder
	index    VectorIndex
}

func NewIndexer(embedder Embedder, index VectorIndex) *Indexer {
	return &Indexer{
		embedder: embedder,
		index:    index,
	}
}

func (ix *Indexer) Index(ctx context.Context, article *Article) error {
	vector, err := ix.embedArticle(ctx, article)
	if err != nil {
		return fmt.Errorf("failed to embed article %s: %w", article.ID, err)
	}

	if err := ix.index.Upsert(ctx, article.ID, vector, article.GroupID); err != nil {
		return fmt.Errorf("failed to upsert vector for article %s: %w", article.ID, err)
	}

	return nil
}

func (ix *Indexer) Remove(ctx context.Context, articleID string) error {
	if err := ix.index.Delete(ctx, articleID); err != nil {
		return fmt.Errorf("failed to delete vector for article %s: %w", articleID, err)
	}
	return nil
}

func (ix *Indexer) embedArticle(ctx context.Context, article *Article) ([]float32, error) {
	text := article.EmbeddingText()
	if len(text) <= chunkThreshold {
		return ix.embedder.Embed(ctx, text)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)
	chunks, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split content: %w", err)
	}
	if len(chunks) == 0 {
		return ix.embedder.Embed(ctx, text)
	}

	var pooled []float32
	for _, chunk := range chunks {
		vector, err := ix.embedder.Embed(ctx, chunk)
		if err != nil {
			return nil, err
		}
		if pooled == nil {
			pooled = make([]float32, len(vector))
		}
		if len(vector) != len(pooled) {
			return nil, fmt.Errorf("inconsistent embedding dimension: %d != %d", len(vector), len(pooled))
		}
		for i, v := range vector {
			pooled[i] += v
		}
	}

	n := float32(len(chunks))
	for i := range pooled {
		pooled[i] /= n
	}

	return pooled, nil
}
