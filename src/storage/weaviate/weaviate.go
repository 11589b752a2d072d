package weaviate

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

const (
	// ClassName is the single flat similarity index holding one vector per article.
	ClassName = "WikiArticle"

	// VectorSize is the embedding dimension of the deployment.
	VectorSize = 256

	DefaultQueryLimit = 5
)

// Match is a single nearest-neighbor result: an article id with its
// similarity score. Scores are comparable only within one query.
type Match struct {
	ID    string
	Score float64
}

// SDK encapsulates all Weaviate operations for the article index
type SDK struct {
	client *weaviate.Client
}

// NewSDK creates a new instance of SDK
func NewSDK(client *weaviate.Client) *SDK {
	return &SDK{
		client: client,
	}
}

// EnsureReady creates the article class with cosine distance if it does not
// exist yet. Safe to call on every startup.
func (w *SDK) EnsureReady(ctx context.Context) error {
	exists, err := w.classExists(ctx, ClassName)
	if err != nil {
		return fmt.Errorf("failed to check if class exists: %w", err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:      ClassName,
		Vectorizer: "none",
		VectorIndexConfig: map[string]interface{}{
			"distance": "cosine",
		},
		Properties: []*models.Property{
			{Name: "articleId", DataType: []string{"text"}},
			{Name: "groupId", DataType: []string{"text"}},
		},
	}

	err = w.client.Schema().ClassCreator().WithClass(class).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to create Weaviate class: %w", err)
	}

	return nil
}

func (w *SDK) classExists(ctx context.Context, className string) (bool, error) {
	schema, err := w.client.Schema().Getter().Do(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get schema: %w", err)
	}

	for _, class := range schema.Classes {
		if class.Class == className {
			return true, nil
		}
	}

	return false, nil
}

// Upsert inserts or replaces the vector for an article. The article UUID is
// used as the Weaviate object id, which makes batch writes idempotent.
func (w *SDK) Upsert(ctx context.Context, articleID string, vector []float32, groupID string) error {
	obj := &models.Object{
		Class: ClassName,
		ID:    strfmt.UUID(articleID),
		Properties: map[string]interface{}{
			"articleId": articleID,
			"groupId":   groupID,
		},
		Vector: vector,
	}

	resp, err := w.client.Batch().ObjectsBatcher().WithObjects(obj).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert vector: %w", err)
	}
	if len(resp) == 0 {
		return fmt.Errorf("batch upsert returned no results")
	}
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("failed to upsert vector: %s", r.Result.Errors.Error[0].Message)
		}
	}

	return nil
}

// Delete removes the vector for an article. Deleting an id that was never
// indexed is not an error.
func (w *SDK) Delete(ctx context.Context, articleID string) error {
	err := w.client.Data().Deleter().
		WithClassName(ClassName).
		WithID(articleID).
		Do(ctx)

	if err != nil {
		var clientErr *fault.WeaviateClientError
		if errors.As(err, &clientErr) && clientErr.StatusCode == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete vector: %w", err)
	}

	return nil
}

// Query performs cosine nearest-neighbor search, optionally restricted to a
// single group. Results are ordered by descending certainty.
func (w *SDK) Query(ctx context.Context, vector []float32, limit int, groupID string) ([]Match, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	fields := []graphql.Field{
		{Name: "articleId"},
		{Name: "_additional { certainty }"},
	}

	nearVector := w.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	query := w.client.GraphQL().Get().
		WithClassName(ClassName).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit)

	if groupID != "" {
		query = query.WithWhere(filters.Where().
			WithPath([]string{"groupId"}).
			WithOperator(filters.Equal).
			WithValueText(groupID))
	}

	result, err := query.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("failed to query vectors: %s", result.Errors[0].Message)
	}

	var matches []Match
	if data, ok := result.Data["Get"].(map[string]interface{}); ok {
		if objects, ok := data[ClassName].([]interface{}); ok {
			for _, obj := range objects {
				objMap, ok := obj.(map[string]interface{})
				if !ok {
					continue
				}
				id, _ := objMap["articleId"].(string)
				if id == "" {
					continue
				}

				var score float64
				if additional, ok := objMap["_additional"].(map[string]interface{}); ok {
					score, _ = additional["certainty"].(float64)
				}

				matches = append(matches, Match{ID: id, Score: score})
			}
		}
	}

	return matches, nil
}
