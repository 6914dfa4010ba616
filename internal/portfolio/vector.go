package portfolio

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"

	"github.com/spigell/cold-emailer/internal/ai"
)

const (
	collectionName = "portfolio"
	// metaLink holds the entry reference link in document metadata.
	metaLink = "link"
)

// Document is a stored index item.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// VectorIndex is the nearest-neighbour store behind Index.
type VectorIndex interface {
	Add(ctx context.Context, docs []Document) error
	Query(ctx context.Context, text string, k int) ([]Document, error)
	Count() int
}

// ChromemIndex is an in-memory VectorIndex backed by chromem-go.
type ChromemIndex struct {
	collection *chromem.Collection
}

// NewChromemIndex creates an empty collection that embeds text with embedder.
func NewChromemIndex(embedder ai.Embedder) (*ChromemIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("portfolio: embedder is required")
	}

	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(collectionName, nil, embedder.Embed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemIndex{collection: collection}, nil
}

func (c *ChromemIndex) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	items := make([]chromem.Document, 0, len(docs))
	for _, d := range docs {
		items = append(items, chromem.Document{
			ID:       d.ID,
			Content:  d.Content,
			Metadata: d.Metadata,
		})
	}

	// Sequential adds keep remote embedding calls inside provider rate limits.
	if err := c.collection.AddDocuments(ctx, items, 1); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

// Query returns up to k nearest documents; k is clamped to the collection size.
func (c *ChromemIndex) Query(ctx context.Context, text string, k int) ([]Document, error) {
	count := c.collection.Count()
	if k > count {
		k = count
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := c.collection.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", text, err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, Document{ID: r.ID, Content: r.Content, Metadata: r.Metadata})
	}
	return docs, nil
}

func (c *ChromemIndex) Count() int {
	return c.collection.Count()
}
