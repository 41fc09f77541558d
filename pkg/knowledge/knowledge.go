// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package knowledge provides the retrieval collaborator agents use to pull
// context snippets into their prompts.
package knowledge

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/braidhq/braid/pkg/memory"
)

// Retriever returns context snippets for a query, best first. Retrieval
// failures are treated by agents as "no context", never as fatal.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]string, error)
}

// Document is a unit of knowledge to index.
type Document struct {
	ID   string
	Text string
	Meta map[string]any
}

// Base is a vector-backed knowledge base: documents are chunked, embedded,
// and upserted; retrieval embeds the query and returns the top-k chunk texts.
type Base struct {
	embedder   memory.Embedder
	store      memory.VectorStore
	collection string
	chunkSize  int
}

// NewBase creates a knowledge base over the given embedder and store.
func NewBase(embedder memory.Embedder, store memory.VectorStore, collection string) *Base {
	return &Base{
		embedder:   embedder,
		store:      store,
		collection: collection,
		chunkSize:  200,
	}
}

// WithChunkSize overrides the chunk size in whitespace tokens.
func (b *Base) WithChunkSize(tokens int) *Base {
	if tokens > 0 {
		b.chunkSize = tokens
	}
	return b
}

// Init ensures the backing collection exists with the given vector size.
func (b *Base) Init(ctx context.Context, vectorSize uint64) error {
	return b.store.CreateCollection(ctx, b.collection, vectorSize)
}

// AddDocument chunks, embeds, and stores a document. Empty documents are a
// no-op.
func (b *Base) AddDocument(ctx context.Context, doc Document) error {
	chunks := chunkText(doc.Text, b.chunkSize)
	if len(chunks) == 0 {
		return nil
	}
	points := make([]memory.Point, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := b.embedder.Embed(ctx, chunk)
		if err != nil {
			return err
		}
		payload := map[string]any{"text": chunk}
		for k, v := range doc.Meta {
			payload[k] = v
		}
		if doc.ID != "" {
			payload["document_id"] = doc.ID
		}
		points = append(points, memory.Point{
			ID:      uuid.NewString(),
			Vector:  vector,
			Payload: payload,
		})
	}
	return b.store.Upsert(ctx, b.collection, points)
}

// Retrieve implements Retriever.
func (b *Base) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	vector, err := b.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := b.store.Search(ctx, b.collection, vector, topK, 0)
	if err != nil {
		return nil, err
	}
	snippets := make([]string, 0, len(hits))
	for _, hit := range hits {
		if text, ok := hit.Payload["text"].(string); ok {
			snippets = append(snippets, text)
		}
	}
	return snippets, nil
}

// StaticRetriever returns a fixed snippet list regardless of the query.
// Useful for tests and simple setups.
type StaticRetriever struct {
	Snippets []string
}

// Retrieve implements Retriever.
func (s *StaticRetriever) Retrieve(_ context.Context, _ string, topK int) ([]string, error) {
	if topK > 0 && len(s.Snippets) > topK {
		return s.Snippets[:topK], nil
	}
	return s.Snippets, nil
}

func chunkText(text string, size int) []string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}
	var chunks []string
	for start := 0; start < len(tokens); start += size {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, strings.Join(tokens[start:end], " "))
	}
	return chunks
}
