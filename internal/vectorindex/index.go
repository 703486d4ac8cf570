// Package vectorindex stores chunk embeddings per document and answers
// similarity queries scoped to one document.
package vectorindex

import (
	"context"
	"fmt"

	"github.com/abhisek/coursemate/internal/chunking"
	"github.com/abhisek/coursemate/internal/llm"
)

// Chunk is an indexed chunk without its embedding.
type Chunk struct {
	ID         string
	DocumentID string
	Position   int
	Offset     int
	Text       string
}

// Result is a chunk with its similarity to a query.
type Result struct {
	Chunk
	Score float64
}

// Index is the document-scoped vector store.
//
// Upsert overwrites: a second upsert for the same document replaces all of
// its previous chunks at once. Query and GetAll on a document with no
// chunks return an empty result and a nil error.
type Index interface {
	Upsert(ctx context.Context, documentID string, chunks []chunking.Chunk) error

	// Query returns up to limit chunks of documentID ranked by cosine
	// similarity descending, ties broken by position ascending.
	Query(ctx context.Context, documentID, query string, limit int) ([]Result, error)

	// GetAll returns every chunk of documentID ordered by position.
	GetAll(ctx context.Context, documentID string) ([]Chunk, error)
}

// ChunkID is the composite identifier of a chunk.
func ChunkID(documentID string, position int) string {
	return fmt.Sprintf("%s_%d", documentID, position)
}

// embedChunks embeds chunk texts in one batch and checks the vector count.
func embedChunks(ctx context.Context, emb llm.Embedder, chunks []chunking.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	vecs, err := emb.EmbedBatch(ctx, chunking.Texts(chunks))
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vecs) != len(chunks) {
		return nil, &llm.ErrEmbeddingMismatch{Want: len(chunks), Got: len(vecs)}
	}
	return vecs, nil
}
