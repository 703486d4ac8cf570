package vectorindex

import (
	"context"
	"fmt"

	"github.com/abhisek/coursemate/internal/chunking"
	"github.com/abhisek/coursemate/internal/llm"
	"github.com/abhisek/coursemate/internal/store"
)

// SQLIndex is a persistent Index on the chunks table. Similarity is
// computed in process over the document's rows.
type SQLIndex struct {
	repo     store.ChunkRepo
	embedder llm.Embedder
}

// NewSQLIndex creates an index over repo using embedder for vectors.
func NewSQLIndex(repo store.ChunkRepo, embedder llm.Embedder) *SQLIndex {
	return &SQLIndex{repo: repo, embedder: embedder}
}

func (x *SQLIndex) Upsert(ctx context.Context, documentID string, chunks []chunking.Chunk) error {
	vecs, err := embedChunks(ctx, x.embedder, chunks)
	if err != nil {
		return err
	}

	records := make([]store.ChunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = store.ChunkRecord{
			ID:         ChunkID(documentID, c.Position),
			DocumentID: documentID,
			Position:   c.Position,
			Offset:     c.Offset,
			Content:    c.Text,
			Embedding:  vecs[i],
		}
	}

	if err := x.repo.ReplaceDocument(ctx, documentID, records); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	return nil
}

func (x *SQLIndex) Query(ctx context.Context, documentID, query string, limit int) ([]Result, error) {
	entries, err := x.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []Result{}, nil
	}

	qv, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return rank(qv, entries, limit), nil
}

func (x *SQLIndex) GetAll(ctx context.Context, documentID string) ([]Chunk, error) {
	entries, err := x.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	out := make([]Chunk, len(entries))
	for i, e := range entries {
		out[i] = e.chunk
	}
	return out, nil
}

func (x *SQLIndex) load(ctx context.Context, documentID string) ([]entry, error) {
	records, err := x.repo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	entries := make([]entry, len(records))
	for i, r := range records {
		entries[i] = entry{
			chunk: Chunk{
				ID:         r.ID,
				DocumentID: r.DocumentID,
				Position:   r.Position,
				Offset:     r.Offset,
				Text:       r.Content,
			},
			embedding: r.Embedding,
		}
	}
	return entries, nil
}
