package vectorindex

import (
	"context"
	"sync"

	"github.com/abhisek/coursemate/internal/chunking"
	"github.com/abhisek/coursemate/internal/llm"
)

// MemoryIndex is a process-local Index.
type MemoryIndex struct {
	mu       sync.RWMutex
	docs     map[string][]entry // documentID -> entries ordered by position
	embedder llm.Embedder
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex(embedder llm.Embedder) *MemoryIndex {
	return &MemoryIndex{docs: make(map[string][]entry), embedder: embedder}
}

func (x *MemoryIndex) Upsert(ctx context.Context, documentID string, chunks []chunking.Chunk) error {
	vecs, err := embedChunks(ctx, x.embedder, chunks)
	if err != nil {
		return err
	}

	entries := make([]entry, len(chunks))
	for i, c := range chunks {
		entries[i] = entry{
			chunk: Chunk{
				ID:         ChunkID(documentID, c.Position),
				DocumentID: documentID,
				Position:   c.Position,
				Offset:     c.Offset,
				Text:       c.Text,
			},
			embedding: vecs[i],
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.docs[documentID] = entries
	return nil
}

func (x *MemoryIndex) Query(ctx context.Context, documentID, query string, limit int) ([]Result, error) {
	x.mu.RLock()
	entries := x.docs[documentID]
	x.mu.RUnlock()

	if len(entries) == 0 {
		return []Result{}, nil
	}

	qv, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return rank(qv, entries, limit), nil
}

func (x *MemoryIndex) GetAll(_ context.Context, documentID string) ([]Chunk, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	entries := x.docs[documentID]
	out := make([]Chunk, len(entries))
	for i, e := range entries {
		out[i] = e.chunk
	}
	return out, nil
}
