package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/abhisek/coursemate/internal/chunking"
	"github.com/abhisek/coursemate/internal/llm"
	"github.com/abhisek/coursemate/internal/vectorindex"
)

func seededIndex(t *testing.T, n int) (*vectorindex.MemoryIndex, *llm.MockEmbedder) {
	t.Helper()
	emb := llm.NewMockEmbedder()
	var chunks []chunking.Chunk
	for i := 0; i < n; i++ {
		text := fmt.Sprintf("passage %d about osmosis", i)
		// Earlier passages score higher so rank order is predictable.
		emb.Fixed[text] = []float32{float32(n - i), 1}
		chunks = append(chunks, chunking.Chunk{Position: i, Text: text})
	}
	emb.Fixed["osmosis?"] = []float32{1, 0}

	idx := vectorindex.NewMemoryIndex(emb)
	if err := idx.Upsert(context.Background(), "doc", chunks); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	return idx, emb
}

func TestAssemble_LabelsWorkingSet(t *testing.T) {
	idx, _ := seededIndex(t, 30)
	a := New(idx, DefaultConfig())

	got, err := a.Assemble(context.Background(), "doc", "osmosis?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Candidates != 25 {
		t.Fatalf("candidates = %d, want 25", got.Candidates)
	}
	if len(got.Chunks) != 10 {
		t.Fatalf("working set = %d, want 10", len(got.Chunks))
	}
	for i, c := range got.Chunks {
		if want := fmt.Sprintf("Chunk %d", i+1); c.Label != want {
			t.Fatalf("label %d = %q, want %q", i, c.Label, want)
		}
		if c.Position != i {
			t.Fatalf("rank %d holds position %d", i, c.Position)
		}
	}

	wantPrefix := "[Chunk 1] passage 0 about osmosis\n\n[Chunk 2] passage 1 about osmosis"
	if got.Rendered[:len(wantPrefix)] != wantPrefix {
		t.Fatalf("rendered = %q", got.Rendered)
	}
	if l, ok := got.Label("Chunk 10"); !ok || l.Position != 9 {
		t.Fatalf("Label(Chunk 10) = %+v, %v", l, ok)
	}
	if _, ok := got.Label("Chunk 11"); ok {
		t.Fatal("Chunk 11 should not be selected")
	}
}

func TestAssemble_FewerThanWorkingSet(t *testing.T) {
	idx, _ := seededIndex(t, 3)
	got, err := New(idx, DefaultConfig()).Assemble(context.Background(), "doc", "osmosis?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Empty() || got.Candidates != 3 || len(got.Chunks) != 3 {
		t.Fatalf("unexpected context %+v", got)
	}
}

func TestAssemble_EmptyDocument(t *testing.T) {
	idx, _ := seededIndex(t, 3)
	got, err := New(idx, Config{}).Assemble(context.Background(), "unknown", "osmosis?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Empty() || got.Rendered != "" || len(got.Chunks) != 0 {
		t.Fatalf("expected empty context, got %+v", got)
	}
}

func TestAssemble_Deterministic(t *testing.T) {
	idx, _ := seededIndex(t, 15)
	a := New(idx, Config{CandidateCap: 12, WorkingSet: 4})
	first, err := a.Assemble(context.Background(), "doc", "osmosis?")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := a.Assemble(context.Background(), "doc", "osmosis?")
		if err != nil {
			t.Fatal(err)
		}
		if again.Rendered != first.Rendered {
			t.Fatal("rendered context changed between runs")
		}
	}
	if first.Candidates != 12 || len(first.Chunks) != 4 {
		t.Fatalf("limits not applied: %d candidates, %d chunks", first.Candidates, len(first.Chunks))
	}
}

func TestAssemble_IndexError(t *testing.T) {
	idx, emb := seededIndex(t, 3)
	emb.Err = &llm.ErrProviderUnavailable{Err: errors.New("embedder down")}

	_, err := New(idx, DefaultConfig()).Assemble(context.Background(), "doc", "osmosis?")
	if !llm.IsProviderFailure(err) {
		t.Fatalf("expected provider failure, got %v", err)
	}
}
