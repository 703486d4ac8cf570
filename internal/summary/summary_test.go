package summary

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/abhisek/coursemate/internal/chunking"
	"github.com/abhisek/coursemate/internal/llm"
	"github.com/abhisek/coursemate/internal/vectorindex"
)

func seededIndex(t *testing.T, n int) vectorindex.Index {
	t.Helper()
	idx := vectorindex.NewMemoryIndex(llm.NewMockEmbedder())
	var chunks []chunking.Chunk
	for i := 0; i < n; i++ {
		chunks = append(chunks, chunking.Chunk{Position: i, Text: fmt.Sprintf("section-%02d", i)})
	}
	if n > 0 {
		if err := idx.Upsert(context.Background(), "doc", chunks); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	return idx
}

func TestSummarize(t *testing.T) {
	mock := llm.NewMockProvider(llm.TextResponse("\n1. Short summary: cells.\n"))
	s := New(seededIndex(t, 40), mock, 0)

	res, err := s.Summarize(context.Background(), "doc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.NoContent || res.Summary != "1. Short summary: cells." {
		t.Fatalf("unexpected result %+v", res)
	}

	prompt := mock.LastPrompt()
	if !strings.HasPrefix(prompt, "You are a study assistant.") {
		t.Fatalf("unexpected prompt %q", prompt)
	}
	if !strings.Contains(prompt, "section-29") || strings.Contains(prompt, "section-30") {
		t.Fatal("expected the first 30 chunks")
	}
	if got := mock.Calls[0]; got.Messages[0].Role != llm.RoleUser {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestSummarize_NoContent(t *testing.T) {
	mock := llm.NewMockProvider()
	res, err := New(seededIndex(t, 0), mock, 5).Summarize(context.Background(), "doc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.NoContent {
		t.Fatal("expected NoContent")
	}
	if mock.CallCount() != 0 {
		t.Fatal("provider must not be called")
	}
}

func TestSummarize_ProviderFailure(t *testing.T) {
	mock := llm.NewMockProvider() // empty queue returns ErrProviderUnavailable
	_, err := New(seededIndex(t, 2), mock, 5).Summarize(context.Background(), "doc")
	if !llm.IsProviderFailure(err) {
		t.Fatalf("expected provider failure, got %v", err)
	}
}
