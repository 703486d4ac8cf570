package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/coursemate/internal/llm"
	"github.com/abhisek/coursemate/internal/store"
	"github.com/abhisek/coursemate/internal/vectorindex"
)

type fakeRunner struct {
	out   string
	err   error
	name  string
	args  []string
	stdin []byte
}

func (f *fakeRunner) Run(_ context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	f.name, f.args, f.stdin = name, args, stdin
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.out), nil
}

type fixture struct {
	ingester *Ingester
	index    vectorindex.Index
	docs     store.DocumentRepo
	runner   *fakeRunner
	uploads  string
}

func newFixture(t *testing.T, text string) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	f := &fixture{
		index:   vectorindex.NewSQLIndex(s.ChunkRepo(), llm.NewMockEmbedder()),
		docs:    s.DocumentRepo(),
		runner:  &fakeRunner{out: text},
		uploads: filepath.Join(t.TempDir(), "uploads"),
	}
	f.ingester = New(Options{
		Index:     f.index,
		Documents: f.docs,
		Extractor: &PDFToText{Runner: f.runner},
		UploadDir: f.uploads,
	})
	return f
}

var samplePDF = []byte("%PDF-1.7\nfake body")

func TestIsPDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"notes.pdf", samplePDF, true},
		{"NOTES.PDF", samplePDF, true},
		{"notes.txt", samplePDF, false},
		{"notes.pdf", []byte("hello"), false},
		{"notes", samplePDF, false},
		{"notes.pdf", nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPDF(tt.name, tt.data), "%s %q", tt.name, tt.data)
	}
}

func TestIngest(t *testing.T) {
	f := newFixture(t, "Cells are the basic unit of life.\fMitochondria make ATP.")
	ctx := context.Background()

	res, err := f.ingester.Ingest(ctx, "bio.pdf", samplePDF)
	require.NoError(t, err)
	require.Empty(t, res.Rejected)
	assert.NotEmpty(t, res.DocumentID)
	assert.Equal(t, 1, res.ChunkCount)

	assert.Equal(t, "pdftotext", f.runner.name)
	assert.Equal(t, []string{"-layout", "-", "-"}, f.runner.args)
	assert.Equal(t, samplePDF, f.runner.stdin)

	chunks, err := f.index.GetAll(ctx, res.DocumentID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "life.\n\nMitochondria")

	doc, err := f.docs.Get(ctx, res.DocumentID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "bio.pdf", doc.Filename)
	assert.Equal(t, 1, doc.ChunkCount)
	assert.Len(t, doc.SHA256, 64)

	saved, err := os.ReadFile(filepath.Join(f.uploads, res.DocumentID+".pdf"))
	require.NoError(t, err)
	assert.Equal(t, samplePDF, saved)
}

func TestIngest_RejectsNonPDF(t *testing.T) {
	f := newFixture(t, "text")
	res, err := f.ingester.Ingest(context.Background(), "notes.docx", []byte("PK\x03\x04"))
	require.NoError(t, err)
	assert.Equal(t, ReasonNotPDF, res.Rejected)
	assert.Empty(t, res.DocumentID)
	assert.Empty(t, f.runner.name, "extractor must not run")

	docs, err := f.docs.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngest_NoExtractableText(t *testing.T) {
	f := newFixture(t, "  \n\f  ")
	res, err := f.ingester.Ingest(context.Background(), "scan.pdf", samplePDF)
	require.NoError(t, err)
	assert.Equal(t, ReasonEmpty, res.Rejected)

	docs, err := f.docs.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngest_ExtractorFailure(t *testing.T) {
	f := newFixture(t, "")
	f.runner.err = errors.New("exit status 1")
	_, err := f.ingester.Ingest(context.Background(), "bad.pdf", samplePDF)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract pdf text")
}

func TestIngest_SameBytesGetNewID(t *testing.T) {
	f := newFixture(t, "Photosynthesis converts light into chemical energy.")
	ctx := context.Background()

	first, err := f.ingester.Ingest(ctx, "bio.pdf", samplePDF)
	require.NoError(t, err)
	second, err := f.ingester.Ingest(ctx, "bio.pdf", samplePDF)
	require.NoError(t, err)
	assert.NotEqual(t, first.DocumentID, second.DocumentID)

	docs, err := f.docs.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, docs[0].SHA256, docs[1].SHA256)

	for _, id := range []string{first.DocumentID, second.DocumentID} {
		chunks, err := f.index.GetAll(ctx, id)
		require.NoError(t, err)
		assert.Len(t, chunks, 1)
	}
}

func TestIngestText_Chunks(t *testing.T) {
	f := newFixture(t, "")
	text := strings.Repeat("The cell membrane regulates transport. ", 40)

	res, err := f.ingester.IngestText(context.Background(), "notes.txt", text)
	require.NoError(t, err)
	assert.Greater(t, res.ChunkCount, 1)
	assert.Empty(t, f.runner.name)

	_, err = os.Stat(filepath.Join(f.uploads, res.DocumentID+".pdf"))
	assert.True(t, os.IsNotExist(err), "text ingests are not kept as uploads")
}

func TestIngestFile_Latin1(t *testing.T) {
	f := newFixture(t, "")
	path := filepath.Join(t.TempDir(), "lecture.txt")
	require.NoError(t, os.WriteFile(path, []byte("caf\xe9 au lait is a drink"), 0o644))

	res, err := f.ingester.IngestFile(context.Background(), path)
	require.NoError(t, err)
	require.Empty(t, res.Rejected)

	chunks, err := f.index.GetAll(context.Background(), res.DocumentID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "caf\uFFFD au lait is a drink", chunks[0].Text)
	assert.True(t, utf8.ValidString(chunks[0].Text))
}

func TestIngestFile(t *testing.T) {
	f := newFixture(t, "From the pdf.")
	dir := t.TempDir()
	txt := filepath.Join(dir, "a.txt")
	pdf := filepath.Join(dir, "b.pdf")
	require.NoError(t, os.WriteFile(txt, []byte("From the text file."), 0o644))
	require.NoError(t, os.WriteFile(pdf, samplePDF, 0o644))

	res, err := f.ingester.IngestFile(context.Background(), txt)
	require.NoError(t, err)
	chunks, err := f.index.GetAll(context.Background(), res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "From the text file.", chunks[0].Text)

	res, err = f.ingester.IngestFile(context.Background(), pdf)
	require.NoError(t, err)
	assert.Equal(t, "b.pdf", res.Filename)
	assert.Equal(t, "pdftotext", f.runner.name)
}

func TestWatch(t *testing.T) {
	f := newFixture(t, "")
	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	processed := make(chan *Result, 4)
	errc := make(chan error, 1)
	go func() {
		errc <- f.ingester.Watch(ctx, dir, func(_ string, res *Result, err error) {
			if err == nil {
				processed <- res
			}
		})
	}()

	// give the watcher time to register
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.md"), []byte("# skip"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lecture.txt"), []byte("Enzymes speed up reactions."), 0o644))

	select {
	case res := <-processed:
		assert.Equal(t, "lecture.txt", res.Filename)
		assert.Equal(t, 1, res.ChunkCount)
	case <-ctx.Done():
		t.Fatal("timed out waiting for watched file")
	}

	cancel()
	assert.NoError(t, <-errc)
}
