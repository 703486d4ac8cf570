// Package ingest turns uploaded faculty material into indexed chunks.
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/coursemate/internal/chunking"
	"github.com/abhisek/coursemate/internal/store"
	"github.com/abhisek/coursemate/internal/vectorindex"
)

// Rejection reasons.
const (
	ReasonNotPDF = "Only PDF files allowed"
	ReasonEmpty  = "document contains no extractable text"
)

var pdfMagic = []byte("%PDF-")

// Result describes one ingest. Rejected is set, and nothing is stored,
// when the input was refused.
type Result struct {
	DocumentID string
	Filename   string
	ChunkCount int
	Rejected   string
}

// Options configures an Ingester.
type Options struct {
	Index     vectorindex.Index
	Documents store.DocumentRepo
	Splitter  *chunking.Splitter
	Extractor Extractor

	// UploadDir, when set, keeps a copy of each accepted PDF.
	UploadDir string
	Logger    *slog.Logger
}

// Ingester validates, extracts, chunks and indexes documents.
type Ingester struct {
	index     vectorindex.Index
	documents store.DocumentRepo
	splitter  *chunking.Splitter
	extractor Extractor
	uploadDir string
	logger    *slog.Logger

	now   func() time.Time
	newID func() string
}

// New creates an Ingester. Splitter defaults to chunking.Default and
// Extractor to pdftotext.
func New(opts Options) *Ingester {
	in := &Ingester{
		index:     opts.Index,
		documents: opts.Documents,
		splitter:  opts.Splitter,
		extractor: opts.Extractor,
		uploadDir: opts.UploadDir,
		logger:    opts.Logger,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
	if in.splitter == nil {
		in.splitter = chunking.Default()
	}
	if in.extractor == nil {
		in.extractor = NewPDFToText()
	}
	if in.logger == nil {
		in.logger = slog.Default()
	}
	return in
}

// IsPDF reports whether filename and data both look like a PDF.
func IsPDF(filename string, data []byte) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf") && bytes.HasPrefix(data, pdfMagic)
}

// Ingest stores a PDF upload. Every call yields a new document id, even
// for bytes already ingested.
func (in *Ingester) Ingest(ctx context.Context, filename string, data []byte) (*Result, error) {
	if !IsPDF(filename, data) {
		return &Result{Filename: filename, Rejected: ReasonNotPDF}, nil
	}

	text, err := in.extractor.Extract(ctx, data)
	if err != nil {
		return nil, err
	}

	res, err := in.register(ctx, filename, text, data)
	if err != nil || res.Rejected != "" {
		return res, err
	}

	if in.uploadDir != "" {
		if err := in.save(res.DocumentID, data); err != nil {
			// the document is already indexed; a missing copy is not fatal
			in.logger.Warn("failed to keep upload", "file_id", res.DocumentID, "error", err)
		}
	}
	return res, nil
}

// IngestText stores already-extracted text under name.
func (in *Ingester) IngestText(ctx context.Context, name, text string) (*Result, error) {
	return in.register(ctx, name, text, []byte(text))
}

func (in *Ingester) register(ctx context.Context, name, text string, raw []byte) (*Result, error) {
	// Latin-1 and other non-UTF-8 files are stored with U+FFFD in place of
	// undecodable bytes; text columns in Postgres reject invalid UTF-8.
	text = strings.ToValidUTF8(text, "\uFFFD")

	var chunks []chunking.Chunk
	if strings.TrimSpace(text) != "" {
		chunks = in.splitter.Split(text)
	}
	if len(chunks) == 0 {
		return &Result{Filename: name, Rejected: ReasonEmpty}, nil
	}

	id := in.newID()
	if err := in.index.Upsert(ctx, id, chunks); err != nil {
		return nil, fmt.Errorf("index %s: %w", name, err)
	}

	sum := sha256.Sum256(raw)
	err := in.documents.Create(ctx, store.Document{
		ID:         id,
		Filename:   name,
		SHA256:     hex.EncodeToString(sum[:]),
		ChunkCount: len(chunks),
		CreatedAt:  in.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", name, err)
	}

	in.logger.Info("ingested document", "file_id", id, "filename", name, "chunks", len(chunks))
	return &Result{DocumentID: id, Filename: name, ChunkCount: len(chunks)}, nil
}

func (in *Ingester) save(id string, data []byte) error {
	if err := os.MkdirAll(in.uploadDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(in.uploadDir, id+".pdf"), data, 0o644)
}
