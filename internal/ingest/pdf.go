package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Extractor turns document bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// CommandRunner runs an external program with stdin and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

// Run executes name with args, feeding stdin.
func (ExecRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(errOut.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out.Bytes(), nil
}

// PDFToText extracts text with poppler's pdftotext, keeping the layout.
type PDFToText struct {
	Runner CommandRunner
	Binary string
}

// NewPDFToText returns an extractor using pdftotext from PATH.
func NewPDFToText() *PDFToText {
	return &PDFToText{Runner: ExecRunner{}, Binary: "pdftotext"}
}

// Extract implements Extractor.
func (p *PDFToText) Extract(ctx context.Context, data []byte) (string, error) {
	runner := p.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	bin := p.Binary
	if bin == "" {
		bin = "pdftotext"
	}

	out, err := runner.Run(ctx, data, bin, "-layout", "-", "-")
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	// pdftotext separates pages with form feeds
	return strings.ReplaceAll(string(out), "\f", "\n\n"), nil
}

// PlainText treats the bytes as UTF-8 text.
type PlainText struct{}

// Extract implements Extractor.
func (PlainText) Extract(_ context.Context, data []byte) (string, error) {
	return string(data), nil
}
