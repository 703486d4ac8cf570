package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchedExtensions are the file types Watch picks up.
var watchedExtensions = []string{".pdf", ".txt"}

// settleDelay gives writers time to finish before a new file is read.
const settleDelay = 500 * time.Millisecond

// Watch ingests .pdf and .txt files created in dir until ctx is cancelled.
// Each processed file is reported on done when it is non-nil. Failures are
// logged and watching continues.
func (in *Ingester) Watch(ctx context.Context, dir string, done func(path string, res *Result, err error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	in.logger.Info("watching for material", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) || !isWatched(event.Name) {
				continue
			}

			select {
			case <-time.After(settleDelay):
			case <-ctx.Done():
				return nil
			}

			res, err := in.IngestFile(ctx, event.Name)
			switch {
			case err != nil:
				in.logger.Error("ingest failed", "path", event.Name, "error", err)
			case res.Rejected != "":
				in.logger.Warn("ingest rejected", "path", event.Name, "reason", res.Rejected)
			}
			if done != nil {
				done(event.Name, res, err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			in.logger.Warn("watcher error", "error", err)
		}
	}
}

// IngestFile reads path and ingests it as a PDF or, for .txt, as text.
func (in *Ingester) IngestFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	name := filepath.Base(path)
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		return in.IngestText(ctx, name, string(data))
	}
	return in.Ingest(ctx, name, data)
}

func isWatched(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range watchedExtensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
