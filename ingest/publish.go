package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Uploader stores a finished export. storage.Storage satisfies it.
type Uploader interface {
	Upload(ctx context.Context, key string, r io.Reader) error
}

// Publish uploads the export file at path under key. The file is passed as
// an *os.File so signing backends can seek it.
func Publish(ctx context.Context, dst Uploader, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("ingest: open export: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	if err := dst.Upload(ctx, key, f); err != nil {
		return fmt.Errorf("ingest: publish %s: %w", key, err)
	}
	return nil
}
