package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Download for a missing object.
var ErrNotFound = errors.New("storage: object not found")

// Storage is a flat key/object store.
type Storage interface {
	// Upload writes the reader's content under key, replacing any existing
	// object. Backends that sign payloads need an io.ReadSeeker.
	Upload(ctx context.Context, key string, r io.Reader) error
	// Download opens the object under key. The caller closes it.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	// URL locates key for humans and logs; it is not signed.
	URL(key string) string
}
