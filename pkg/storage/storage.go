package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the backing document has never been written.
var ErrNotFound = errors.New("document not found")

// Backend persists a single document wholesale. Every Write replaces the
// previous content; there is no incremental update path.
type Backend interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Exists(ctx context.Context) (bool, error)
}
