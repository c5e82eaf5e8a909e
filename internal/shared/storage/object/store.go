package object

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the key does not exist in the store.
	ErrNotFound = errors.New("object not found")

	// ErrUnavailable indicates the store rejected or failed a write or delete.
	ErrUnavailable = errors.New("object store unavailable")
)

// ObjectStore puts, signs and deletes binary objects by key. Implementations do not retry.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error
	// Sign returns a time-limited read URL, or ErrNotFound when the key is missing.
	Sign(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
