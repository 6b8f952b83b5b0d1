package port

import (
	"context"
	"errors"
)

// ErrConflict is returned by Update when a concurrent writer kept winning
// until the backend gave up retrying.
var ErrConflict = errors.New("concurrent update conflict")

// UpdateFunc receives the current value (nil when the key is absent) and
// returns the value to store.
type UpdateFunc func(current []byte) ([]byte, error)

type KeyValueStore interface {
	// Get returns the stored document, or ok=false when the key is absent
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set overwrites the document at key
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key; deleting an absent key is not an error
	Delete(ctx context.Context, key string) error

	// Update atomically replaces the document at key with fn's result
	Update(ctx context.Context, key string, fn UpdateFunc) error
}
