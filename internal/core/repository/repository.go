package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/catrink/internal/port"
)

// ErrNoChange can be returned from an Update callback to skip the write.
var ErrNoChange = errors.New("no change")

// Collection describes one kind of document. Global and ForScope bind it to
// a concrete key.
type Collection[T any] struct {
	store    port.KeyValueStore
	keys     Keys
	name     string
	fallback func() T
	log      logrus.FieldLogger
}

// NewCollection registers a document kind. fallback supplies the value used
// when the key is missing or holds malformed JSON; nil means the zero value.
func NewCollection[T any](store port.KeyValueStore, keys Keys, name string, fallback func() T, log logrus.FieldLogger) *Collection[T] {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Collection[T]{store: store, keys: keys, name: name, fallback: fallback, log: log}
}

func (c *Collection[T]) Global() *Repository[T] {
	return c.bind(c.keys.Global(c.name))
}

func (c *Collection[T]) ForScope(scope string) (*Repository[T], error) {
	key, err := c.keys.Scoped(c.name, scope)
	if err != nil {
		return nil, err
	}
	return c.bind(key), nil
}

func (c *Collection[T]) bind(key string) *Repository[T] {
	return &Repository[T]{
		store:    c.store,
		key:      key,
		fallback: c.fallback,
		log:      c.log.WithField("key", key),
	}
}

type Repository[T any] struct {
	store    port.KeyValueStore
	key      string
	fallback func() T
	log      logrus.FieldLogger
}

func (r *Repository[T]) Key() string {
	return r.key
}

func (r *Repository[T]) Load(ctx context.Context) (T, error) {
	raw, ok, err := r.store.Get(ctx, r.key)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("load %s: %w", r.key, err)
	}
	if !ok {
		return r.defaultValue(), nil
	}
	return r.decode(raw), nil
}

func (r *Repository[T]) Save(ctx context.Context, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.key, err)
	}
	if err := r.store.Set(ctx, r.key, raw); err != nil {
		return fmt.Errorf("save %s: %w", r.key, err)
	}
	return nil
}

// Update runs fn against the stored value and writes the result back as a
// single atomic step of the underlying store.
func (r *Repository[T]) Update(ctx context.Context, fn func(*T) error) (T, error) {
	var result T
	err := r.store.Update(ctx, r.key, func(current []byte) ([]byte, error) {
		v := r.defaultValue()
		if current != nil {
			v = r.decode(current)
		}
		if err := fn(&v); err != nil {
			return nil, err
		}
		result = v
		return json.Marshal(v)
	})
	if errors.Is(err, ErrNoChange) {
		return r.Load(ctx)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("update %s: %w", r.key, err)
	}
	return result, nil
}

func (r *Repository[T]) Delete(ctx context.Context) error {
	if err := r.store.Delete(ctx, r.key); err != nil {
		return fmt.Errorf("delete %s: %w", r.key, err)
	}
	return nil
}

func (r *Repository[T]) decode(raw []byte) T {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		r.log.WithError(err).Warn("discarding malformed stored document")
		return r.defaultValue()
	}
	return v
}

func (r *Repository[T]) defaultValue() T {
	if r.fallback != nil {
		return r.fallback()
	}
	var zero T
	return zero
}
