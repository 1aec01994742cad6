package storage

import (
	"context"
	"fmt"
)

// Store is an asynchronous string key-value store. A missing key is reported
// through ok=false, never as an error. Errors are I/O failures only.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	ListKeys(ctx context.Context) ([]string, error)
}

// ClearAll deletes every key in the store. It stops at the first failure.
func ClearAll(ctx context.Context, s Store) error {
	keys, err := s.ListKeys(ctx)
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}

	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %q: %w", key, err)
		}
	}

	return nil
}

// Size returns the total number of bytes held in stored values.
func Size(ctx context.Context, s Store) (int, error) {
	keys, err := s.ListKeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list keys: %w", err)
	}

	var total int
	for _, key := range keys {
		value, ok, err := s.Get(ctx, key)
		if err != nil {
			return 0, fmt.Errorf("get %q: %w", key, err)
		}
		if ok {
			total += len(value)
		}
	}

	return total, nil
}
