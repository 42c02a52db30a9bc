// Package store is the key-value persistence port of the venue. The
// engine reads the whole snapshot through it at startup and writes
// keys back best-effort on every state mutation; a failing store never
// stops the engine.
package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store is the persistence port. Load returns errs.ErrNotFound when
// the key has never been saved.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

// LoadJSON loads key and unmarshals it into v. A missing key is
// returned as errs.ErrNotFound with v untouched.
func LoadJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := s.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SaveJSON marshals v and saves it under key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Save(ctx, key, raw)
}
