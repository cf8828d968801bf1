// Package storage keeps generated documents and uploaded files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var (
	// ErrNotExist is returned by Open for unknown keys.
	ErrNotExist = errors.New("object does not exist")
	// ErrInvalidKey rejects keys that are empty or leave the store.
	ErrInvalidKey = errors.New("invalid object key")
)

// Store is a flat key/value blob store. Delete of a missing key succeeds.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// cleanKey normalises key to a slash separated relative path.
func cleanKey(key string) (string, error) {
	k := strings.ReplaceAll(key, "\\", "/")
	k = strings.TrimLeft(k, "/")
	if k == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	cleaned := path.Clean(k)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

// ReadAll opens key and reads it fully.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
