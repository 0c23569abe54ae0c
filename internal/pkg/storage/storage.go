package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrInvalidPath = errors.New("invalid file path")
)

// FileStorage keeps receipt files addressed by a relative key.
type FileStorage interface {
	// Put stores the content under key and returns the cleaned key.
	Put(ctx context.Context, key string, content io.Reader) (string, error)

	// Open streams a stored file; ErrNotFound when it is missing.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a file; deleting a missing file is not an error.
	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)
}
