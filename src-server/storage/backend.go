package storage

import "context"

// Backend persists raw values by key. A missing key is reported as
// (nil, false, nil), never as an error.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Write(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
