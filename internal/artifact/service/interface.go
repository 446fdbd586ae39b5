// Package service implements artifact storage backends.
//
// Every backend reports a missing object as domain.ErrObjectNotFound and treats
// deleting a missing object as success.
package service

import (
	"context"
)

// Backend is a durable blob store addressed by key.
type Backend interface {
	Put(ctx context.Context, key string, data []byte, metadata map[string]string) error
	Get(ctx context.Context, key string) ([]byte, map[string]string, error)
	Head(ctx context.Context, key string) (map[string]string, int64, error)
	Delete(ctx context.Context, key string) error
	Close() error
}
