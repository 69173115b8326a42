// Package backend defines the contract every storage backend client
// satisfies and ships the built-in implementations. The mailbox only
// ever talks to the Client interface; real networks, test fakes and
// the in-memory transport are interchangeable.
package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	ErrNotFound   = errors.New("backend: not found")
	ErrNotEnabled = errors.New("backend: transport is not enabled in this build")
)

// Client is one independent content-addressed storage backend. Any
// call may fail with a backend-specific transport error; the caller
// owns redundancy across clients.
type Client interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// Put stores an immutable blob and returns its content hash.
	Put(ctx context.Context, blob []byte) (string, error)
	// Send publishes a route entry binding a content hash to a
	// routing id.
	Send(ctx context.Context, routingID, hash string) error
	// List returns the content hashes published for a routing id.
	List(ctx context.Context, routingID string) ([]string, error)
	// Get fetches a blob by content hash.
	Get(ctx context.Context, hash string) ([]byte, error)
}

// ContentHash is the canonical blob identifier: lowercase hex SHA-256
// of the bytes. Every backend must agree on it for dedup to hold.
func ContentHash(blob []byte) string {
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}
