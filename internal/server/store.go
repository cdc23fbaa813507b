package server

import (
	"context"
	"io"
)

// BlobStore is the byte-storage collaborator. Content is keyed by
// (namespace, filename); the namespace name equals the room identifier
// verbatim. Implementations must be safe for concurrent use and must make
// Remove and RemoveNamespace idempotent: deleting an absent blob or an
// absent namespace is not an error.
type BlobStore interface {
	// CreateNamespace prepares the storage subdivision for a room.
	CreateNamespace(ctx context.Context, ns string) error

	// NamespaceExists reports whether the namespace is live.
	NamespaceExists(ctx context.Context, ns string) (bool, error)

	// RemoveNamespace purges every remaining blob in the namespace and the
	// namespace itself.
	RemoveNamespace(ctx context.Context, ns string) error

	// Put writes a blob. size may be -1 when unknown.
	Put(ctx context.Context, ns, name string, r io.Reader, size int64) error

	// Get opens a blob for reading. Returns ErrFileNotFound if the blob
	// does not exist.
	Get(ctx context.Context, ns, name string) (io.ReadCloser, error)

	// Remove deletes a single blob.
	Remove(ctx context.Context, ns, name string) error
}
