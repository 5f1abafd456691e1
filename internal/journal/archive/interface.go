// Package archive provides the cold-storage backends rotated journal files
// are shipped to, and that journal replay reads from.
package archive

import "context"

// Storage is a flat name-to-bytes object store. Names use forward slashes on
// every backend.
type Storage interface {
	// Write stores data under name, replacing any previous object.
	Write(ctx context.Context, name string, data []byte) error

	// Read returns the object stored under name.
	Read(ctx context.Context, name string) ([]byte, error)

	// List returns every object name starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists reports whether an object is stored under name.
	Exists(ctx context.Context, name string) (bool, error)
}
