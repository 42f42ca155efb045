// Package objectstore abstracts the blob storage the pipeline reads origin
// videos from and writes encoded videos and transcripts to. Keys are
// slash-separated paths relative to the store root.
package objectstore

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Store is the capability jobs use to move artifacts in and out of storage.
type Store interface {
	// Put streams reader into the object at key, creating or replacing it.
	Put(ctx context.Context, key string, reader io.Reader) error
	// PutBytes writes data to the object at key.
	PutBytes(ctx context.Context, key string, data []byte) error
	// Get downloads the object at key to localPath, creating parent
	// directories as needed.
	Get(ctx context.Context, key string, localPath string) error
	// Open returns a reader over the object at key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Stat reports metadata for the object at key.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// PresignPut returns a URL a client may use to upload the object at key
	// with the given content type, without further authentication, valid for
	// ttl.
	PresignPut(key, contentType string, ttl time.Duration) (string, error)
}
