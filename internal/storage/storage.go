package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrObjectNotFound means the store reported that the key does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrInvalidRange means the store refused the requested byte range.
	ErrInvalidRange = errors.New("invalid object range")
)

// Handle identifies one object. It is derived per request and never persisted.
type Handle struct {
	Bucket string
	Key    string
}

func (h Handle) String() string {
	return h.Bucket + "/" + h.Key
}

// Size is an object's byte count, or unknown when the store could not report it.
type Size struct {
	Bytes int64
	Known bool
}

func KnownSize(n int64) Size {
	return Size{Bytes: n, Known: true}
}

var UnknownSize = Size{}

// Object is an open read stream. Length is the number of bytes the stream will
// yield, or -1 when the store did not report it. Body must be closed by the caller.
type Object struct {
	Body   io.ReadCloser
	Length int64
}

// ObjectStore is the interface for object storage backends bound to one bucket.
// S3, MinIO and local-disk stores implement it.
type ObjectStore interface {
	Bucket() string

	// Stat reports the object's size. Any failure, including a missing object,
	// yields UnknownSize.
	Stat(ctx context.Context, key string) Size

	// Open streams the whole object.
	Open(ctx context.Context, key string) (*Object, error)

	// OpenRange streams length bytes starting at offset. A length <= 0 reads
	// from offset to the end of the object.
	OpenRange(ctx context.Context, key string, offset, length int64) (*Object, error)

	// Put stores r under key. size may be -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Delete removes key. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// httpRange formats the inclusive byte range header sent to S3-compatible stores.
func httpRange(offset, length int64) string {
	if length <= 0 {
		return fmt.Sprintf("bytes=%d-", offset)
	}
	return fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
}

func validateRange(offset, length int64) error {
	if offset < 0 {
		return fmt.Errorf("%w: negative offset %d", ErrInvalidRange, offset)
	}
	return nil
}

func lengthOrUnknown(n *int64) int64 {
	if n == nil || *n < 0 {
		return -1
	}
	return *n
}
