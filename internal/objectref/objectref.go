// Package objectref turns persisted media references into bucket-relative object keys.
//
// References come in three shapes: a bare key ("3f2c..._intro.mp4"), a direct URL
// ("http://minio:9000/media/3f2c..._intro.mp4") or a presigned URL carrying
// X-Amz-* query parameters. Rows written by older releases may hold anything.
package objectref

import (
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"elearn/internal/logging"
	"elearn/internal/storage"
)

// ErrUnverified is returned when no key could be derived with confidence.
var ErrUnverified = errors.New("object reference could not be resolved")

// Result is the outcome of resolving a reference. When Verified is false, Key holds
// the original reference unchanged and must not be used for a store read.
type Result struct {
	Key      string
	Verified bool
	Fallback bool
}

// Resolve extracts the object key for bucket from reference. It never panics.
func Resolve(reference, bucket string) Result {
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return Result{Key: reference}
	}

	if u, err := url.Parse(ref); err == nil {
		key := stripBucket(strings.TrimPrefix(u.Path, "/"), bucket)
		if key == "" {
			return Result{Key: reference}
		}
		return Result{Key: key, Verified: true}
	}

	key := ref
	if i := strings.IndexByte(key, '?'); i >= 0 {
		key = key[:i]
	}
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		key = key[i+1:]
	}
	key = stripBucket(key, bucket)
	if key == "" {
		return Result{Key: reference}
	}
	return Result{Key: key, Verified: true, Fallback: true}
}

func stripBucket(path, bucket string) string {
	if bucket == "" {
		return path
	}
	return strings.TrimPrefix(path, bucket+"/")
}

// Resolver binds Resolve to one bucket and reports degraded results.
type Resolver struct {
	bucket string
	logger *slog.Logger
}

func NewResolver(bucket string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resolver{bucket: bucket, logger: logger}
}

// Handle resolves reference into a store handle. Unverified results are logged at
// warn level and returned as ErrUnverified so callers answer 404 instead of reading
// the wrong object.
func (r *Resolver) Handle(reference string) (storage.Handle, error) {
	res := Resolve(reference, r.bucket)
	if !res.Verified {
		r.logger.Warn("unverified media reference",
			"bucket", r.bucket,
			"reference", logging.SanitizeReference(reference),
		)
		return storage.Handle{}, ErrUnverified
	}
	if res.Fallback {
		r.logger.Debug("media reference resolved by string fallback",
			"bucket", r.bucket,
			"key", res.Key,
		)
	}
	return storage.Handle{Bucket: r.bucket, Key: res.Key}, nil
}
