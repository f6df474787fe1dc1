package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioOptions struct {
	Endpoint  string // host:port, no scheme
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PathStyle bool
}

// MinioStore serves objects through the minio-go client.
type MinioStore struct {
	cl     *minio.Client
	core   minio.Core
	bucket string
}

var _ ObjectStore = (*MinioStore)(nil)

func NewMinioStore(opts MinioOptions) (*MinioStore, error) {
	mo := &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	}
	if opts.PathStyle {
		mo.BucketLookup = minio.BucketLookupPath
	}
	cl, err := minio.New(opts.Endpoint, mo)
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioStore{cl: cl, core: minio.Core{Client: cl}, bucket: opts.Bucket}, nil
}

func (m *MinioStore) Bucket() string { return m.bucket }

func (m *MinioStore) Stat(ctx context.Context, key string) Size {
	info, err := m.cl.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil || info.Size < 0 {
		return UnknownSize
	}
	return KnownSize(info.Size)
}

func (m *MinioStore) Open(ctx context.Context, key string) (*Object, error) {
	return m.OpenRange(ctx, key, 0, 0)
}

func (m *MinioStore) OpenRange(ctx context.Context, key string, offset, length int64) (*Object, error) {
	if err := validateRange(offset, length); err != nil {
		return nil, err
	}
	opts := minio.GetObjectOptions{}
	switch {
	case length > 0:
		if err := opts.SetRange(offset, offset+length-1); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
		}
	case offset > 0:
		// SetRange(n, 0) requests bytes n through the end.
		if err := opts.SetRange(offset, 0); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
		}
	}

	// Core.GetObject issues the request immediately; info.Size is the length of the
	// opened part. Stat on a lazy minio.Object drops the Range header.
	body, info, _, err := m.core.GetObject(ctx, m.bucket, key, opts)
	if err != nil {
		return nil, fmt.Errorf("minio get %q: %w", key, classifyMinioError(err))
	}
	n := info.Size
	if n < 0 {
		n = -1
	}
	return &Object{Body: body, Length: n}, nil
}

func (m *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if size < 0 {
		size = -1
	}
	_, err := m.cl.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("minio put %q: %w", key, classifyMinioError(err))
	}
	return nil
}

func (m *MinioStore) Delete(ctx context.Context, key string) error {
	err := m.cl.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		err = classifyMinioError(err)
		if errors.Is(err, ErrObjectNotFound) {
			return nil
		}
		return fmt.Errorf("minio delete %q: %w", key, err)
	}
	return nil
}

func classifyMinioError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return fmt.Errorf("%w: %v", ErrObjectNotFound, err)
	case "InvalidRange":
		return fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	return err
}
