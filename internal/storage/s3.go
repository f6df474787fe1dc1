package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Store serves objects from an S3-compatible bucket (AWS S3, MinIO, etc.).
type S3Store struct {
	client *s3.Client
	bucket string
}

var _ ObjectStore = (*S3Store)(nil)

type S3Options struct {
	Client *s3.Client
	Bucket string
}

func NewS3Store(opts S3Options) *S3Store {
	return &S3Store{
		client: opts.Client,
		bucket: opts.Bucket,
	}
}

// S3ClientOptions configures NewS3Client.
type S3ClientOptions struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	PathStyle bool
}

func NewS3Client(ctx context.Context, opts S3ClientOptions) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	}), nil
}

func (s *S3Store) Bucket() string { return s.bucket }

func (s *S3Store) Stat(ctx context.Context, key string) Size {
	resp, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil || resp.ContentLength == nil || *resp.ContentLength < 0 {
		return UnknownSize
	}
	return KnownSize(*resp.ContentLength)
}

func (s *S3Store) Open(ctx context.Context, key string) (*Object, error) {
	return s.get(ctx, key, "")
}

func (s *S3Store) OpenRange(ctx context.Context, key string, offset, length int64) (*Object, error) {
	if err := validateRange(offset, length); err != nil {
		return nil, err
	}
	if offset == 0 && length <= 0 {
		return s.get(ctx, key, "")
	}
	return s.get(ctx, key, httpRange(offset, length))
}

func (s *S3Store) get(ctx context.Context, key, byteRange string) (*Object, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if byteRange != "" {
		in.Range = aws.String(byteRange)
	}
	resp, err := s.client.GetObject(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("s3 get %q: %w", key, classifyS3Error(err))
	}
	return &Object{Body: resp.Body, Length: lengthOrUnknown(resp.ContentLength)}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	body := r
	if size < 0 {
		// PutObject needs a content length; spool unknown-size uploads to disk first.
		tmpFile, err := os.CreateTemp("", "s3-upload-*")
		if err != nil {
			return fmt.Errorf("create tmp file: %w", err)
		}
		defer func() {
			_ = tmpFile.Close()
			_ = os.Remove(tmpFile.Name())
		}()
		n, err := io.Copy(tmpFile, r)
		if err != nil {
			return fmt.Errorf("write tmp upload: %w", err)
		}
		if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("seek tmp file: %w", err)
		}
		body, size = tmpFile, n
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put %q: %w", key, classifyS3Error(err))
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		err = classifyS3Error(err)
		if errors.Is(err, ErrObjectNotFound) {
			return nil
		}
		return fmt.Errorf("s3 delete %q: %w", key, err)
	}
	return nil
}

// classifyS3Error maps SDK errors onto ErrObjectNotFound and ErrInvalidRange.
func classifyS3Error(err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", ErrObjectNotFound, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return fmt.Errorf("%w: %v", ErrObjectNotFound, err)
		case "InvalidRange":
			return fmt.Errorf("%w: %v", ErrInvalidRange, err)
		}
	}
	return err
}
