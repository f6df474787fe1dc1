package storage

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
)

func TestHTTPRange(t *testing.T) {
	require.Equal(t, "bytes=0-99", httpRange(0, 100))
	require.Equal(t, "bytes=500-", httpRange(500, 0))
	require.Equal(t, "bytes=500-", httpRange(500, -1))
	require.Equal(t, "bytes=10-10", httpRange(10, 1))
}

func TestClassifyS3Error(t *testing.T) {
	require.ErrorIs(t, classifyS3Error(&types.NoSuchKey{}), ErrObjectNotFound)
	require.ErrorIs(t, classifyS3Error(&types.NotFound{}), ErrObjectNotFound)
	require.ErrorIs(t, classifyS3Error(&smithy.GenericAPIError{Code: "NoSuchBucket"}), ErrObjectNotFound)
	require.ErrorIs(t, classifyS3Error(&smithy.GenericAPIError{Code: "InvalidRange"}), ErrInvalidRange)

	other := errors.New("connection reset")
	got := classifyS3Error(other)
	require.Same(t, other, got)
}

func TestClassifyMinioError(t *testing.T) {
	require.ErrorIs(t, classifyMinioError(minio.ErrorResponse{Code: "NoSuchKey"}), ErrObjectNotFound)
	require.ErrorIs(t, classifyMinioError(minio.ErrorResponse{Code: "InvalidRange"}), ErrInvalidRange)

	err := classifyMinioError(minio.ErrorResponse{Code: "AccessDenied"})
	require.False(t, errors.Is(err, ErrObjectNotFound))
	require.False(t, errors.Is(err, ErrInvalidRange))
}

func TestHandleString(t *testing.T) {
	require.Equal(t, "media/abc_clip.mp4", Handle{Bucket: "media", Key: "abc_clip.mp4"}.String())
}
