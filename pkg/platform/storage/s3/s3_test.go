package s3

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-platform/pkg/platform"
)

func TestS3Backend_Configuration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("InvalidSSE", func(t *testing.T) {
		_, err := New(Config{Bucket: "b", EnableSSE: true, SSEAlgorithm: "rot13"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid SSE")
	})

	t.Run("Defaults", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		})
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", backend.config.Region)
		assert.Equal(t, time.Hour, backend.presignDuration)
	})

	t.Run("PresignedDownloadURL", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			Endpoint:        "http://localhost:9000",
			UsePathStyle:    true,
		})
		require.NoError(t, err)

		url, err := backend.GetDownloadURL(context.Background(), "media/a/b", "photo.jpg")
		require.NoError(t, err)
		assert.Contains(t, url, "test-bucket/media/a/b")
		assert.Contains(t, url, "X-Amz-Signature")
	})
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, `attachment; filename="a_b.txt"`, contentDisposition(`a"b.txt`))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NoSuchKey"}))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
}

// TestS3Backend_Integration runs against a real S3-compatible endpoint such as MinIO.
func TestS3Backend_Integration(t *testing.T) {
	endpoint := os.Getenv("TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("TEST_S3_ENDPOINT not set")
	}

	backend, err := New(Config{
		Bucket:                 "platform-test",
		Endpoint:               endpoint,
		AccessKeyID:            os.Getenv("TEST_S3_ACCESS_KEY_ID"),
		SecretAccessKey:        os.Getenv("TEST_S3_SECRET_ACCESS_KEY"),
		UsePathStyle:           true,
		CreateBucketIfNotExist: true,
	})
	require.NoError(t, err)

	ctx := context.Background()
	key := "media/test/object"
	data := []byte("integration data")

	require.NoError(t, backend.Upload(ctx, key, "text/plain", bytes.NewReader(data)))

	reader, err := backend.Download(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(reader)
	reader.Close()
	require.NoError(t, err)
	assert.Equal(t, data, got)

	require.NoError(t, backend.Delete(ctx, key))
	_, err = backend.Download(ctx, key)
	assert.ErrorIs(t, err, platform.ErrNotFound)
}
