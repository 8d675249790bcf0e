package memory_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-platform/pkg/platform"
	memorystorage "github.com/tendant/simple-platform/pkg/platform/storage/memory"
)

func TestMemoryBackend(t *testing.T) {
	backend := memorystorage.New()
	ctx := context.Background()
	testKey := "media/tenant/object"
	testData := "Hello, World! This is test data."

	t.Run("Upload", func(t *testing.T) {
		err := backend.Upload(ctx, testKey, "text/plain", strings.NewReader(testData))
		assert.NoError(t, err)

		mimeType, ok := backend.MimeType(testKey)
		assert.True(t, ok)
		assert.Equal(t, "text/plain", mimeType)
	})

	t.Run("DefaultMimeType", func(t *testing.T) {
		err := backend.Upload(ctx, "other", "", strings.NewReader("x"))
		require.NoError(t, err)

		mimeType, _ := backend.MimeType("other")
		assert.Equal(t, "application/octet-stream", mimeType)
	})

	t.Run("Download", func(t *testing.T) {
		reader, err := backend.Download(ctx, testKey)
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, testData, string(data))
	})

	t.Run("GetDownloadURL", func(t *testing.T) {
		url, err := backend.GetDownloadURL(ctx, testKey, "file.txt")
		assert.NoError(t, err)
		assert.Empty(t, url)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, testKey))

		_, err := backend.Download(ctx, testKey)
		assert.ErrorIs(t, err, platform.ErrNotFound)

		err = backend.Delete(ctx, testKey)
		assert.ErrorIs(t, err, platform.ErrNotFound)
	})
}
