package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rentwise/rentwise/backend/go-services/internal/config"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_RoundTrip(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()
	body := "\x89PNG fake image"
	require.NoError(t, s.UploadFile(ctx, AvatarKey("u1"), strings.NewReader(body), int64(len(body)), "image/png"))

	rc, ct, err := s.DownloadFile(ctx, AvatarKey("u1"))
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, body, string(got))
	require.Equal(t, "image/png", ct)
}

func TestMemoryStorage_NotFound(t *testing.T) {
	_, _, err := NewMemoryStorage().DownloadFile(context.Background(), AvatarKey("missing"))
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestNewMinIOStorage_MissingEndpoint(t *testing.T) {
	_, err := NewMinIOStorage(context.Background(), config.MinIOConfig{})
	require.Error(t, err)
}
