package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Save(ctx, "u1/1.webm", strings.NewReader("audio"), "audio/webm"))

	obj, ok := m.Get("u1/1.webm")
	require.True(t, ok)
	assert.Equal(t, "audio/webm", obj.ContentType)

	rc, err := m.Open(ctx, "u1/1.webm")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))

	url, err := m.PresignedURL(ctx, "u1/1.webm", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "memory://voice-notes/u1/1.webm?expires=3600", url)

	require.NoError(t, m.Delete(ctx, "u1/1.webm"))
	_, err = m.Open(ctx, "u1/1.webm")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	_, err = m.PresignedURL(ctx, "u1/1.webm", time.Hour)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
