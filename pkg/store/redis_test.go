package store

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requires a live server; set REDIS_URL (directly or via .env) to enable
func redisURL(t *testing.T) string {
	t.Helper()
	_ = godotenv.Load()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping live redis test")
	}
	return url
}

func TestRedis_Live(t *testing.T) {
	ctx := context.Background()
	r, err := NewRedis(redisURL(t), "resilience-test")
	require.NoError(t, err)
	defer r.Close()
	defer r.Delete(ctx, "queue")

	_, err = r.Get(ctx, "queue")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.Set(ctx, "queue", []byte("payload")))
	got, err := r.Get(ctx, "queue")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, r.Delete(ctx, "queue"))
	_, err = r.Get(ctx, "queue")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedis_BadURL(t *testing.T) {
	_, err := NewRedis("not-a-url", "prefix")
	assert.Error(t, err)
}
