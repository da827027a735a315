package s3

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_PresignedURL(t *testing.T) {
	cfg := &Config{Host: "localhost:9000", AccessKey: "minioadmin", SecretKey: "minioadmin", Bucket: "student-books", Region: "us-east-1"}
	mc, err := cfg.newMinio()
	require.NoError(t, err)

	c := NewClient(mc, cfg.Bucket, slog.New(slog.NewTextHandler(io.Discard, nil)))

	url, err := c.PresignedURL(context.Background(), "42/7/algebra.pdf", 0)
	require.NoError(t, err)

	assert.Contains(t, url, "http://localhost:9000/student-books/42/7/algebra.pdf")
	assert.Contains(t, url, "X-Amz-Expires=300")
}
