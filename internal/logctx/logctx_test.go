package logctx

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := With(context.Background(), "tick_id", "t-1")
	child := With(ctx, "feed_id", 7)

	Logger(child, base).Info("synced")
	assert.Contains(t, buf.String(), `"tick_id":"t-1"`)
	assert.Contains(t, buf.String(), `"feed_id":7`)

	buf.Reset()
	Logger(ctx, base).Info("tick")
	assert.Contains(t, buf.String(), `"tick_id":"t-1"`)
	assert.NotContains(t, buf.String(), "feed_id")

	buf.Reset()
	Logger(context.Background(), base).Info("plain")
	assert.NotContains(t, buf.String(), "tick_id")
}
