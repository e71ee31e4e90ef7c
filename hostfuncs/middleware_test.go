package hostfuncs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPanicRecoveryMiddleware(t *testing.T) {
	wrapped := PanicRecoveryMiddleware()(func(context.Context, []byte) ([]byte, error) {
		panic("test panic")
	})

	resp, err := wrapped(context.Background(), nil)
	require.NoError(t, err)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(resp, &errResp))
	assert.Equal(t, "INTERNAL_ERROR", errResp.Error)
	assert.Equal(t, "panic: test panic", errResp.Message)
}

func TestPanicRecoveryMiddleware_NoPanic(t *testing.T) {
	wrapped := PanicRecoveryMiddleware()(echo)
	resp, err := wrapped(context.Background(), []byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), resp)
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	mw := LoggingMiddleware(zap.New(core))

	ctx := NewChannelContext(context.Background(), 16)
	_, err := mw(echo)(ctx, []byte("abc"))
	require.NoError(t, err)

	failing := mw(func(context.Context, []byte) ([]byte, error) { return nil, errors.New("nope") })
	_, err = failing(ctx, nil)
	require.Error(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "channel handler completed", entries[0].Message)
	assert.Equal(t, int64(3), entries[0].ContextMap()["request_bytes"])
	assert.Equal(t, uint32(16), entries[0].ContextMap()["channel"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "nope", entries[1].ContextMap()["error"])
}
