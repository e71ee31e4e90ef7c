package hostfuncs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/zkguest/platform"
)

func echo(_ context.Context, payload []byte) ([]byte, error) {
	return payload, nil
}

func TestNewRegistry_Empty(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	assert.Empty(t, reg.Channels())
}

func TestNewRegistry_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts []RegistryOption
		want string
	}{
		{"reserved channel", []RegistryOption{WithChannel(platform.ChannelStdout, echo)}, "reserved"},
		{"duplicate", []RegistryOption{WithChannel(20, echo), WithChannel(20, echo)}, "duplicate"},
		{"nil handler", []RegistryOption{WithChannel(20, nil)}, "nil handler"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestHandlerRegistry_Invoke(t *testing.T) {
	var seen uint32
	reg, err := NewRegistry(
		WithChannel(17, echo),
		WithChannel(16, func(ctx context.Context, _ []byte) ([]byte, error) {
			seen = ctx.(ChannelContext).Channel()
			return nil, nil
		}),
	)
	require.NoError(t, err)
	assert.Equal(t, []uint32{16, 17}, reg.Channels())
	assert.True(t, reg.Has(17))
	assert.False(t, reg.Has(18))

	resp, err := reg.Invoke(context.Background(), 17, []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), resp)

	_, err = reg.Invoke(context.Background(), 16, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(16), seen)

	resp, err = reg.Invoke(context.Background(), 99, nil)
	require.NoError(t, err)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(resp, &errResp))
	assert.Equal(t, "NOT_FOUND", errResp.Error)
	assert.Equal(t, 404, errResp.Code)
}

type priceRequest struct {
	Symbol string `json:"symbol"`
}

type priceResponse struct {
	Symbol string `json:"symbol"`
	Cents  int    `json:"cents"`
}

func TestWithHandler_JSON(t *testing.T) {
	reg, err := NewRegistry(WithHandler(16, func(_ context.Context, req priceRequest) priceResponse {
		return priceResponse{Symbol: req.Symbol, Cents: 4200}
	}))
	require.NoError(t, err)

	resp, err := reg.Invoke(context.Background(), 16, []byte(`{"symbol":"ZK"}`))
	require.NoError(t, err)
	var out priceResponse
	require.NoError(t, json.Unmarshal(resp, &out))
	assert.Equal(t, priceResponse{Symbol: "ZK", Cents: 4200}, out)

	resp, err = reg.Invoke(context.Background(), 16, []byte(`not json`))
	require.NoError(t, err)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(resp, &errResp))
	assert.Equal(t, "VALIDATION_ERROR", errResp.Error)
}

func TestWithMiddleware_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next ByteHandler) ByteHandler {
			return func(ctx context.Context, p []byte) ([]byte, error) {
				order = append(order, name)
				return next(ctx, p)
			}
		}
	}
	reg, err := NewRegistry(WithMiddleware(tag("first"), tag("second")), WithChannel(16, echo))
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), 16, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestChannelContext(t *testing.T) {
	cc := NewChannelContext(context.Background(), 21)
	cc.SetValue("k", 1)
	v, ok := cc.GetValue("k")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = cc.GetValue("missing")
	assert.False(t, ok)

	assert.Same(t, cc, ChannelContextFrom(cc, 99))
	assert.Equal(t, uint32(5), ChannelContextFrom(context.Background(), 5).Channel())
}

func TestErrorResponses(t *testing.T) {
	assert.Equal(t, 500, NewInternalError("x").Code)
	assert.Equal(t, "panic: boom", NewPanicError(errors.New("boom")).Message)
	assert.Equal(t, "panic: text", NewPanicError("text").Message)
	assert.Equal(t, "panic: panic recovered", NewPanicError(42).Message)
	assert.JSONEq(t, `{"error":"VALIDATION_ERROR","message":"m","code":400}`, string(NewValidationError("m").ToJSON()))
}
