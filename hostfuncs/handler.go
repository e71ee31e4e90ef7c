package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"
)

// HostFunc is a typed channel handler.
type HostFunc[Req any, Resp any] func(context.Context, Req) Resp

// ByteHandler answers one channel request. The response is sent back to the
// guest as-is; an error fails the guest's exchange.
type ByteHandler func(ctx context.Context, payload []byte) ([]byte, error)

// NewJSONHandler wraps a typed HostFunc into a ByteHandler. Malformed
// requests answer with a VALIDATION_ERROR ErrorResponse.
func NewJSONHandler[Req any, Resp any](fn HostFunc[Req, Resp]) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req Req
		if err := json.Unmarshal(payload, &req); err != nil {
			return NewValidationError(fmt.Sprintf("malformed request: %v", err)).ToJSON(), nil
		}
		out, err := json.Marshal(fn(ctx, req))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		return out, nil
	}
}
