package hostfuncs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Middleware wraps a ByteHandler to add cross-cutting behavior.
type Middleware func(next ByteHandler) ByteHandler

// PanicRecoveryMiddleware converts handler panics into an INTERNAL_ERROR
// ErrorResponse so a faulty handler cannot crash the host.
func PanicRecoveryMiddleware() Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) (resp []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp, err = NewPanicError(r).ToJSON(), nil
				}
			}()
			return next(ctx, payload)
		}
	}
}

// LoggingMiddleware logs every channel exchange at debug level and
// failures at warn level.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			fields := []zap.Field{zap.Int("request_bytes", len(payload))}
			if cc, ok := ctx.(ChannelContext); ok {
				fields = append(fields, zap.Uint32("channel", cc.Channel()))
			}
			start := time.Now()
			resp, err := next(ctx, payload)
			fields = append(fields, zap.Duration("elapsed", time.Since(start)))
			if err != nil {
				logger.Warn("channel handler failed", append(fields, zap.Error(err))...)
				return resp, err
			}
			logger.Debug("channel handler completed", append(fields, zap.Int("response_bytes", len(resp)))...)
			return resp, nil
		}
	}
}
