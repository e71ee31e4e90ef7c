package hostfuncs

import (
	"context"
	"fmt"
	"slices"

	"github.com/reglet-dev/zkguest/platform"
)

// HandlerRegistry is an immutable collection of channel handlers.
// Once created via NewRegistry, handlers cannot be added or removed.
type HandlerRegistry struct {
	handlers map[uint32]ByteHandler
	channels []uint32 // sorted
}

// registryBuilder accumulates configuration during registry construction.
type registryBuilder struct {
	handlers   map[uint32]ByteHandler
	middleware []Middleware
	errors     []error
}

// RegistryOption is a functional option for configuring a HandlerRegistry.
type RegistryOption func(*registryBuilder)

// NewRegistry creates an immutable HandlerRegistry with the given options.
// It fails if a channel is registered twice or is reserved.
func NewRegistry(opts ...RegistryOption) (*HandlerRegistry, error) {
	b := &registryBuilder{handlers: make(map[uint32]ByteHandler)}
	for _, opt := range opts {
		opt(b)
	}
	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	r := &HandlerRegistry{
		handlers: make(map[uint32]ByteHandler, len(b.handlers)),
		channels: make([]uint32, 0, len(b.handlers)),
	}
	for ch, h := range b.handlers {
		// First middleware wraps outermost.
		for i := len(b.middleware) - 1; i >= 0; i-- {
			h = b.middleware[i](h)
		}
		r.handlers[ch] = h
		r.channels = append(r.channels, ch)
	}
	slices.Sort(r.channels)
	return r, nil
}

// Invoke dispatches a request on channel. Unknown channels answer with a
// NOT_FOUND ErrorResponse rather than failing the guest.
func (r *HandlerRegistry) Invoke(ctx context.Context, channel uint32, payload []byte) ([]byte, error) {
	h, ok := r.handlers[channel]
	if !ok {
		return NewNotFoundError(channel).ToJSON(), nil
	}
	return h(ChannelContextFrom(ctx, channel), payload)
}

// Has reports whether channel has a handler.
func (r *HandlerRegistry) Has(channel uint32) bool {
	_, ok := r.handlers[channel]
	return ok
}

// Channels returns the registered channels in ascending order.
func (r *HandlerRegistry) Channels() []uint32 {
	return slices.Clone(r.channels)
}

func (b *registryBuilder) addHandler(channel uint32, h ByteHandler) error {
	if channel < platform.FirstUserChannel {
		return fmt.Errorf("channel %d is reserved (user channels start at %d)", channel, platform.FirstUserChannel)
	}
	if h == nil {
		return fmt.Errorf("channel %d: nil handler", channel)
	}
	if _, exists := b.handlers[channel]; exists {
		return fmt.Errorf("duplicate handler for channel %d", channel)
	}
	b.handlers[channel] = h
	return nil
}

// WithChannel registers a raw ByteHandler on channel.
func WithChannel(channel uint32, h ByteHandler) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.addHandler(channel, h); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithHandler registers a typed function on channel. Requests and
// responses are JSON documents.
func WithHandler[Req any, Resp any](channel uint32, fn HostFunc[Req, Resp]) RegistryOption {
	return WithChannel(channel, NewJSONHandler(fn))
}

// WithMiddleware adds middleware to every handler.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}
