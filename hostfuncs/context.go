package hostfuncs

import "context"

// ChannelContext is the context a handler receives. It carries the channel
// being served and request-scoped values set by middleware.
type ChannelContext interface {
	context.Context
	Channel() uint32
	// SetValue stores a request-scoped value in place.
	SetValue(key, value any)
	GetValue(key any) (value any, ok bool)
}

type channelContext struct {
	context.Context
	values  map[any]any
	channel uint32
}

// NewChannelContext wraps ctx for a request on channel.
func NewChannelContext(ctx context.Context, channel uint32) ChannelContext {
	return &channelContext{Context: ctx, channel: channel, values: make(map[any]any)}
}

func (c *channelContext) Channel() uint32 { return c.channel }

func (c *channelContext) SetValue(key, value any) { c.values[key] = value }

func (c *channelContext) GetValue(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// ChannelContextFrom returns ctx if it already is a ChannelContext and
// wraps it otherwise.
func ChannelContextFrom(ctx context.Context, channel uint32) ChannelContext {
	if cc, ok := ctx.(ChannelContext); ok {
		return cc
	}
	return NewChannelContext(ctx, channel)
}
