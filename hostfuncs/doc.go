// Package hostfuncs holds the host-side handlers a guest reaches through
// user channels.
//
// A HandlerRegistry is built once with functional options and is immutable
// afterwards, so sessions can dispatch without locking. Channels below
// platform.FirstUserChannel belong to the environment itself and cannot be
// registered.
//
//	registry, err := hostfuncs.NewRegistry(
//	    hostfuncs.WithMiddleware(hostfuncs.PanicRecoveryMiddleware()),
//	    hostfuncs.WithHandler(16, func(ctx context.Context, req PriceRequest) PriceResponse {
//	        return lookup(ctx, req)
//	    }),
//	)
package hostfuncs
