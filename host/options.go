package host

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/reglet-dev/zkguest/config"
	"github.com/reglet-dev/zkguest/hostfuncs"
	"github.com/reglet-dev/zkguest/platform"
	"github.com/reglet-dev/zkguest/serde"
)

// Option configures an executor.
type Option func(*options)

type options struct {
	registry  *hostfuncs.HandlerRegistry
	logger    *zap.Logger
	codec     serde.Codec
	layout    platform.Layout
	maxStdout int
	perTrap   uint64
	perWord   uint64
}

func newOptions(opts []Option) (options, error) {
	o := options{
		logger:    zap.NewNop(),
		codec:     serde.Word,
		layout:    platform.DefaultLayout(),
		maxStdout: hostfuncs.DefaultMaxStdout,
		perTrap:   100,
		perWord:   1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		reg, err := hostfuncs.NewRegistry()
		if err != nil {
			return options{}, fmt.Errorf("failed to create default registry: %w", err)
		}
		o.registry = reg
	}
	if err := o.layout.Validate(); err != nil {
		return options{}, fmt.Errorf("invalid layout: %w", err)
	}
	return o, nil
}

// WithHostFunctions serves user channels from registry.
func WithHostFunctions(registry *hostfuncs.HandlerRegistry) Option {
	return func(o *options) { o.registry = registry }
}

// WithLogger sets the logger guest log messages are re-emitted through.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCodec sets the codec the guest is initialized with and receipts are
// decoded with.
func WithCodec(c serde.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithLayout sets the guest address space layout.
func WithLayout(l platform.Layout) Option {
	return func(o *options) { o.layout = l }
}

// WithMaxStdout caps the guest stdout kept in a receipt.
func WithMaxStdout(n int) Option {
	return func(o *options) { o.maxStdout = n }
}

// WithCycleCost sets the cycles charged per exchange or register write and
// per word moved across a channel.
func WithCycleCost(perTrap, perWord uint64) Option {
	return func(o *options) {
		o.perTrap = perTrap
		o.perWord = perWord
	}
}

// OptionsFromConfig translates cfg into executor options. The logger is
// built separately with cfg.Log.Logger.
func OptionsFromConfig(cfg config.Config) ([]Option, error) {
	codec, err := serde.ByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithCodec(codec),
		WithMaxStdout(cfg.Stdout.MaxBytes),
		WithCycleCost(cfg.Cycles.PerTrap, cfg.Cycles.PerWord),
	}, nil
}
