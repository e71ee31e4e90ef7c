package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/reglet-dev/zkguest/env"
	zkerrors "github.com/reglet-dev/zkguest/errors"
	"github.com/reglet-dev/zkguest/memory"
	"github.com/reglet-dev/zkguest/rt"
)

// nativeMu serializes in-process runs: the guest environment is a process
// singleton.
var nativeMu sync.Mutex

// NativeExecutor runs guest programs in-process against a simulated memory
// bank. It is the harness for testing guest code without a wasm build.
type NativeExecutor struct {
	opts options
}

// NewNativeExecutor creates an in-process executor.
func NewNativeExecutor(opts ...Option) (*NativeExecutor, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	return &NativeExecutor{opts: o}, nil
}

// Execute runs guest with input as its initial-input blob and returns the
// receipt of the halted run. A guest fault is returned as an error
// wrapping *errors.Fault.
func (x *NativeExecutor) Execute(ctx context.Context, guest func(), input []byte) (*Receipt, error) {
	nativeMu.Lock()
	defer nativeMu.Unlock()

	bank := memory.ForLayout(x.opts.layout)
	s := newSession(ctx, x.opts, input)
	s.Attach(bank)

	env.Release()
	defer env.Release()
	if err := x.init(bank, s); err != nil {
		return nil, fmt.Errorf("guest init: %w", err)
	}
	if err := rt.Run(guest); err != nil {
		return nil, err
	}
	return s.Receipt()
}

func (x *NativeExecutor) init(bank memory.Bank, s *Session) (err error) {
	defer zkerrors.Recover(&err)
	env.Init(
		env.WithMemory(bank),
		env.WithLayout(x.opts.layout),
		env.WithCodec(x.opts.codec),
		env.WithTransport(s),
		env.WithBus(s),
	)
	return nil
}
