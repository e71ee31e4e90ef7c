package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"
)

// Executor runs GOOS=wasip1 guest modules under wazero.
type Executor struct {
	runtime wazero.Runtime
	opts    options
}

// NewExecutor creates an executor with WASI and the zkvm host module
// instantiated.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}

	rt := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	e := &Executor{runtime: rt, opts: o}

	if err := e.registerHostFunctions(ctx); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}
	return e, nil
}

// Close releases resources held by the executor and every guest it loaded.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Guest is a compiled guest module. Every Execute instantiates it afresh.
type Guest struct {
	exec     *Executor
	compiled wazero.CompiledModule
}

// LoadGuest compiles wasmBytes and checks that it imports nothing beyond
// WASI and the zkvm host module.
func (e *Executor) LoadGuest(ctx context.Context, wasmBytes []byte) (*Guest, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}
	for _, def := range compiled.ImportedFunctions() {
		module, name, _ := def.Import()
		switch {
		case module == wasi_snapshot_preview1.ModuleName:
		case module == hostModule && hostFunctions[name]:
		default:
			_ = compiled.Close(ctx)
			return nil, fmt.Errorf("guest imports unknown function %s.%s", module, name)
		}
	}
	return &Guest{exec: e, compiled: compiled}, nil
}

// Execute runs the guest's entry point with input as its initial-input
// blob and returns the receipt of the halted run.
func (g *Guest) Execute(ctx context.Context, input []byte) (*Receipt, error) {
	s := newSession(ctx, g.exec.opts, input)
	call := &guestCall{session: s}

	// An empty name lets several instances of one guest run side by side.
	cfg := wazero.NewModuleConfig().WithName("")
	mod, err := g.exec.runtime.InstantiateModule(withGuestCall(ctx, call), g.compiled, cfg)
	if mod != nil {
		defer func() { _ = mod.Close(ctx) }()
	}
	if err != nil {
		var exitErr *sys.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 0 {
			if serr := s.Err(); serr != nil {
				return nil, fmt.Errorf("guest failed: %w", serr)
			}
			return nil, fmt.Errorf("guest failed: %w", err)
		}
	}

	r, err := s.Receipt()
	if err != nil {
		return nil, err
	}
	g.exec.opts.logger.Debug("guest halted",
		zap.String("receipt", r.ID()),
		zap.Int("journal_bytes", len(r.Journal)),
		zap.Uint64("cycles", r.Cycles))
	return r, nil
}

// Close releases the compiled module.
func (g *Guest) Close(ctx context.Context) error {
	return g.compiled.Close(ctx)
}
