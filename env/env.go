// Package env is the guest environment: the state of one guest execution
// and the operations a guest program uses to talk to its host.
//
// An Env owns the INPUT, OUTPUT and COMMIT regions of its memory bank for
// the whole run. Values read from the host are decoded from INPUT, private
// writes are staged in OUTPUT and sent over the stdout channel, and public
// commits accumulate in COMMIT as the journal. Finalize summarizes the
// journal into the Finalization Result and ends the run.
//
// Operations that cannot complete abort the run with errors.Abort; no
// partial result is ever produced.
package env

import (
	"fmt"

	zkerrors "github.com/reglet-dev/zkguest/errors"
	"github.com/reglet-dev/zkguest/gpio"
	"github.com/reglet-dev/zkguest/memory"
	"github.com/reglet-dev/zkguest/platform"
	"github.com/reglet-dev/zkguest/serde"
	"github.com/reglet-dev/zkguest/sha"
	"github.com/reglet-dev/zkguest/transport"
)

// trailerReserve is the COMMIT space held back from commits so the digest
// trailer always fits behind the journal.
const trailerReserve = 16 // words, one digest block

// Env is the state of one guest run.
type Env struct {
	layout    platform.Layout
	mem       memory.Bank
	transport transport.Transport
	bus       gpio.Bus
	ports     gpio.Ports
	codec     serde.Codec
	digest    *sha.Engine

	reader    *Reader
	output    *serde.Serializer
	commit    *serde.Serializer
	commitLen int

	stdoutErr  error
	finalized  bool
	halted     bool
	resultAddr uint32
	result     platform.Result
}

// Option configures an Env.
type Option func(*Env)

// WithMemory sets the memory bank backing the layout.
func WithMemory(b memory.Bank) Option {
	return func(e *Env) { e.mem = b }
}

// WithTransport sets the host channel.
func WithTransport(t transport.Transport) Option {
	return func(e *Env) { e.transport = t }
}

// WithBus sets the register bus.
func WithBus(b gpio.Bus) Option {
	return func(e *Env) { e.bus = b }
}

// WithCodec sets the codec for reads, writes and commits.
func WithCodec(c serde.Codec) Option {
	return func(e *Env) { e.codec = c }
}

// WithLayout sets the address space layout.
func WithLayout(l platform.Layout) Option {
	return func(e *Env) { e.layout = l }
}

// WithDigest sets the digest engine used by Finalize.
func WithDigest(d *sha.Engine) Option {
	return func(e *Env) { e.digest = d }
}

var discardBus = gpio.BusFunc(func(uint32, uint32) error { return nil })

// New creates an environment that is not installed as the process
// environment. Unset options default to the reference layout, a fresh
// in-memory bank, the word codec and a transport with no host attached.
func New(opts ...Option) (*Env, error) {
	e := &Env{
		layout:    platform.DefaultLayout(),
		transport: transport.Unavailable{},
		bus:       discardBus,
		codec:     serde.Word,
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}
	if e.mem == nil {
		e.mem = memory.ForLayout(e.layout)
	}
	if e.mem.Size() < e.layout.Size() {
		return nil, &zkerrors.CapacityError{Region: "memory", Need: int(e.layout.Size()), Have: int(e.mem.Size())}
	}
	if e.digest == nil {
		e.digest = sha.New()
	}

	// A bank may be reused across runs; regions start zeroed and unsealed so
	// the journal's tail is untouched write-once memory. The serializers
	// write through the Words alias, which seals do not guard.
	for _, r := range []platform.Region{e.layout.Input, e.layout.Output, e.layout.Commit, e.layout.Result} {
		e.mem.Unseal(r.Start, r.Len)
		clear(e.mem.Words(r))
	}

	commitWords := e.mem.Words(e.layout.Commit)
	commitWords = commitWords[:max(0, len(commitWords)-trailerReserve)]

	e.ports = gpio.NewPorts(e.mem, e.bus, e.layout)
	e.output = serde.NewSerializer(e.codec, e.layout.Output, e.mem.Words(e.layout.Output))
	e.commit = serde.NewSerializer(e.codec, e.layout.Commit, commitWords)
	return e, nil
}

// Layout returns the address space layout.
func (e *Env) Layout() platform.Layout { return e.layout }

// Memory returns the memory bank.
func (e *Env) Memory() memory.Bank { return e.mem }

// Codec returns the codec for reads, writes and commits.
func (e *Env) Codec() serde.Codec { return e.codec }

// CommitLen returns the number of journal bytes committed so far.
func (e *Env) CommitLen() int { return e.commitLen }

// Journal returns a copy of the committed bytes.
func (e *Env) Journal() []byte {
	return platform.WordsToBytes(e.mem.Words(e.layout.Commit))[:e.commitLen]
}

// Finalized reports whether Finalize has completed.
func (e *Env) Finalized() bool { return e.finalized }

// Result returns the Finalization Result once Finalize has completed.
func (e *Env) Result() (platform.Result, bool) {
	return e.result, e.finalized
}

// StdoutErr returns the most recent failure to mirror bytes to the host's
// stdout channel. Mirroring is best effort and never aborts the run.
func (e *Env) StdoutErr() error { return e.stdoutErr }

func (e *Env) active(op string) {
	if e.finalized {
		zkerrors.Abort(&zkerrors.StateError{Op: op, Reason: "environment already finalized"})
	}
}
