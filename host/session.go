package host

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/reglet-dev/zkguest/hostfuncs"
	guestlog "github.com/reglet-dev/zkguest/log"
	"github.com/reglet-dev/zkguest/memory"
	"github.com/reglet-dev/zkguest/platform"
)

// LogEntry is one message the guest published through the LOG register.
type LogEntry struct {
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
	Raw     bool              `json:"raw,omitempty"`
}

// Session is the host state of one guest run. It is the guest's transport
// and register bus. A session is driven by a single guest and is not safe
// for concurrent use.
type Session struct {
	ctx    context.Context
	opts   options
	input  []byte
	view   memory.View
	stdout *hostfuncs.BoundedBuffer

	logs         []LogEntry
	cycles       uint64
	cycleMark    uint64
	cyclePending bool

	committed bool
	journal   []byte
	halted    bool
	result    platform.Result
	err       error
}

func newSession(ctx context.Context, opts options, input []byte) *Session {
	return &Session{
		ctx:    ctx,
		opts:   opts,
		input:  input,
		stdout: hostfuncs.NewBoundedBuffer(opts.maxStdout),
	}
}

// Attach sets the guest memory the session reads register payloads from.
func (s *Session) Attach(v memory.View) { s.view = v }

// Cycles returns the cycles charged so far.
func (s *Session) Cycles() uint64 { return s.cycles }

// Err returns the first protocol violation the session observed.
func (s *Session) Err() error { return s.err }

func (s *Session) fail(err error) error {
	if s.err == nil {
		s.err = err
	}
	return err
}

func (s *Session) charge(nbytes int) {
	s.cycles += s.opts.perTrap + s.opts.perWord*uint64(platform.AlignUp(nbytes)/platform.WordSize)
}

// SendRecv implements transport.Transport.
func (s *Session) SendRecv(channel uint32, req []byte) ([]uint32, int, error) {
	resp, err := s.exchange(channel, req)
	if err != nil {
		return nil, 0, err
	}
	return platform.BytesToWords(resp), len(resp), nil
}

func (s *Session) exchange(channel uint32, req []byte) ([]byte, error) {
	s.charge(len(req))
	if s.halted {
		return nil, s.fail(fmt.Errorf("channel %d: guest already halted", channel))
	}

	var resp []byte
	switch {
	case channel == platform.ChannelInitialInput:
		resp = s.input
	case channel == platform.ChannelCycleCount:
		if !s.cyclePending {
			return nil, s.fail(fmt.Errorf("channel %d: cycle count requested without a register trigger", channel))
		}
		s.cyclePending = false
		// The guest reads one word; counts past it saturate.
		mark := min(s.cycleMark, math.MaxUint32)
		resp = platform.WordsToBytes([]uint32{uint32(mark)})
	case channel == platform.ChannelStdout:
		_, _ = s.stdout.Write(req)
	case channel < platform.FirstUserChannel:
		return nil, s.fail(fmt.Errorf("channel %d is reserved", channel))
	default:
		var err error
		resp, err = s.opts.registry.Invoke(s.ctx, channel, req)
		if err != nil {
			return nil, s.fail(fmt.Errorf("channel %d: %w", channel, err))
		}
	}
	s.cycles += s.opts.perWord * uint64(platform.AlignUp(len(resp))/platform.WordSize)
	return resp, nil
}

// Trap implements gpio.Bus.
func (s *Session) Trap(reg uint32, value uint32) error {
	s.charge(0)
	if s.view == nil {
		return s.fail(fmt.Errorf("register 0x%08x: no guest memory attached", reg))
	}
	if s.halted {
		return s.fail(fmt.Errorf("register 0x%08x: guest already halted", reg))
	}

	var err error
	switch reg {
	case platform.GPIOLog:
		err = s.onLog(value)
	case platform.GPIOCycleCount:
		s.cycleMark = s.cycles
		s.cyclePending = true
	case platform.GPIOCommit:
		err = s.onCommit(value)
	case platform.GPIOHalt:
		err = s.onHalt(value)
	default:
		err = fmt.Errorf("unknown register 0x%08x", reg)
	}
	if err != nil {
		return s.fail(err)
	}
	return nil
}

func (s *Session) onLog(addr uint32) error {
	msg, err := memory.ReadCString(s.view, addr, int(s.opts.layout.Scratch.Len))
	if err != nil {
		return fmt.Errorf("log message at 0x%08x: %w", addr, err)
	}

	entry := LogEntry{Level: slog.LevelInfo.String(), Message: msg, Raw: true}
	if wire, ok := guestlog.ParseMessage(msg); ok {
		entry = LogEntry{Level: wire.Level, Message: wire.Message}
		if len(wire.Attrs) > 0 {
			entry.Attrs = make(map[string]string, len(wire.Attrs))
			for _, a := range wire.Attrs {
				entry.Attrs[a.Key] = a.Value
			}
		}
	}
	s.logs = append(s.logs, entry)

	if ce := s.opts.logger.Check(zapLevel(guestlog.ParseLevel(entry.Level)), entry.Message); ce != nil {
		fields := make([]zap.Field, 0, len(entry.Attrs)+1)
		fields = append(fields, zap.Bool("guest", true))
		for k, v := range entry.Attrs {
			fields = append(fields, zap.String(k, v))
		}
		ce.Write(fields...)
	}
	return nil
}

func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l >= slog.LevelError:
		return zapcore.ErrorLevel
	case l >= slog.LevelWarn:
		return zapcore.WarnLevel
	case l >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

func (s *Session) onCommit(addr uint32) error {
	if s.committed {
		return fmt.Errorf("journal committed twice")
	}
	raw := make([]byte, platform.IoDescriptorSize)
	if err := s.view.ReadAt(addr, raw); err != nil {
		return fmt.Errorf("commit descriptor at 0x%08x: %w", addr, err)
	}
	var desc platform.IoDescriptor
	if err := desc.UnmarshalBinary(raw); err != nil {
		return fmt.Errorf("commit descriptor: %w", err)
	}
	if !s.opts.layout.Commit.Contains(desc.Addr, desc.Size) {
		return fmt.Errorf("journal [0x%08x, +%d) outside %s", desc.Addr, desc.Size, s.opts.layout.Commit)
	}
	journal := make([]byte, desc.Size)
	if err := s.view.ReadAt(desc.Addr, journal); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	s.journal = journal
	s.committed = true
	return nil
}

func (s *Session) onHalt(addr uint32) error {
	if !s.committed {
		return fmt.Errorf("halt before the journal was committed")
	}
	var r platform.Result
	for i := range r {
		w, err := s.view.LoadWord(addr + uint32(i*platform.WordSize))
		if err != nil {
			return fmt.Errorf("result word %d: %w", i, err)
		}
		r[i] = w
	}
	s.result = r
	s.halted = true
	return nil
}

// Receipt returns the record of a halted run. The receipt is verified
// before it is returned.
func (s *Session) Receipt() (*Receipt, error) {
	if s.err != nil {
		return nil, s.err
	}
	if !s.halted {
		return nil, fmt.Errorf("guest did not halt")
	}
	r := &Receipt{
		Codec:           s.opts.codec.Name(),
		Journal:         s.journal,
		Result:          s.result,
		Stdout:          append([]byte(nil), s.stdout.Bytes()...),
		StdoutTruncated: s.stdout.Truncated(),
		Logs:            s.logs,
		Cycles:          s.cycles,
	}
	if err := r.Verify(); err != nil {
		return nil, err
	}
	return r, nil
}
