package host

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/reglet-dev/zkguest/internal/abi"
	"github.com/reglet-dev/zkguest/memory"
	"github.com/reglet-dev/zkguest/platform"
)

const hostModule = "zkvm"

// hostFunctions are the exports of the zkvm host module.
var hostFunctions = map[string]bool{
	"attach":     true,
	"sendrecv":   true,
	"recv":       true,
	"gpio_write": true,
}

// guestCall is the per-instance state host functions reach through the
// context.
type guestCall struct {
	session *Session
	pending []byte
}

type guestCallKey struct{}

func withGuestCall(ctx context.Context, c *guestCall) context.Context {
	return context.WithValue(ctx, guestCallKey{}, c)
}

func guestCallFrom(ctx context.Context) *guestCall {
	c, ok := ctx.Value(guestCallKey{}).(*guestCall)
	if !ok {
		// Host functions only run inside Guest.Execute.
		panic("zkvm host function called outside a guest execution")
	}
	return c
}

func (e *Executor) registerHostFunctions(ctx context.Context) error {
	builder := e.runtime.NewHostModuleBuilder(hostModule)

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, base, size uint32) {
			guestCallFrom(ctx).attach(m.Memory(), base, size)
		}).
		Export("attach")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, channel uint32, reqPacked uint64) uint32 {
			return guestCallFrom(ctx).sendrecv(m.Memory(), channel, reqPacked)
		}).
		Export("sendrecv")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, destPacked uint64) uint32 {
			return guestCallFrom(ctx).recv(m.Memory(), destPacked)
		}).
		Export("recv")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, reg, value uint32) uint32 {
			return guestCallFrom(ctx).gpioWrite(reg, value)
		}).
		Export("gpio_write")

	_, err := builder.Instantiate(ctx)
	return err
}

func (c *guestCall) attach(mem api.Memory, base, size uint32) {
	c.session.Attach(&wasmView{mem: mem, base: base, size: size})
}

// sendrecv performs the exchange and holds the response for recv. A failed
// exchange traps the guest; the session keeps the cause.
func (c *guestCall) sendrecv(mem api.Memory, channel uint32, reqPacked uint64) uint32 {
	req, err := readPacked(mem, reqPacked)
	if err != nil {
		panic(c.session.fail(fmt.Errorf("channel %d request: %w", channel, err)))
	}
	resp, err := c.session.exchange(channel, req)
	if err != nil {
		panic(err)
	}
	c.pending = resp
	return uint32(len(resp))
}

// recv copies the pending response, zero padded to the destination length,
// and returns the response length in bytes.
func (c *guestCall) recv(mem api.Memory, destPacked uint64) uint32 {
	ptr, length, err := unpack(destPacked)
	if err != nil {
		panic(c.session.fail(fmt.Errorf("recv destination: %w", err)))
	}
	if int(length) < len(c.pending) {
		panic(c.session.fail(fmt.Errorf("recv destination holds %d bytes, response is %d", length, len(c.pending))))
	}
	buf := make([]byte, length)
	copy(buf, c.pending)
	if !mem.Write(ptr, buf) {
		panic(c.session.fail(fmt.Errorf("recv destination 0x%08x+%d out of range", ptr, length)))
	}
	n := len(c.pending)
	c.pending = nil
	return uint32(n)
}

// gpioWrite returns 0 when the session accepts the register write.
func (c *guestCall) gpioWrite(reg, value uint32) uint32 {
	if err := c.session.Trap(reg, value); err != nil {
		return 1
	}
	return 0
}

// unpack is abi.UnpackPtrLen with the null pointer reported as an error
// instead of a panic.
func unpack(packed uint64) (ptr, length uint32, err error) {
	if uint32(packed>>abi.PtrHighBits) == 0 && uint32(packed) > 0 {
		return 0, 0, fmt.Errorf("null pointer with length %d", uint32(packed))
	}
	ptr, length = abi.UnpackPtrLen(packed)
	return ptr, length, nil
}

func readPacked(mem api.Memory, packed uint64) ([]byte, error) {
	ptr, length, err := unpack(packed)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	data, ok := mem.Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("0x%08x+%d out of range", ptr, length)
	}
	return append([]byte(nil), data...), nil
}

// wasmView is the guest memory bank inside a module's linear memory.
// Guest addresses are offsets from base.
type wasmView struct {
	mem  api.Memory
	base uint32
	size uint32
}

var _ memory.View = (*wasmView)(nil)

func (v *wasmView) Size() uint32 { return v.size }

func (v *wasmView) check(addr uint32, n int) error {
	if uint64(addr)+uint64(n) > uint64(v.size) {
		return fmt.Errorf("0x%08x+%d: %w", addr, n, memory.ErrOutOfBounds)
	}
	return nil
}

func (v *wasmView) ReadAt(addr uint32, dst []byte) error {
	if err := v.check(addr, len(dst)); err != nil {
		return err
	}
	data, ok := v.mem.Read(v.base+addr, uint32(len(dst)))
	if !ok {
		return fmt.Errorf("0x%08x+%d: %w", addr, len(dst), memory.ErrOutOfBounds)
	}
	copy(dst, data)
	return nil
}

func (v *wasmView) LoadWord(addr uint32) (uint32, error) {
	if addr%platform.WordSize != 0 {
		return 0, fmt.Errorf("0x%08x: %w", addr, memory.ErrMisaligned)
	}
	if err := v.check(addr, platform.WordSize); err != nil {
		return 0, err
	}
	w, ok := v.mem.ReadUint32Le(v.base + addr)
	if !ok {
		return 0, fmt.Errorf("0x%08x: %w", addr, memory.ErrOutOfBounds)
	}
	return w, nil
}
