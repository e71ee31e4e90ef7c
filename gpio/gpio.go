// Package gpio models the memory-mapped control registers through which
// the guest signals the host.
//
// Every port issues a memory barrier before storing its word, so the host
// never observes a register write before the payload it points at.
package gpio

import (
	"fmt"

	"github.com/reglet-dev/zkguest/memory"
	"github.com/reglet-dev/zkguest/platform"
)

// Bus delivers register writes to the host.
type Bus interface {
	Trap(reg uint32, value uint32) error
}

// BusFunc adapts a function to Bus.
type BusFunc func(reg uint32, value uint32) error

// Trap implements Bus.
func (f BusFunc) Trap(reg uint32, value uint32) error { return f(reg, value) }

const (
	descriptorOffset = platform.ScratchDescriptorOffset
	messageOffset    = platform.ScratchMessageOffset
)

type port struct {
	mem  memory.Bank
	bus  Bus
	addr uint32
}

func (p port) write(val uint32) error {
	memory.Barrier()
	if err := p.mem.StoreWord(p.addr, val); err != nil {
		return fmt.Errorf("gpio 0x%08x: %w", p.addr, err)
	}
	return p.bus.Trap(p.addr, val)
}

// Ports groups the registers of one guest.
type Ports struct {
	Log        LogPort
	CycleCount CycleCountPort
	Commit     CommitPort
	Halt       HaltPort
}

// NewPorts binds the registers to mem and bus, using the layout's scratch
// region for payloads.
func NewPorts(mem memory.Bank, bus Bus, layout platform.Layout) Ports {
	return Ports{
		Log:        LogPort{port: port{mem, bus, platform.GPIOLog}, scratch: layout.Scratch},
		CycleCount: CycleCountPort{port: port{mem, bus, platform.GPIOCycleCount}},
		Commit:     CommitPort{port: port{mem, bus, platform.GPIOCommit}, scratch: layout.Scratch},
		Halt:       HaltPort{port: port{mem, bus, platform.GPIOHalt}},
	}
}

// LogPort publishes a pointer to a NUL-terminated message.
type LogPort struct {
	port
	scratch platform.Region
}

// MaxMessage returns the longest message the port can publish untruncated.
func (p LogPort) MaxMessage() int {
	return int(p.scratch.Len) - messageOffset - 1
}

// Write copies msg into scratch memory, truncating it to MaxMessage bytes,
// and publishes its address. No acknowledgment is read back.
func (p LogPort) Write(msg string) error {
	max := p.MaxMessage()
	if max < 0 {
		return fmt.Errorf("log message: %s has no room for a message", p.scratch)
	}
	if len(msg) > max {
		msg = msg[:max]
	}
	buf := make([]byte, len(msg)+1)
	copy(buf, msg)
	addr := p.scratch.Start + messageOffset
	if err := p.mem.WriteAt(addr, buf); err != nil {
		return fmt.Errorf("log message: %w", err)
	}
	return p.write(addr)
}

// CycleCountPort resets and triggers the host's cycle accounting.
type CycleCountPort struct {
	port
}

// Trigger writes zero to the register.
func (p CycleCountPort) Trigger() error {
	return p.write(0)
}

// CommitPort publishes the descriptor of the final journal.
type CommitPort struct {
	port
	scratch platform.Region
}

// Write stores desc in scratch memory and publishes its address.
func (p CommitPort) Write(desc platform.IoDescriptor) error {
	if p.scratch.Len < descriptorOffset+platform.IoDescriptorSize {
		return fmt.Errorf("commit descriptor: %s has no room for a descriptor", p.scratch)
	}
	b, _ := desc.MarshalBinary()
	addr := p.scratch.Start + descriptorOffset
	if err := p.mem.WriteAt(addr, b); err != nil {
		return fmt.Errorf("commit descriptor: %w", err)
	}
	return p.write(addr)
}

// HaltPort signals that the Finalization Result at an address is complete.
type HaltPort struct {
	port
}

// Write publishes the result address. It is the last write of a run.
func (p HaltPort) Write(resultAddr uint32) error {
	return p.write(resultAddr)
}
