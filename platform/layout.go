// Package platform defines the fixed address space shared by the guest
// environment and its host: word size, reserved channels, register
// addresses and the statically placed memory regions.
package platform

import (
	"fmt"
	"sort"
)

// WordSize is the size in bytes of a guest machine word.
const WordSize = 4

// Reserved send/recv channels.
const (
	ChannelInitialInput uint32 = 0
	ChannelCycleCount   uint32 = 1
	ChannelStdout       uint32 = 2

	// FirstUserChannel is the lowest channel id available to guest programs.
	// Channels below it are reserved for this layer.
	FirstUserChannel uint32 = 16
)

// Memory-mapped control registers. Each occupies one word of the GPIO region.
const (
	GPIOLog        uint32 = 0x0000_0100
	GPIOCycleCount uint32 = 0x0000_0104
	GPIOCommit     uint32 = 0x0000_0108
	GPIOHalt       uint32 = 0x0000_010C
)

// Region sizes of the default layout.
const (
	SizeGPIO    = 0x0000_0040 // 16 registers
	SizeResult  = 0x0000_0040 // 9 words used
	SizeScratch = 0x0000_1000 // 4KB: log messages, io descriptors
	SizeInput   = 0x0001_0000 // 64KB
	SizeOutput  = 0x0001_0000 // 64KB
	SizeCommit  = 0x0001_0000 // 64KB
)

// Scratch slots used for register payloads: the commit descriptor at the
// start of SCRATCH, the NUL-terminated log message behind it.
const (
	ScratchDescriptorOffset = 0
	ScratchMessageOffset    = 16
)

// DigestBlockBytes is the SHA-256 block size. COMMIT is a whole number of
// blocks so the digest trailer reserve always completes the last block.
const DigestBlockBytes = 64

// Region is a fixed, statically addressed block of words dedicated to one purpose.
type Region struct {
	Name  string
	Start uint32
	Len   uint32 // bytes
}

// End returns the first address past the region.
func (r Region) End() uint32 {
	return r.Start + r.Len
}

// LenWords returns the region size in words.
func (r Region) LenWords() int {
	return int(r.Len / WordSize)
}

// Contains reports whether [addr, addr+n) lies inside the region.
func (r Region) Contains(addr, n uint32) bool {
	return addr >= r.Start && addr <= r.End() && n <= r.End()-addr
}

func (r Region) String() string {
	return fmt.Sprintf("%s[0x%08x..0x%08x)", r.Name, r.Start, r.End())
}

// Layout places every region of the guest address space.
type Layout struct {
	GPIO    Region
	Result  Region
	Scratch Region
	Input   Region
	Output  Region
	Commit  Region
}

// DefaultLayout returns the reference layout. Address 0 is never mapped.
func DefaultLayout() Layout {
	return Layout{
		GPIO:    Region{Name: "GPIO", Start: 0x0000_0100, Len: SizeGPIO},
		Result:  Region{Name: "RESULT", Start: 0x0000_0200, Len: SizeResult},
		Scratch: Region{Name: "SCRATCH", Start: 0x0000_1000, Len: SizeScratch},
		Input:   Region{Name: "INPUT", Start: 0x0000_2000, Len: SizeInput},
		Output:  Region{Name: "OUTPUT", Start: 0x0001_2000, Len: SizeOutput},
		Commit:  Region{Name: "COMMIT", Start: 0x0002_2000, Len: SizeCommit},
	}
}

// Regions returns the regions ordered by start address.
func (l Layout) Regions() []Region {
	rs := []Region{l.GPIO, l.Result, l.Scratch, l.Input, l.Output, l.Commit}
	sort.Slice(rs, func(i, j int) bool { return rs[i].Start < rs[j].Start })
	return rs
}

// Size returns the number of bytes a memory bank needs to back the layout.
func (l Layout) Size() uint32 {
	var end uint32
	for _, r := range l.Regions() {
		if r.End() > end {
			end = r.End()
		}
	}
	return end
}

// Validate checks that regions are word aligned, non-empty and never alias,
// and that the GPIO, RESULT, SCRATCH and COMMIT regions can hold what is
// written into them.
func (l Layout) Validate() error {
	rs := l.Regions()
	for i, r := range rs {
		if r.Len == 0 {
			return fmt.Errorf("region %s is empty", r.Name)
		}
		if r.Start == 0 {
			return fmt.Errorf("region %s maps address 0", r.Name)
		}
		if r.Start%WordSize != 0 || r.Len%WordSize != 0 {
			return fmt.Errorf("region %s is not word aligned", r)
		}
		if r.End() < r.Start {
			return fmt.Errorf("region %s wraps the address space", r)
		}
		if i > 0 && rs[i-1].End() > r.Start {
			return fmt.Errorf("region %s overlaps %s", rs[i-1], r)
		}
	}
	if l.Result.LenWords() < ResultWords {
		return fmt.Errorf("region %s holds %d words, need %d words", l.Result, l.Result.LenWords(), ResultWords)
	}
	// A descriptor plus at least a one-byte message and its terminator.
	if minScratch := uint32(ScratchMessageOffset + 2); l.Scratch.Len < minScratch {
		return fmt.Errorf("region %s holds %d bytes, need at least %d", l.Scratch, l.Scratch.Len, minScratch)
	}
	if l.Commit.Len%DigestBlockBytes != 0 {
		return fmt.Errorf("region %s is not a whole number of %d-byte digest blocks", l.Commit, DigestBlockBytes)
	}
	for _, reg := range []uint32{GPIOLog, GPIOCycleCount, GPIOCommit, GPIOHalt} {
		if !l.GPIO.Contains(reg, WordSize) {
			return fmt.Errorf("register 0x%08x outside %s", reg, l.GPIO)
		}
	}
	return nil
}
