//go:build wasip1

package gpio

import "fmt"

//go:wasmimport zkvm gpio_write
//nolint:revive // intentional snake_case to match WASM import convention
func host_gpio_write(reg uint32, value uint32) uint32

//go:wasmimport zkvm attach
//nolint:revive // intentional snake_case to match WASM import convention
func host_attach(base uint32, size uint32)

// HostBus delivers register writes to a zkvm WASM host.
type HostBus struct{}

// Attach tells the host where the guest memory bank lives in linear memory.
// Guest addresses carried by register writes are offsets into that bank.
func (HostBus) Attach(base, size uint32) {
	host_attach(base, size)
}

// Trap implements Bus.
func (HostBus) Trap(reg uint32, value uint32) error {
	if status := host_gpio_write(reg, value); status != 0 {
		return fmt.Errorf("host rejected write to register 0x%08x (status %d)", reg, status)
	}
	return nil
}
