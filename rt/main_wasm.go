//go:build wasip1

package rt

import (
	"os"

	"github.com/reglet-dev/zkguest/env"
	"github.com/reglet-dev/zkguest/gpio"
	"github.com/reglet-dev/zkguest/memory"
	"github.com/reglet-dev/zkguest/platform"
	"github.com/reglet-dev/zkguest/transport"
)

// bank backs the reference layout for the life of the module instance.
var bank = memory.ForLayout(platform.DefaultLayout())

// Main runs main as a guest of a zkvm WASM host and exits. opts are applied
// after the host transport and bus, so a guest can pick its codec. A fault
// is reported through the LOG register and exits with status 1.
func Main(main func(), opts ...env.Option) {
	bus := gpio.HostBus{}
	bus.Attach(bank.Base(), bank.Size())

	base := []env.Option{
		env.WithMemory(bank),
		env.WithTransport(transport.Host{}),
		env.WithBus(bus),
	}
	env.Init(append(base, opts...)...)

	if err := Run(main); err != nil {
		reportFault(err)
		os.Exit(1)
	}
}

func reportFault(err error) {
	defer func() { _ = recover() }()
	env.Get().Log("guest fault: " + err.Error())
}
