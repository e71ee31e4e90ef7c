package rt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/zkguest/env"
	zkerrors "github.com/reglet-dev/zkguest/errors"
	"github.com/reglet-dev/zkguest/gpio"
	"github.com/reglet-dev/zkguest/memory"
	"github.com/reglet-dev/zkguest/platform"
	"github.com/reglet-dev/zkguest/transport"
)

func setup(t *testing.T) (*memory.InMemory, *gpio.Recorder) {
	t.Helper()
	env.Release()
	t.Cleanup(env.Release)

	bank := memory.ForLayout(platform.DefaultLayout())
	rec := &gpio.Recorder{}
	echo := transport.Func(func(_ uint32, req []byte) ([]byte, error) { return req, nil })
	env.Init(env.WithMemory(bank), env.WithBus(rec), env.WithTransport(echo))
	return bank, rec
}

func TestRun_FinalizesAndHalts(t *testing.T) {
	bank, rec := setup(t)

	err := Run(func() {
		env.Commit(uint32(0xCAFE))
	})
	require.NoError(t, err)

	halt, ok := rec.Last(platform.GPIOHalt)
	require.True(t, ok)
	assert.Equal(t, platform.DefaultLayout().Result.Start, halt.Value)
	assert.Equal(t, platform.GPIOHalt, rec.Traps[len(rec.Traps)-1].Reg, "halt is the last trap")

	w0, err := bank.LoadWord(halt.Value)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFE), w0)
	w8, err := bank.LoadWord(halt.Value + 8*platform.WordSize)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), w8)
}

func TestRun_GuestFinalizesItself(t *testing.T) {
	bank, rec := setup(t)
	scratch := platform.DefaultLayout().Scratch.Start + 0x100

	require.NoError(t, Run(func() {
		env.Finalize(scratch)
	}))
	halt, ok := rec.Last(platform.GPIOHalt)
	require.True(t, ok)
	assert.Equal(t, scratch, halt.Value)

	w8, err := bank.LoadWord(scratch + 8*platform.WordSize)
	require.NoError(t, err)
	assert.Zero(t, w8)
}

func TestRun_FaultSkipsHalt(t *testing.T) {
	_, rec := setup(t)

	err := Run(func() {
		_ = env.Read[uint32]()
	})
	require.Error(t, err)
	assert.Equal(t, zkerrors.KindDecode, zkerrors.KindOf(err))

	_, halted := rec.Last(platform.GPIOHalt)
	assert.False(t, halted)
	_, committed := rec.Last(platform.GPIOCommit)
	assert.False(t, committed)
}

func TestRun_GuestPanic(t *testing.T) {
	setup(t)
	err := Run(func() { panic("boom") })
	assert.ErrorContains(t, err, "boom")
}

func TestRun_WithoutInit(t *testing.T) {
	env.Release()
	err := Run(func() {})
	assert.Equal(t, zkerrors.KindState, zkerrors.KindOf(err))
}
