package env

import (
	"sync"

	zkerrors "github.com/reglet-dev/zkguest/errors"
)

// current holds the process environment. A guest is single threaded; the
// lock only matters to hosts that run guests in-process.
var current = struct {
	env *Env
	sync.Mutex
}{}

// Init creates the process environment. It is called once at program entry,
// before any other operation. Calling it again after the previous run was
// finalized or released starts a new run; calling it while a run is active
// aborts.
func Init(opts ...Option) *Env {
	current.Lock()
	defer current.Unlock()

	if current.env != nil && !current.env.finalized {
		zkerrors.Abort(&zkerrors.StateError{Op: "init", Reason: "a run is already active"})
	}
	e, err := New(opts...)
	if err != nil {
		zkerrors.Abort(err)
	}
	current.env = e
	return e
}

// Get returns the process environment. It panics if Init has not run.
func Get() *Env {
	current.Lock()
	defer current.Unlock()

	if current.env == nil {
		panic(&zkerrors.Fault{Err: &zkerrors.StateError{Op: "get", Reason: "environment not initialized"}})
	}
	return current.env
}

// Release drops the process environment, finalized or not.
func Release() {
	current.Lock()
	defer current.Unlock()
	current.env = nil
}

// SendRecvAsU32 calls SendRecvAsU32 on the process environment.
func SendRecvAsU32(channel uint32, req []byte) ([]uint32, int) {
	return Get().SendRecvAsU32(channel, req)
}

// SendRecv calls SendRecv on the process environment.
func SendRecv(channel uint32, req []byte) []byte {
	return Get().SendRecv(channel, req)
}

// Read decodes the next input value as a T.
func Read[T any]() T {
	return ReadFrom[T](Get())
}

// Write calls Write on the process environment.
func Write(v any) { Get().Write(v) }

// Commit calls Commit on the process environment.
func Commit(v any) { Get().Commit(v) }

// CycleCount calls CycleCount on the process environment.
func CycleCount() uint32 { return Get().CycleCount() }

// Log calls Log on the process environment.
func Log(msg string) { Get().Log(msg) }

// Finalize calls Finalize on the process environment.
func Finalize(resultAddr uint32) { Get().Finalize(resultAddr) }
