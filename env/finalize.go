package env

import (
	"fmt"

	zkerrors "github.com/reglet-dev/zkguest/errors"
	"github.com/reglet-dev/zkguest/memory"
	"github.com/reglet-dev/zkguest/platform"
	"github.com/reglet-dev/zkguest/sha"
)

// Finalize ends the run. It publishes the journal descriptor, writes the
// Finalization Result to resultAddr and shuts the digest engine down.
//
// Journals of at most platform.DigestThresholdBytes bytes are echoed
// verbatim into result words 0-7, zero padded. Longer journals are padded
// in place, sealed write-once and digested into those words. Word 8 holds
// the journal length in bytes. Finalize may be called once.
func (e *Env) Finalize(resultAddr uint32) {
	e.active("finalize")
	e.finalized = true

	length := e.commitLen
	journal := e.mem.Words(e.layout.Commit)

	memory.Barrier()
	desc := platform.IoDescriptor{Size: uint32(length), Addr: e.layout.Commit.Start}
	if err := e.ports.Commit.Write(desc); err != nil {
		zkerrors.Abort(&zkerrors.ProtocolError{Op: "finalize", Detail: "commit descriptor", Err: err})
	}

	var result platform.Result
	if length <= platform.DigestThresholdBytes {
		copy(result[:platform.DigestWords], journal[:platform.AlignUp(length)/platform.WordSize])
	} else {
		d, err := e.digestJournal(journal, length)
		if err != nil {
			zkerrors.Abort(err)
		}
		copy(result[:platform.DigestWords], d[:])
	}
	result[platform.DigestWords] = uint32(length)

	for i, w := range result {
		addr := resultAddr + uint32(i*platform.WordSize)
		if err := e.mem.StoreWord(addr, w); err != nil {
			zkerrors.Abort(fmt.Errorf("finalize: result word %d at 0x%08x: %w", i, addr, err))
		}
	}
	memory.Barrier()
	e.digest.Shutdown()
	e.result = result
	e.resultAddr = resultAddr
}

// Halt signals the host that the Finalization Result is complete. It is the
// last register write of a run.
func (e *Env) Halt() {
	if !e.finalized || e.halted {
		zkerrors.Abort(&zkerrors.StateError{Op: "halt", Reason: "halt requires exactly one finalized run"})
	}
	e.halted = true
	if err := e.ports.Halt.Write(e.resultAddr); err != nil {
		zkerrors.Abort(&zkerrors.ProtocolError{Op: "halt", Detail: "register write failed", Err: err})
	}
}

func (e *Env) digestJournal(journal []uint32, length int) (sha.Digest, error) {
	capacity := sha.CapacityNeeded(length)
	if capacity > len(journal) {
		return sha.Digest{}, &zkerrors.CapacityError{
			Region: e.layout.Commit.Name,
			Need:   capacity * platform.WordSize,
			Have:   len(journal) * platform.WordSize,
		}
	}
	buf := journal[:capacity]
	if err := e.digest.AddTrailer(buf, length, sha.MemoryWOM); err != nil {
		return sha.Digest{}, err
	}
	if err := e.mem.Seal(e.layout.Commit.Start, uint32(capacity*platform.WordSize)); err != nil {
		return sha.Digest{}, err
	}
	return e.digest.DigestInto(buf)
}
