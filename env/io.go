package env

import (
	"fmt"

	zkerrors "github.com/reglet-dev/zkguest/errors"
	"github.com/reglet-dev/zkguest/platform"
	"github.com/reglet-dev/zkguest/serde"
	"github.com/reglet-dev/zkguest/transport"
)

// SendRecvAsU32 sends req on channel and blocks until the host answers.
// It returns the response words and the response length in bytes.
func (e *Env) SendRecvAsU32(channel uint32, req []byte) ([]uint32, int) {
	words, n, err := e.transport.SendRecv(channel, req)
	if err != nil {
		zkerrors.Abort(&zkerrors.ProtocolError{Op: "send_recv", Channel: channel, Detail: "exchange failed", Err: err})
	}
	if n < 0 || n > len(words)*platform.WordSize {
		zkerrors.Abort(&zkerrors.ProtocolError{
			Op:      "send_recv",
			Channel: channel,
			Detail:  fmt.Sprintf("response claims %d bytes in %d words", n, len(words)),
		})
	}
	return words, n
}

// SendRecv is SendRecvAsU32 with the response truncated to its byte length.
func (e *Env) SendRecv(channel uint32, req []byte) []byte {
	b, err := transport.Bytes(e.SendRecvAsU32(channel, req))
	if err != nil {
		zkerrors.Abort(&zkerrors.ProtocolError{Op: "send_recv", Channel: channel, Detail: "bad response", Err: err})
	}
	return b
}

// Reader decodes the initial input in the order the host supplied it.
type Reader struct {
	dec *serde.Deserializer
}

// ReadInto decodes the next value into v, a non-nil pointer. Malformed or
// exhausted input aborts the run.
func (r *Reader) ReadInto(v any) {
	if err := r.dec.Decode(v); err != nil {
		zkerrors.Abort(err)
	}
}

// Remaining returns the number of input bytes not yet decoded.
func (r *Reader) Remaining() int { return r.dec.Remaining() }

// Reader returns the input reader, fetching the initial input from the
// host on first use. Later calls return the same reader.
func (e *Env) Reader() *Reader {
	if e.reader != nil {
		return e.reader
	}

	words, n := e.SendRecvAsU32(platform.ChannelInitialInput, nil)
	input := e.mem.Words(e.layout.Input)
	if n > len(input)*platform.WordSize {
		zkerrors.Abort(&zkerrors.CapacityError{Region: e.layout.Input.Name, Need: n, Have: int(e.layout.Input.Len)})
	}
	copy(input, words[:platform.AlignUp(n)/platform.WordSize])

	e.reader = &Reader{dec: serde.NewDeserializer(e.codec, input, n)}
	return e.reader
}

// ReadFrom decodes the next input value of e as a T.
func ReadFrom[T any](e *Env) T {
	var v T
	e.Reader().ReadInto(&v)
	return v
}

// Write encodes v into OUTPUT and sends the encoding to the host's stdout
// channel. It does not touch the journal.
func (e *Env) Write(v any) {
	e.active("write")
	if err := e.output.Encode(v); err != nil {
		zkerrors.Abort(err)
	}
	e.mirror(e.output.Release())
	e.output.Reset()
}

// Commit appends the encoding of v to the journal and mirrors it to the
// host's stdout channel.
func (e *Env) Commit(v any) {
	e.active("commit")
	if err := e.commit.Encode(v); err != nil {
		zkerrors.Abort(err)
	}
	b := e.commit.Release()
	e.commitLen += len(b)
	e.mirror(b)
}

func (e *Env) mirror(b []byte) {
	if _, _, err := e.transport.SendRecv(platform.ChannelStdout, b); err != nil {
		e.stdoutErr = err
	}
}

// CycleCount triggers the host's cycle accounting and returns the cycles
// elapsed so far.
func (e *Env) CycleCount() uint32 {
	if err := e.ports.CycleCount.Trigger(); err != nil {
		zkerrors.Abort(&zkerrors.ProtocolError{Op: "cycle_count", Channel: platform.ChannelCycleCount, Detail: "trigger failed", Err: err})
	}
	words, n := e.SendRecvAsU32(platform.ChannelCycleCount, nil)
	if len(words) != 1 || n != platform.WordSize {
		zkerrors.Abort(&zkerrors.ProtocolError{
			Op:      "cycle_count",
			Channel: platform.ChannelCycleCount,
			Detail:  fmt.Sprintf("want exactly one word, got %d words (%d bytes)", len(words), n),
		})
	}
	return words[0]
}

// Log publishes msg through the LOG register. Messages longer than the
// scratch slot are truncated.
func (e *Env) Log(msg string) {
	if err := e.ports.Log.Write(msg); err != nil {
		zkerrors.Abort(&zkerrors.ProtocolError{Op: "log", Detail: "register write failed", Err: err})
	}
}
