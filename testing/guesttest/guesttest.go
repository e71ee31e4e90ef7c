// Package guesttest provides a test harness for guest programs. Guests run
// in-process through host.NativeExecutor, so they are tested without a
// wasm build.
package guesttest

import (
	"context"
	"errors"
	"reflect"
	"testing"

	zkerrors "github.com/reglet-dev/zkguest/errors"
	"github.com/reglet-dev/zkguest/host"
	"github.com/reglet-dev/zkguest/serde"
)

// TestCase defines one run of a guest.
type TestCase struct {
	Name string
	// Codec encodes Inputs and is the guest's codec. Nil means serde.Word.
	Codec    serde.Codec
	Inputs   []any
	Options  []host.Option
	Validate func(t *testing.T, r *host.Receipt, err error)
}

// RunGuestTests runs guest once per test case.
func RunGuestTests(t *testing.T, guest func(), tests []TestCase) {
	t.Helper()

	for _, tc := range tests {
		t.Run(tc.Name, func(t *testing.T) {
			codec := tc.Codec
			if codec == nil {
				codec = serde.Word
			}
			opts := append([]host.Option{host.WithCodec(codec)}, tc.Options...)
			x, err := host.NewNativeExecutor(opts...)
			if err != nil {
				t.Fatalf("failed to create executor: %v", err)
			}
			input, err := encode(codec, tc.Inputs)
			if err != nil {
				t.Fatalf("failed to encode inputs: %v", err)
			}

			r, err := x.Execute(context.Background(), guest, input)
			if tc.Validate != nil {
				tc.Validate(t, r, err)
			}
		})
	}
}

func encode(codec serde.Codec, vals []any) ([]byte, error) {
	in := host.NewInput(codec)
	for _, v := range vals {
		in.Add(v)
	}
	return in.Bytes()
}

// AssertHalted asserts the guest halted with a verified receipt.
func AssertHalted(t *testing.T, r *host.Receipt, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("expected the guest to halt, got %v", err)
	}
	if verr := r.Verify(); verr != nil {
		t.Errorf("receipt does not verify: %v", verr)
	}
}

// AssertFault asserts the guest aborted with a fault of kind.
func AssertFault(t *testing.T, err error, kind zkerrors.Kind) {
	t.Helper()
	var f *zkerrors.Fault
	if !errors.As(err, &f) {
		t.Fatalf("expected a guest fault, got %v", err)
	}
	if f.Kind() != kind {
		t.Errorf("expected a %s fault, got %s: %v", kind, f.Kind(), f.Err)
	}
}

// AssertJournal asserts the journal decodes, in order, to want.
func AssertJournal(t *testing.T, r *host.Receipt, want ...any) {
	t.Helper()
	ptrs := make([]any, len(want))
	for i, w := range want {
		ptrs[i] = reflect.New(reflect.TypeOf(w)).Interface()
	}
	if err := r.Decode(ptrs...); err != nil {
		t.Fatalf("failed to decode journal: %v", err)
	}
	for i, w := range want {
		if got := reflect.ValueOf(ptrs[i]).Elem().Interface(); !reflect.DeepEqual(got, w) {
			t.Errorf("journal value %d: expected %v, got %v", i, w, got)
		}
	}
}
