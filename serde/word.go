package serde

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"

	zkerrors "github.com/reglet-dev/zkguest/errors"
	"github.com/reglet-dev/zkguest/platform"
)

// wordCodec lays values out in little-endian 32-bit words:
//
//	bool, (u)int8/16/32, int, uint, float32   one word
//	(u)int64, float64                         two words, low word first
//	string, []byte                            byte length word, bytes zero padded to a word
//	[N]byte                                   N bytes zero padded to a word
//	slice, map                                element count word, then elements
//	array, struct                             elements / exported fields in order
//	pointer                                   option word (0 nil, 1 present), then value
//
// int and uint are guest words: values outside 32 bits do not encode. Map
// entries are ordered by their encoded key so encodings are deterministic.
// Struct fields tagged `serde:"-"` are skipped.
type wordCodec struct{}

var errShort = io.ErrUnexpectedEOF

func (wordCodec) Name() string { return NameWord }

func (wordCodec) Append(dst []byte, v any) ([]byte, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return dst, &zkerrors.EncodeError{Type: "nil", Err: errors.New("cannot encode untyped nil")}
	}
	// A top-level pointer is a reference to the value, not an option.
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	return appendValue(dst, rv)
}

func (wordCodec) Decode(src []byte, v any) (int, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return 0, &zkerrors.DecodeError{Err: fmt.Errorf("decode target must be a non-nil pointer, got %T", v)}
	}
	d := wordDecoder{src: src}
	if err := d.value(rv.Elem()); err != nil {
		return d.off, err
	}
	return d.off, nil
}

func appendWord(dst []byte, w uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, w)
}

func appendPadded(dst []byte, b []byte) []byte {
	dst = append(dst, b...)
	for pad := platform.AlignUp(len(b)) - len(b); pad > 0; pad-- {
		dst = append(dst, 0)
	}
	return dst
}

func appendValue(dst []byte, v reflect.Value) ([]byte, error) {
	t := v.Type()
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return appendWord(dst, 1), nil
		}
		return appendWord(dst, 0), nil
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return appendWord(dst, uint32(int32(v.Int()))), nil
	case reflect.Int:
		n := v.Int()
		if n < math.MinInt32 || n > math.MaxInt32 {
			return dst, &zkerrors.EncodeError{Type: t.String(), Err: fmt.Errorf("%d does not fit a guest word", n)}
		}
		return appendWord(dst, uint32(int32(n))), nil
	case reflect.Int64:
		return appendDouble(dst, uint64(v.Int())), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return appendWord(dst, uint32(v.Uint())), nil
	case reflect.Uint, reflect.Uintptr:
		n := v.Uint()
		if n > math.MaxUint32 {
			return dst, &zkerrors.EncodeError{Type: t.String(), Err: fmt.Errorf("%d does not fit a guest word", n)}
		}
		return appendWord(dst, uint32(n)), nil
	case reflect.Uint64:
		return appendDouble(dst, v.Uint()), nil
	case reflect.Float32:
		return appendWord(dst, math.Float32bits(float32(v.Float()))), nil
	case reflect.Float64:
		return appendDouble(dst, math.Float64bits(v.Float())), nil
	case reflect.String:
		s := v.String()
		if uint64(len(s)) > math.MaxUint32 {
			return dst, &zkerrors.EncodeError{Type: t.String(), Err: errors.New("string too long")}
		}
		dst = appendWord(dst, uint32(len(s)))
		return appendPadded(dst, []byte(s)), nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			b := v.Bytes()
			dst = appendWord(dst, uint32(len(b)))
			return appendPadded(dst, b), nil
		}
		dst = appendWord(dst, uint32(v.Len()))
		return appendElems(dst, v)
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			// Element-wise: the element may be a named byte type.
			b := make([]byte, v.Len())
			for i := range b {
				b[i] = byte(v.Index(i).Uint())
			}
			return appendPadded(dst, b), nil
		}
		return appendElems(dst, v)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if skipField(t.Field(i)) {
				continue
			}
			var err error
			if dst, err = appendValue(dst, v.Field(i)); err != nil {
				return dst, err
			}
		}
		return dst, nil
	case reflect.Pointer:
		if v.IsNil() {
			return appendWord(dst, 0), nil
		}
		return appendValue(appendWord(dst, 1), v.Elem())
	case reflect.Map:
		return appendMap(dst, v)
	default:
		return dst, &zkerrors.EncodeError{Type: t.String(), Err: errors.New("unsupported kind " + v.Kind().String())}
	}
}

func appendDouble(dst []byte, n uint64) []byte {
	dst = appendWord(dst, uint32(n))
	return appendWord(dst, uint32(n>>32))
}

func appendElems(dst []byte, v reflect.Value) ([]byte, error) {
	for i := 0; i < v.Len(); i++ {
		var err error
		if dst, err = appendValue(dst, v.Index(i)); err != nil {
			return dst, err
		}
	}
	return dst, nil
}

func appendMap(dst []byte, v reflect.Value) ([]byte, error) {
	type entry struct{ key, val []byte }
	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k, err := appendValue(nil, iter.Key())
		if err != nil {
			return dst, err
		}
		val, err := appendValue(nil, iter.Value())
		if err != nil {
			return dst, err
		}
		entries = append(entries, entry{k, val})
	}
	sort.Slice(entries, func(i, j int) bool { return bytes.Compare(entries[i].key, entries[j].key) < 0 })

	dst = appendWord(dst, uint32(len(entries)))
	for _, e := range entries {
		dst = append(dst, e.key...)
		dst = append(dst, e.val...)
	}
	return dst, nil
}

func skipField(f reflect.StructField) bool {
	return !f.IsExported() || f.Tag.Get("serde") == "-"
}

type wordDecoder struct {
	src []byte
	off int
}

func (d *wordDecoder) fail(t reflect.Type, err error) error {
	return &zkerrors.DecodeError{Type: t.String(), Offset: d.off, Err: err}
}

func (d *wordDecoder) word(t reflect.Type) (uint32, error) {
	if len(d.src)-d.off < platform.WordSize {
		return 0, d.fail(t, errShort)
	}
	w := binary.LittleEndian.Uint32(d.src[d.off:])
	d.off += platform.WordSize
	return w, nil
}

func (d *wordDecoder) double(t reflect.Type) (uint64, error) {
	lo, err := d.word(t)
	if err != nil {
		return 0, err
	}
	hi, err := d.word(t)
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

func (d *wordDecoder) padded(t reflect.Type, n int) ([]byte, error) {
	size := platform.AlignUp(n)
	if n < 0 || len(d.src)-d.off < size {
		return nil, d.fail(t, errShort)
	}
	b := make([]byte, n)
	copy(b, d.src[d.off:])
	d.off += size
	return b, nil
}

// count reads a length prefix and bounds it by the remaining input so
// corrupted lengths cannot force huge allocations.
func (d *wordDecoder) count(t reflect.Type) (int, error) {
	n, err := d.word(t)
	if err != nil {
		return 0, err
	}
	if int64(n) > int64(len(d.src)-d.off) {
		return 0, d.fail(t, fmt.Errorf("length %d exceeds remaining input", n))
	}
	return int(n), nil
}

func (d *wordDecoder) value(v reflect.Value) error {
	t := v.Type()
	switch v.Kind() {
	case reflect.Bool:
		w, err := d.word(t)
		if err != nil {
			return err
		}
		if w > 1 {
			return d.fail(t, fmt.Errorf("invalid bool %d", w))
		}
		v.SetBool(w == 1)
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int:
		w, err := d.word(t)
		if err != nil {
			return err
		}
		n := int64(int32(w))
		if v.OverflowInt(n) {
			return d.fail(t, fmt.Errorf("%d overflows", n))
		}
		v.SetInt(n)
	case reflect.Int64:
		n, err := d.double(t)
		if err != nil {
			return err
		}
		v.SetInt(int64(n))
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint, reflect.Uintptr:
		w, err := d.word(t)
		if err != nil {
			return err
		}
		if v.OverflowUint(uint64(w)) {
			return d.fail(t, fmt.Errorf("%d overflows", w))
		}
		v.SetUint(uint64(w))
	case reflect.Uint64:
		n, err := d.double(t)
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Float32:
		w, err := d.word(t)
		if err != nil {
			return err
		}
		v.SetFloat(float64(math.Float32frombits(w)))
	case reflect.Float64:
		n, err := d.double(t)
		if err != nil {
			return err
		}
		v.SetFloat(math.Float64frombits(n))
	case reflect.String:
		n, err := d.count(t)
		if err != nil {
			return err
		}
		b, err := d.padded(t, n)
		if err != nil {
			return err
		}
		v.SetString(string(b))
	case reflect.Slice:
		n, err := d.count(t)
		if err != nil {
			return err
		}
		if t.Elem().Kind() == reflect.Uint8 {
			b, err := d.padded(t, n)
			if err != nil {
				return err
			}
			v.SetBytes(b)
			return nil
		}
		s := reflect.MakeSlice(t, n, n)
		for i := 0; i < n; i++ {
			if err := d.value(s.Index(i)); err != nil {
				return err
			}
		}
		v.Set(s)
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			b, err := d.padded(t, v.Len())
			if err != nil {
				return err
			}
			for i := range b {
				v.Index(i).SetUint(uint64(b[i]))
			}
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := d.value(v.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if skipField(t.Field(i)) {
				continue
			}
			if err := d.value(v.Field(i)); err != nil {
				return err
			}
		}
	case reflect.Pointer:
		tag, err := d.word(t)
		if err != nil {
			return err
		}
		switch tag {
		case 0:
			v.Set(reflect.Zero(t))
		case 1:
			p := reflect.New(t.Elem())
			if err := d.value(p.Elem()); err != nil {
				return err
			}
			v.Set(p)
		default:
			return d.fail(t, fmt.Errorf("invalid option tag %d", tag))
		}
	case reflect.Map:
		n, err := d.count(t)
		if err != nil {
			return err
		}
		m := reflect.MakeMapWithSize(t, n)
		for i := 0; i < n; i++ {
			k := reflect.New(t.Key()).Elem()
			if err := d.value(k); err != nil {
				return err
			}
			val := reflect.New(t.Elem()).Elem()
			if err := d.value(val); err != nil {
				return err
			}
			m.SetMapIndex(k, val)
		}
		v.Set(m)
	default:
		return d.fail(t, errors.New("unsupported kind "+v.Kind().String()))
	}
	return nil
}
