package codec

import (
	"errors"
	"fmt"

	"github.com/solweaver/gangway/schema"
	"github.com/solweaver/gangway/wire"
)

// ErrShapeMismatch reports a value that does not fit its shape: wrong
// variant, wrong arity, or an integer outside the declared width.
var ErrShapeMismatch = errors.New("codec: value does not match shape")

// tagWidth returns the encoded byte width of a union tag or enum value:
// the smallest power-of-two number of bytes that holds the declared bit
// width.
func tagWidth(bits uint8) int {
	switch {
	case bits <= 8:
		return 1
	case bits <= 16:
		return 2
	case bits <= 32:
		return 4
	default:
		return 8
	}
}

func writeSized(w *wire.Writer, u uint64, width int) {
	switch width {
	case 1:
		w.WriteU8(uint8(u))
	case 2:
		w.WriteU16(uint16(u))
	case 4:
		w.WriteU32(uint32(u))
	default:
		w.WriteU64(u)
	}
}

// Encode serializes v against shape t and returns the wire bytes. refs may
// be nil when the shape contains no references.
func Encode(t *schema.FieldType, v Value, refs Resolver) ([]byte, error) {
	var w wire.Writer
	if err := EncodeTo(&w, t, v, refs); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// EncodeTo appends the encoding of v against shape t to w. On error the
// writer may hold a partial encoding.
func EncodeTo(w *wire.Writer, t *schema.FieldType, v Value, refs Resolver) error {
	switch t.Kind {
	case schema.KindVoid:
		if _, ok := v.(Void); !ok {
			return mismatch(t, v)
		}
		return nil

	case schema.KindBool:
		b, ok := v.(Bool)
		if !ok {
			return mismatch(t, v)
		}
		w.WriteBool(bool(b))
		return nil

	case schema.KindInt:
		return encodeInt(w, t, v)

	case schema.KindFloat:
		f, ok := v.(Float)
		if !ok {
			return mismatch(t, v)
		}
		if t.Bits == 32 {
			w.WriteF32(float32(f))
		} else {
			w.WriteF64(float64(f))
		}
		return nil

	case schema.KindString:
		s, ok := v.(Str)
		if !ok {
			return mismatch(t, v)
		}
		w.WriteString(string(s))
		return nil

	case schema.KindOptional:
		o, ok := v.(Opt)
		if !ok {
			return mismatch(t, v)
		}
		if o.Elem == nil {
			w.WriteU8(0)
			return nil
		}
		w.WriteU8(1)
		return EncodeTo(w, t.Elem, o.Elem, refs)

	case schema.KindRef:
		if refs == nil {
			return fmt.Errorf("codec: reference %s.%s with no resolver", t.Scheme, t.Name)
		}
		shape, err := refs.ResolveRef(t.Scheme, t.Name)
		if err != nil {
			return err
		}
		if r, ok := v.(Ref); ok {
			v = r.Elem
		}
		return EncodeTo(w, shape, v, refs)

	case schema.KindArray:
		seq, ok := v.(Seq)
		if !ok {
			return mismatch(t, v)
		}
		if uint64(len(seq)) != t.Len {
			return fmt.Errorf("%w: array wants %d elements, got %d", ErrShapeMismatch, t.Len, len(seq))
		}
		for _, e := range seq {
			if err := EncodeTo(w, t.Elem, e, refs); err != nil {
				return err
			}
		}
		return nil

	case schema.KindList:
		if b, ok := v.(Bytes); ok {
			if !isByteElem(t.Elem) {
				return mismatch(t, v)
			}
			w.WriteBytes(b)
			return nil
		}
		l, ok := v.(List)
		if !ok {
			return mismatch(t, v)
		}
		w.WriteWord(uint64(len(l)))
		for _, e := range l {
			if err := EncodeTo(w, t.Elem, e, refs); err != nil {
				return err
			}
		}
		return nil

	case schema.KindMap:
		m, ok := v.(Map)
		if !ok {
			return mismatch(t, v)
		}
		w.WriteWord(uint64(len(m)))
		for _, e := range m {
			if err := EncodeTo(w, t.Key, e.Key, refs); err != nil {
				return err
			}
			if err := EncodeTo(w, t.Elem, e.Val, refs); err != nil {
				return err
			}
		}
		return nil

	case schema.KindStruct, schema.KindTuple:
		seq, ok := v.(Seq)
		if !ok {
			return mismatch(t, v)
		}
		if len(seq) != len(t.Fields) {
			return fmt.Errorf("%w: %s wants %d fields, got %d", ErrShapeMismatch, t.Kind, len(t.Fields), len(seq))
		}
		for i, f := range t.Fields {
			if err := EncodeTo(w, f.Type, seq[i], refs); err != nil {
				return err
			}
		}
		return nil

	case schema.KindUnion:
		u, ok := v.(Union)
		if !ok {
			return mismatch(t, v)
		}
		if u.Tag >= uint64(len(t.Fields)) {
			return fmt.Errorf("%w: union tag %d out of range (%d cases)", ErrShapeMismatch, u.Tag, len(t.Fields))
		}
		writeSized(w, u.Tag, tagWidth(t.Bits))
		return EncodeTo(w, t.Fields[u.Tag].Type, u.Elem, refs)

	case schema.KindEnum:
		e, ok := v.(Enum)
		if !ok {
			return mismatch(t, v)
		}
		if caseName(t, uint64(e)) == "" {
			return fmt.Errorf("%w: enum value %d not declared", ErrShapeMismatch, uint64(e))
		}
		writeSized(w, uint64(e), tagWidth(t.Bits))
		return nil
	}
	return fmt.Errorf("codec: unknown shape kind %d", t.Kind)
}

func encodeInt(w *wire.Writer, t *schema.FieldType, v Value) error {
	if t.Signed {
		i, ok := v.(Int)
		if !ok {
			return mismatch(t, v)
		}
		n := int64(i)
		if t.Bits < 64 {
			limit := int64(1) << (t.Bits - 1)
			if n < -limit || n >= limit {
				return fmt.Errorf("%w: %d overflows int%d", ErrShapeMismatch, n, t.Bits)
			}
		}
		writeSized(w, uint64(n), int(t.Bits/8))
		return nil
	}
	u, ok := v.(Uint)
	if !ok {
		return mismatch(t, v)
	}
	n := uint64(u)
	if t.Bits < 64 && n >= uint64(1)<<t.Bits {
		return fmt.Errorf("%w: %d overflows uint%d", ErrShapeMismatch, n, t.Bits)
	}
	writeSized(w, n, int(t.Bits/8))
	return nil
}

func isByteElem(t *schema.FieldType) bool {
	return t != nil && t.Kind == schema.KindInt && !t.Signed && t.Bits == 8
}

func caseName(t *schema.FieldType, value uint64) string {
	for _, c := range t.Cases {
		if c.Value == value {
			return c.Name
		}
	}
	return ""
}

func mismatch(t *schema.FieldType, v Value) error {
	return fmt.Errorf("%w: %T against %s shape", ErrShapeMismatch, v, t.Kind)
}
