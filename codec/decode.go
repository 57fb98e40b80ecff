package codec

import (
	"errors"
	"fmt"

	"github.com/solweaver/gangway/schema"
	"github.com/solweaver/gangway/wire"
)

// ErrBadDiscriminant reports an out-of-range presence flag, union tag or
// enum value in the input. The message is unusable; the channel may live
// on.
var ErrBadDiscriminant = errors.New("codec: discriminant out of range")

func readSized(r *wire.Reader, width int) (uint64, error) {
	switch width {
	case 1:
		b, err := r.ReadByte()
		return uint64(b), err
	case 2:
		n, err := r.ReadU16()
		return uint64(n), err
	case 4:
		n, err := r.ReadU32()
		return uint64(n), err
	default:
		return r.ReadU64()
	}
}

// Decode reads one value of shape t from data. Trailing bytes are an
// error: a message carries exactly one encoded value.
func Decode(t *schema.FieldType, data []byte, refs Resolver) (Value, error) {
	r := wire.NewReader(data)
	v, err := DecodeFrom(r, t, refs)
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("codec: %d trailing bytes after %s value", r.Remaining(), t.Kind)
	}
	return v, nil
}

// DecodeFrom reads one value of shape t from r, leaving the cursor after
// it.
func DecodeFrom(r *wire.Reader, t *schema.FieldType, refs Resolver) (Value, error) {
	switch t.Kind {
	case schema.KindVoid:
		return Void{}, nil

	case schema.KindBool:
		b, err := r.ReadBool()
		if err != nil {
			return nil, err
		}
		return Bool(b), nil

	case schema.KindInt:
		n, err := readSized(r, int(t.Bits/8))
		if err != nil {
			return nil, err
		}
		if t.Signed {
			return Int(signExtend(n, t.Bits)), nil
		}
		return Uint(n), nil

	case schema.KindFloat:
		if t.Bits == 32 {
			f, err := r.ReadF32()
			if err != nil {
				return nil, err
			}
			return Float(f), nil
		}
		f, err := r.ReadF64()
		if err != nil {
			return nil, err
		}
		return Float(f), nil

	case schema.KindString:
		s, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return Str(s), nil

	case schema.KindOptional:
		flag, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		switch flag {
		case 0:
			return None(), nil
		case 1:
			elem, err := DecodeFrom(r, t.Elem, refs)
			if err != nil {
				return nil, err
			}
			return Some(elem), nil
		default:
			return nil, fmt.Errorf("%w: optional flag %d", ErrBadDiscriminant, flag)
		}

	case schema.KindRef:
		if refs == nil {
			return nil, fmt.Errorf("codec: reference %s.%s with no resolver", t.Scheme, t.Name)
		}
		shape, err := refs.ResolveRef(t.Scheme, t.Name)
		if err != nil {
			return nil, err
		}
		elem, err := DecodeFrom(r, shape, refs)
		if err != nil {
			return nil, err
		}
		return Ref{Elem: elem}, nil

	case schema.KindArray:
		seq := takeSeq(int(t.Len))
		for i := uint64(0); i < t.Len; i++ {
			elem, err := DecodeFrom(r, t.Elem, refs)
			if err != nil {
				return nil, err
			}
			seq = append(seq, elem)
		}
		return seq, nil

	case schema.KindList:
		n, err := r.ReadWord()
		if err != nil {
			return nil, err
		}
		if min := minEncodedSize(t.Elem); min > 0 && n > uint64(r.Remaining())/uint64(min) {
			return nil, wire.ErrOutOfBytes
		}
		if isByteElem(t.Elem) {
			raw, err := r.ReadRaw(int(n))
			if err != nil {
				return nil, err
			}
			out := make(Bytes, n)
			copy(out, raw)
			return out, nil
		}
		list := make(List, 0, allocHint(n, r))
		for i := uint64(0); i < n; i++ {
			elem, err := DecodeFrom(r, t.Elem, refs)
			if err != nil {
				return nil, err
			}
			list = append(list, elem)
		}
		return list, nil

	case schema.KindMap:
		n, err := r.ReadWord()
		if err != nil {
			return nil, err
		}
		if min := minEncodedSize(t.Key) + minEncodedSize(t.Elem); min > 0 && n > uint64(r.Remaining())/uint64(min) {
			return nil, wire.ErrOutOfBytes
		}
		m := make(Map, 0, allocHint(n, r))
		for i := uint64(0); i < n; i++ {
			k, err := DecodeFrom(r, t.Key, refs)
			if err != nil {
				return nil, err
			}
			v, err := DecodeFrom(r, t.Elem, refs)
			if err != nil {
				return nil, err
			}
			m = append(m, Entry{Key: k, Val: v})
		}
		return m, nil

	case schema.KindStruct, schema.KindTuple:
		seq := takeSeq(len(t.Fields))
		for _, f := range t.Fields {
			elem, err := DecodeFrom(r, f.Type, refs)
			if err != nil {
				return nil, err
			}
			seq = append(seq, elem)
		}
		return seq, nil

	case schema.KindUnion:
		tag, err := readSized(r, tagWidth(t.Bits))
		if err != nil {
			return nil, err
		}
		if tag >= uint64(len(t.Fields)) {
			return nil, fmt.Errorf("%w: union tag %d (%d cases)", ErrBadDiscriminant, tag, len(t.Fields))
		}
		elem, err := DecodeFrom(r, t.Fields[tag].Type, refs)
		if err != nil {
			return nil, err
		}
		return Union{Tag: tag, Elem: elem}, nil

	case schema.KindEnum:
		val, err := readSized(r, tagWidth(t.Bits))
		if err != nil {
			return nil, err
		}
		if caseName(t, val) == "" {
			return nil, fmt.Errorf("%w: enum value %d not declared", ErrBadDiscriminant, val)
		}
		return Enum(val), nil
	}
	return nil, fmt.Errorf("codec: unknown shape kind %d", t.Kind)
}

// minEncodedSize returns a lower bound on the wire bytes one value of
// shape t occupies. Zero only for shapes that can encode to nothing:
// voids, empty aggregates, and references, whose pointee is not known
// without a resolver.
func minEncodedSize(t *schema.FieldType) int {
	switch t.Kind {
	case schema.KindBool, schema.KindOptional:
		return 1
	case schema.KindInt, schema.KindFloat:
		return int(t.Bits / 8)
	case schema.KindString, schema.KindList, schema.KindMap:
		return wire.WordSize
	case schema.KindArray:
		return int(t.Len) * minEncodedSize(t.Elem)
	case schema.KindStruct, schema.KindTuple:
		n := 0
		for _, f := range t.Fields {
			n += minEncodedSize(f.Type)
		}
		return n
	case schema.KindUnion, schema.KindEnum:
		return tagWidth(t.Bits)
	}
	return 0
}

// allocHint clamps a declared element count to what the remaining input
// could possibly hold, so a count word for zero-size elements never turns
// into an unbounded reservation.
func allocHint(n uint64, r *wire.Reader) uint64 {
	if rem := uint64(r.Remaining()); n > rem {
		return rem
	}
	return n
}

func signExtend(n uint64, bits uint8) int64 {
	if bits >= 64 {
		return int64(n)
	}
	shift := 64 - bits
	return int64(n<<shift) >> shift
}
