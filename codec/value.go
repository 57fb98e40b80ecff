// Package codec serializes shape-driven values to the channel wire format.
// Encoding is positional: the byte stream carries no field names or type
// tags beyond what the shape's own structure requires, so both sides must
// hold structurally identical shapes.
package codec

import "github.com/solweaver/gangway/schema"

// Value is a sealed interface over the dynamic value tree the codec
// understands. Only the types in this file implement it. Each variant
// corresponds to one shape kind; Encode checks the pairing and rejects
// mismatches.
type Value interface {
	value()
}

// Void carries no payload and encodes to zero bytes.
type Void struct{}

func (Void) value() {}

// Bool encodes as a single strict 0/1 byte.
type Bool bool

func (Bool) value() {}

// Int carries any signed integer shape; the shape's bit width picks the
// encoded size.
type Int int64

func (Int) value() {}

// Uint carries any unsigned integer shape.
type Uint uint64

func (Uint) value() {}

// Float carries 32 or 64 bit floating point shapes.
type Float float64

func (Float) value() {}

// Str encodes as a word length prefix followed by UTF-8 bytes.
type Str string

func (Str) value() {}

// Bytes is the fast path for List(Uint(8)) shapes: a word length prefix
// followed by the raw bytes, skipping per-element dispatch.
type Bytes []byte

func (Bytes) value() {}

// List is a variable-length sequence; encodes a word count then each
// element against the shape's element type.
type List []Value

func (List) value() {}

// Seq is a fixed-arity positional sequence used for struct, tuple and
// array shapes. No count is encoded for structs and tuples; arrays check
// the declared length.
type Seq []Value

func (Seq) value() {}

// Entry is one key/value pair of a Map.
type Entry struct {
	Key Value
	Val Value
}

// Map encodes a word count then each entry's key and value in order.
// Entry order is preserved on the wire.
type Map []Entry

func (Map) value() {}

// Opt is an optional element. A nil Elem encodes as the absence byte 0;
// anything else encodes 1 followed by the element.
type Opt struct {
	Elem Value
}

func (Opt) value() {}

// Union selects one case of a union shape by positional tag. The tag's
// encoded width derives from the shape's declared bit width.
type Union struct {
	Tag  uint64
	Elem Value
}

func (Union) value() {}

// Enum encodes the declared case value, sized like a union tag.
type Enum uint64

func (Enum) value() {}

// Ref wraps a value encoded against the referenced type's newest shape.
type Ref struct {
	Elem Value
}

func (Ref) value() {}

// Some wraps a present optional.
func Some(v Value) Opt { return Opt{Elem: v} }

// None is an absent optional.
func None() Opt { return Opt{} }

// Resolver resolves reference shapes during encode and decode. A
// schema.RefView satisfies it.
type Resolver interface {
	ResolveRef(schemeName, typeName string) (*schema.FieldType, error)
}
