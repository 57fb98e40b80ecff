// Package schema describes the shape of every value two independently
// compiled programs exchange. A scheme is a named, versioned collection of
// type declarations; field types are explicit, constructible trees rather
// than anything derived from runtime reflection, so the same description
// can be compiled into both sides and compared structurally.
package schema

// Kind discriminates the FieldType variants.
type Kind uint8

const (
	KindVoid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindOptional
	KindRef
	KindArray
	KindList
	KindMap
	KindStruct
	KindTuple
	KindUnion
	KindEnum
)

var kindNames = [...]string{
	"void", "bool", "int", "float", "string", "optional", "ref",
	"array", "list", "map", "struct", "tuple", "union", "enum",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// FieldType is one node of a structural type description. Which fields are
// meaningful depends on Kind; constructor helpers below build well-formed
// nodes.
type FieldType struct {
	Kind   Kind       `cbor:"1,keyasint"`
	Bits   uint8      `cbor:"2,keyasint,omitempty"`  // Int, Float, Enum, Union tag width
	Signed bool       `cbor:"3,keyasint,omitempty"`  // Int
	Len    uint64     `cbor:"4,keyasint,omitempty"`  // Array
	Key    *FieldType `cbor:"5,keyasint,omitempty"`  // Map
	Elem   *FieldType `cbor:"6,keyasint,omitempty"`  // Optional, Array, List, Map value
	Scheme string     `cbor:"7,keyasint,omitempty"`  // Ref; "" refers to the enclosing scheme
	Name   string     `cbor:"8,keyasint,omitempty"`  // Ref
	Tagged bool       `cbor:"9,keyasint,omitempty"`  // Union
	Fields []Field    `cbor:"10,keyasint,omitempty"` // Struct, Tuple (names empty), Union
	Cases  []EnumCase `cbor:"11,keyasint,omitempty"` // Enum
}

// Field is a named member of a struct or union; tuple members leave the
// name empty.
type Field struct {
	Name string     `cbor:"1,keyasint,omitempty"`
	Type *FieldType `cbor:"2,keyasint"`
}

// EnumCase is one named value of an enum.
type EnumCase struct {
	Name  string `cbor:"1,keyasint"`
	Value uint64 `cbor:"2,keyasint"`
}

// Constructor helpers. These are the manual form of shape derivation:
// declared once per exchanged type, next to the Go type they describe.

func Void() *FieldType            { return &FieldType{Kind: KindVoid} }
func Bool() *FieldType            { return &FieldType{Kind: KindBool} }
func Str() *FieldType             { return &FieldType{Kind: KindString} }
func Int(bits uint8) *FieldType   { return &FieldType{Kind: KindInt, Bits: bits, Signed: true} }
func Uint(bits uint8) *FieldType  { return &FieldType{Kind: KindInt, Bits: bits} }
func Float(bits uint8) *FieldType { return &FieldType{Kind: KindFloat, Bits: bits} }

func Opt(elem *FieldType) *FieldType {
	return &FieldType{Kind: KindOptional, Elem: elem}
}

// Ref names a type declared in another scheme, or in the enclosing scheme
// when schemeName is empty.
func Ref(schemeName, typeName string) *FieldType {
	return &FieldType{Kind: KindRef, Scheme: schemeName, Name: typeName}
}

// SelfRef names a type declared in the enclosing scheme.
func SelfRef(typeName string) *FieldType {
	return Ref("", typeName)
}

func Array(n uint64, elem *FieldType) *FieldType {
	return &FieldType{Kind: KindArray, Len: n, Elem: elem}
}

func List(elem *FieldType) *FieldType {
	return &FieldType{Kind: KindList, Elem: elem}
}

func MapOf(key, val *FieldType) *FieldType {
	return &FieldType{Kind: KindMap, Key: key, Elem: val}
}

func Struct(fields ...Field) *FieldType {
	return &FieldType{Kind: KindStruct, Fields: fields}
}

func Tuple(types ...*FieldType) *FieldType {
	fields := make([]Field, len(types))
	for i, t := range types {
		fields[i] = Field{Type: t}
	}
	return &FieldType{Kind: KindTuple, Fields: fields}
}

// Union builds a tagged union; bits is the tag's backing width.
func Union(bits uint8, fields ...Field) *FieldType {
	return &FieldType{Kind: KindUnion, Tagged: true, Bits: bits, Fields: fields}
}

func Enum(bits uint8, cases ...EnumCase) *FieldType {
	return &FieldType{Kind: KindEnum, Bits: bits, Cases: cases}
}

// FieldOrder selects how member order is treated when comparing struct,
// union and enum members. Strict comparison is the wire-compatible default;
// order-independent comparison exists because member order sensitivity for
// unions and enums is a policy that may yet change.
type FieldOrder uint8

const (
	// FieldOrderStrict requires members to match position by position.
	FieldOrderStrict FieldOrder = iota
	// FieldOrderAny matches union and enum members by name regardless of
	// declaration order. Structs and tuples stay positional: their wire
	// layout is their declaration order.
	FieldOrderAny
)

// Equal reports whether two type trees are structurally identical under
// strict member ordering.
func (t *FieldType) Equal(o *FieldType) bool {
	return EqualUnder(FieldOrderStrict, t, o)
}

// EqualUnder reports structural equality under the given ordering strategy.
// Names matter everywhere they appear.
func EqualUnder(order FieldOrder, a, b *FieldType) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindVoid, KindBool, KindString:
		return true
	case KindInt:
		return a.Bits == b.Bits && a.Signed == b.Signed
	case KindFloat:
		return a.Bits == b.Bits
	case KindOptional, KindList:
		return EqualUnder(order, a.Elem, b.Elem)
	case KindRef:
		return a.Scheme == b.Scheme && a.Name == b.Name
	case KindArray:
		return a.Len == b.Len && EqualUnder(order, a.Elem, b.Elem)
	case KindMap:
		return EqualUnder(order, a.Key, b.Key) && EqualUnder(order, a.Elem, b.Elem)
	case KindStruct, KindTuple:
		return fieldsEqualStrict(order, a.Fields, b.Fields)
	case KindUnion:
		if a.Tagged != b.Tagged || a.Bits != b.Bits {
			return false
		}
		if order == FieldOrderAny {
			return fieldsEqualByName(a.Fields, b.Fields)
		}
		return fieldsEqualStrict(order, a.Fields, b.Fields)
	case KindEnum:
		if a.Bits != b.Bits {
			return false
		}
		if order == FieldOrderAny {
			return casesEqualByName(a.Cases, b.Cases)
		}
		return casesEqualStrict(a.Cases, b.Cases)
	}
	return false
}

func fieldsEqualStrict(order FieldOrder, a, b []Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !EqualUnder(order, a[i].Type, b[i].Type) {
			return false
		}
	}
	return true
}

func fieldsEqualByName(a, b []Field) bool {
	if len(a) != len(b) {
		return false
	}
	byName := make(map[string]*FieldType, len(b))
	for i := range b {
		byName[b[i].Name] = b[i].Type
	}
	for i := range a {
		t, ok := byName[a[i].Name]
		if !ok || !EqualUnder(FieldOrderAny, a[i].Type, t) {
			return false
		}
	}
	return true
}

func casesEqualStrict(a, b []EnumCase) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func casesEqualByName(a, b []EnumCase) bool {
	if len(a) != len(b) {
		return false
	}
	byName := make(map[string]uint64, len(b))
	for i := range b {
		byName[b[i].Name] = b[i].Value
	}
	for i := range a {
		v, ok := byName[a[i].Name]
		if !ok || v != a[i].Value {
			return false
		}
	}
	return true
}
