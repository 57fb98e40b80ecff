package protocol

import (
	"fmt"

	"github.com/solweaver/gangway/codec"
	"github.com/solweaver/gangway/schema"
)

// fieldTypeToValue lowers a shape tree to its wire description. The union
// tag is the shape's own Kind.
func fieldTypeToValue(t *schema.FieldType) (codec.Value, error) {
	var elem codec.Value
	switch t.Kind {
	case schema.KindVoid, schema.KindBool, schema.KindString:
		elem = codec.Void{}

	case schema.KindInt:
		elem = codec.Seq{codec.Uint(t.Bits), codec.Bool(t.Signed)}

	case schema.KindFloat:
		elem = codec.Seq{codec.Uint(t.Bits)}

	case schema.KindOptional:
		inner, err := fieldTypeToValue(t.Elem)
		if err != nil {
			return nil, err
		}
		elem = codec.Ref{Elem: inner}

	case schema.KindRef:
		elem = codec.Seq{codec.Str(t.Scheme), codec.Str(t.Name)}

	case schema.KindArray:
		inner, err := fieldTypeToValue(t.Elem)
		if err != nil {
			return nil, err
		}
		elem = codec.Seq{codec.Uint(t.Len), codec.Ref{Elem: inner}}

	case schema.KindList:
		inner, err := fieldTypeToValue(t.Elem)
		if err != nil {
			return nil, err
		}
		elem = codec.Ref{Elem: inner}

	case schema.KindMap:
		key, err := fieldTypeToValue(t.Key)
		if err != nil {
			return nil, err
		}
		val, err := fieldTypeToValue(t.Elem)
		if err != nil {
			return nil, err
		}
		elem = codec.Seq{codec.Ref{Elem: key}, codec.Ref{Elem: val}}

	case schema.KindStruct:
		fields, err := fieldsToValue(t.Fields)
		if err != nil {
			return nil, err
		}
		elem = fields

	case schema.KindTuple:
		list := make(codec.List, len(t.Fields))
		for i, f := range t.Fields {
			inner, err := fieldTypeToValue(f.Type)
			if err != nil {
				return nil, err
			}
			list[i] = codec.Ref{Elem: inner}
		}
		elem = list

	case schema.KindUnion:
		fields, err := fieldsToValue(t.Fields)
		if err != nil {
			return nil, err
		}
		elem = codec.Seq{codec.Uint(t.Bits), fields}

	case schema.KindEnum:
		cases := make(codec.List, len(t.Cases))
		for i, c := range t.Cases {
			cases[i] = codec.Seq{codec.Str(c.Name), codec.Uint(c.Value)}
		}
		elem = codec.Seq{codec.Uint(t.Bits), cases}

	default:
		return nil, fmt.Errorf("protocol: undescribable shape kind %d", t.Kind)
	}
	return codec.Union{Tag: uint64(t.Kind), Elem: elem}, nil
}

func fieldsToValue(fields []schema.Field) (codec.List, error) {
	out := make(codec.List, len(fields))
	for i, f := range fields {
		inner, err := fieldTypeToValue(f.Type)
		if err != nil {
			return nil, err
		}
		out[i] = codec.Seq{codec.Str(f.Name), codec.Ref{Elem: inner}}
	}
	return out, nil
}

// valueToFieldType raises a wire description back to a shape tree.
func valueToFieldType(v codec.Value) (*schema.FieldType, error) {
	u, ok := v.(codec.Union)
	if !ok {
		return nil, fmt.Errorf("%w: shape description is not a union", ErrBadMessage)
	}
	kind := schema.Kind(u.Tag)
	switch kind {
	case schema.KindVoid:
		return schema.Void(), nil
	case schema.KindBool:
		return schema.Bool(), nil
	case schema.KindString:
		return schema.Str(), nil

	case schema.KindInt:
		seq, err := seqOf(u.Elem, 2)
		if err != nil {
			return nil, err
		}
		if bool(seq[1].(codec.Bool)) {
			return schema.Int(uint8(seq[0].(codec.Uint))), nil
		}
		return schema.Uint(uint8(seq[0].(codec.Uint))), nil

	case schema.KindFloat:
		seq, err := seqOf(u.Elem, 1)
		if err != nil {
			return nil, err
		}
		return schema.Float(uint8(seq[0].(codec.Uint))), nil

	case schema.KindOptional:
		elem, err := valueToFieldType(refElem(u.Elem))
		if err != nil {
			return nil, err
		}
		return schema.Opt(elem), nil

	case schema.KindRef:
		seq, err := seqOf(u.Elem, 2)
		if err != nil {
			return nil, err
		}
		return schema.Ref(string(seq[0].(codec.Str)), string(seq[1].(codec.Str))), nil

	case schema.KindArray:
		seq, err := seqOf(u.Elem, 2)
		if err != nil {
			return nil, err
		}
		elem, err := valueToFieldType(refElem(seq[1]))
		if err != nil {
			return nil, err
		}
		return schema.Array(uint64(seq[0].(codec.Uint)), elem), nil

	case schema.KindList:
		elem, err := valueToFieldType(refElem(u.Elem))
		if err != nil {
			return nil, err
		}
		return schema.List(elem), nil

	case schema.KindMap:
		seq, err := seqOf(u.Elem, 2)
		if err != nil {
			return nil, err
		}
		key, err := valueToFieldType(refElem(seq[0]))
		if err != nil {
			return nil, err
		}
		val, err := valueToFieldType(refElem(seq[1]))
		if err != nil {
			return nil, err
		}
		return schema.MapOf(key, val), nil

	case schema.KindStruct:
		fields, err := valueToFields(u.Elem)
		if err != nil {
			return nil, err
		}
		return schema.Struct(fields...), nil

	case schema.KindTuple:
		list, ok := u.Elem.(codec.List)
		if !ok {
			return nil, fmt.Errorf("%w: tuple description is not a list", ErrBadMessage)
		}
		types := make([]*schema.FieldType, len(list))
		for i, e := range list {
			t, err := valueToFieldType(refElem(e))
			if err != nil {
				return nil, err
			}
			types[i] = t
		}
		return schema.Tuple(types...), nil

	case schema.KindUnion:
		seq, err := seqOf(u.Elem, 2)
		if err != nil {
			return nil, err
		}
		fields, err := valueToFields(seq[1])
		if err != nil {
			return nil, err
		}
		return schema.Union(uint8(seq[0].(codec.Uint)), fields...), nil

	case schema.KindEnum:
		seq, err := seqOf(u.Elem, 2)
		if err != nil {
			return nil, err
		}
		list, ok := seq[1].(codec.List)
		if !ok {
			return nil, fmt.Errorf("%w: enum cases are not a list", ErrBadMessage)
		}
		cases := make([]schema.EnumCase, len(list))
		for i, e := range list {
			cs, err := seqOf(e, 2)
			if err != nil {
				return nil, err
			}
			cases[i] = schema.EnumCase{
				Name:  string(cs[0].(codec.Str)),
				Value: uint64(cs[1].(codec.Uint)),
			}
		}
		return schema.Enum(uint8(seq[0].(codec.Uint)), cases...), nil
	}
	return nil, fmt.Errorf("%w: shape kind %d", ErrBadMessage, u.Tag)
}

func valueToFields(v codec.Value) ([]schema.Field, error) {
	list, ok := v.(codec.List)
	if !ok {
		return nil, fmt.Errorf("%w: field list is not a list", ErrBadMessage)
	}
	fields := make([]schema.Field, len(list))
	for i, e := range list {
		seq, err := seqOf(e, 2)
		if err != nil {
			return nil, err
		}
		t, err := valueToFieldType(refElem(seq[1]))
		if err != nil {
			return nil, err
		}
		fields[i] = schema.Field{Name: string(seq[0].(codec.Str)), Type: t}
	}
	return fields, nil
}

// schemesToValue lowers object schemes to the SetIndex payload. Only
// object schemes travel in a handshake; functions and commands are a
// compile-time concern on each side.
func schemesToValue(schemes []*schema.Scheme) (codec.Value, error) {
	out := make(codec.List, len(schemes))
	for i, s := range schemes {
		if s.Kind != schema.SchemeObject {
			return nil, fmt.Errorf("protocol: scheme %q is %s, only object schemes cross the wire", s.Name, s.Kind)
		}
		objects := make(codec.List, len(s.Types))
		for j, decl := range s.Types {
			versions := make(codec.List, len(decl.Versions))
			for k, v := range decl.Versions {
				desc, err := fieldTypeToValue(v.Shape)
				if err != nil {
					return nil, err
				}
				versions[k] = codec.Ref{Elem: desc}
			}
			objects[j] = codec.Ref{Elem: codec.Seq{codec.Str(decl.Name), versions}}
		}
		out[i] = codec.Ref{Elem: codec.Seq{codec.Str(s.Name), objects}}
	}
	return out, nil
}

func valueToSchemes(v codec.Value) ([]*schema.Scheme, error) {
	list, ok := v.(codec.List)
	if !ok {
		return nil, fmt.Errorf("%w: scheme list is not a list", ErrBadMessage)
	}
	schemes := make([]*schema.Scheme, len(list))
	for i, e := range list {
		seq, err := seqOf(refElem(e), 2)
		if err != nil {
			return nil, err
		}
		s := &schema.Scheme{
			Name: string(seq[0].(codec.Str)),
			Kind: schema.SchemeObject,
		}
		objects, ok := seq[1].(codec.List)
		if !ok {
			return nil, fmt.Errorf("%w: object list is not a list", ErrBadMessage)
		}
		for _, oe := range objects {
			oseq, err := seqOf(refElem(oe), 2)
			if err != nil {
				return nil, err
			}
			decl := &schema.TypeDecl{Name: string(oseq[0].(codec.Str))}
			versions, ok := oseq[1].(codec.List)
			if !ok {
				return nil, fmt.Errorf("%w: version list is not a list", ErrBadMessage)
			}
			for _, ve := range versions {
				shape, err := valueToFieldType(refElem(ve))
				if err != nil {
					return nil, err
				}
				decl.Versions = append(decl.Versions, schema.Version{Shape: shape})
			}
			s.Types = append(s.Types, decl)
		}
		schemes[i] = s
	}
	return schemes, nil
}

func seqOf(v codec.Value, n int) (codec.Seq, error) {
	seq, ok := v.(codec.Seq)
	if !ok || len(seq) != n {
		return nil, fmt.Errorf("%w: want a %d element sequence, got %T", ErrBadMessage, n, v)
	}
	return seq, nil
}

// refElem unwraps the Ref layer the codec adds around resolved references.
// Values built locally may omit it.
func refElem(v codec.Value) codec.Value {
	if r, ok := v.(codec.Ref); ok {
		return r.Elem
	}
	return v
}
