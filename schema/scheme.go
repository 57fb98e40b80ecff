package schema

import (
	"errors"
	"fmt"
)

// SchemeKind classifies a scheme's declarations. All declarations within
// one scheme share its kind.
type SchemeKind uint8

const (
	SchemeObject SchemeKind = iota
	SchemeFunction
	SchemeCommand
)

func (k SchemeKind) String() string {
	switch k {
	case SchemeObject:
		return "object"
	case SchemeFunction:
		return "function"
	case SchemeCommand:
		return "command"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Scheme is a named collection of versioned type declarations of one kind.
type Scheme struct {
	Name  string      `cbor:"1,keyasint"`
	Kind  SchemeKind  `cbor:"2,keyasint"`
	Types []*TypeDecl `cbor:"3,keyasint"`
}

// TypeDecl is one named type with its ordered version history. Older
// versions are never rewritten; new shapes append.
type TypeDecl struct {
	Name     string    `cbor:"1,keyasint"`
	Versions []Version `cbor:"2,keyasint"`
}

// Version is one historical shape of a declared type. Object and command
// schemes use Shape; function schemes use Params and Result.
type Version struct {
	Shape  *FieldType `cbor:"1,keyasint,omitempty"`
	Params *FieldType `cbor:"2,keyasint,omitempty"`
	Result *FieldType `cbor:"3,keyasint,omitempty"`
}

func (v Version) equalUnder(order FieldOrder, o Version) bool {
	return EqualUnder(order, v.Shape, o.Shape) &&
		EqualUnder(order, v.Params, o.Params) &&
		EqualUnder(order, v.Result, o.Result)
}

// Equal reports structural equality of two versions.
func (v Version) Equal(o Version) bool {
	return v.equalUnder(FieldOrderStrict, o)
}

// Validate checks the scheme's internal consistency: every declaration has
// at least one version, and every version carries the parts its kind
// requires.
func (s *Scheme) Validate() error {
	if s.Name == "" {
		return errors.New("schema: scheme has no name")
	}
	seen := make(map[string]bool, len(s.Types))
	for _, decl := range s.Types {
		if decl.Name == "" {
			return fmt.Errorf("schema: %s: unnamed type declaration", s.Name)
		}
		if seen[decl.Name] {
			return fmt.Errorf("schema: %s: duplicate type %q", s.Name, decl.Name)
		}
		seen[decl.Name] = true
		if len(decl.Versions) == 0 {
			return fmt.Errorf("schema: %s.%s: no versions", s.Name, decl.Name)
		}
		for i, v := range decl.Versions {
			switch s.Kind {
			case SchemeFunction:
				if v.Shape != nil || v.Params == nil || v.Result == nil {
					return fmt.Errorf("schema: %s.%s v%d: function version needs params and result", s.Name, decl.Name, i)
				}
			default:
				if v.Shape == nil || v.Params != nil || v.Result != nil {
					return fmt.Errorf("schema: %s.%s v%d: %s version needs a shape", s.Name, decl.Name, i, s.Kind)
				}
			}
		}
	}
	return nil
}

// Decl returns the named declaration, or nil.
func (s *Scheme) Decl(name string) *TypeDecl {
	for _, d := range s.Types {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// Set is an identity-keyed registry of schemes. References between schemes
// resolve through a Set, never through nested ownership, so cyclic schema
// graphs are representable.
type Set struct {
	schemes []*Scheme
	byName  map[string]*Scheme
}

// NewSet builds a set from the given schemes in declaration order.
func NewSet(schemes ...*Scheme) (*Set, error) {
	s := &Set{byName: make(map[string]*Scheme, len(schemes))}
	for _, sc := range schemes {
		if err := s.Add(sc); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add validates and appends a scheme. Names are unique within a set.
func (s *Set) Add(sc *Scheme) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if _, ok := s.byName[sc.Name]; ok {
		return fmt.Errorf("schema: duplicate scheme %q", sc.Name)
	}
	s.schemes = append(s.schemes, sc)
	s.byName[sc.Name] = sc
	return nil
}

// Schemes returns the set's schemes in declaration order. The handshake
// relies on this order being the same in every build of the same schema
// snapshot.
func (s *Set) Schemes() []*Scheme {
	return s.schemes
}

// Lookup returns the named scheme, or nil.
func (s *Set) Lookup(name string) *Scheme {
	return s.byName[name]
}

// Len returns the number of schemes.
func (s *Set) Len() int {
	return len(s.schemes)
}

// RefView binds a set to an enclosing scheme so that scheme-relative
// references resolve. It satisfies the codec's resolver interface.
type RefView struct {
	set       *Set
	enclosing *Scheme
}

// View returns a resolver rooted at the given enclosing scheme. A nil
// enclosing scheme rejects self-references.
func (s *Set) View(enclosing *Scheme) RefView {
	return RefView{set: s, enclosing: enclosing}
}

// ResolveRef returns the newest declared shape of the referenced type.
func (v RefView) ResolveRef(schemeName, typeName string) (*FieldType, error) {
	var target *Scheme
	if schemeName == "" {
		if v.enclosing == nil {
			return nil, fmt.Errorf("schema: self-reference %q outside a scheme", typeName)
		}
		target = v.enclosing
	} else {
		target = v.set.Lookup(schemeName)
		if target == nil {
			return nil, fmt.Errorf("schema: unknown scheme %q", schemeName)
		}
	}
	decl := target.Decl(typeName)
	if decl == nil {
		return nil, fmt.Errorf("schema: %s has no type %q", target.Name, typeName)
	}
	latest := decl.Versions[len(decl.Versions)-1]
	if latest.Shape == nil {
		return nil, fmt.Errorf("schema: %s.%s is not a value type", target.Name, typeName)
	}
	return latest.Shape, nil
}
