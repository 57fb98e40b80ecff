package schema

import "fmt"

// Dependencies computes the transitive set of schemes reachable from s
// through Ref fields in any version of any declared type. The receiver
// itself is excluded; results are deduplicated by identity and returned in
// first-reached order. Cyclic reference graphs terminate via the visited
// set.
func Dependencies(s *Scheme, set *Set) ([]*Scheme, error) {
	visited := map[*Scheme]bool{s: true}
	var out []*Scheme

	var walkScheme func(sc *Scheme) error
	var walkType func(enclosing *Scheme, t *FieldType) error

	walkType = func(enclosing *Scheme, t *FieldType) error {
		if t == nil {
			return nil
		}
		switch t.Kind {
		case KindRef:
			if t.Scheme == "" || t.Scheme == enclosing.Name {
				return nil
			}
			dep := set.Lookup(t.Scheme)
			if dep == nil {
				return fmt.Errorf("schema: %s references unknown scheme %q", enclosing.Name, t.Scheme)
			}
			if visited[dep] {
				return nil
			}
			visited[dep] = true
			out = append(out, dep)
			return walkScheme(dep)
		case KindOptional, KindArray, KindList:
			return walkType(enclosing, t.Elem)
		case KindMap:
			if err := walkType(enclosing, t.Key); err != nil {
				return err
			}
			return walkType(enclosing, t.Elem)
		case KindStruct, KindTuple, KindUnion:
			for _, f := range t.Fields {
				if err := walkType(enclosing, f.Type); err != nil {
					return err
				}
			}
		}
		return nil
	}

	walkScheme = func(sc *Scheme) error {
		for _, decl := range sc.Types {
			for _, v := range decl.Versions {
				if err := walkType(sc, v.Shape); err != nil {
					return err
				}
				if err := walkType(sc, v.Params); err != nil {
					return err
				}
				if err := walkType(sc, v.Result); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := walkScheme(s); err != nil {
		return nil, err
	}
	return out, nil
}
