package schema

import (
	"errors"
	"fmt"
)

// ErrIncompatible reports that two schemes (or sets) declare the same name
// with structurally different contents and cannot be merged.
var ErrIncompatible = errors.New("schema: incompatible")

// MergeDecl combines two declarations of the same type name. The shorter
// version list must be a structural prefix of the longer one; the longer
// list wins. Order strategy applies to union and enum member matching.
func MergeDecl(order FieldOrder, a, b *TypeDecl) (*TypeDecl, error) {
	if a.Name != b.Name {
		return nil, fmt.Errorf("%w: type name mismatch %q vs %q", ErrIncompatible, a.Name, b.Name)
	}
	short, long := a, b
	if len(a.Versions) > len(b.Versions) {
		short, long = b, a
	}
	for i, v := range short.Versions {
		if !v.equalUnder(order, long.Versions[i]) {
			return nil, fmt.Errorf("%w: type %q diverges at version %d", ErrIncompatible, a.Name, i)
		}
	}
	return long, nil
}

// MergeScheme combines two schemes of the same name and kind. Types present
// in both must merge declaration-wise; types present in only one side are
// carried over. Declaration order follows a, with b's additions appended.
func MergeScheme(order FieldOrder, a, b *Scheme) (*Scheme, error) {
	if a.Name != b.Name {
		return nil, fmt.Errorf("%w: scheme name mismatch %q vs %q", ErrIncompatible, a.Name, b.Name)
	}
	if a.Kind != b.Kind {
		return nil, fmt.Errorf("%w: scheme %q kind mismatch %s vs %s", ErrIncompatible, a.Name, a.Kind, b.Kind)
	}
	merged := &Scheme{Name: a.Name, Kind: a.Kind}
	bByName := make(map[string]*TypeDecl, len(b.Types))
	for _, d := range b.Types {
		bByName[d.Name] = d
	}
	seen := make(map[string]bool, len(a.Types))
	for _, d := range a.Types {
		seen[d.Name] = true
		other, ok := bByName[d.Name]
		if !ok {
			merged.Types = append(merged.Types, d)
			continue
		}
		md, err := MergeDecl(order, d, other)
		if err != nil {
			return nil, fmt.Errorf("scheme %q: %w", a.Name, err)
		}
		merged.Types = append(merged.Types, md)
	}
	for _, d := range b.Types {
		if !seen[d.Name] {
			merged.Types = append(merged.Types, d)
		}
	}
	return merged, nil
}

// MergeSets merges every scheme of b into a copy of a. Schemes sharing a
// name are merged; the result is a new Set, inputs are not mutated.
func MergeSets(order FieldOrder, a, b *Set) (*Set, error) {
	out, err := NewSet()
	if err != nil {
		return nil, err
	}
	for _, s := range a.Schemes() {
		if other := b.Lookup(s.Name); other != nil {
			ms, err := MergeScheme(order, s, other)
			if err != nil {
				return nil, err
			}
			if err := out.Add(ms); err != nil {
				return nil, err
			}
			continue
		}
		if err := out.Add(s); err != nil {
			return nil, err
		}
	}
	for _, s := range b.Schemes() {
		if out.Lookup(s.Name) != nil {
			continue
		}
		if err := out.Add(s); err != nil {
			return nil, err
		}
	}
	return out, nil
}
