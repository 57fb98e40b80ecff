package host

import (
	"errors"
	"fmt"

	"github.com/solweaver/gangway/schema"
)

// TypeID identifies one object type within one side's enumeration of its
// schema set. The two sides compile their sets independently, so the same
// type can carry a different ID on each side; the TypeIndex translates.
type TypeID uint32

// ErrIndexMismatch reports plugin schemes that cannot be paired against
// the host's.
var ErrIndexMismatch = errors.New("host: type index mismatch")

type indexEntry struct {
	scheme string
	name   string
}

// TypeIndex is the bijection between the host's and a plugin's type
// enumerations, built once per session during the handshake and dropped
// with it.
type TypeIndex struct {
	hostToPlugin map[TypeID]TypeID
	pluginToHost map[TypeID]TypeID
	entries      []indexEntry
}

// BuildTypeIndex pairs the plugin's object schemes against the host's by
// position: both sides enumerate scheme by scheme, type by type, in their
// own declaration order, and the k-th type on one side corresponds to the
// k-th on the other. Names are verified as a guard against misordered
// builds, and the plugin's version list for each type must be a structural
// prefix of the host's (or the host's of the plugin's).
func BuildTypeIndex(hostSet *schema.Set, pluginSchemes []*schema.Scheme) (*TypeIndex, error) {
	hostSchemes := hostSet.Schemes()
	if len(pluginSchemes) > len(hostSchemes) {
		return nil, fmt.Errorf("%w: plugin declares %d schemes, host %d", ErrIndexMismatch, len(pluginSchemes), len(hostSchemes))
	}

	idx := &TypeIndex{
		hostToPlugin: make(map[TypeID]TypeID),
		pluginToHost: make(map[TypeID]TypeID),
	}
	var hostID, pluginID TypeID
	for i, ps := range pluginSchemes {
		hs := hostSchemes[i]
		if ps.Name != hs.Name {
			return nil, fmt.Errorf("%w: scheme %d is %q on the plugin, %q on the host", ErrIndexMismatch, i, ps.Name, hs.Name)
		}
		if ps.Kind != schema.SchemeObject || hs.Kind != schema.SchemeObject {
			return nil, fmt.Errorf("%w: scheme %q is not an object scheme", ErrIndexMismatch, ps.Name)
		}
		if len(ps.Types) > len(hs.Types) {
			return nil, fmt.Errorf("%w: scheme %q declares %d types on the plugin, %d on the host", ErrIndexMismatch, ps.Name, len(ps.Types), len(hs.Types))
		}
		for j, pd := range ps.Types {
			hd := hs.Types[j]
			if pd.Name != hd.Name {
				return nil, fmt.Errorf("%w: %s type %d is %q on the plugin, %q on the host", ErrIndexMismatch, ps.Name, j, pd.Name, hd.Name)
			}
			if _, err := schema.MergeDecl(schema.FieldOrderStrict, pd, hd); err != nil {
				return nil, fmt.Errorf("%w: %s.%s: %v", ErrIndexMismatch, ps.Name, pd.Name, err)
			}
			idx.hostToPlugin[hostID] = pluginID
			idx.pluginToHost[pluginID] = hostID
			idx.entries = append(idx.entries, indexEntry{scheme: ps.Name, name: pd.Name})
			hostID++
			pluginID++
		}
		// Host-only trailing types still consume host IDs so later
		// schemes keep their positions.
		hostID += TypeID(len(hs.Types) - len(ps.Types))
	}
	return idx, nil
}

// PluginID translates a host-side type ID into the plugin's numbering.
func (x *TypeIndex) PluginID(host TypeID) (TypeID, bool) {
	id, ok := x.hostToPlugin[host]
	return id, ok
}

// HostID translates a plugin-side type ID into the host's numbering.
func (x *TypeIndex) HostID(plugin TypeID) (TypeID, bool) {
	id, ok := x.pluginToHost[plugin]
	return id, ok
}

// Len returns the number of paired types.
func (x *TypeIndex) Len() int {
	return len(x.entries)
}

// Describe names the type behind a plugin-side ID, for diagnostics.
func (x *TypeIndex) Describe(plugin TypeID) string {
	if int(plugin) >= len(x.entries) {
		return fmt.Sprintf("unknown type %d", plugin)
	}
	e := x.entries[plugin]
	return fmt.Sprintf("%s.%s", e.scheme, e.name)
}
