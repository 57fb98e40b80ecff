package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("schema: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Fingerprint is a content hash of a scheme's structure. Two schemes with
// equal fingerprints are structurally identical.
type Fingerprint [sha256.Size]byte

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// FingerprintScheme hashes the canonical CBOR encoding of a scheme.
// Encoding is deterministic, so the fingerprint is stable across processes
// and runs.
func FingerprintScheme(s *Scheme) (Fingerprint, error) {
	data, err := cborEncMode.Marshal(s)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("schema: fingerprint %s: %w", s.Name, err)
	}
	return sha256.Sum256(data), nil
}

// FingerprintSet hashes every scheme of a set and folds the per-scheme
// fingerprints, sorted by scheme name, into a single digest.
func FingerprintSet(set *Set) (Fingerprint, error) {
	schemes := append([]*Scheme(nil), set.Schemes()...)
	sort.Slice(schemes, func(i, j int) bool { return schemes[i].Name < schemes[j].Name })
	h := sha256.New()
	for _, s := range schemes {
		fp, err := FingerprintScheme(s)
		if err != nil {
			return Fingerprint{}, err
		}
		h.Write(fp[:])
	}
	var out Fingerprint
	h.Sum(out[:0])
	return out, nil
}

// ParseFingerprint decodes a hex fingerprint string.
func ParseFingerprint(s string) (Fingerprint, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("schema: parse fingerprint: %w", err)
	}
	if len(raw) != sha256.Size {
		return Fingerprint{}, fmt.Errorf("schema: parse fingerprint: want %d bytes, got %d", sha256.Size, len(raw))
	}
	var out Fingerprint
	copy(out[:], raw)
	return out, nil
}
