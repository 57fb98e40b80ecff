package channel

import (
	"encoding/binary"
	"fmt"

	"github.com/solweaver/gangway/shm"
	"github.com/solweaver/gangway/wire"
)

// headerSize is the per-chunk envelope: remaining-bytes word plus payload
// length word, both little endian.
const headerSize = 2 * wire.WordSize

// View reads and writes chunk envelopes on a lane's region. A chunk is
// `[remaining][len][payload]`; remaining counts the message bytes still to
// come after this chunk.
type View struct {
	data []byte
}

// NewView wraps a region. The region must be larger than the chunk header.
func NewView(r *shm.Region) (*View, error) {
	if r.Size() <= headerSize {
		return nil, fmt.Errorf("channel: region size %d leaves no payload capacity", r.Size())
	}
	return &View{data: r.Bytes()}, nil
}

// MaxChunk returns the payload capacity of one chunk.
func (v *View) MaxChunk() int {
	return len(v.data) - headerSize
}

// WriteChunk stores one chunk envelope. The payload must fit the region.
func (v *View) WriteChunk(remaining uint64, payload []byte) error {
	if len(payload) > v.MaxChunk() {
		return fmt.Errorf("channel: chunk payload %d exceeds capacity %d", len(payload), v.MaxChunk())
	}
	binary.LittleEndian.PutUint64(v.data[0:], remaining)
	binary.LittleEndian.PutUint64(v.data[wire.WordSize:], uint64(len(payload)))
	copy(v.data[headerSize:], payload)
	return nil
}

// ReadChunk returns the current chunk. The payload slice aliases the shared
// region: copy it out before signalling the peer.
func (v *View) ReadChunk() (remaining uint64, payload []byte, err error) {
	remaining = binary.LittleEndian.Uint64(v.data[0:])
	n := binary.LittleEndian.Uint64(v.data[wire.WordSize:])
	if n > uint64(v.MaxChunk()) {
		return 0, nil, fmt.Errorf("channel: chunk length %d exceeds capacity %d", n, v.MaxChunk())
	}
	return remaining, v.data[headerSize : headerSize+n], nil
}
