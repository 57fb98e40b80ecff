package channel

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidArgs reports a malformed handle argument list.
var ErrInvalidArgs = errors.New("channel: invalid handle arguments")

// Handles is the six descriptors a spawned plugin needs to attach to its
// two lanes, from the plugin's point of view: the input lane carries
// host-to-plugin traffic, the output lane plugin-to-host.
type Handles struct {
	InWait    uintptr
	InSignal  uintptr
	InRegion  uintptr
	OutWait   uintptr
	OutSignal uintptr
	OutRegion uintptr
}

// Args renders the handles as six lowercase hex argv words, input lane
// first, each lane in wait, signal, region order.
func (h Handles) Args() []string {
	vals := [...]uintptr{h.InWait, h.InSignal, h.InRegion, h.OutWait, h.OutSignal, h.OutRegion}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = strconv.FormatUint(uint64(v), 16)
	}
	return out
}

// ParseHandles decodes the six hex argv words produced by Args.
func ParseHandles(args []string) (Handles, error) {
	if len(args) != 6 {
		return Handles{}, fmt.Errorf("%w: want 6 values, got %d", ErrInvalidArgs, len(args))
	}
	var vals [6]uintptr
	for i, a := range args {
		n, err := strconv.ParseUint(a, 16, 64)
		if err != nil {
			return Handles{}, fmt.Errorf("%w: %q", ErrInvalidArgs, a)
		}
		vals[i] = uintptr(n)
	}
	return Handles{
		InWait: vals[0], InSignal: vals[1], InRegion: vals[2],
		OutWait: vals[3], OutSignal: vals[4], OutRegion: vals[5],
	}, nil
}
