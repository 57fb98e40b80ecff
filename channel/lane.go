// Package channel moves opaque byte messages between two processes over a
// fixed shared memory region, chunked under a strict ping-pong of two
// event signals. Serialization happens above this layer; the channel only
// sees bytes.
package channel

import (
	"fmt"
	"os"

	"github.com/solweaver/gangway/shm"
)

// DefaultRegionSize is the lane region size used when the caller does not
// pick one.
const DefaultRegionSize = 1024

// Lane is one direction of a duplex channel: a shared region plus the two
// events that pass the turn back and forth. Wait fires when this side may
// act; Signal hands the turn to the peer.
type Lane struct {
	Region *shm.Region
	Wait   *shm.Event
	Signal *shm.Event
}

// CreateLane allocates a region and the two events. armed decides who
// moves first: an armed lane lets this side act immediately, an unarmed
// lane starts with the turn at the peer.
func CreateLane(armed bool, size int) (*Lane, error) {
	region, err := shm.NewRegion(size)
	if err != nil {
		return nil, err
	}
	wait, err := shm.NewEvent(armed)
	if err != nil {
		region.Close()
		return nil, err
	}
	signal, err := shm.NewEvent(!armed)
	if err != nil {
		region.Close()
		wait.Close()
		return nil, err
	}
	return &Lane{Region: region, Wait: wait, Signal: signal}, nil
}

// ImportLane attaches to a lane created by the peer from inherited file
// descriptors.
func ImportLane(waitFD, signalFD, regionFD uintptr, size int) (*Lane, error) {
	region, err := shm.ImportRegion(regionFD, size)
	if err != nil {
		return nil, err
	}
	return &Lane{
		Region: region,
		Wait:   shm.ImportEvent(waitFD),
		Signal: shm.ImportEvent(signalFD),
	}, nil
}

// Reversed returns the peer's perspective of the lane: same region, wait
// and signal swapped. The reversed lane shares the originals' resources;
// close only one of the two.
func (l *Lane) Reversed() *Lane {
	return &Lane{Region: l.Region, Wait: l.Signal, Signal: l.Wait}
}

// Files returns the lane's descriptors in wait, signal, region order for
// inheritance by a spawned process.
func (l *Lane) Files() []*os.File {
	return []*os.File{l.Wait.File(), l.Signal.File(), l.Region.File()}
}

// Close releases the region mapping and both events.
func (l *Lane) Close() error {
	var first error
	for _, c := range []interface{ Close() error }{l.Wait, l.Signal, l.Region} {
		if err := c.Close(); err != nil && first == nil {
			first = fmt.Errorf("channel: close lane: %w", err)
		}
	}
	return first
}
