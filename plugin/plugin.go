// Package plugin is the spawned-process side of a session: it attaches to
// the lanes the host created and introduces itself through the handshake.
package plugin

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/solweaver/gangway/channel"
	"github.com/solweaver/gangway/protocol"
	"github.com/solweaver/gangway/schema"
)

// ErrNoHandles reports a process started without the host's handle
// arguments.
var ErrNoHandles = errors.New("plugin: missing channel handle arguments")

// Conn is the plugin's two endpoints. One goroutine owns it.
type Conn struct {
	in      *channel.Input
	out     *channel.Output
	inLane  *channel.Lane
	outLane *channel.Lane
}

// Open attaches to the lanes described by the last six command line
// arguments. The region size is fixed by the spawn contract; both sides
// compile the same default.
func Open() (*Conn, error) {
	return OpenArgs(os.Args, channel.DefaultRegionSize)
}

// OpenArgs attaches to the lanes described by the trailing six arguments
// of argv.
func OpenArgs(argv []string, regionSize int) (*Conn, error) {
	if len(argv) < 7 {
		return nil, ErrNoHandles
	}
	handles, err := channel.ParseHandles(argv[len(argv)-6:])
	if err != nil {
		return nil, err
	}
	inLane, err := channel.ImportLane(handles.InWait, handles.InSignal, handles.InRegion, regionSize)
	if err != nil {
		return nil, fmt.Errorf("plugin: import input lane: %w", err)
	}
	outLane, err := channel.ImportLane(handles.OutWait, handles.OutSignal, handles.OutRegion, regionSize)
	if err != nil {
		inLane.Close()
		return nil, fmt.Errorf("plugin: import output lane: %w", err)
	}
	return fromLanes(inLane, outLane)
}

func fromLanes(inLane, outLane *channel.Lane) (*Conn, error) {
	in, err := channel.NewInput(inLane)
	if err != nil {
		return nil, err
	}
	out, err := channel.NewOutput(outLane)
	if err != nil {
		return nil, err
	}
	return &Conn{in: in, out: out, inLane: inLane, outLane: outLane}, nil
}

// Handshake introduces this plugin to the host: protocol version, then
// the object schemes in declaration order, then the finalize marker. The
// host pairs the schemes positionally, so the declaration order here must
// be the mutually agreed one.
func (c *Conn) Handshake(set *schema.Set) error {
	msgs := []protocol.Message{
		protocol.SetVersion{Major: protocol.ProtocolMajor, Minor: protocol.ProtocolMinor},
		protocol.SetIndex{Schemes: set.Schemes()},
		protocol.Finalize{},
	}
	for _, m := range msgs {
		data, err := protocol.EncodeMessage(m)
		if err != nil {
			return err
		}
		if _, err := c.out.Write(data, channel.Block); err != nil {
			return fmt.Errorf("plugin: handshake %T: %w", m, err)
		}
	}
	return nil
}

// Send delivers one encoded message to the host.
func (c *Conn) Send(msg []byte, timeout time.Duration) (bool, error) {
	return c.out.Write(msg, timeout)
}

// Recv reads one encoded message from the host.
func (c *Conn) Recv(timeout time.Duration) ([]byte, error) {
	return c.in.Read(timeout)
}

// Close releases both lanes.
func (c *Conn) Close() error {
	var first error
	if c.inLane != nil {
		first = c.inLane.Close()
		c.inLane = nil
	}
	if c.outLane != nil {
		if err := c.outLane.Close(); err != nil && first == nil {
			first = err
		}
		c.outLane = nil
	}
	return first
}
