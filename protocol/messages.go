// Package protocol defines the handshake messages a plugin and host
// exchange after spawn, and their self-describing schema shapes. The
// shapes are expressed in the same schema model the messages carry, so a
// schema description can describe itself across the wire.
package protocol

import (
	"errors"
	"fmt"

	"github.com/solweaver/gangway/codec"
	"github.com/solweaver/gangway/schema"
)

// Protocol version announced by SetVersion. Major changes break the
// handshake wire format; minor changes are additive.
const (
	ProtocolMajor uint16 = 1
	ProtocolMinor uint16 = 0
)

// ErrBadMessage reports bytes that do not decode to a known handshake
// message.
var ErrBadMessage = errors.New("protocol: bad message")

// Message is a sealed interface over the handshake message set. Exactly
// one SetVersion, one SetIndex and one Finalize flow plugin-to-host, in
// that order, per session.
type Message interface {
	message()
}

// SetVersion announces the protocol version the plugin speaks. First
// message of every session.
type SetVersion struct {
	Major uint16
	Minor uint16
}

func (SetVersion) message() {}

// SetIndex carries the plugin's object schemes in the plugin's own
// declaration order. Position in this list, not name matching, pairs
// plugin types against host types.
type SetIndex struct {
	Schemes []*schema.Scheme
}

func (SetIndex) message() {}

// Finalize closes the handshake and activates the session.
type Finalize struct{}

func (Finalize) message() {}

// Message union tags, in handshake order.
const (
	tagSetVersion = iota
	tagSetIndex
	tagFinalize
)

// EncodeMessage serializes a handshake message.
func EncodeMessage(m Message) ([]byte, error) {
	var v codec.Value
	switch t := m.(type) {
	case SetVersion:
		v = codec.Union{Tag: tagSetVersion, Elem: codec.Seq{
			codec.Uint(t.Major),
			codec.Uint(t.Minor),
		}}
	case SetIndex:
		schemes, err := schemesToValue(t.Schemes)
		if err != nil {
			return nil, err
		}
		v = codec.Union{Tag: tagSetIndex, Elem: schemes}
	case Finalize:
		v = codec.Union{Tag: tagFinalize, Elem: codec.Void{}}
	default:
		return nil, fmt.Errorf("%w: unknown message %T", ErrBadMessage, m)
	}
	data, err := codec.Encode(messageShape, v, metaRefs)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %T: %w", m, err)
	}
	return data, nil
}

// DecodeMessage parses one handshake message.
func DecodeMessage(data []byte) (Message, error) {
	v, err := codec.Decode(messageShape, data, metaRefs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	u, ok := v.(codec.Union)
	if !ok {
		return nil, fmt.Errorf("%w: not a union", ErrBadMessage)
	}
	switch u.Tag {
	case tagSetVersion:
		seq, ok := u.Elem.(codec.Seq)
		if !ok || len(seq) != 2 {
			return nil, fmt.Errorf("%w: malformed version payload", ErrBadMessage)
		}
		return SetVersion{
			Major: uint16(seq[0].(codec.Uint)),
			Minor: uint16(seq[1].(codec.Uint)),
		}, nil
	case tagSetIndex:
		schemes, err := valueToSchemes(u.Elem)
		if err != nil {
			return nil, err
		}
		return SetIndex{Schemes: schemes}, nil
	case tagFinalize:
		return Finalize{}, nil
	}
	return nil, fmt.Errorf("%w: tag %d", ErrBadMessage, u.Tag)
}
