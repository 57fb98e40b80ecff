package channel

import "time"

// Block is the timeout value that waits forever.
const Block = time.Duration(-1)

// maxPrealloc bounds the read buffer reservation taken from the peer's
// remaining word. The word comes off the shared region, so a corrupt or
// hostile peer must not be able to turn it into an arbitrary allocation.
const maxPrealloc = 1 << 20

// waitState applies the first-wait-only timeout rule: once a multi-chunk
// message is in flight both sides are committed to draining it, so only
// the wait that starts a read or write honors the caller's timeout.
type waitState struct {
	sync  *Sync
	first bool
}

func (w *waitState) wait(timeout time.Duration) (bool, error) {
	if !w.first {
		return w.sync.Wait(Block)
	}
	ok, err := w.sync.Wait(timeout)
	if err != nil || !ok {
		return ok, err
	}
	w.first = false
	return true, nil
}

// Input is the reading end of a lane. One goroutine owns it.
type Input struct {
	sync *Sync
	view *View
}

// NewInput builds an input endpoint on a lane.
func NewInput(l *Lane) (*Input, error) {
	view, err := NewView(l.Region)
	if err != nil {
		return nil, err
	}
	return &Input{sync: NewSync(l.Wait, l.Signal), view: view}, nil
}

// Read accumulates one whole message. The timeout applies to the first
// chunk only; nil with no error means nothing arrived in time. The
// returned slice is owned by the caller.
func (in *Input) Read(timeout time.Duration) ([]byte, error) {
	var buf []byte
	w := waitState{sync: in.sync, first: true}
	for {
		ok, err := w.wait(timeout)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		remaining, payload, err := in.view.ReadChunk()
		if err != nil {
			return nil, err
		}
		if buf == nil {
			total := uint64(len(payload)) + remaining
			if total > maxPrealloc {
				total = maxPrealloc
			}
			buf = make([]byte, 0, total)
		}
		// Append before signalling: the payload aliases the shared
		// region and the peer overwrites it as soon as the turn flips.
		buf = append(buf, payload...)
		if err := in.sync.Signal(); err != nil {
			return nil, err
		}
		if remaining == 0 {
			return buf, nil
		}
	}
}

// Output is the writing end of a lane. One goroutine owns it.
type Output struct {
	sync *Sync
	view *View
}

// NewOutput builds an output endpoint on a lane.
func NewOutput(l *Lane) (*Output, error) {
	view, err := NewView(l.Region)
	if err != nil {
		return nil, err
	}
	return &Output{sync: NewSync(l.Wait, l.Signal), view: view}, nil
}

// Write chunks one message across the region. The timeout applies to the
// first chunk only; false with no error means the peer never yielded the
// turn in time and nothing was sent.
func (out *Output) Write(msg []byte, timeout time.Duration) (bool, error) {
	w := waitState{sync: out.sync, first: true}
	rest := msg
	for {
		chunk := rest
		if len(chunk) > out.view.MaxChunk() {
			chunk = rest[:out.view.MaxChunk()]
		}
		rest = rest[len(chunk):]

		ok, err := w.wait(timeout)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		if err := out.view.WriteChunk(uint64(len(rest)), chunk); err != nil {
			return false, err
		}
		if err := out.sync.Signal(); err != nil {
			return false, err
		}
		if len(rest) == 0 {
			return true, nil
		}
	}
}
