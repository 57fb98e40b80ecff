package channel

import (
	"bytes"
	"fmt"
	"testing"
	"time"
)

// endpoints builds both sides of a duplex channel in one process. The
// peer's endpoints run on the reversed lanes, like a spawned plugin would
// after importing the inherited descriptors.
func endpoints(t *testing.T, size int) (in *Input, out *Output, peerIn *Input, peerOut *Output) {
	t.Helper()
	// Host-to-peer lane starts with the turn at the host, peer-to-host
	// lane with the turn at the peer.
	outLane, err := CreateLane(true, size)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { outLane.Close() })
	inLane, err := CreateLane(false, size)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { inLane.Close() })

	if in, err = NewInput(inLane); err != nil {
		t.Fatal(err)
	}
	if out, err = NewOutput(outLane); err != nil {
		t.Fatal(err)
	}
	if peerIn, err = NewInput(outLane.Reversed()); err != nil {
		t.Fatal(err)
	}
	if peerOut, err = NewOutput(inLane.Reversed()); err != nil {
		t.Fatal(err)
	}
	return in, out, peerIn, peerOut
}

func TestChannel_EchoAcrossGoroutines(t *testing.T) {
	in, out, peerIn, peerOut := endpoints(t, DefaultRegionSize)

	done := make(chan error, 1)
	go func() {
		defer close(done)
		for {
			msg, err := peerIn.Read(Block)
			if err != nil {
				done <- err
				return
			}
			if len(msg) == 1 && msg[0] == 0 {
				return
			}
			if _, err := peerOut.Write(msg, Block); err != nil {
				done <- err
				return
			}
		}
	}()

	for _, text := range []string{"Hello", "world", "!"} {
		if ok, err := out.Write([]byte(text), Block); err != nil || !ok {
			t.Fatalf("write %q: ok=%v err=%v", text, ok, err)
		}
		echo, err := in.Read(Block)
		if err != nil {
			t.Fatal(err)
		}
		if string(echo) != text {
			t.Fatalf("want %q back, got %q", text, echo)
		}
	}
	if ok, err := out.Write([]byte{0}, Block); err != nil || !ok {
		t.Fatalf("quit write: ok=%v err=%v", ok, err)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestChannel_ChunkingTransparency(t *testing.T) {
	// 24 bytes of region leaves 8 bytes of payload per chunk, forcing a
	// 100 byte message across 13 chunks.
	_, out, peerIn, _ := endpoints(t, 24)

	msg := make([]byte, 100)
	for i := range msg {
		msg[i] = byte(i)
	}

	got := make(chan []byte, 1)
	errs := make(chan error, 1)
	go func() {
		b, err := peerIn.Read(Block)
		if err != nil {
			errs <- err
			return
		}
		got <- b
	}()

	if ok, err := out.Write(msg, Block); err != nil || !ok {
		t.Fatalf("write: ok=%v err=%v", ok, err)
	}
	select {
	case b := <-got:
		if !bytes.Equal(b, msg) {
			t.Fatalf("message mangled across chunks:\nwant % x\ngot  % x", msg, b)
		}
	case err := <-errs:
		t.Fatal(err)
	case <-time.After(5 * time.Second):
		t.Fatal("read never completed")
	}
}

func TestChannel_StrictAlternation(t *testing.T) {
	for _, rounds := range []int{1, 2, 100} {
		t.Run(fmt.Sprintf("rounds=%d", rounds), func(t *testing.T) {
			in, out, peerIn, peerOut := endpoints(t, DefaultRegionSize)

			go func() {
				for i := 0; i < rounds; i++ {
					msg, err := peerIn.Read(Block)
					if err != nil {
						return
					}
					msg[0]++
					if _, err := peerOut.Write(msg, Block); err != nil {
						return
					}
				}
			}()

			for i := 0; i < rounds; i++ {
				if ok, err := out.Write([]byte{byte(i)}, Block); err != nil || !ok {
					t.Fatalf("round %d write: ok=%v err=%v", i, ok, err)
				}
				reply, err := in.Read(Block)
				if err != nil {
					t.Fatal(err)
				}
				if len(reply) != 1 || reply[0] != byte(i)+1 {
					t.Fatalf("round %d: want %d, got %v", i, byte(i)+1, reply)
				}
			}
		})
	}
}

func TestChannel_CorruptRemainingWordBoundsAllocation(t *testing.T) {
	lane, err := CreateLane(false, DefaultRegionSize)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { lane.Close() })
	in, err := NewInput(lane)
	if err != nil {
		t.Fatal(err)
	}
	peer := lane.Reversed()
	view, err := NewView(peer.Region)
	if err != nil {
		t.Fatal(err)
	}
	sync := NewSync(peer.Wait, peer.Signal)

	// The peer claims an absurd amount still follows, then finishes the
	// message on the next chunk. The reader must not reserve what the
	// first word promised.
	done := make(chan error, 1)
	go func() {
		defer close(done)
		for _, chunk := range []struct {
			remaining uint64
			payload   string
		}{{1 << 62, "abc"}, {0, "def"}} {
			if ok, err := sync.Wait(Block); err != nil || !ok {
				done <- err
				return
			}
			if err := view.WriteChunk(chunk.remaining, []byte(chunk.payload)); err != nil {
				done <- err
				return
			}
			if err := sync.Signal(); err != nil {
				done <- err
				return
			}
		}
	}()

	msg, err := in.Read(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(msg, []byte("abcdef")) {
		t.Fatalf("want abcdef, got %q", msg)
	}
	if err := <-done; err != nil {
		t.Fatalf("peer: %v", err)
	}
}

func TestChannel_FirstWaitTimeout(t *testing.T) {
	in, out, peerIn, _ := endpoints(t, DefaultRegionSize)
	short := 10 * time.Millisecond

	// The output lane starts with the turn here, so the first write goes
	// through without the peer doing anything.
	if ok, err := out.Write([]byte("one"), short); err != nil || !ok {
		t.Fatalf("first write: ok=%v err=%v", ok, err)
	}
	// The turn is now at the peer and nobody is reading: a timed write
	// reports false, not an error.
	if ok, err := out.Write([]byte("two"), short); err != nil || ok {
		t.Fatalf("second write should time out: ok=%v err=%v", ok, err)
	}
	// Nothing was sent to us either.
	if msg, err := in.Read(short); err != nil || msg != nil {
		t.Fatalf("read should time out: msg=%v err=%v", msg, err)
	}

	// The peer drains the first message, returning the turn.
	msg, err := peerIn.Read(short)
	if err != nil || string(msg) != "one" {
		t.Fatalf("peer read: msg=%q err=%v", msg, err)
	}
	if ok, err := out.Write([]byte("two"), short); err != nil || !ok {
		t.Fatalf("write after drain: ok=%v err=%v", ok, err)
	}
}

func TestView_RejectsOversizedChunk(t *testing.T) {
	lane, err := CreateLane(true, 32)
	if err != nil {
		t.Fatal(err)
	}
	defer lane.Close()
	view, err := NewView(lane.Region)
	if err != nil {
		t.Fatal(err)
	}
	if err := view.WriteChunk(0, make([]byte, 17)); err == nil {
		t.Fatal("payload over capacity must be rejected")
	}
	lane.Region.Bytes()[8] = 0xFF // corrupt the length word
	if _, _, err := view.ReadChunk(); err == nil {
		t.Fatal("length word over capacity must be rejected")
	}
}

func TestHandles_ArgsRoundTrip(t *testing.T) {
	h := Handles{InWait: 3, InSignal: 4, InRegion: 5, OutWait: 6, OutSignal: 7, OutRegion: 8}
	parsed, err := ParseHandles(h.Args())
	if err != nil {
		t.Fatal(err)
	}
	if parsed != h {
		t.Fatalf("want %+v, got %+v", h, parsed)
	}
	if _, err := ParseHandles([]string{"3", "4"}); err == nil {
		t.Fatal("short argument list must fail")
	}
	if _, err := ParseHandles([]string{"3", "4", "5", "6", "7", "zz"}); err == nil {
		t.Fatal("non-hex argument must fail")
	}
}
