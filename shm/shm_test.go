package shm

import (
	"testing"
	"time"
)

func TestRegion_CreateWriteRead(t *testing.T) {
	r, err := NewRegion(1024)
	if err != nil {
		t.Fatalf("NewRegion: %v", err)
	}
	defer r.Close()

	if r.Size() != 1024 {
		t.Errorf("Size: got %d, want 1024", r.Size())
	}

	copy(r.Bytes(), []byte{10, 20, 30})
	got := r.Bytes()[:3]
	if got[0] != 10 || got[1] != 20 || got[2] != 30 {
		t.Errorf("Bytes: got %v", got)
	}
}

func TestRegion_ImportSharesMemory(t *testing.T) {
	r, err := NewRegion(64)
	if err != nil {
		t.Fatalf("NewRegion: %v", err)
	}
	defer r.Close()

	// Duplicate the descriptor path an importer would take. Within one
	// process the same fd works for a second mapping.
	imported, err := ImportRegion(r.File().Fd(), 64)
	if err != nil {
		t.Fatalf("ImportRegion: %v", err)
	}

	r.Bytes()[0] = 42
	if imported.Bytes()[0] != 42 {
		t.Error("imported mapping does not share memory")
	}

	// Only unmap; the fd is owned by r.
	imported.file = nil
	imported.Close()
}

func TestEvent_ArmedWaitReturnsImmediately(t *testing.T) {
	e, err := NewEvent(true)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	defer e.Close()

	ok, err := e.Wait(0)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !ok {
		t.Error("armed event should be immediately waitable")
	}

	// The wait consumed the token; a second wait must time out.
	ok, err = e.Wait(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if ok {
		t.Error("second wait should time out")
	}
}

func TestEvent_TimedWaitHonorsDeadline(t *testing.T) {
	e, err := NewEvent(false)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	defer e.Close()

	start := time.Now()
	ok, err := e.Wait(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if ok {
		t.Error("unsignaled event should time out")
	}
	elapsed := time.Since(start)
	if elapsed < 40*time.Millisecond || elapsed > time.Second {
		t.Errorf("timed wait returned after %v", elapsed)
	}
}

func TestEvent_SignalWakesWaiter(t *testing.T) {
	e, err := NewEvent(false)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	defer e.Close()

	done := make(chan bool, 1)
	go func() {
		ok, err := e.Wait(-1)
		if err != nil {
			t.Errorf("Wait: %v", err)
		}
		done <- ok
	}()

	time.Sleep(5 * time.Millisecond)
	if err := e.Signal(); err != nil {
		t.Fatalf("Signal: %v", err)
	}

	select {
	case ok := <-done:
		if !ok {
			t.Error("waiter returned false")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter did not wake")
	}
}
