package savesched_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/podliner/podliner/internal/savesched"
)

func TestRequestSaveDebounces(t *testing.T) {
	var calls int32
	s := savesched.New(30*time.Millisecond, func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, nil)

	for i := 0; i < 5; i++ {
		s.RequestSave(false)
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(80 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly 1 save after debounced bursts, got %d", got)
	}
}

func TestRequestSaveFlushIsImmediateAndSynchronous(t *testing.T) {
	var calls int32
	s := savesched.New(time.Hour, func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, nil)

	s.RequestSave(true)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected save to have run synchronously, got %d calls", got)
	}
}

func TestConcurrentFlushCoalescesIntoOneFollowUp(t *testing.T) {
	release := make(chan struct{})
	var calls int32
	s := savesched.New(time.Hour, func() error {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			<-release
		}
		return nil
	}, nil)

	go s.RequestSave(true)
	time.Sleep(10 * time.Millisecond) // ensure the first save has started

	done := make(chan struct{})
	go func() {
		s.RequestSave(true) // should mark pending and wait for both to finish
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	close(release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second RequestSave never returned")
	}

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected exactly 2 saves (in-flight + 1 follow-up), got %d", got)
	}
}

func TestFlushCancelsPendingDebounce(t *testing.T) {
	var calls int32
	s := savesched.New(time.Hour, func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, nil)

	s.RequestSave(false) // would not fire for an hour
	s.Flush()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected Flush to trigger exactly 1 save, got %d", got)
	}
}
