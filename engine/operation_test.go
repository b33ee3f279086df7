package engine

import (
	"testing"
	"time"
)

func TestStatePollAndWaitBlocksUntilResume(t *testing.T) {
	s := NewState(KindRead)
	s.Pause()

	done := make(chan bool, 1)
	go func() {
		done <- s.PollAndWait()
	}()

	select {
	case <-done:
		t.Fatal("PollAndWait returned before Resume was called")
	case <-time.After(20 * time.Millisecond):
	}

	s.Resume()
	select {
	case cancelled := <-done:
		if cancelled {
			t.Error("expected cancelled=false after a plain resume")
		}
	case <-time.After(time.Second):
		t.Fatal("PollAndWait did not return after Resume")
	}
}

func TestStateCancelWakesPausedWaiter(t *testing.T) {
	s := NewState(KindWrite)
	s.Pause()

	done := make(chan bool, 1)
	go func() {
		done <- s.PollAndWait()
	}()

	s.Cancel()
	select {
	case cancelled := <-done:
		if !cancelled {
			t.Error("expected cancelled=true after Cancel while paused")
		}
	case <-time.After(time.Second):
		t.Fatal("PollAndWait did not wake on Cancel")
	}
}

func TestStateCancelledWithoutPauseReturnsImmediately(t *testing.T) {
	s := NewState(KindErase)
	s.Cancel()
	if !s.PollAndWait() {
		t.Error("expected PollAndWait to report cancelled")
	}
}
