package bridge

import (
	"testing"
	"time"
)

func TestBufferFIFO(t *testing.T) {
	b := NewBuffer[int](4)

	for i := 1; i <= 3; i++ {
		if !b.Push(i) {
			t.Fatalf("Push(%d) failed", i)
		}
	}
	if b.Len() != 3 {
		t.Errorf("Len = %d, want 3", b.Len())
	}

	for i := 1; i <= 3; i++ {
		got, ok := b.Pop()
		if !ok || got != i {
			t.Errorf("Pop = %d, %v, want %d, true", got, ok, i)
		}
	}
}

func TestBufferGrowsPreservingOrder(t *testing.T) {
	b := NewBuffer[int](2)

	// Wrap the ring before growing: push, pop, then overfill.
	b.Push(0)
	b.Pop()

	for i := 1; i <= 10; i++ {
		b.Push(i)
	}
	if b.Cap() < 10 {
		t.Errorf("Cap = %d, want >= 10", b.Cap())
	}

	for i := 1; i <= 10; i++ {
		got, ok := b.Pop()
		if !ok || got != i {
			t.Fatalf("Pop = %d, %v, want %d, true", got, ok, i)
		}
	}
}

func TestBufferPopBlocksUntilPush(t *testing.T) {
	b := NewBuffer[string](2)

	got := make(chan string, 1)
	go func() {
		v, _ := b.Pop()
		got <- v
	}()

	time.Sleep(20 * time.Millisecond)
	b.Push("hello")

	select {
	case v := <-got:
		if v != "hello" {
			t.Errorf("Pop = %q, want hello", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop never woke up")
	}
}

func TestBufferCloseDrainsRemaining(t *testing.T) {
	b := NewBuffer[int](4)
	b.Push(1)
	b.Push(2)
	b.Close()

	if b.Push(3) {
		t.Error("Push succeeded after Close")
	}

	// Remaining items still come out.
	if v, ok := b.Pop(); !ok || v != 1 {
		t.Errorf("Pop = %d, %v, want 1, true", v, ok)
	}
	if v, ok := b.Pop(); !ok || v != 2 {
		t.Errorf("Pop = %d, %v, want 2, true", v, ok)
	}

	// Then Pop reports closed.
	if _, ok := b.Pop(); ok {
		t.Error("Pop returned true on a closed empty buffer")
	}
}

func TestBufferCloseWakesBlockedReader(t *testing.T) {
	b := NewBuffer[int](2)

	done := make(chan bool, 1)
	go func() {
		_, ok := b.Pop()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	b.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Pop returned true after Close on empty buffer")
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not wake the blocked reader")
	}
}

func TestBufferTryPop(t *testing.T) {
	b := NewBuffer[int](2)

	if _, ok := b.TryPop(); ok {
		t.Error("TryPop returned true on an empty buffer")
	}

	b.Push(7)
	if v, ok := b.TryPop(); !ok || v != 7 {
		t.Errorf("TryPop = %d, %v, want 7, true", v, ok)
	}
}
