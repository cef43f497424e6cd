package application

import (
	"sync"
	"testing"
	"time"
)

func TestRoomLocksSerialiseSameRoom(t *testing.T) {
	locks := newRoomLocks()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		overlap bool
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("room-1")
			defer unlock()

			mu.Lock()
			active++
			if active > 1 {
				overlap = true
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if overlap {
		t.Fatalf("expected holders of the same room lock to run one at a time")
	}
	if size := locks.size(); size != 0 {
		t.Fatalf("expected released locks to be dropped, got %d entries", size)
	}
}

func TestRoomLocksIndependentRooms(t *testing.T) {
	locks := newRoomLocks()
	unlockA := locks.lock("room-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locks.lock("room-b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected a different room to be lockable while room-a is held")
	}
	if size := locks.size(); size != 1 {
		t.Fatalf("expected one held lock, got %d", size)
	}
}
