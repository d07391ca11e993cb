package scheduling

import (
	"context"
	"sync"
)

// roomLocks hands out one exclusive lock per room. Entries exist only while
// someone holds or waits for them.
type roomLocks struct {
	mu    sync.Mutex
	rooms map[string]*roomLock
}

type roomLock struct {
	sem  chan struct{}
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{rooms: make(map[string]*roomLock)}
}

// acquire blocks until the room is free or ctx is done.
func (l *roomLocks) acquire(ctx context.Context, roomID string) (func(), error) {
	l.mu.Lock()
	rl, ok := l.rooms[roomID]
	if !ok {
		rl = &roomLock{sem: make(chan struct{}, 1)}
		l.rooms[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	select {
	case rl.sem <- struct{}{}:
	case <-ctx.Done():
		l.unref(roomID, rl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-rl.sem
			l.unref(roomID, rl)
		})
	}, nil
}

func (l *roomLocks) unref(roomID string, rl *roomLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rl.refs--
	if rl.refs == 0 {
		delete(l.rooms, roomID)
	}
}

func (l *roomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rooms)
}
