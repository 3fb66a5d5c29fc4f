package server

import "sync"

// gameLocks hands out one mutex per game so claim commits for a board are
// serialized. Locks are created lazily and never removed; a finished game's
// mutex is a few words of memory.
type gameLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newGameLocks() *gameLocks {
	return &gameLocks{locks: make(map[string]*sync.Mutex)}
}

func (g *gameLocks) get(gameID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()

	l, ok := g.locks[gameID]
	if !ok {
		l = &sync.Mutex{}
		g.locks[gameID] = l
	}
	return l
}
