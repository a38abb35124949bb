package services

import "sync"

// AggregateLocks enforces the single-writer-per-aggregate discipline: at
// most one mutating operation runs per tournament at a time, while
// different tournaments proceed independently. One instance is shared by
// every service touching tournament state. Locks are created lazily and
// never removed; the per-tournament footprint is one mutex.
type AggregateLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewAggregateLocks() *AggregateLocks {
	return &AggregateLocks{locks: make(map[int]*sync.Mutex)}
}

// Lock acquires the tournament's mutex and returns the release func.
// Callers must release before returning, on success and failure alike.
func (l *AggregateLocks) Lock(tournamentID int) func() {
	l.mu.Lock()
	m, ok := l.locks[tournamentID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[tournamentID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
