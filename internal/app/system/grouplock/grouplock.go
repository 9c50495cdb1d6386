// Package grouplock serialises governance mutations per group.
//
// Two votes racing to cross a quorum threshold in the same group must resolve
// exactly once, so every mutation runs inside the group's critical section.
// Different groups never contend.
package grouplock

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locks is a keyed mutex. The zero value is ready to use.
type Locks struct {
	mu sync.Mutex
	m  map[primitive.ObjectID]*entry
}

// New returns an empty lock table.
func New() *Locks {
	return &Locks{m: make(map[primitive.ObjectID]*entry)}
}

// Lock blocks until the group's lock is held and returns its release func.
// Entries are dropped once no caller holds or waits for them.
func (l *Locks) Lock(groupID primitive.ObjectID) (unlock func()) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[primitive.ObjectID]*entry)
	}
	e, ok := l.m[groupID]
	if !ok {
		e = &entry{}
		l.m[groupID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.m, groupID)
			}
			l.mu.Unlock()
		})
	}
}

// Len returns the number of groups currently locked or awaited.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
