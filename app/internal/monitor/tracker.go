package monitor

import (
	"sync"

	"statusboard/app/internal/board"
	"statusboard/app/internal/models"
)

// Transition is a status change seen between two observations of a monitor
type Transition struct {
	Key  string
	From string
	To   string
	// Streak is how many fetches in a row the monitor was not "Up" before this one
	Streak int
}

type entry struct {
	status string
	notUp  int
}

// Tracker remembers the last status per monitor and reports changes.
// It is safe for concurrent use.
type Tracker struct {
	mu   sync.Mutex
	last map[string]entry
}

// NewTracker creates a new tracker.
func NewTracker() *Tracker {
	return &Tracker{
		last: make(map[string]entry),
	}
}

// Observe records status for key. The first observation of a key only sets a
// baseline; later ones return a Transition when the status differs.
func (t *Tracker) Observe(key, status string, up bool) (Transition, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, seen := t.last[key]
	next := entry{status: status}
	if !up {
		next.notUp = prev.notUp + 1
	}
	t.last[key] = next

	if !seen || prev.status == status {
		return Transition{}, false
	}
	return Transition{Key: key, From: prev.status, To: status, Streak: prev.notUp}, true
}

// Prune removes entries for monitors that no longer exist.
func (t *Tracker) Prune(validKeys map[string]struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key := range t.last {
		if _, ok := validKeys[key]; !ok {
			delete(t.last, key)
		}
	}
}

// Subscriber feeds board snapshots into the tracker and hands every change to
// record. Rebuild snapshots are skipped: they redraw history, the status is
// not fetched again.
func (t *Tracker) Subscriber(record func(board.Card, Transition)) func(board.Snapshot) {
	return func(snap board.Snapshot) {
		if snap.Cause == board.CauseRebuild {
			return
		}
		valid := make(map[string]struct{}, len(snap.Cards))
		for _, c := range snap.Cards {
			valid[c.Key] = struct{}{}
			if tr, changed := t.Observe(c.Key, c.Badge, c.Badge == models.StatusUp); changed {
				record(c, tr)
			}
		}
		t.Prune(valid)
	}
}
