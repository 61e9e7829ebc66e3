// Package battlelog provides the append-only record of everything that
// happens in a battle.
package battlelog

import "sync"

// Actor identifies who caused an entry.
type Actor string

const (
	ActorPlayer  Actor = "player"
	ActorMonster Actor = "monster"
	ActorSystem  Actor = "system"
)

// Type classifies an entry for display.
type Type string

const (
	TypeDamage Type = "damage"
	TypeHeal   Type = "heal"
	TypeStatus Type = "status"
	TypeInfo   Type = "info"
)

// Target identifies whose stats an entry's deltas apply to.
type Target string

const (
	TargetNone      Target = ""
	TargetCharacter Target = "character"
	TargetMonster   Target = "monster"
)

// Entry is one immutable log record.
//
// HPDelta and EnergyDelta are the exact changes applied to Target; replaying
// them in order from the initial stats reproduces the final state.
type Entry struct {
	ID          int    `json:"id"`
	Round       int    `json:"round"`
	Actor       Actor  `json:"actor"`
	Type        Type   `json:"type"`
	Target      Target `json:"target,omitempty"`
	Message     string `json:"message"`
	Amount      *int   `json:"amount,omitempty"`
	HPDelta     int    `json:"hp_delta,omitempty"`
	EnergyDelta int    `json:"energy_delta,omitempty"`
}

// WithAmount returns e with its display amount set to n.
func (e Entry) WithAmount(n int) Entry {
	e.Amount = &n
	return e
}

// Log is an append-only, ordered sequence of entries.
// It is safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
}

// New creates an empty Log.
func New() *Log {
	return &Log{}
}

// Restore creates a Log holding entries, as loaded from a persisted snapshot.
//
// Precondition: entries must carry ids 1..len(entries) in order.
func Restore(entries []Entry) *Log {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return &Log{entries: out}
}

// Append assigns the next id to e and stores it.
//
// Postcondition: returned entry has ID == previous Len() + 1.
func (l *Log) Append(e Entry) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.ID = len(l.entries) + 1
	if e.Amount != nil {
		n := *e.Amount
		e.Amount = &n
	}
	l.entries = append(l.entries, e)
	return e
}

// Entries returns a copy of all entries in order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneEntries(l.entries)
}

// Since returns a copy of the entries with ID > afterID.
func (l *Log) Since(afterID int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if afterID < 0 {
		afterID = 0
	}
	if afterID >= len(l.entries) {
		return []Entry{}
	}
	return cloneEntries(l.entries[afterID:])
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func cloneEntries(in []Entry) []Entry {
	out := make([]Entry, len(in))
	for i, e := range in {
		if e.Amount != nil {
			n := *e.Amount
			e.Amount = &n
		}
		out[i] = e
	}
	return out
}
