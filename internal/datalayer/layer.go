package datalayer

import (
	"maps"
	"sync"
	"time"
)

/*
Layer is the process-wide transport handle that tracking calls are pushed to.

Ordering guarantees:
- Commands are kept in push order.
- Take hands out every command at most once, in push order.

Entries keeps the full history for inspection; Take only advances a
consumption cursor.
*/
type Layer struct {
	mu      sync.Mutex
	entries []Command
	cursor  int
	notify  chan struct{}
	now     func() time.Time
}

func New() *Layer {
	return &Layer{
		notify: make(chan struct{}, 1),
		now:    time.Now,
	}
}

// Push appends cmd and wakes a waiting consumer. Params are copied.
func (l *Layer) Push(cmd Command) {
	if cmd.PushedAt.IsZero() {
		cmd.PushedAt = l.now()
	}
	cmd.Params = maps.Clone(cmd.Params)

	l.mu.Lock()
	l.entries = append(l.entries, cmd)
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Take returns the commands pushed since the previous Take.
func (l *Layer) Take() []Command {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cursor == len(l.entries) {
		return nil
	}
	out := make([]Command, len(l.entries)-l.cursor)
	copy(out, l.entries[l.cursor:])
	l.cursor = len(l.entries)
	return out
}

// Notify fires after pushes. Multiple pushes may coalesce into one signal.
func (l *Layer) Notify() <-chan struct{} {
	return l.notify
}

// Entries returns a copy of every command ever pushed.
func (l *Layer) Entries() []Command {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Command, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Layer) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Events returns the event commands ever pushed, in order.
func (l *Layer) Events() []Command {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Command
	for _, cmd := range l.entries {
		if cmd.Name == CommandEvent {
			out = append(out, cmd)
		}
	}
	return out
}
