package store

import (
	"context"
	"sync"
	"time"
)

// EventLog is the bounded, append-only device event log. It is served from
// memory and written back to the database by Flush.
type EventLog struct {
	mu         sync.Mutex
	flushMu    sync.Mutex // serializes Flush so an older snapshot never lands after a newer one
	entries    []Entry
	maxEntries int
	nextSeq    int64
	dirty      bool
	store      Store
	now        func() time.Time
	onAppend   func(Entry)
	onClear    func()
}

// NewEventLog loads the persisted log. When more than maxEntries are
// persisted only the newest are kept. maxEntries is at least 1.
func NewEventLog(ctx context.Context, s Store, maxEntries int) (*EventLog, error) {
	if maxEntries < 1 {
		maxEntries = 1
	}
	entries, err := s.LoadEvents(ctx)
	if err != nil {
		return nil, err
	}
	l := &EventLog{
		maxEntries: maxEntries,
		store:      s,
		now:        func() time.Time { return time.Now().UTC() },
	}
	if len(entries) > maxEntries {
		entries = entries[len(entries)-maxEntries:]
		l.dirty = true
	}
	l.entries = entries
	if n := len(entries); n > 0 {
		l.nextSeq = entries[n-1].Seq + 1
	}
	return l, nil
}

// OnAppend registers fn to be called, outside the lock, with every appended entry.
func (l *EventLog) OnAppend(fn func(Entry)) {
	l.mu.Lock()
	l.onAppend = fn
	l.mu.Unlock()
}

// Append records event with the current time, dropping the oldest entry when full.
func (l *EventLog) Append(event int) {
	l.mu.Lock()
	e := Entry{Seq: l.nextSeq, Timestamp: l.now(), Event: event}
	l.nextSeq++
	if len(l.entries) >= l.maxEntries {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, e)
	l.dirty = true
	hook := l.onAppend
	l.mu.Unlock()

	if hook != nil {
		hook(e)
	}
}

// OnClear registers fn to be called, outside the lock, after every Clear.
func (l *EventLog) OnClear(fn func()) {
	l.mu.Lock()
	l.onClear = fn
	l.mu.Unlock()
}

// Clear removes every entry.
func (l *EventLog) Clear() {
	l.mu.Lock()
	l.entries = l.entries[:0]
	l.dirty = true
	hook := l.onClear
	l.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// Count returns the number of entries.
func (l *EventLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entry returns the i-th entry in chronological order.
func (l *EventLog) Entry(i int) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.entries) {
		return Entry{}, false
	}
	return l.entries[i], true
}

// Flush writes the log back to the database if it changed since the last flush.
func (l *EventLog) Flush(ctx context.Context) error {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	l.mu.Lock()
	if !l.dirty {
		l.mu.Unlock()
		return nil
	}
	snapshot := make([]Entry, len(l.entries))
	copy(snapshot, l.entries)
	l.dirty = false
	l.mu.Unlock()

	if err := l.store.ReplaceEvents(ctx, snapshot); err != nil {
		l.mu.Lock()
		l.dirty = true
		l.mu.Unlock()
		return err
	}
	return nil
}
