package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Log is the append-only sequence of applied events, in commit order. The
// replay invariant (spec §3, §8) is: given the same seeds, replaying this
// log from SEED_VESSEL events yields a byte-identical spine trace and
// bit-exact biology outputs. Log itself carries no biological meaning — it
// is a pure, ordered record of what was applied and when.
type Log struct {
	mu     sync.RWMutex
	events []Event
}

// New returns an empty log.
func New() *Log {
	return &Log{}
}

// Append validates and appends an event, assigning it the next commit
// index. O(1) amortized. A schema violation rejects the offending event
// (ErrSchemaViolation) without mutating the log — the run continues.
func (l *Log) Append(e Event) (Event, error) {
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e.CommitIndex = int64(len(l.events))
	l.events = append(l.events, e)
	return e, nil
}

// Len returns the number of committed events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// At returns the event at the given commit index.
func (l *Log) At(commitIndex int64) (Event, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if commitIndex < 0 || int(commitIndex) >= len(l.events) {
		return Event{}, false
	}
	return l.events[commitIndex], true
}

// Iter returns a finite, restartable sequence over the committed events in
// commit order, per spec §9 ("lazy, restartable sequences").
func (l *Log) Iter() iter.Seq[Event] {
	l.mu.RLock()
	snapshot := make([]Event, len(l.events))
	copy(snapshot, l.events)
	l.mu.RUnlock()
	return func(yield func(Event) bool) {
		for _, e := range snapshot {
			if !yield(e) {
				return
			}
		}
	}
}

// HashPrefix returns an xxhash-based provenance hash over the canonical
// serialization of the first k committed events. It is used to prove two
// runs replayed identically up to a point without comparing full payloads.
// k beyond Len() hashes the whole log.
func (l *Log) HashPrefix(k int) (uint64, error) {
	l.mu.RLock()
	if k > len(l.events) {
		k = len(l.events)
	}
	prefix := make([]Event, k)
	copy(prefix, l.events[:k])
	l.mu.RUnlock()

	h := xxhash.New()
	for _, e := range prefix {
		b, err := json.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("eventlog: hash_prefix: %w", err)
		}
		if _, err := h.Write(b); err != nil {
			return 0, err
		}
		if _, err := h.Write([]byte{'\n'}); err != nil {
			return 0, err
		}
	}
	return h.Sum64(), nil
}

// Dump writes the log as a line-delimited JSON record stream (spec §6).
func (l *Log) Dump(sink io.Writer) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	w := bufio.NewWriter(sink)
	for _, e := range l.events {
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("eventlog: dump: %w", err)
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Load reads a line-delimited JSON record stream into a new Log, validating
// and re-numbering commit indices as it goes. A malformed line is a schema
// violation and aborts the load (Load then returns a nil *Log with the error).
func Load(source io.Reader) (*Log, error) {
	l := New()
	scanner := bufio.NewScanner(source)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("eventlog: load: line %d: %w", lineNo, err)
		}
		if _, err := l.Append(e); err != nil {
			return nil, fmt.Errorf("eventlog: load: line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("eventlog: load: %w", err)
	}
	return l, nil
}
