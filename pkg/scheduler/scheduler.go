// Package scheduler implements the Operation Scheduler: a deterministic
// priority queue of pending intents that releases events only at an explicit
// time boundary, never mid-step. Within a boundary, events fire in
// (scheduled time, priority, event ID) order; event IDs are assigned in
// submission order, so submission order decides only among intents with
// equal time and priority.
package scheduler

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cellvm/biovm/pkg/bvmerr"
	"github.com/cellvm/biovm/pkg/eventlog"
)

// ID identifies a submitted intent for later inspection; it becomes the
// released event's EventID and is the final tie-break in flush order.
type ID int64

type intent struct {
	id             ID
	scheduledTimeH float64
	priority       int
	payload        eventlog.Payload
	metadata       map[string]any
}

// Scheduler holds pending intents and releases the due ones at each time
// boundary. It never mutates vessel or spine state itself — it only hands
// eventlog.Event values to whatever the caller (the world orchestrator)
// applies them to.
type Scheduler struct {
	mu      sync.Mutex
	pending []intent
	nextID  ID

	stepOpen bool // guards against instant-kill APIs firing mid-biology-step
}

// New creates an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{nextID: 1}
}

// SubmitIntent enqueues a payload to fire at scheduledTimeH. The caller
// supplies no priority: it is taken from the payload kind's fixed policy,
// so an intent can never carry a priority that disagrees with its kind.
func (s *Scheduler) SubmitIntent(payload eventlog.Payload, scheduledTimeH float64, metadata map[string]any) (ID, error) {
	if payload == nil {
		return 0, &bvmerr.SchemaError{Reason: "payload must not be nil"}
	}
	if err := payload.Validate(); err != nil {
		return 0, err
	}
	if scheduledTimeH < 0 {
		return 0, &bvmerr.SchemaError{Field: "scheduled_time_h", Reason: "must be non-negative"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	s.pending = append(s.pending, intent{
		id:             id,
		scheduledTimeH: scheduledTimeH,
		priority:       payload.Kind().Priority(),
		payload:        payload,
		metadata:       metadata,
	})
	return id, nil
}

// FlushDue removes and returns every intent due at or before nowH, in the
// fixed order: ascending scheduled time, then ascending priority (fixed
// policy SEED=0, WASHOUT=10, FEED=20, TREAT=30), then ascending event ID as
// a stable tie-break. Event IDs are assigned in submission order, so among
// intents with equal time and priority the earlier submission fires first.
func (s *Scheduler) FlushDue(nowH float64) []eventlog.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []intent
	var remaining []intent
	for _, it := range s.pending {
		if it.scheduledTimeH <= nowH {
			due = append(due, it)
		} else {
			remaining = append(remaining, it)
		}
	}
	s.pending = remaining

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].scheduledTimeH != due[j].scheduledTimeH {
			return due[i].scheduledTimeH < due[j].scheduledTimeH
		}
		if due[i].priority != due[j].priority {
			return due[i].priority < due[j].priority
		}
		return due[i].id < due[j].id
	})

	events := make([]eventlog.Event, len(due))
	for i, it := range due {
		events[i] = eventlog.Event{
			EventID:        int64(it.id),
			ScheduledTimeH: it.scheduledTimeH,
			Priority:       it.priority,
			Payload:        it.payload,
			Metadata:       it.metadata,
		}
	}
	return events
}

// FlushNow is FlushDue(nowH) under a clearer name for the common call at the
// top of a cycle, before any clock advance.
func (s *Scheduler) FlushNow(nowH float64) []eventlog.Event {
	return s.FlushDue(nowH)
}

// Pending reports how many intents are still queued, for health reporting.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// BeginStep marks the start of a biology step during which direct-state
// ("instant kill") APIs must not be used. It is a programmer error, not a
// runtime condition, to call it twice without an intervening CommitStep —
// the second call panics rather than silently nesting, per the spec's "fatal
// if violated" guardrail (§4.4).
func (s *Scheduler) BeginStep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stepOpen {
		panic("scheduler: BeginStep called while a step is already open")
	}
	s.stepOpen = true
}

// CommitStep closes the window opened by BeginStep.
func (s *Scheduler) CommitStep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stepOpen {
		panic("scheduler: CommitStep called without a matching BeginStep")
	}
	s.stepOpen = false
}

// GuardAgainstOpenStep returns an error identifying the caller if a biology
// step is currently open. Direct-state mutation paths (e.g. a future
// debugging/instant-kill API) must call this before acting; it is the
// runtime-reachable half of the guardrail BeginStep/CommitStep bracket.
func (s *Scheduler) GuardAgainstOpenStep(caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stepOpen {
		return fmt.Errorf("scheduler: %s refused: a biology step is open", caller)
	}
	return nil
}
