package world

import "github.com/cellvm/biovm/pkg/eventlog"

// VesselHealth reports one vessel's coarse biology state, for health
// endpoints and debugging — not part of the canonical observation record.
type VesselHealth struct {
	VesselID           string  `json:"vessel_id"`
	CellLine           string  `json:"cell_line"`
	Viability          float64 `json:"viability"`
	CellCount          float64 `json:"cell_count"`
	Confluence         float64 `json:"confluence"`
	DominantDeathCause string  `json:"dominant_death_cause,omitempty"`
}

// RunHealth is the run-level health snapshot (grounded on the teacher's
// worker-pool health report pattern): enough to tell whether a run is
// progressing normally without exposing the full event log.
type RunHealth struct {
	NowH           float64        `json:"now_h"`
	CycleCount     int64          `json:"cycle_count"`
	Halted         bool           `json:"halted"`
	EventLogLength int            `json:"event_log_length"`
	PendingIntents int            `json:"pending_intents"`
	DebtBits       float64        `json:"debt_bits"`
	PendingClaims  int            `json:"pending_claims"`
	Warnings       int            `json:"discretization_warnings"`
	Vessels        []VesselHealth `json:"vessels"`
}

// Health reports the run's current status.
func (w *World) Health() RunHealth {
	vessels := make([]VesselHealth, 0, len(w.vessels))
	for _, v := range w.vessels {
		vessels = append(vessels, VesselHealth{
			VesselID:           v.VesselID,
			CellLine:           v.CellLine,
			Viability:          v.Viability,
			CellCount:          v.CellCount,
			Confluence:         v.Confluence(),
			DominantDeathCause: string(v.DominantDeathCause),
		})
	}
	return RunHealth{
		NowH:           w.nowH,
		CycleCount:     w.cycle,
		Halted:         w.halted,
		EventLogLength: w.log.Len(),
		PendingIntents: w.sched.Pending(),
		DebtBits:       w.epistemicCt.DebtBits(),
		PendingClaims:  w.epistemicCt.PendingClaims(),
		Warnings:       len(w.warnings),
		Vessels:        vessels,
	}
}

// Snapshot is a resumability checkpoint: the event log hash prefix plus the
// run clock, sufficient for a caller to verify two runs diverged from a
// common point, or to reconstruct vessel state by replaying the log from
// the root seed. It does not include biology state directly — the log plus
// the root seed is the run's sole source of truth per the replay invariant
// (spec §8's "Replay" algebraic law).
type Snapshot struct {
	NowH          float64 `json:"now_h"`
	CycleCount    int64   `json:"cycle_count"`
	EventCount    int     `json:"event_count"`
	LogHashPrefix uint64  `json:"log_hash_prefix"`
	RootSeed      uint64  `json:"root_seed"`
}

// Snapshot captures the run's checkpoint. ErrSchemaViolation-shaped errors
// never originate here; the only failure mode is hashing the full log,
// which cannot fail for an in-memory log.
func (w *World) Snapshot() (Snapshot, error) {
	hash, err := w.log.HashPrefix(w.log.Len())
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		NowH:          w.nowH,
		CycleCount:    w.cycle,
		EventCount:    w.log.Len(),
		LogHashPrefix: hash,
		RootSeed:      w.rngRegistry.RootSeed(),
	}, nil
}

// EventLog exposes the underlying log for callers that need direct access
// (e.g. to Dump it to persistent storage); the world does not wrap
// eventlog.Log's own API.
func (w *World) EventLog() *eventlog.Log { return w.log }
