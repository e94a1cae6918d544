// Package world implements the World Orchestrator: it binds the RNG
// registry, event log, concentration spine, scheduler, vessel biology, and
// epistemic controller, and drives the cycle loop that advances a run.
package world

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cellvm/biovm/pkg/assay"
	"github.com/cellvm/biovm/pkg/bvmerr"
	"github.com/cellvm/biovm/pkg/epistemic"
	"github.com/cellvm/biovm/pkg/eventlog"
	"github.com/cellvm/biovm/pkg/rng"
	"github.com/cellvm/biovm/pkg/scheduler"
	"github.com/cellvm/biovm/pkg/spine"
	"github.com/cellvm/biovm/pkg/vessel"
)

// Config bundles everything a World needs that isn't produced at runtime:
// the root seed and the per-component biology/noise/epistemic parameters.
type Config struct {
	RootSeed    uint64
	Evaporation spine.EvaporationConfig
	Biology     vessel.Config
	Noise       assay.Config
	Epistemic   epistemic.Config
}

// World owns vessel states, the scheduler, the spine, and the epistemic
// controller for the duration of one run (spec §3's ownership rules). It is
// not safe for concurrent use by multiple goroutines except where the
// concurrency model explicitly allows (per-vessel biology stepping after
// the scheduler flush completes); see spec §5.
type World struct {
	cfg Config

	rngRegistry *rng.Registry
	log         *eventlog.Log
	spineMgr    *spine.Manager
	sched       *scheduler.Scheduler
	stepper     *vessel.Stepper
	producer    *assay.Producer
	epistemicCt *epistemic.Controller
	batch       assay.RunContext

	vessels     map[string]*vessel.State
	nowH        float64
	cycle       int64
	halted      bool
	warnings    []*bvmerr.DiscretizationWarning

	metrics *Metrics
	logger  *slog.Logger
}

// maxDeathSensitiveDtH is the dt bound spec §4.5 names ("must not exceed 24
// h for death-sensitive conditions"). AdvanceTime does not refuse a larger
// dt — it is not an invariant violation — but records a non-fatal
// DiscretizationWarning per spec §7.
const maxDeathSensitiveDtH = 24.0

// New creates a run at its initial state: empty event log, empty vessel
// map, debt_bits = 0, seeded RNG registry (spec §4.8's initial-state
// contract). reg registers the run's prometheus instruments; pass nil to
// get a private, unregistered registry (the common case for tests and
// embedded use where multiple runs share a process).
func New(cfg Config, reg prometheus.Registerer) *World {
	registry := rng.New(cfg.RootSeed)
	registry.SetGuard(guardRNGIsolation)
	log := eventlog.New()
	spineMgr := spine.NewManager(log, cfg.Evaporation)
	sched := scheduler.New()
	stepper := vessel.NewStepper(cfg.Biology, spineMgr)
	epistemicCt := epistemic.NewController(cfg.Epistemic)
	batch := assay.NewRunContext(registry.MustGuardedStream(rng.StreamBatch, rng.StreamBatch), cfg.Noise)
	producer := assay.NewProducer(cfg.Noise, batch)
	metrics := NewMetrics(reg)

	return &World{
		cfg:         cfg,
		rngRegistry: registry,
		log:         log,
		spineMgr:    spineMgr,
		sched:       sched,
		stepper:     stepper,
		producer:    producer,
		epistemicCt: epistemicCt,
		batch:       batch,
		vessels:     make(map[string]*vessel.State),
		metrics:     metrics,
		logger:      slog.Default().With("component", "world"),
	}
}

// guardRNGIsolation is the RNG-isolation rule installed on every run's
// registry (spec §4.1: "No stream may be consumed by code outside its
// declared role"). Each stream may only be accessed under its own name —
// biology never reads rng_assay and measurement never reads rng_biology or
// rng_operational_events, which is what lets the RNG-independence law
// (spec §8) hold structurally rather than by convention.
func guardRNGIsolation(caller, accessed rng.Name) error {
	if caller == accessed {
		return nil
	}
	// The biology step is the one caller permitted to reach across roles:
	// it drives the rare discrete contamination event from
	// rng_operational_events in addition to its own rng_biology draws. This
	// is the single declared exception — isolation still holds because
	// rng_assay never appears on either side of it.
	if caller == rng.StreamBiology && accessed == rng.StreamOperationalEvents {
		return nil
	}
	return fmt.Errorf("rng: %q may not access stream %q", caller, accessed)
}

// NowH reports the run's current simulated hour.
func (w *World) NowH() float64 { return w.nowH }

// Halted reports whether the run has ended (agent HALT or budget limit).
func (w *World) Halted() bool { return w.halted }

// Halt ends the run. Idempotent.
func (w *World) Halt() { w.halted = true }

// Submit queues a payload to take effect at scheduledTimeH. It is a thin
// wrapper over the scheduler — the world adds no buffering of its own, so
// the boundary model's "no effect until a boundary" invariant is entirely
// the scheduler's to keep.
func (w *World) Submit(payload eventlog.Payload, scheduledTimeH float64, metadata map[string]any) (scheduler.ID, error) {
	return w.sched.SubmitIntent(payload, scheduledTimeH, metadata)
}

// FlushNow is advance_time(0.0): flush due intents without advancing the
// clock. Used where entity creation demands immediate concentrations:
// callers invoke it right after submitting SEED_VESSEL so the vessel is
// queryable at once. Submit never flushes on its own, SEED_VESSEL included.
func (w *World) FlushNow() error {
	return w.flushAndApply(w.nowH)
}

// AdvanceTime implements the advance_time(dt_h) boundary contract (spec
// §4.8): flush due intents at t0, step the spine's evaporation over
// [t0,t0+dt) using state as-of t0, step every vessel's biology over the
// same interval, then advance the clock.
func (w *World) AdvanceTime(dtH float64) error {
	if dtH < 0 {
		return &bvmerr.SchemaError{Field: "dt_h", Reason: "must be non-negative"}
	}
	w.logger.Info("advance_time begin", "now_h", w.nowH, "dt_h", dtH, "cycle", w.cycle)

	if dtH > maxDeathSensitiveDtH {
		for id := range w.vessels {
			warn := &bvmerr.DiscretizationWarning{
				VesselID: id,
				DtH:      dtH,
				Reason:   fmt.Sprintf("dt_h=%v exceeds the %v h bound for death-sensitive regimes", dtH, maxDeathSensitiveDtH),
			}
			w.warnings = append(w.warnings, warn)
			w.logger.Warn("discretization warning", "vessel_id", id, "dt_h", dtH)
		}
	}

	if err := w.flushAndApply(w.nowH); err != nil {
		return err
	}

	if err := w.spineMgr.Step(dtH, w.nowH); err != nil {
		w.metrics.InvariantFailures.Inc()
		return err
	}

	w.sched.BeginStep()
	stepErr := w.stepAllVessels(dtH)
	w.sched.CommitStep()
	if stepErr != nil {
		w.metrics.InvariantFailures.Inc()
		return stepErr
	}

	w.refreshAllMirrors()
	w.nowH += dtH
	w.cycle++
	w.metrics.CyclesTotal.Inc()
	w.metrics.DebtBits.Set(w.epistemicCt.DebtBits())
	w.logger.Info("advance_time complete", "now_h", w.nowH, "cycle", w.cycle)
	return nil
}

// Warnings returns every non-fatal discretization warning recorded so far
// (spec §7: recorded in run metadata, never aborts the run).
func (w *World) Warnings() []*bvmerr.DiscretizationWarning { return w.warnings }

// flushAndApply releases due intents and applies each to the spine,
// creating vessel biology state on SEED_VESSEL.
func (w *World) flushAndApply(nowH float64) error {
	due := w.sched.FlushDue(nowH)
	for _, e := range due {
		if err := w.spineMgr.Apply(e); err != nil {
			return fmt.Errorf("world: applying event %d: %w", e.EventID, err)
		}
		w.metrics.EventsAppliedTotal.Inc()

		switch p := e.Payload.(type) {
		case eventlog.SeedVesselPayload:
			if _, exists := w.vessels[p.VesselID]; exists {
				return &bvmerr.SchemaError{Field: "vessel_id", Reason: fmt.Sprintf("vessel %q already has biology state", p.VesselID)}
			}
			w.vessels[p.VesselID] = vessel.NewState(p.VesselID, p.CellLine, p.InitialCells, w.cfg.Biology.VesselCapacityCells, nowH)
			w.metrics.VesselsActive.Set(float64(len(w.vessels)))
		case eventlog.TreatCompoundPayload:
			if v, ok := w.vessels[p.VesselID]; ok {
				if _, already := v.TTreatmentStartH[p.CompoundID]; !already {
					delay := w.commitmentDelayH(e.EventID)
					v.TTreatmentStartH[p.CompoundID] = nowH + delay
				}
			}
		case eventlog.WashoutCompoundPayload:
			if v, ok := w.vessels[p.VesselID]; ok {
				if p.CompoundID == eventlog.WashoutAll {
					v.TTreatmentStartH = map[string]float64{}
				} else {
					delete(v.TTreatmentStartH, p.CompoundID)
				}
			}
		}
	}
	w.refreshAllMirrors()
	return nil
}

// commitmentDelayH draws the pipetting/diffusion lag for a just-applied
// TREAT_COMPOUND event from rng_treatment, keyed by event ID so the draw is
// deterministic and independent of vessel iteration order (spec §4.1:
// "rng_treatment — per-vessel commitment-delay samples"). A zero
// CommitmentDelayMaxH disables the draw entirely without touching the
// stream, preserving replay for runs that never configure it.
func (w *World) commitmentDelayH(eventID int64) float64 {
	maxDelay := w.cfg.Biology.CommitmentDelayMaxH
	if maxDelay <= 0 {
		return 0
	}
	key := fmt.Sprintf("event/%d", eventID)
	sub, err := w.rngRegistry.GuardedSubStream(rng.StreamTreatment, rng.StreamTreatment, key)
	if err != nil {
		return 0
	}
	return sub.Float64() * maxDelay
}

func (w *World) stepAllVessels(dtH float64) error {
	for _, v := range w.vessels {
		key := fmt.Sprintf("%s/%d", v.VesselID, w.cycle)
		biologyRNG, err := w.rngRegistry.GuardedSubStream(rng.StreamBiology, rng.StreamBiology, key)
		if err != nil {
			return fmt.Errorf("world: deriving biology rng for vessel %q: %w", v.VesselID, err)
		}
		operationalRNG, err := w.rngRegistry.GuardedSubStream(rng.StreamBiology, rng.StreamOperationalEvents, key)
		if err != nil {
			return fmt.Errorf("world: deriving operational rng for vessel %q: %w", v.VesselID, err)
		}
		if err := w.stepper.Step(v, w.nowH, dtH, biologyRNG, operationalRNG); err != nil {
			return fmt.Errorf("world: stepping vessel %q: %w", v.VesselID, err)
		}
	}
	return nil
}

func (w *World) refreshAllMirrors() {
	for id, v := range w.vessels {
		snap, err := w.spineMgr.Snapshot(id)
		if err != nil {
			continue
		}
		v.RefreshMirror(snap.VolumeUL, snap.Compounds, snap.Nutrients)
	}
}

// Measure produces one observation for a vessel, using a deterministic
// sub-stream of rng_assay keyed by (vessel_id, cycle) so repeated runs with
// the same schedule of measurements reproduce byte-identical observations
// regardless of what else happened in the run (spec §5: "Measurement
// consumes only rng_assay sub-streams keyed per vessel").
//
// actionID ties the call to a prior epistemic claim (spec §4.7): a non-empty
// actionID must have a pending ClaimAction, or the measurement is refused.
// An empty actionID is an unclaimed, exploratory measurement — allowed
// freely until accumulated debt passes the configured cap, at which point
// it is refused too (spec §1: "the simulator refuses to answer questions
// the agent has not earned the right to ask").
func (w *World) Measure(vesselID, actionID string, observationTimeH float64) (assay.Observation, error) {
	v, ok := w.vessels[vesselID]
	if !ok {
		return assay.Observation{}, &bvmerr.SchemaError{Field: "vessel_id", Reason: fmt.Sprintf("no such vessel %q", vesselID)}
	}

	debtBits := w.epistemicCt.DebtBits()
	if actionID != "" {
		if !w.epistemicCt.HasClaim(actionID) {
			return assay.Observation{}, bvmerr.NewRefusal(
				"unjustified_measurement",
				map[string]float64{"debt_bits": debtBits},
				"claim_action for this action_id before measuring",
			)
		}
	} else if cap := w.cfg.Epistemic.MeasurementDebtCapBits; cap > 0 && debtBits > cap {
		return assay.Observation{}, bvmerr.NewRefusal(
			"debt_quota_exceeded",
			map[string]float64{"debt_bits": debtBits, "cap_bits": cap},
			"resolve outstanding claims to bring debt_bits back under the cap",
			"claim_action an explicit action_id to measure while over cap",
		)
	}

	snap, err := w.spineMgr.Snapshot(vesselID)
	if err != nil {
		return assay.Observation{}, err
	}
	key := fmt.Sprintf("%s/%d", vesselID, w.cycle)
	sub, err := w.rngRegistry.GuardedSubStream(rng.StreamAssay, rng.StreamAssay, key)
	if err != nil {
		return assay.Observation{}, err
	}
	isEdge := spine.IsEdgeWell(snap.Position, w.cfg.Evaporation)
	w.logger.Info("measure", "vessel_id", vesselID, "action_id", actionID, "observation_time_h", observationTimeH)
	return w.producer.Measure(v, snap.Position, observationTimeH, isEdge, sub), nil
}

// Epistemic exposes the run's epistemic controller for claim/resolve calls
// driven by the agent-facing layer outside this core.
func (w *World) Epistemic() *epistemic.Controller { return w.epistemicCt }

// VesselIDs returns the seeded vessel IDs, for iteration by callers that
// don't otherwise track the set.
func (w *World) VesselIDs() []string {
	ids := make([]string, 0, len(w.vessels))
	for id := range w.vessels {
		ids = append(ids, id)
	}
	return ids
}

// NewRunID produces an opaque, unique identifier for a run, for the
// adapter layer to tag persisted artifacts with. The core has no opinion on
// run identity beyond needing something to label logs and snapshots with.
func NewRunID() string {
	return uuid.NewString()
}
