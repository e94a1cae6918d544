// Package vessel owns per-vessel biology state and the interval integrator
// that advances it: cell count, viability, stress latents, the death
// ledger, confluence, and contact pressure. It reads concentrations from
// the spine and writes nothing back to it — biology observes the spine, it
// never owns it.
package vessel

import "maps"

// DeathCause is a closed tag identifying one way a vessel's cells can die.
// Represented as a string enum (a closed tagged union per the source's
// sum-types-not-inheritance pattern), not as a subclass hierarchy.
type DeathCause string

const (
	CauseCompoundAttrition DeathCause = "compound_attrition"
	CauseStarvation        DeathCause = "starvation"
	CauseOsmoticStress     DeathCause = "osmotic_stress"
	CauseContamination     DeathCause = "contamination"
)

// AllCauses enumerates the closed set of death causes hazards may be
// proposed for.
var AllCauses = []DeathCause{CauseCompoundAttrition, CauseStarvation, CauseOsmoticStress, CauseContamination}

// StressAxis is a closed tag for one biological stress latent.
type StressAxis string

const (
	AxisER        StressAxis = "er_stress"
	AxisMito      StressAxis = "mitochondrial_dysfunction"
	AxisTransport StressAxis = "transport_dysfunction"
)

// AllAxes enumerates the closed set of stress axes integrated each step.
var AllAxes = []StressAxis{AxisER, AxisMito, AxisTransport}

// SpineMirror is the read-only snapshot of spine state a vessel carries for
// introspection. It is refreshed by the world after every spine apply/step
// call; biology itself reads live spine values directly, never this copy —
// see State's doc comment.
type SpineMirror struct {
	VolumeUL  float64
	Compounds map[string]float64
	Nutrients map[string]float64
}

// State is one vessel's biology state. It is owned exclusively by the
// vessel (no shared pointers into stress_latents or death_ledger): every
// read that needs independence from a later step takes a Clone.
//
// Biology never reads Mirror during a step — the step function reads
// concentrations from the spine directly (spec §4.5: "Biology reads
// compound and nutrient concentrations from the spine, not from vessel
// mirrors"). Mirror exists only for external introspection between steps.
type State struct {
	VesselID string
	CellLine string

	CellCount float64
	Viability float64

	// DeathLedger maps cause -> cumulative fraction killed. Insertion order
	// is AllCauses order, so iteration is deterministic without a separate
	// ordered-map type.
	DeathLedger map[DeathCause]float64
	DeathOrder  []DeathCause

	StressLatents map[StressAxis]float64

	// VesselCapacityCells bounds confluence = CellCount / VesselCapacityCells.
	VesselCapacityCells float64
	ContactPressure     float64 // lagged sigmoid of confluence, [0,1]

	TSeedH              float64
	TTreatmentStartH    map[string]float64 // compound ID -> hours since run start
	DominantDeathCause  DeathCause

	// Contaminated latches true the first time the rare discrete
	// contamination event (rng_operational_events) triggers for this
	// vessel; once true, contamination hazard applies for the rest of the
	// run (spec §4.5 step 1).
	Contaminated bool

	// growthNoiseMultiplier and hazardNoiseMultiplier are the per-vessel
	// rng_biology trait draws (spec §4.1), sampled once on the vessel's
	// first biology step and held fixed afterward.
	growthNoiseMultiplier float64
	hazardNoiseMultiplier float64
	noiseSampled          bool

	// stressViolationStreak counts consecutive steps in which a stress
	// latent was out of [0,1] before clamping (spec §4.5's "persistent
	// violation -> fatal" failure mode).
	stressViolationStreak int

	Mirror SpineMirror
}

// NewState creates a freshly seeded vessel: full viability, zero death, zero
// stress, cell count as given. tSeedH is the run-relative hour SEED_VESSEL
// was applied.
func NewState(vesselID, cellLine string, initialCells, vesselCapacityCells, tSeedH float64) *State {
	ledger := make(map[DeathCause]float64, len(AllCauses))
	for _, c := range AllCauses {
		ledger[c] = 0
	}
	latents := make(map[StressAxis]float64, len(AllAxes))
	for _, a := range AllAxes {
		latents[a] = 0
	}
	return &State{
		VesselID:            vesselID,
		CellLine:            cellLine,
		CellCount:           initialCells,
		Viability:           1,
		DeathLedger:         ledger,
		DeathOrder:          append([]DeathCause(nil), AllCauses...),
		StressLatents:       latents,
		VesselCapacityCells: vesselCapacityCells,
		TSeedH:              tSeedH,
		TTreatmentStartH:    map[string]float64{},
	}
}

// Confluence is derived, never a writable field.
func (s *State) Confluence() float64 {
	if s.VesselCapacityCells <= 0 {
		return 0
	}
	c := s.CellCount / s.VesselCapacityCells
	if c > 1 {
		return 1
	}
	return c
}

// Clone returns a deep, independent copy, used by the world for mirrors and
// by tests asserting observer independence.
func (s *State) Clone() *State {
	out := *s
	out.DeathLedger = maps.Clone(s.DeathLedger)
	out.DeathOrder = append([]DeathCause(nil), s.DeathOrder...)
	out.StressLatents = maps.Clone(s.StressLatents)
	out.TTreatmentStartH = maps.Clone(s.TTreatmentStartH)
	out.Mirror.Compounds = maps.Clone(s.Mirror.Compounds)
	out.Mirror.Nutrients = maps.Clone(s.Mirror.Nutrients)
	return &out
}

// RefreshMirror overwrites the introspection mirror from a spine snapshot.
// The only legitimate caller is the world orchestrator, immediately after a
// spine apply or step call.
func (s *State) RefreshMirror(volumeUL float64, compounds, nutrients map[string]float64) {
	s.Mirror = SpineMirror{
		VolumeUL:  volumeUL,
		Compounds: maps.Clone(compounds),
		Nutrients: maps.Clone(nutrients),
	}
}

// deathLedgerSum is a package-internal helper, not exported: callers that
// need Σdeath_ledger should use it via the invariant checker, not recompute
// it ad hoc at each call site. Defined near State since it only touches
// State's shape.
func deathLedgerSum(s *State) float64 {
	var total float64
	for _, c := range s.DeathOrder {
		total += s.DeathLedger[c]
	}
	return total
}

// sinceH returns hours elapsed since a trigger time, never negative — used
// by interval-integrated gates where a trigger may not have fired yet.
func sinceH(nowH, triggerH float64) float64 {
	d := nowH - triggerH
	if d < 0 {
		return 0
	}
	return d
}
