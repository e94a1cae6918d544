package vessel

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/cellvm/biovm/pkg/bvmerr"
)

// Stepper integrates vessel biology over fixed intervals. One Stepper is
// shared across all vessels in a run; it carries configuration only, no
// per-vessel mutable state (per-entity ownership lives on State itself).
type Stepper struct {
	cfg    Config
	spine  SpineReader
	logger *slog.Logger
}

// NewStepper binds a biology configuration to a spine reader. The spine
// reader is consulted fresh on every Step call — never cached — so biology
// always sees the concentrations as-of t0 (spec §4.8's advance_time
// contract: spine.step happens before _step_vessel).
func NewStepper(cfg Config, reader SpineReader) *Stepper {
	return &Stepper{cfg: cfg, spine: reader, logger: slog.Default().With("component", "vessel")}
}

// Step integrates one vessel over exactly [t0, t0+dt), following the fixed
// execution order from spec §4.5: propose hazards, integrate growth, commit
// death, integrate stress latents, update confluence & contact pressure,
// update death-mode labels. dt=0 is allowed and is a no-op beyond what
// flush already did.
//
// biologyRNG and operationalRNG are the vessel's rng_biology and
// rng_operational_events sub-streams (spec §4.1): biologyRNG seeds this
// vessel's fixed growth/hazard noise traits on its first step; operationalRNG
// drives the rare discrete contamination event when enabled. Either may be
// nil (e.g. a test exercising the deterministic skeleton directly), in
// which case the corresponding stochasticity is simply absent.
func (st *Stepper) Step(s *State, t0, dt float64, biologyRNG, operationalRNG *rand.Rand) error {
	if dt < 0 {
		return &bvmerr.SchemaError{Field: "dt_h", Reason: "must be non-negative"}
	}
	if dt == 0 {
		return nil
	}

	if !s.noiseSampled {
		s.growthNoiseMultiplier = biologyJitter(biologyRNG, st.cfg.GrowthNoiseSigma)
		s.hazardNoiseMultiplier = biologyJitter(biologyRNG, st.cfg.HazardNoiseSigma)
		s.noiseSampled = true
	}

	hazards, err := st.cfg.proposeHazards(s, st.spine, t0, dt, operationalRNG)
	if err != nil {
		return err
	}

	growthMultiplier := st.integrateGrowth(s, t0, dt)

	if err := st.commitDeath(s, t0, hazards, growthMultiplier, dt); err != nil {
		return err
	}

	if err := st.integrateStressLatents(s, dt); err != nil {
		return err
	}
	st.updateConfluenceAndContactPressure(s, dt)
	st.updateDominantDeathCause(s)

	return checkInvariants(s, t0)
}

// integrateGrowth returns the interval-mean net growth multiplier applied
// to surviving cell count this step: piecewise-exponential growth scaled by
// an interval-mean lag factor and an interval-mean confluence-saturation
// term, neither ever sampled at an endpoint.
func (st *Stepper) integrateGrowth(s *State, t0, dt float64) float64 {
	lineParams, ok := st.cfg.CellLines[s.CellLine]
	if !ok {
		return 1
	}
	sinceSeed := sinceH(t0, s.TSeedH)
	lag := intervalLagMultiplier(sinceSeed, dt, lineParams.LagPhaseH)

	// Closed-form logistic growth over the interval: the saturation term
	// 1 - confluence is integrated along the trajectory, not read at t0.
	confluence := s.Confluence()
	if confluence >= 1 {
		return 1
	}
	netRatePerH := lineParams.IntrinsicGrowthPerH * lag * s.growthNoiseMultiplier
	growth := math.Exp(netRatePerH * dt)
	return growth / (1 + confluence*(growth-1))
}

// commitDeath applies the combined survival factor over the interval and
// allocates the killed fraction to cause tags in proportion to their
// hazard contribution (spec §4.5 step 3). Growth is applied to the
// surviving population in the same call so that cell_count reflects both
// effects for this interval without a separate commit pass.
func (st *Stepper) commitDeath(s *State, t0 float64, hazards []hazardProposal, growthMultiplier, dt float64) error {
	var hazardSum float64
	for _, h := range hazards {
		hazardSum += h.ratePerH
	}

	// hazardNoiseMultiplier scales the combined rate uniformly (the fixed
	// per-vessel rng_biology trait, spec §4.1), so per-cause shares below
	// stay proportional to the unjittered rates.
	survival := math.Exp(-hazardSum * s.hazardNoiseMultiplier * dt)
	newViability := s.Viability * survival
	killed := s.Viability - newViability

	if hazardSum > 0 && killed > 0 {
		for _, h := range hazards {
			share := h.ratePerH / hazardSum
			s.DeathLedger[h.cause] += killed * share
		}
	}

	s.Viability = newViability
	s.CellCount = s.CellCount * survival * growthMultiplier

	return nil
}

// integrateStressLatents advances each axis by dS/dt = k_up*p(t) -
// k_down*S using an analytic exponential update (exact for a constant
// driving signal over the interval, which is the interval-integrated
// treatment the spec calls for).
func (st *Stepper) integrateStressLatents(s *State, dt float64) error {
	snap, err := st.spine.Snapshot(s.VesselID)
	if err != nil {
		return err
	}
	driving := s.driving(st.cfg, snap.Compounds)
	// hazardNoiseMultiplier doubles as the per-vessel fragility trait:
	// more hazard-sensitive vessels also stress faster.
	kUp, kDown := st.cfg.StressUpRatePerH*s.hazardNoiseMultiplier, st.cfg.StressDownRatePerH
	violated := false
	for _, axis := range AllAxes {
		current := s.StressLatents[axis]
		var next float64
		if kDown <= 0 {
			// No decay: linear accumulation.
			next = current + kUp*driving*dt
		} else {
			steadyState := kUp * driving / kDown
			next = steadyState + (current-steadyState)*math.Exp(-kDown*dt)
		}
		if next < -1e-9 || next > 1+1e-9 {
			violated = true
			st.logger.Warn("stress latent out of range, clamping",
				"vessel_id", s.VesselID, "axis", axis, "value", next)
		}
		s.StressLatents[axis] = clamp01(next)
	}

	if violated {
		s.stressViolationStreak++
	} else {
		s.stressViolationStreak = 0
	}
	if st.cfg.StressLatentViolationStreak > 0 && s.stressViolationStreak >= st.cfg.StressLatentViolationStreak {
		return &bvmerr.InvariantError{
			Invariant: "stress latent in [0,1]",
			VesselID:  s.VesselID,
			Detail:    fmt.Sprintf("persistent violation: %d consecutive steps out of range", s.stressViolationStreak),
		}
	}
	return nil
}

// driving returns p(t), the stress-latent driving signal: dose fraction
// from active compound treatment, optionally folding in contact pressure
// when the source-ambiguous confluence-feedback path is enabled (spec §9
// Open Questions).
func (s *State) driving(cfg Config, compounds map[string]float64) float64 {
	var doseFraction float64
	for compoundID, conc := range compounds {
		lineParams, ok := cfg.CellLines[s.CellLine]
		if !ok {
			continue
		}
		ic50, hasIC50 := lineParams.CompoundIC50UM[compoundID]
		if !hasIC50 || ic50 <= 0 {
			continue
		}
		f := conc / ic50
		if f > doseFraction {
			doseFraction = f
		}
	}
	if cfg.ContactPressureDrivesBiology {
		if s.ContactPressure > doseFraction {
			return s.ContactPressure
		}
	}
	return doseFraction
}

// updateConfluenceAndContactPressure applies a lagged sigmoid of confluence
// with time constant ContactPressureTauH (spec §4.5 step 5). Confluence
// itself is not stored; ContactPressure lags behind it via the same
// analytic exponential update used for stress latents.
func (st *Stepper) updateConfluenceAndContactPressure(s *State, dt float64) {
	confluence := s.Confluence()
	target := sigmoid(confluence, st.cfg.ContactPressureMidpoint, st.cfg.ContactPressureWidth)

	tau := st.cfg.ContactPressureTauH
	if tau <= 0 {
		s.ContactPressure = target
		return
	}
	k := 1 / tau
	s.ContactPressure = target + (s.ContactPressure-target)*math.Exp(-k*dt)
}

func sigmoid(x, midpoint, width float64) float64 {
	if width <= 0 {
		if x >= midpoint {
			return 1
		}
		return 0
	}
	return 1 / (1 + math.Exp(-(x-midpoint)/width))
}

// updateDominantDeathCause records the cause with the largest cumulative
// share, for reporting only.
func (st *Stepper) updateDominantDeathCause(s *State) {
	var best DeathCause
	var bestValue float64
	for _, cause := range s.DeathOrder {
		v := s.DeathLedger[cause]
		if v > bestValue {
			bestValue = v
			best = cause
		}
	}
	s.DominantDeathCause = best
}

// checkInvariants enforces the universal per-step invariants (spec §4.5,
// §8). NaN/Inf anywhere is fatal; death-ledger drift beyond tolerance is
// fatal.
func checkInvariants(s *State, atH float64) error {
	if math.IsNaN(s.Viability) || math.IsInf(s.Viability, 0) {
		return &bvmerr.InvariantError{Invariant: "viability finite", VesselID: s.VesselID, TimeH: atH, Detail: fmt.Sprintf("viability=%v", s.Viability)}
	}
	if s.Viability < -1e-9 || s.Viability > 1+1e-9 {
		return &bvmerr.InvariantError{Invariant: "0 <= viability <= 1", VesselID: s.VesselID, TimeH: atH, Detail: fmt.Sprintf("viability=%v", s.Viability)}
	}
	if math.IsNaN(s.CellCount) || math.IsInf(s.CellCount, 0) || s.CellCount < 0 {
		return &bvmerr.InvariantError{Invariant: "cell_count >= 0", VesselID: s.VesselID, TimeH: atH, Detail: fmt.Sprintf("cell_count=%v", s.CellCount)}
	}

	const tolerance = 1e-6
	ledgerSum := deathLedgerSum(s)
	expected := 1 - s.Viability
	if math.Abs(ledgerSum-expected) > tolerance {
		return &bvmerr.InvariantError{
			Invariant: "sum(death_ledger) == 1 - viability",
			VesselID:  s.VesselID,
			TimeH:     atH,
			Detail:    fmt.Sprintf("sum=%v expected=%v", ledgerSum, expected),
		}
	}

	for axis, v := range s.StressLatents {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &bvmerr.InvariantError{Invariant: "stress latent finite", VesselID: s.VesselID, TimeH: atH, Detail: fmt.Sprintf("%s=%v", axis, v)}
		}
		// Out-of-range latents are clamped at assignment time (clamp01);
		// reaching here with an out-of-range value means clamping itself
		// was bypassed, which is a programming error, not a data problem.
		if v < -1e-9 || v > 1+1e-9 {
			return &bvmerr.InvariantError{Invariant: "stress latent in [0,1]", VesselID: s.VesselID, TimeH: atH, Detail: fmt.Sprintf("%s=%v", axis, v)}
		}
	}

	return nil
}
