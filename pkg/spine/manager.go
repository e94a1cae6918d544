package spine

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/cellvm/biovm/pkg/bvmerr"
	"github.com/cellvm/biovm/pkg/eventlog"
)

const massTolerance = 1e-6

// Manager is the InjectionManager: the sole writer of volumes and
// concentrations. Every diff to spine state traces to exactly one applied
// event or one Step call (spec §4.3's "event-driven only" invariant).
type Manager struct {
	mu      sync.Mutex
	vessels map[string]*VesselSpine
	log     *eventlog.Log
	cfg     EvaporationConfig
	logger  *slog.Logger
}

// NewManager creates an InjectionManager backed by the given event log. The
// world orchestrator feeds the scheduler's due intents into Manager.Apply,
// and Apply appends each applied event here.
func NewManager(log *eventlog.Log, cfg EvaporationConfig) *Manager {
	return &Manager{
		vessels: make(map[string]*VesselSpine),
		log:     log,
		cfg:     cfg,
		logger:  slog.Default().With("component", "spine"),
	}
}

// Apply applies a validated event: updates per-vessel spine state and
// appends to the log. Refreshing vessel mirrors afterwards is left to the
// caller (the world orchestrator). A schema violation is returned without
// mutating any state.
func (m *Manager) Apply(e eventlog.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch p := e.Payload.(type) {
	case eventlog.SeedVesselPayload:
		if _, exists := m.vessels[p.VesselID]; exists {
			return &bvmerr.SchemaError{EventKind: string(eventlog.KindSeedVessel), Field: "vessel_id", Reason: "vessel already seeded"}
		}
		m.vessels[p.VesselID] = &VesselSpine{
			VolumeUL:        p.InitialVolumeUL,
			InitialVolumeUL: p.InitialVolumeUL,
			Compounds:       map[string]float64{},
			Nutrients:       cloneOrEmpty(p.InitialNutrientsMM),
			Position:        p.Position,
		}
	case eventlog.TreatCompoundPayload:
		v, err := m.mustVessel(p.VesselID)
		if err != nil {
			return err
		}
		v.Compounds[p.CompoundID] = p.DoseUM
	case eventlog.FeedVesselPayload:
		v, err := m.mustVessel(p.VesselID)
		if err != nil {
			return err
		}
		v.Nutrients = cloneOrEmpty(p.NutrientsMM)
	case eventlog.WashoutCompoundPayload:
		v, err := m.mustVessel(p.VesselID)
		if err != nil {
			return err
		}
		if p.CompoundID == eventlog.WashoutAll {
			for id := range v.Compounds {
				v.Compounds[id] = 0
			}
		} else {
			v.Compounds[p.CompoundID] = 0
		}
	default:
		return &bvmerr.SchemaError{Reason: fmt.Sprintf("unrecognized payload type %T", p)}
	}

	if err := m.checkInvariantsLocked(vesselIDOf(e.Payload)); err != nil {
		return err
	}

	if _, err := m.log.Append(e); err != nil {
		return err
	}
	return nil
}

// vesselIDOf extracts the vessel ID a payload targets, for invariant
// checks keyed to the vessel that just changed.
func vesselIDOf(p eventlog.Payload) string {
	switch v := p.(type) {
	case eventlog.SeedVesselPayload:
		return v.VesselID
	case eventlog.TreatCompoundPayload:
		return v.VesselID
	case eventlog.FeedVesselPayload:
		return v.VesselID
	case eventlog.WashoutCompoundPayload:
		return v.VesselID
	default:
		return ""
	}
}

func cloneOrEmpty(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m *Manager) mustVessel(vesselID string) (*VesselSpine, error) {
	v, ok := m.vessels[vesselID]
	if !ok {
		return nil, &bvmerr.SchemaError{Field: "vessel_id", Reason: fmt.Sprintf("no such vessel %q (not yet seeded)", vesselID)}
	}
	return v, nil
}

// Step applies evaporation once, over [now, now+dt), and only here. Volume
// is removed (never solute mass); concentrations rise inversely with
// volume so that mass = concentration * volume is conserved across the
// call.
func (m *Manager) Step(dtH, nowH float64) error {
	if dtH < 0 {
		return &bvmerr.SchemaError{Field: "dt_h", Reason: "must be non-negative"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for vesselID, v := range m.vessels {
		if dtH == 0 {
			continue
		}
		rate := m.cfg.InteriorRatePerH
		if isEdgeWell(v.Position, m.cfg.PlateRows, m.cfg.PlateCols) {
			rate *= m.cfg.EdgeMultiplier
		}
		massBefore := v.CompoundMassUmolUL() + v.NutrientMassMmolUL()

		oldVolume := v.VolumeUL
		newVolume := oldVolume * math.Exp(-rate*dtH)
		minVolume := v.InitialVolumeUL * m.cfg.MinVolumeMultiplier
		if newVolume < minVolume {
			newVolume = minVolume
		}
		if newVolume <= 0 {
			return &bvmerr.InvariantError{Invariant: "volume_uL > 0", VesselID: vesselID, TimeH: nowH, Detail: "evaporation drove volume non-positive"}
		}

		scale := oldVolume / newVolume
		for id, c := range v.Compounds {
			v.Compounds[id] = c * scale
		}
		for id, c := range v.Nutrients {
			v.Nutrients[id] = c * scale
		}
		v.VolumeUL = newVolume

		massAfter := v.CompoundMassUmolUL() + v.NutrientMassMmolUL()
		if math.Abs(massAfter-massBefore) > massTolerance*(1+math.Abs(massBefore)) {
			return &bvmerr.InvariantError{
				Invariant: "evaporation preserves solute mass",
				VesselID:  vesselID,
				TimeH:     nowH,
				Detail:    fmt.Sprintf("mass before=%.9f after=%.9f", massBefore, massAfter),
			}
		}
		if err := m.checkInvariantsLocked(vesselID); err != nil {
			return err
		}
	}
	return nil
}

// AddVolume tops off a vessel with vAdd uL of fresh media, clamping at a
// configured maximum capacity. No v1 event calls this — v1 FEED_VESSEL is
// non-diluting (spec §9 Open Questions) — but the clamp-and-warn failure
// mode it implements ("feed past max volume produces a warning and clamps
// V_add", spec §4.3) is part of the spine's contract for when a future
// diluting FEED variant is wired in.
func (m *Manager) AddVolume(vesselID string, vAdd, maxVolumeUL float64) (clamped float64, warned bool, err error) {
	if vAdd < 0 {
		return 0, false, &bvmerr.SchemaError{Field: "v_add", Reason: "must be non-negative"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ferr := m.mustVessel(vesselID)
	if ferr != nil {
		return 0, false, ferr
	}
	room := maxVolumeUL - v.VolumeUL
	if room < 0 {
		room = 0
	}
	actual := vAdd
	if actual > room {
		actual = room
		warned = true
		m.logger.Warn("volume add clamped at max capacity", "vessel_id", vesselID, "requested_uL", vAdd, "clamped_to_uL", actual)
	}
	if actual == 0 {
		return 0, warned, nil
	}
	oldVolume := v.VolumeUL
	newVolume := oldVolume + actual
	scale := oldVolume / newVolume
	for id, c := range v.Compounds {
		v.Compounds[id] = c * scale
	}
	for id, c := range v.Nutrients {
		v.Nutrients[id] = c * scale
	}
	v.VolumeUL = newVolume
	return actual, warned, nil
}

// GetCompoundUM returns a compound's concentration. Pure read: concentration
// is never cached separately from mass/volume.
func (m *Manager) GetCompoundUM(vesselID, compoundID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.mustVessel(vesselID)
	if err != nil {
		return 0, err
	}
	return v.Compounds[compoundID], nil
}

// GetNutrientMM returns a nutrient's concentration.
func (m *Manager) GetNutrientMM(vesselID, nutrientID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.mustVessel(vesselID)
	if err != nil {
		return 0, err
	}
	return v.Nutrients[nutrientID], nil
}

// GetVolumeUL returns the vessel's current volume.
func (m *Manager) GetVolumeUL(vesselID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.mustVessel(vesselID)
	if err != nil {
		return 0, err
	}
	return v.VolumeUL, nil
}

// Snapshot returns a deep copy of one vessel's spine state, for mirrors.
func (m *Manager) Snapshot(vesselID string) (VesselSpine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.mustVessel(vesselID)
	if err != nil {
		return VesselSpine{}, err
	}
	return v.Clone(), nil
}

// checkInvariantsLocked verifies non-negativity for one vessel. Caller must
// hold m.mu.
func (m *Manager) checkInvariantsLocked(vesselID string) error {
	if vesselID == "" {
		return nil
	}
	v, ok := m.vessels[vesselID]
	if !ok {
		return nil
	}
	if v.VolumeUL <= 0 || math.IsNaN(v.VolumeUL) || math.IsInf(v.VolumeUL, 0) {
		return &bvmerr.InvariantError{Invariant: "volume_uL > 0", VesselID: vesselID, Detail: fmt.Sprintf("volume_uL=%v", v.VolumeUL)}
	}
	for id, c := range v.Compounds {
		if c < 0 || math.IsNaN(c) || math.IsInf(c, 0) {
			return &bvmerr.InvariantError{Invariant: "compound concentration >= 0", VesselID: vesselID, Detail: fmt.Sprintf("%s=%v", id, c)}
		}
	}
	for id, c := range v.Nutrients {
		if c < 0 || math.IsNaN(c) || math.IsInf(c, 0) {
			return &bvmerr.InvariantError{Invariant: "nutrient concentration >= 0", VesselID: vesselID, Detail: fmt.Sprintf("%s=%v", id, c)}
		}
	}
	return nil
}
