package spine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellvm/biovm/pkg/eventlog"
)

func seed(vesselID, position string) eventlog.Event {
	return eventlog.Event{
		EventID:        1,
		ScheduledTimeH: 0,
		Priority:       eventlog.KindSeedVessel.Priority(),
		Payload: eventlog.SeedVesselPayload{
			VesselID:           vesselID,
			Position:           position,
			CellLine:           "A",
			InitialCells:       3000,
			InitialVolumeUL:    50,
			InitialNutrientsMM: map[string]float64{"glucose": 25},
		},
	}
}

func TestApplySeedThenTreatThenRead(t *testing.T) {
	log := eventlog.New()
	m := NewManager(log, DefaultEvaporationConfig())

	require.NoError(t, m.Apply(seed("W1", "H12")))

	treat := eventlog.Event{
		EventID:        2,
		ScheduledTimeH: 0,
		Priority:       eventlog.KindTreatCompound.Priority(),
		Payload:        eventlog.TreatCompoundPayload{VesselID: "W1", CompoundID: "X", DoseUM: 10},
	}
	require.NoError(t, m.Apply(treat))

	conc, err := m.GetCompoundUM("W1", "X")
	require.NoError(t, err)
	assert.Equal(t, 10.0, conc)
	assert.Equal(t, 2, log.Len())
}

func TestNoResurrectionAfterWashout(t *testing.T) {
	log := eventlog.New()
	m := NewManager(log, DefaultEvaporationConfig())
	require.NoError(t, m.Apply(seed("W1", "H12")))
	require.NoError(t, m.Apply(eventlog.Event{
		EventID: 2, Priority: eventlog.KindTreatCompound.Priority(),
		Payload: eventlog.TreatCompoundPayload{VesselID: "W1", CompoundID: "X", DoseUM: 10},
	}))
	require.NoError(t, m.Apply(eventlog.Event{
		EventID: 3, ScheduledTimeH: 1, Priority: eventlog.KindWashoutCompound.Priority(),
		Payload: eventlog.WashoutCompoundPayload{VesselID: "W1", CompoundID: "X"},
	}))

	conc, err := m.GetCompoundUM("W1", "X")
	require.NoError(t, err)
	assert.Zero(t, conc)

	// Washout followed by Step (no new treat) keeps concentration at zero
	// regardless of dt (spec §8 Boundary behaviors).
	require.NoError(t, m.Step(48, 1))
	conc, err = m.GetCompoundUM("W1", "X")
	require.NoError(t, err)
	assert.Zero(t, conc)
}

func TestEvaporationAnisotropyAndMassConservation(t *testing.T) {
	log := eventlog.New()
	m := NewManager(log, DefaultEvaporationConfig())
	require.NoError(t, m.Apply(seed("edge", "A1")))     // row 0 -> edge
	require.NoError(t, m.Apply(seed("interior", "H12"))) // interior

	require.NoError(t, m.Apply(eventlog.Event{
		EventID: 10, Priority: eventlog.KindTreatCompound.Priority(),
		Payload: eventlog.TreatCompoundPayload{VesselID: "edge", CompoundID: "X", DoseUM: 10},
	}))
	require.NoError(t, m.Apply(eventlog.Event{
		EventID: 11, Priority: eventlog.KindTreatCompound.Priority(),
		Payload: eventlog.TreatCompoundPayload{VesselID: "interior", CompoundID: "X", DoseUM: 10},
	}))

	edgeMassBefore, _ := m.Snapshot("edge")
	interiorMassBefore, _ := m.Snapshot("interior")

	require.NoError(t, m.Step(48, 0))

	edgeConc, _ := m.GetCompoundUM("edge", "X")
	interiorConc, _ := m.GetCompoundUM("interior", "X")
	assert.Greater(t, edgeConc, interiorConc, "edge well should concentrate faster than interior")

	cfg := DefaultEvaporationConfig()
	assert.LessOrEqual(t, edgeConc, 10.0/cfg.MinVolumeMultiplier+1e-9)

	edgeAfter, _ := m.Snapshot("edge")
	interiorAfter, _ := m.Snapshot("interior")
	assert.InDelta(t,
		edgeMassBefore.CompoundMassUmolUL()+edgeMassBefore.NutrientMassMmolUL(),
		edgeAfter.CompoundMassUmolUL()+edgeAfter.NutrientMassMmolUL(),
		1e-6)
	assert.InDelta(t,
		interiorMassBefore.CompoundMassUmolUL()+interiorMassBefore.NutrientMassMmolUL(),
		interiorAfter.CompoundMassUmolUL()+interiorAfter.NutrientMassMmolUL(),
		1e-6)
}

func TestVolumeClampedAtMinimumMultiplier(t *testing.T) {
	log := eventlog.New()
	cfg := DefaultEvaporationConfig()
	cfg.InteriorRatePerH = 10 // absurdly fast, to force the floor
	m := NewManager(log, cfg)
	require.NoError(t, m.Apply(seed("W1", "H12")))

	require.NoError(t, m.Step(1000, 0))
	vol, err := m.GetVolumeUL("W1")
	require.NoError(t, err)
	assert.InDelta(t, 50*cfg.MinVolumeMultiplier, vol, 1e-6)
}

func TestApplyToUnseededVesselFails(t *testing.T) {
	log := eventlog.New()
	m := NewManager(log, DefaultEvaporationConfig())
	err := m.Apply(eventlog.Event{
		EventID: 1, Priority: eventlog.KindTreatCompound.Priority(),
		Payload: eventlog.TreatCompoundPayload{VesselID: "ghost", CompoundID: "X", DoseUM: 1},
	})
	assert.Error(t, err)
}

func TestFeedDoesNotTouchCompounds(t *testing.T) {
	log := eventlog.New()
	m := NewManager(log, DefaultEvaporationConfig())
	require.NoError(t, m.Apply(seed("W1", "H12")))
	require.NoError(t, m.Apply(eventlog.Event{
		EventID: 2, Priority: eventlog.KindTreatCompound.Priority(),
		Payload: eventlog.TreatCompoundPayload{VesselID: "W1", CompoundID: "X", DoseUM: 7},
	}))
	require.NoError(t, m.Apply(eventlog.Event{
		EventID: 3, Priority: eventlog.KindFeedVessel.Priority(),
		Payload: eventlog.FeedVesselPayload{VesselID: "W1", NutrientsMM: map[string]float64{"glucose": 25}},
	}))
	conc, err := m.GetCompoundUM("W1", "X")
	require.NoError(t, err)
	assert.Equal(t, 7.0, conc)
}

func TestStepRejectsNegativeDt(t *testing.T) {
	log := eventlog.New()
	m := NewManager(log, DefaultEvaporationConfig())
	require.NoError(t, m.Apply(seed("W1", "H12")))
	assert.Error(t, m.Step(-1, 0))
}
