package world

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellvm/biovm/pkg/assay"
	"github.com/cellvm/biovm/pkg/bvmerr"
	"github.com/cellvm/biovm/pkg/epistemic"
	"github.com/cellvm/biovm/pkg/eventlog"
	"github.com/cellvm/biovm/pkg/rng"
	"github.com/cellvm/biovm/pkg/spine"
	"github.com/cellvm/biovm/pkg/vessel"
)

func testConfig(rootSeed uint64) Config {
	return Config{
		RootSeed:    rootSeed,
		Evaporation: spine.DefaultEvaporationConfig(),
		Biology:     vessel.DefaultConfig(),
		Noise:       assay.DefaultConfig(),
		Epistemic:   epistemic.DefaultConfig(),
	}
}

func seedAndFlush(t *testing.T, w *World, vesselID, position string) {
	t.Helper()
	_, err := w.Submit(eventlog.SeedVesselPayload{
		VesselID:           vesselID,
		Position:           position,
		CellLine:           "A",
		InitialCells:       3000,
		InitialVolumeUL:    50,
		InitialNutrientsMM: map[string]float64{"glucose": 25},
	}, 0, nil)
	require.NoError(t, err)
	require.NoError(t, w.FlushNow())
}

// Scenario 1: death conservation under compound treatment.
func TestScenarioDeathConservation(t *testing.T) {
	w := New(testConfig(42), nil)
	seedAndFlush(t, w, "W1", "H12")

	_, err := w.Submit(eventlog.TreatCompoundPayload{VesselID: "W1", CompoundID: "X", DoseUM: 10}, 0, nil)
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		require.NoError(t, w.AdvanceTime(6))
	}

	h := w.Health()
	require.Len(t, h.Vessels, 1)
	v := w.vessels["W1"]
	var ledgerSum float64
	for _, f := range v.DeathLedger {
		ledgerSum += f
	}
	assert.InDelta(t, 1.0, v.Viability+ledgerSum, 1e-9)
	assert.InDelta(t, 48.0, w.NowH(), 1e-9)
}

// Scenario 2: observer independence. Final viability/cell_count identical
// whether or not the vessel was measured along the way.
func TestScenarioObserverIndependence(t *testing.T) {
	runOnce := func(measure bool) (viability, cellCount float64) {
		w := New(testConfig(42), nil)
		seedAndFlush(t, w, "W1", "H12")
		_, err := w.Submit(eventlog.TreatCompoundPayload{VesselID: "W1", CompoundID: "X", DoseUM: 10}, 0, nil)
		require.NoError(t, err)

		for i := 0; i < 8; i++ {
			require.NoError(t, w.AdvanceTime(6))
			if measure {
				_, err := w.Measure("W1", "", w.NowH())
				require.NoError(t, err)
			}
		}
		hh := w.Health()
		return hh.Vessels[0].Viability, hh.Vessels[0].CellCount
	}

	v1, c1 := runOnce(false)
	v2, c2 := runOnce(true)
	assert.Equal(t, v1, v2)
	assert.Equal(t, c1, c2)
}

// Scenario 3: boundary delivery. WASHOUT(priority 10) applies before
// TREAT(priority 30) at the same scheduled time, regardless of submit order.
func TestScenarioBoundaryDelivery(t *testing.T) {
	run := func(submitTreatFirst bool) float64 {
		w := New(testConfig(42), nil)
		seedAndFlush(t, w, "W1", "H12")
		_, err := w.Submit(eventlog.TreatCompoundPayload{VesselID: "W1", CompoundID: "X", DoseUM: 1}, 0, nil)
		require.NoError(t, err)
		require.NoError(t, w.AdvanceTime(0)) // establish an initial dose at t=0

		treat := eventlog.TreatCompoundPayload{VesselID: "W1", CompoundID: "X", DoseUM: 10}
		washout := eventlog.WashoutCompoundPayload{VesselID: "W1", CompoundID: "X"}
		if submitTreatFirst {
			_, err = w.Submit(treat, 24, nil)
			require.NoError(t, err)
			_, err = w.Submit(washout, 24, nil)
			require.NoError(t, err)
		} else {
			_, err = w.Submit(washout, 24, nil)
			require.NoError(t, err)
			_, err = w.Submit(treat, 24, nil)
			require.NoError(t, err)
		}
		require.NoError(t, w.AdvanceTime(24))
		// AdvanceTime flushes at t0; the t=24 intents apply at this flush.
		require.NoError(t, w.FlushNow())

		conc, err := concentrationAt(w, "W1", "X")
		require.NoError(t, err)
		return conc
	}

	a := run(true)
	b := run(false)
	assert.Equal(t, 10.0, a)
	assert.Equal(t, 10.0, b)
}

func concentrationAt(w *World, vesselID, compoundID string) (float64, error) {
	snap, err := w.spineMgr.Snapshot(vesselID)
	if err != nil {
		return 0, err
	}
	return snap.Compounds[compoundID], nil
}

// Scenario 6: scheduler order invariance across randomized submission
// orders with mixed types at the same scheduled time.
func TestScenarioSchedulerOrderInvariance(t *testing.T) {
	// Each TREAT/WASHOUT targets a distinct compound ID so no two intents
	// in the set ever write the same spine cell — the final state is then
	// independent of tie-break order among same-priority intents, and this
	// test isolates the property actually guaranteed: ordering is stable
	// across priority classes, not among conflicting same-cell writes.
	buildPayloads := func() []eventlog.Payload {
		payloads := []eventlog.Payload{}
		for i := 0; i < 8; i++ {
			compoundID := fmt.Sprintf("C%d", i)
			payloads = append(payloads,
				eventlog.TreatCompoundPayload{VesselID: "W1", CompoundID: compoundID, DoseUM: float64(i)},
				eventlog.WashoutCompoundPayload{VesselID: "W1", CompoundID: compoundID},
				eventlog.FeedVesselPayload{VesselID: "W1", NutrientsMM: map[string]float64{"glucose": 25}},
			)
		}
		// One conflicting pair deliberately kept at distinct priorities
		// (WASHOUT=10 < TREAT=30) so the test still exercises cross-priority
		// order invariance, the property spec §5 actually guarantees.
		payloads = append(payloads,
			eventlog.TreatCompoundPayload{VesselID: "W1", CompoundID: "X", DoseUM: 10},
			eventlog.WashoutCompoundPayload{VesselID: "W1", CompoundID: "X"},
		)
		return payloads
	}

	var reference float64
	rngShuffle := rand.New(rand.NewPCG(42, 1))

	for run := 0; run < 10; run++ {
		w := New(testConfig(42), nil)
		seedAndFlush(t, w, "W1", "H12")

		payloads := buildPayloads()
		rngShuffle.Shuffle(len(payloads), func(i, j int) { payloads[i], payloads[j] = payloads[j], payloads[i] })
		for _, p := range payloads {
			_, err := w.Submit(p, 12, nil)
			require.NoError(t, err)
		}
		require.NoError(t, w.AdvanceTime(12))
		require.NoError(t, w.FlushNow()) // applies the t=12 intents

		conc, err := concentrationAt(w, "W1", "X")
		require.NoError(t, err)
		if run == 0 {
			reference = conc
		} else {
			assert.Equal(t, reference, conc, "run %d diverged", run)
		}
	}
}

func TestHealthReportsRunState(t *testing.T) {
	w := New(testConfig(1), nil)
	seedAndFlush(t, w, "W1", "H12")
	require.NoError(t, w.AdvanceTime(6))

	h := w.Health()
	assert.Equal(t, int64(1), h.CycleCount)
	assert.Len(t, h.Vessels, 1)
	assert.False(t, h.Halted)
}

func TestSnapshotIsStableForIdenticalRuns(t *testing.T) {
	build := func() Snapshot {
		w := New(testConfig(7), nil)
		seedAndFlush(t, w, "W1", "H12")
		require.NoError(t, w.AdvanceTime(6))
		snap, err := w.Snapshot()
		require.NoError(t, err)
		return snap
	}
	s1 := build()
	s2 := build()
	assert.Equal(t, s1, s2)
}

func TestHaltIsIdempotent(t *testing.T) {
	w := New(testConfig(1), nil)
	assert.False(t, w.Halted())
	w.Halt()
	w.Halt()
	assert.True(t, w.Halted())
}

// A claimed action_id with no pending claim is refused, not silently
// honored.
func TestMeasureRefusesUnclaimedActionID(t *testing.T) {
	w := New(testConfig(1), nil)
	seedAndFlush(t, w, "W1", "H12")
	require.NoError(t, w.AdvanceTime(6))

	_, err := w.Measure("W1", "action-never-claimed", w.NowH())
	require.Error(t, err)
	var refusal *bvmerr.RefusalError
	require.ErrorAs(t, err, &refusal)
	assert.Equal(t, "unjustified_measurement", refusal.Detail.ViolationCode)
}

// A claimed action_id with a pending claim is honored.
func TestMeasureHonorsClaimedActionID(t *testing.T) {
	w := New(testConfig(1), nil)
	seedAndFlush(t, w, "W1", "H12")
	require.NoError(t, w.AdvanceTime(6))

	require.NoError(t, w.Epistemic().ClaimAction("a1", "measure_viability", 1.0, nil, 0.5, w.NowH()))
	_, err := w.Measure("W1", "a1", w.NowH())
	require.NoError(t, err)
}

// Once accumulated debt exceeds the configured cap, unclaimed measurements
// are refused even though claimed ones still go through.
func TestMeasureRefusesUnclaimedOnceDebtExceedsCap(t *testing.T) {
	cfg := testConfig(1)
	cfg.Epistemic.MeasurementDebtCapBits = 1.0
	w := New(cfg, nil)
	seedAndFlush(t, w, "W1", "H12")
	require.NoError(t, w.AdvanceTime(6))

	require.NoError(t, w.Epistemic().ClaimAction("overclaim", "measure_viability", 5.0, nil, 5.0, w.NowH()))
	require.NoError(t, w.Epistemic().ResolveAction("overclaim", 0.0, epistemic.SourceNarrowing))
	require.Greater(t, w.Epistemic().DebtBits(), 1.0)

	_, err := w.Measure("W1", "", w.NowH())
	require.Error(t, err)
	var refusal *bvmerr.RefusalError
	require.ErrorAs(t, err, &refusal)
	assert.Equal(t, "debt_quota_exceeded", refusal.Detail.ViolationCode)

	require.NoError(t, w.Epistemic().ClaimAction("a2", "measure_viability", 1.0, nil, 0.5, w.NowH()))
	_, err = w.Measure("W1", "a2", w.NowH())
	require.NoError(t, err)
}

// A dt beyond the death-sensitive bound is recorded as a non-fatal
// discretization warning rather than aborting the run.
func TestAdvanceTimeRecordsDiscretizationWarningForLargeDt(t *testing.T) {
	w := New(testConfig(1), nil)
	seedAndFlush(t, w, "W1", "H12")

	require.NoError(t, w.AdvanceTime(6))
	assert.Empty(t, w.Warnings())

	require.NoError(t, w.AdvanceTime(48))
	require.Len(t, w.Warnings(), 1)
	assert.Equal(t, "W1", w.Warnings()[0].VesselID)
	assert.Equal(t, w.Health().Warnings, len(w.Warnings()))
}

// The installed RNG guard actually rejects a biology-role caller reaching
// into rng_assay, not just in a dedicated registry unit test but against
// the real guard world.New wires in.
func TestWorldInstallsRNGGuard(t *testing.T) {
	w := New(testConfig(1), nil)
	_, err := w.rngRegistry.GuardedStream(rng.StreamBiology, rng.StreamAssay)
	require.Error(t, err)
	_, err = w.rngRegistry.GuardedStream(rng.StreamAssay, rng.StreamAssay)
	require.NoError(t, err)
}
