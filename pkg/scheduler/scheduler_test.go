package scheduler

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellvm/biovm/pkg/eventlog"
)

func treat(vesselID, compoundID string) eventlog.Payload {
	return eventlog.TreatCompoundPayload{VesselID: vesselID, CompoundID: compoundID, DoseUM: 1}
}

func washout(vesselID, compoundID string) eventlog.Payload {
	return eventlog.WashoutCompoundPayload{VesselID: vesselID, CompoundID: compoundID}
}

func TestFlushDueReleasesOnlyDueIntents(t *testing.T) {
	s := New()
	_, err := s.SubmitIntent(treat("W1", "X"), 5.0, nil)
	require.NoError(t, err)
	_, err = s.SubmitIntent(treat("W1", "Y"), 10.0, nil)
	require.NoError(t, err)

	due := s.FlushDue(5.0)
	require.Len(t, due, 1)
	assert.Equal(t, 1, s.Pending())

	due = s.FlushDue(10.0)
	require.Len(t, due, 1)
	assert.Equal(t, 0, s.Pending())
}

// WASHOUT (priority 10) must fire before TREAT (priority 30) scheduled at
// the same boundary, regardless of submission order (spec §8 scenario 3).
func TestWashoutBeforeTreatAtSameBoundary(t *testing.T) {
	s := New()
	_, err := s.SubmitIntent(treat("W1", "X"), 1.0, nil)
	require.NoError(t, err)
	_, err = s.SubmitIntent(washout("W1", "X"), 1.0, nil)
	require.NoError(t, err)

	due := s.FlushDue(1.0)
	require.Len(t, due, 2)
	assert.Equal(t, eventlog.KindWashoutCompound, due[0].Kind())
	assert.Equal(t, eventlog.KindTreatCompound, due[1].Kind())
}

func TestOrderInvarianceAcrossRandomizedSubmissionOrders(t *testing.T) {
	type spec struct {
		payload eventlog.Payload
		timeH   float64
	}
	base := []spec{
		{treat("W1", "A"), 2.0},
		{washout("W1", "A"), 2.0},
		{treat("W1", "B"), 1.0},
		{washout("W2", "A"), 2.0},
		{treat("W2", "B"), 2.0},
	}

	var reference []eventlog.Kind
	rng := rand.New(rand.NewPCG(42, 7))

	for run := 0; run < 10; run++ {
		order := rng.Perm(len(base))
		s := New()
		for _, idx := range order {
			sp := base[idx]
			_, err := s.SubmitIntent(sp.payload, sp.timeH, nil)
			require.NoError(t, err)
		}
		due := s.FlushDue(2.0)
		kinds := make([]eventlog.Kind, len(due))
		for i, e := range due {
			kinds[i] = e.Kind()
		}
		if reference == nil {
			reference = kinds
		} else {
			assert.Equal(t, reference, kinds, "run %d: flush order depended on submission order", run)
		}
	}
}

func TestSubmitRejectsNilPayload(t *testing.T) {
	s := New()
	_, err := s.SubmitIntent(nil, 0, nil)
	assert.Error(t, err)
}

func TestSubmitRejectsNegativeScheduledTime(t *testing.T) {
	s := New()
	_, err := s.SubmitIntent(treat("W1", "X"), -1, nil)
	assert.Error(t, err)
}

func TestBeginStepTwiceWithoutCommitPanics(t *testing.T) {
	s := New()
	s.BeginStep()
	defer s.CommitStep()
	assert.Panics(t, func() { s.BeginStep() })
}

func TestCommitStepWithoutBeginPanics(t *testing.T) {
	s := New()
	assert.Panics(t, func() { s.CommitStep() })
}

func TestGuardAgainstOpenStepRefusesWhileOpen(t *testing.T) {
	s := New()
	assert.NoError(t, s.GuardAgainstOpenStep("test"))
	s.BeginStep()
	assert.Error(t, s.GuardAgainstOpenStep("test"))
	s.CommitStep()
	assert.NoError(t, s.GuardAgainstOpenStep("test"))
}
