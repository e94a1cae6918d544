package epistemic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario 5: claim 0.5 bits three times, realize 0.3 each. After the
// third resolution, debt_bits = 0.6 and get_inflated_cost(100) = 106 with
// alpha = 0.1.
func TestEpistemicDebtInflationScenario(t *testing.T) {
	c := NewController(DefaultConfig())

	for i := 0; i < 3; i++ {
		actionID := actionIDFor(i)
		require.NoError(t, c.ClaimAction(actionID, "measure", 0.5, nil, 0.5, float64(i)))
		require.NoError(t, c.ResolveAction(actionID, 0.3, SourceNarrowing))
	}

	assert.InDelta(t, 0.6, c.DebtBits(), 1e-9)
	assert.InDelta(t, 106.0, c.GetInflatedCost(100), 1e-9)
}

func actionIDFor(i int) string {
	return []string{"a0", "a1", "a2"}[i]
}

func TestAsymmetryUnderclaimsNeverReduceDebt(t *testing.T) {
	c := NewController(DefaultConfig())

	require.NoError(t, c.ClaimAction("over", "measure", 1, nil, 1.0, 0))
	require.NoError(t, c.ResolveAction("over", 0.2, SourceNarrowing))
	afterOverclaim := c.DebtBits()
	assert.Greater(t, afterOverclaim, 0.0)

	// Now underclaim repeatedly: realized always exceeds claimed.
	for i := 0; i < 5; i++ {
		id := "under" + actionIDFor(i%3) + actionIDFor(i/3)
		require.NoError(t, c.ClaimAction(id, "measure", 0.1, nil, 0.1, float64(i)))
		require.NoError(t, c.ResolveAction(id, 5.0, SourceNarrowing))
	}
	assert.Equal(t, afterOverclaim, c.DebtBits())
}

func TestPriorSourceNeverContributesToDebt(t *testing.T) {
	c := NewController(DefaultConfig())
	require.NoError(t, c.ClaimAction("explore", "measure", 2, nil, 2.0, 0))
	require.NoError(t, c.ResolveAction("explore", 0.0, SourcePrior))
	assert.Zero(t, c.DebtBits())
}

func TestContradictorySourcePenalizedAtOnePointFive(t *testing.T) {
	c := NewController(DefaultConfig())
	raw, err := c.MeasureInformationGain(2.0, 1.0, SourceNarrowing)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, raw, 1e-9)

	penalized, err := c.MeasureInformationGain(2.0, 1.0, SourceContradictory)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, penalized, 1e-9)
}

func TestMeasureInformationGainRejectsNegativeEntropy(t *testing.T) {
	c := NewController(DefaultConfig())
	_, err := c.MeasureInformationGain(-1, 0, SourceNarrowing)
	assert.Error(t, err)
}

func TestResolveUnknownActionIDErrors(t *testing.T) {
	c := NewController(DefaultConfig())
	err := c.ResolveAction("ghost", 0, SourceNarrowing)
	assert.Error(t, err)
}

func TestDuplicateClaimRejected(t *testing.T) {
	c := NewController(DefaultConfig())
	require.NoError(t, c.ClaimAction("a", "measure", 1, nil, 1, 0))
	err := c.ClaimAction("a", "measure", 1, nil, 1, 0)
	assert.Error(t, err)
}

func TestProvisionalPenaltyRefundsOnEntropyCollapse(t *testing.T) {
	c := NewController(DefaultConfig())
	_, err := c.MeasureInformationGain(3.0, 3.0, SourceNarrowing) // sets lastPosteriorEntropy = 3.0
	require.NoError(t, err)
	require.NoError(t, c.AddProvisionalPenalty("a", 10, 2, 0))

	// Entropy collapses back toward baseline before the horizon expires.
	_, err = c.MeasureInformationGain(3.0, 0.5, SourceNarrowing)
	require.NoError(t, err)

	finalized := c.StepProvisional(2)
	assert.Empty(t, finalized, "collapsed entropy should refund, not finalize")
}

func TestProvisionalPenaltyFinalizesWithoutCollapse(t *testing.T) {
	c := NewController(DefaultConfig())
	_, err := c.MeasureInformationGain(3.0, 3.0, SourceNarrowing)
	require.NoError(t, err)
	require.NoError(t, c.AddProvisionalPenalty("a", 10, 2, 0))

	finalized := c.StepProvisional(2)
	require.Len(t, finalized, 1)
	assert.Equal(t, "a", finalized[0].ActionID)
	assert.Equal(t, 10.0, finalized[0].Amount)
}

func TestDeterministicGivenIdenticalInputs(t *testing.T) {
	c1 := NewController(DefaultConfig())
	c2 := NewController(DefaultConfig())

	for _, c := range []*Controller{c1, c2} {
		require.NoError(t, c.ClaimAction("x", "measure", 1, []string{"morphology"}, 0.8, 0))
		require.NoError(t, c.ResolveAction("x", 0.2, SourceNarrowing))
	}
	assert.Equal(t, c1.DebtBits(), c2.DebtBits())
	assert.Equal(t, c1.GetInflatedCost(50), c2.GetInflatedCost(50))
}
