package eventlog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEvent(id int64, vesselID string, tH float64) Event {
	return Event{
		EventID:        id,
		ScheduledTimeH: tH,
		Priority:       KindSeedVessel.Priority(),
		Payload: SeedVesselPayload{
			VesselID:        vesselID,
			Position:        "A1",
			CellLine:        "A",
			InitialCells:    3000,
			InitialVolumeUL: 50,
			InitialNutrientsMM: map[string]float64{
				"glucose": 25,
			},
		},
	}
}

func TestAppendAssignsCommitIndex(t *testing.T) {
	l := New()
	e1, err := l.Append(seedEvent(1, "W1", 0))
	require.NoError(t, err)
	assert.EqualValues(t, 0, e1.CommitIndex)

	e2, err := l.Append(seedEvent(2, "W2", 0))
	require.NoError(t, err)
	assert.EqualValues(t, 1, e2.CommitIndex)
	assert.Equal(t, 2, l.Len())
}

func TestAppendRejectsSchemaViolation(t *testing.T) {
	l := New()
	bad := seedEvent(1, "", 0) // empty vessel ID
	_, err := l.Append(bad)
	require.Error(t, err)
	assert.Equal(t, 0, l.Len(), "rejected event must not be appended")
}

func TestAppendRejectsWrongPriority(t *testing.T) {
	l := New()
	e := seedEvent(1, "W1", 0)
	e.Priority = 99
	_, err := l.Append(e)
	require.Error(t, err)
}

func TestIterIsOrderedAndRestartable(t *testing.T) {
	l := New()
	_, _ = l.Append(seedEvent(1, "W1", 0))
	_, _ = l.Append(seedEvent(2, "W2", 1))

	var first []string
	for e := range l.Iter() {
		first = append(first, e.Payload.(SeedVesselPayload).VesselID)
	}
	var second []string
	for e := range l.Iter() {
		second = append(second, e.Payload.(SeedVesselPayload).VesselID)
	}
	assert.Equal(t, []string{"W1", "W2"}, first)
	assert.Equal(t, first, second)
}

func TestHashPrefixDeterministic(t *testing.T) {
	l1 := New()
	l2 := New()
	for i := int64(1); i <= 5; i++ {
		e := seedEvent(i, "W", float64(i))
		_, err := l1.Append(e)
		require.NoError(t, err)
		_, err = l2.Append(e)
		require.NoError(t, err)
	}
	h1, err := l1.HashPrefix(3)
	require.NoError(t, err)
	h2, err := l2.HashPrefix(3)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	h3, err := l1.HashPrefix(4)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestDumpLoadRoundTrip(t *testing.T) {
	l := New()
	_, _ = l.Append(seedEvent(1, "W1", 0))
	treat := Event{
		EventID:        2,
		ScheduledTimeH: 24,
		Priority:       KindTreatCompound.Priority(),
		Payload: TreatCompoundPayload{
			VesselID:   "W1",
			CompoundID: "X",
			DoseUM:     10,
		},
		Metadata: map[string]any{"operator": "alice"},
	}
	_, err := l.Append(treat)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, l.Dump(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	require.Equal(t, l.Len(), loaded.Len())

	orig, _ := l.At(1)
	got, _ := loaded.At(1)
	assert.Equal(t, orig.Payload, got.Payload)
	assert.Equal(t, orig.Metadata, got.Metadata)
}

func TestUnmarshalRejectsUnknownTopLevelField(t *testing.T) {
	raw := []byte(`{"event_id":1,"type":"SEED_VESSEL","scheduled_time_h":0,"priority":0,"payload":{},"commit_index":0,"bogus":true}`)
	var e Event
	err := e.UnmarshalJSON(raw)
	assert.Error(t, err)
}

func TestUnmarshalRejectsUnknownPayloadField(t *testing.T) {
	raw := []byte(`{"event_id":1,"type":"TREAT_COMPOUND","scheduled_time_h":0,"priority":30,"payload":{"vessel_id":"W1","compound_id":"X","dose_uM":1,"bogus":true},"commit_index":0}`)
	var e Event
	err := e.UnmarshalJSON(raw)
	assert.Error(t, err)
}

func TestWashoutAllSentinel(t *testing.T) {
	e := Event{
		EventID:        1,
		ScheduledTimeH: 0,
		Priority:       KindWashoutCompound.Priority(),
		Payload:        WashoutCompoundPayload{VesselID: "W1", CompoundID: WashoutAll},
	}
	assert.NoError(t, e.Validate())
}
