package eventlog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cellvm/biovm/pkg/bvmerr"
)

// envelope is the wire shape of an Event: payload fields are flattened
// under "payload", discriminated by the sibling "type" field. This mirrors
// the teacher's discriminated-payload pattern (events.TimelineCreatedPayload
// et al., each self-tagged with a Type field) but adds a real decode path
// back into the closed Payload union, since here the log must replay.
type envelope struct {
	EventID        int64           `json:"event_id"`
	Type           Kind            `json:"type"`
	ScheduledTimeH float64         `json:"scheduled_time_h"`
	Priority       int             `json:"priority"`
	Payload        json.RawMessage `json:"payload"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
	CommitIndex    int64           `json:"commit_index"`
}

// MarshalJSON renders the event as a line-delimited record per spec §6:
// event_id, type, vessel_id (carried inside payload), scheduled_time_h,
// priority, payload, commit_index.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return nil, &bvmerr.SchemaError{Reason: "cannot marshal event with nil payload"}
	}
	payloadJSON, err := strictMarshal(e.Payload)
	if err != nil {
		return nil, err
	}
	env := envelope{
		EventID:        e.EventID,
		Type:           e.Payload.Kind(),
		ScheduledTimeH: e.ScheduledTimeH,
		Priority:       e.Priority,
		Payload:        payloadJSON,
		Metadata:       e.Metadata,
		CommitIndex:    e.CommitIndex,
	}
	return json.Marshal(env)
}

// UnmarshalJSON parses a record back into a typed Payload, rejecting both
// unknown top-level fields and unknown payload fields — "strict schemas:
// unknown fields are rejected; mismatched payload shapes fail loudly"
// (spec §4.2).
func (e *Event) UnmarshalJSON(data []byte) error {
	var env envelope
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return &bvmerr.SchemaError{Reason: fmt.Sprintf("malformed event envelope: %v", err)}
	}

	payload, err := decodePayload(env.Type, env.Payload)
	if err != nil {
		return err
	}

	e.EventID = env.EventID
	e.ScheduledTimeH = env.ScheduledTimeH
	e.Priority = env.Priority
	e.Payload = payload
	e.Metadata = env.Metadata
	e.CommitIndex = env.CommitIndex
	return nil
}

func decodePayload(kind Kind, raw json.RawMessage) (Payload, error) {
	strictDecode := func(v any) error {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return &bvmerr.SchemaError{EventKind: string(kind), Reason: fmt.Sprintf("malformed payload: %v", err)}
		}
		return nil
	}

	switch kind {
	case KindSeedVessel:
		var p SeedVesselPayload
		if err := strictDecode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case KindTreatCompound:
		var p TreatCompoundPayload
		if err := strictDecode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case KindFeedVessel:
		var p FeedVesselPayload
		if err := strictDecode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case KindWashoutCompound:
		var p WashoutCompoundPayload
		if err := strictDecode(&p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, &bvmerr.SchemaError{EventKind: string(kind), Reason: "unknown event kind"}
	}
}

func strictMarshal(p Payload) (json.RawMessage, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, &bvmerr.SchemaError{EventKind: string(p.Kind()), Reason: err.Error()}
	}
	return b, nil
}
