// Package eventlog defines the typed operation events of the biological
// virtual machine and the append-only, replayable log they accumulate in.
//
// Event kinds are a closed tagged union — spec §9 is explicit that kinds
// are "sum types, not inheritance". A Go interface plus a string
// discriminator plays that role here: Payload is only ever one of the four
// concrete payload types, and Log never needs to know about any fifth kind.
package eventlog

import (
	"fmt"

	"github.com/cellvm/biovm/pkg/bvmerr"
)

// Kind is the closed set of event kinds the spine and scheduler recognize.
type Kind string

const (
	KindSeedVessel      Kind = "SEED_VESSEL"
	KindTreatCompound    Kind = "TREAT_COMPOUND"
	KindFeedVessel       Kind = "FEED_VESSEL"
	KindWashoutCompound  Kind = "WASHOUT_COMPOUND"
)

// Priority implements the fixed scheduling policy of spec §4.4: ascending
// priority breaks ties at equal scheduled_time_h, SEED first and TREAT last
// so a WASHOUT at the same instant as a TREAT is applied before it.
func (k Kind) Priority() int {
	switch k {
	case KindSeedVessel:
		return 0
	case KindWashoutCompound:
		return 10
	case KindFeedVessel:
		return 20
	case KindTreatCompound:
		return 30
	default:
		return 1 << 30 // unknown kinds sort last; Validate rejects them before they reach here
	}
}

// WashoutAll is the sentinel compound ID meaning "washout every compound in
// the vessel" for a WASHOUT_COMPOUND event.
const WashoutAll = "ALL"

// Payload is the closed set of event payload shapes. Each concrete type
// below implements it; no other type may.
type Payload interface {
	Kind() Kind
	Validate() error
	isPayload()
}

// SeedVesselPayload seeds a new vessel.
type SeedVesselPayload struct {
	VesselID          string             `json:"vessel_id"`
	Position          string             `json:"position"`
	CellLine          string             `json:"cell_line"`
	InitialCells      float64            `json:"initial_cells"`
	InitialVolumeUL   float64            `json:"initial_volume_uL"`
	InitialNutrientsMM map[string]float64 `json:"initial_nutrients_mM"`
}

func (SeedVesselPayload) Kind() Kind { return KindSeedVessel }
func (SeedVesselPayload) isPayload() {}

func (p SeedVesselPayload) Validate() error {
	switch {
	case p.VesselID == "":
		return &bvmerr.SchemaError{EventKind: string(KindSeedVessel), Field: "vessel_id", Reason: "must not be empty"}
	case p.CellLine == "":
		return &bvmerr.SchemaError{EventKind: string(KindSeedVessel), Field: "cell_line", Reason: "must not be empty"}
	case p.InitialCells < 0:
		return &bvmerr.SchemaError{EventKind: string(KindSeedVessel), Field: "initial_cells", Reason: "must be non-negative"}
	case p.InitialVolumeUL <= 0:
		return &bvmerr.SchemaError{EventKind: string(KindSeedVessel), Field: "initial_volume_uL", Reason: "must be positive"}
	}
	for nutrient, v := range p.InitialNutrientsMM {
		if v < 0 {
			return &bvmerr.SchemaError{EventKind: string(KindSeedVessel), Field: "initial_nutrients_mM[" + nutrient + "]", Reason: "must be non-negative"}
		}
	}
	return nil
}

// TreatCompoundPayload sets a compound's concentration to dose_uM — no
// implicit dilution math at v1 (spec §3).
type TreatCompoundPayload struct {
	VesselID   string  `json:"vessel_id"`
	CompoundID string  `json:"compound_id"`
	DoseUM     float64 `json:"dose_uM"`
}

func (TreatCompoundPayload) Kind() Kind { return KindTreatCompound }
func (TreatCompoundPayload) isPayload() {}

func (p TreatCompoundPayload) Validate() error {
	switch {
	case p.VesselID == "":
		return &bvmerr.SchemaError{EventKind: string(KindTreatCompound), Field: "vessel_id", Reason: "must not be empty"}
	case p.CompoundID == "":
		return &bvmerr.SchemaError{EventKind: string(KindTreatCompound), Field: "compound_id", Reason: "must not be empty"}
	case p.DoseUM < 0:
		return &bvmerr.SchemaError{EventKind: string(KindTreatCompound), Field: "dose_uM", Reason: "must be non-negative"}
	}
	return nil
}

// FeedVesselPayload resets nutrient concentrations; it does not touch
// compounds at v1 (spec §3, §9 Open Questions).
type FeedVesselPayload struct {
	VesselID     string             `json:"vessel_id"`
	NutrientsMM  map[string]float64 `json:"nutrients_mM"`
}

func (FeedVesselPayload) Kind() Kind { return KindFeedVessel }
func (FeedVesselPayload) isPayload() {}

func (p FeedVesselPayload) Validate() error {
	if p.VesselID == "" {
		return &bvmerr.SchemaError{EventKind: string(KindFeedVessel), Field: "vessel_id", Reason: "must not be empty"}
	}
	for nutrient, v := range p.NutrientsMM {
		if v < 0 {
			return &bvmerr.SchemaError{EventKind: string(KindFeedVessel), Field: "nutrients_mM[" + nutrient + "]", Reason: "must be non-negative"}
		}
	}
	return nil
}

// WashoutCompoundPayload hard-clamps a compound's concentration to zero, or
// every compound's if CompoundID is WashoutAll.
type WashoutCompoundPayload struct {
	VesselID   string `json:"vessel_id"`
	CompoundID string `json:"compound_id"`
}

func (WashoutCompoundPayload) Kind() Kind { return KindWashoutCompound }
func (WashoutCompoundPayload) isPayload() {}

func (p WashoutCompoundPayload) Validate() error {
	switch {
	case p.VesselID == "":
		return &bvmerr.SchemaError{EventKind: string(KindWashoutCompound), Field: "vessel_id", Reason: "must not be empty"}
	case p.CompoundID == "":
		return &bvmerr.SchemaError{EventKind: string(KindWashoutCompound), Field: "compound_id", Reason: "must not be empty"}
	}
	return nil
}

// Event is an immutable, totally ordered operation. EventID is assigned
// monotonically by whatever submits it (the scheduler); CommitIndex is
// assigned by the Log at append time and is the log's own total order.
type Event struct {
	EventID        int64          `json:"event_id"`
	ScheduledTimeH float64        `json:"scheduled_time_h"`
	Priority       int            `json:"priority"`
	Payload        Payload        `json:"payload"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CommitIndex    int64          `json:"commit_index"`
}

// Kind returns the event's kind, delegating to its payload.
func (e Event) Kind() Kind { return e.Payload.Kind() }

// Validate checks the event's shape and field ranges. It does not check
// scheduling invariants (those belong to the scheduler) or spine state
// (those belong to InjectionManager.apply).
func (e Event) Validate() error {
	if e.Payload == nil {
		return &bvmerr.SchemaError{Reason: "missing payload"}
	}
	if e.ScheduledTimeH < 0 {
		return &bvmerr.SchemaError{EventKind: string(e.Payload.Kind()), Field: "scheduled_time_h", Reason: "must be non-negative"}
	}
	if e.Priority != e.Payload.Kind().Priority() {
		return &bvmerr.SchemaError{
			EventKind: string(e.Payload.Kind()),
			Field:     "priority",
			Reason:    fmt.Sprintf("must equal the fixed policy value %d for %s, got %d", e.Payload.Kind().Priority(), e.Payload.Kind(), e.Priority),
		}
	}
	return e.Payload.Validate()
}
