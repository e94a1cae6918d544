package assay

// WellFailureMode is a closed tag for a rare, characteristic well-level
// failure (spec §4.6 layer 7).
type WellFailureMode string

const (
	FailureNone          WellFailureMode = ""
	FailureBubble        WellFailureMode = "bubble"
	FailureContamination WellFailureMode = "contamination"
	FailureFocusFailure  WellFailureMode = "focus_failure"
	FailurePipettingMiss WellFailureMode = "pipetting_miss"
)

// ImagingArtifacts is the opt-in structured sub-record breaking out
// background, segmentation, and spatial effects (spec §4.6, GLOSSARY).
// When the producer's StructuredArtifacts flag is off, Observation.Artifacts
// is nil and the record is byte-identical to the scalar-artifact form.
type ImagingArtifacts struct {
	BackgroundMultiplier float64
	SegmentationMode     string
	SpatialFieldBias     float64
}

// TextureStats are segmentation-derived sufficient statistics about object
// morphology, distinct from the scalar cell count: mean object size, its
// well-to-well spread, and an edge-density proxy for how cleanly objects
// separate (spec §4.6 layer 8). They degrade with segmentation quality the
// same way cell count does, but independently — a well can undercount
// cells from merging while still reporting large, low-edge-density merged
// objects.
type TextureStats struct {
	MeanObjectAreaPx float64
	AreaCV           float64
	EdgeDensity      float64
}

// Observation is the canonical, flat per-vessel-per-assay record (spec §6).
// ObservationTimeH carries exactly one meaning — hours since treatment
// start when the readout is taken — and no synonym field exists at this
// boundary.
type Observation struct {
	VesselID         string
	ObservationTimeH float64

	Viability         float64
	ObservedCellCount float64

	ChannelIntensities map[string]float64
	ChannelQCFlags     map[string]bool

	SegmentationQuality float64
	Texture             TextureStats
	CytotoxSignal       float64

	// Dropped marks a well whose raw segmentation quality fell below the
	// QC drop threshold: ObservedCellCount and Texture are still populated
	// (for forensic inspection) but should not be treated as a usable
	// readout by a caller that checks this flag.
	Dropped bool

	WellFailure WellFailureMode
	Artifacts   *ImagingArtifacts
}
