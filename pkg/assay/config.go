// Package assay implements Measurement: pure, read-only observation
// producers that consume vessel and spine state plus the rng_assay stream
// and mutate nothing. Every invocation is observer-independent — running it
// zero, one, or many times against the same vessel state, with the same
// rng_assay advance, never changes the vessel's trajectory.
package assay

// ChannelConfig parameterizes one morphology channel's noise model.
type ChannelConfig struct {
	BaselineMean float64
	// ViabilityFloor is the per-channel floor fraction that prevents the
	// assay from acting as a perfect viability oracle (spec §4.6 step 4):
	// signal *= floor + (1-floor)*viability.
	ViabilityFloor float64
	// AcuteStressCoefficient scales channel shift per unit of the dominant
	// acute stress axis.
	AcuteStressCoefficient float64
	// ChronicLatentCoefficient scales channel shift per unit of
	// accumulated chronic latent (here: the same stress latents, read as a
	// slower-moving signal — v1 does not split acute/chronic state).
	ChronicLatentCoefficient float64
	// ContactPressureCoefficient is the nuisance shift per unit contact
	// pressure (e.g. +10% actin per unit delta-p, spec §4.5's "nuisance
	// feedback").
	ContactPressureCoefficient float64
	// TechnicalCV is the per-channel, per-well lognormal noise coefficient
	// of variation.
	TechnicalCV float64
}

// Config bundles the noise model parameters for one cell line / assay
// combination (spec §9's "noise" option: biological CV, technical CVs,
// well-failure rates and characteristic effects).
type Config struct {
	Channels map[string]ChannelConfig

	// BiologicalCV is the well-to-well CV applied before channel-specific
	// technical noise, representing genuine biological variability.
	BiologicalCV float64

	// EdgeWellPenalty multiplies signal down for edge wells (illumination
	// and evaporation confounds).
	EdgeWellPenalty float64

	// PlatingTransientHalfLifeH and PlatingTransientMaxCV parameterize the
	// post-dissociation transient: CV boost that decays with time since
	// seeding.
	PlatingTransientHalfLifeH float64
	PlatingTransientMaxCV     float64

	// WellFailureProbability is the per-well chance of a rare failure mode
	// (bubble, contamination, focus failure, pipetting miss) each time the
	// vessel is measured.
	WellFailureProbability float64

	// CytotoxBaseline is the LDH-like assay's baseline signal at full
	// death (viability=0).
	CytotoxBaseline float64

	// SegmentationQualityFloor bounds how low a quality score can drag
	// reported cell count via merge/split distortion.
	SegmentationQualityFloor float64

	// SegmentationDropQualityThreshold is the raw, pre-floor segmentation
	// quality below which a well's imaging readout is dropped via QC
	// rather than reported with a floored-but-misleading quality score
	// (spec §4.6 layer 8: segmentation distortion "may drop wells via
	// QC"). It sits below SegmentationQualityFloor so the drop condition
	// can actually fire on the same raw-quality draw the floor clamps.
	SegmentationDropQualityThreshold float64

	// StructuredArtifacts opts into the richer imaging_artifacts record
	// (spec §4.6's "Structured artifacts" opt-in). When false, output is
	// the plain scalar-artifact record.
	StructuredArtifacts bool
}

// DefaultConfig returns parameters producing a plausible, bounded
// Cell-Painting-style readout.
func DefaultConfig() Config {
	return Config{
		Channels: map[string]ChannelConfig{
			"actin": {
				BaselineMean:               1000,
				ViabilityFloor:             0.15,
				AcuteStressCoefficient:     200,
				ChronicLatentCoefficient:   80,
				ContactPressureCoefficient: 0.10,
				TechnicalCV:                0.08,
			},
			"dna": {
				BaselineMean:               800,
				ViabilityFloor:             0.20,
				AcuteStressCoefficient:     120,
				ChronicLatentCoefficient:   50,
				ContactPressureCoefficient: 0.05,
				TechnicalCV:                0.06,
			},
			"mito": {
				BaselineMean:               600,
				ViabilityFloor:             0.10,
				AcuteStressCoefficient:     250,
				ChronicLatentCoefficient:   100,
				ContactPressureCoefficient: 0.03,
				TechnicalCV:                0.10,
			},
		},
		BiologicalCV:              0.12,
		EdgeWellPenalty:           0.92,
		PlatingTransientHalfLifeH: 8,
		PlatingTransientMaxCV:     0.25,
		WellFailureProbability:    0.01,
		CytotoxBaseline:                  1.0,
		SegmentationQualityFloor:         0.3,
		SegmentationDropQualityThreshold: 0.05,
		StructuredArtifacts:              false,
	}
}
