// Package bvmconfig loads biology parameter files: YAML documents that
// override the built-in cell-line, seeding, noise, evaporation, and
// epistemic defaults consulted by pkg/vessel, pkg/assay, pkg/spine, and
// pkg/epistemic (spec §9 Design Notes' "configurable biology parameters").
// This is not the agent-facing experiment-design format the core's
// Non-goals exclude — it is the parameter file the biology subsystems
// themselves read at startup.
package bvmconfig

// Document is the complete biology parameter file. Every top-level key is
// optional; unset sections fall back to built-in defaults. Unknown fields
// are rejected at decode time (see loader.go).
type Document struct {
	CellLines           map[string]CellLineYAML `yaml:"cell_lines"`
	Seeding             map[string]SeedingYAML  `yaml:"seeding"`
	Noise               *NoiseYAML              `yaml:"noise"`
	Evaporation         *EvaporationYAML        `yaml:"evaporation"`
	AttritionThresholdH *float64                `yaml:"attrition_threshold_h"`
	ContactPressure     *ContactPressureYAML    `yaml:"contact_pressure"`
	Epistemic           *EpistemicYAML          `yaml:"epistemic"`
	Starvation          *StarvationYAML         `yaml:"starvation"`
	StressKinetics      *StressKineticsYAML     `yaml:"stress_kinetics"`
	Osmotic             *OsmoticYAML            `yaml:"osmotic"`
	Contamination       *ContaminationYAML      `yaml:"contamination"`
	BiologyNoise        *BiologyNoiseYAML       `yaml:"biology_noise"`
	Treatment           *TreatmentYAML          `yaml:"treatment"`
}

// OsmoticYAML mirrors the osmotic-stress hazard half of vessel.Config (spec
// §4.5 step 1's "osmotic stress" death cause).
type OsmoticYAML struct {
	VolumeLossThreshold *float64 `yaml:"volume_loss_threshold"`
	HazardPerH          *float64 `yaml:"hazard_per_h"`
}

// ContaminationYAML mirrors the rare discrete contamination event (spec
// §4.5 step 1's "contamination if enabled").
type ContaminationYAML struct {
	Enabled         *bool    `yaml:"enabled"`
	ProbabilityPerH *float64 `yaml:"probability_per_h"`
	HazardPerH      *float64 `yaml:"hazard_per_h"`
}

// BiologyNoiseYAML mirrors the per-vessel rng_biology trait sigmas (spec
// §4.1: "rng_biology — growth, stress, hazard stochasticity").
type BiologyNoiseYAML struct {
	GrowthNoiseSigma *float64 `yaml:"growth_noise_sigma"`
	HazardNoiseSigma *float64 `yaml:"hazard_noise_sigma"`
}

// StarvationYAML mirrors the starvation-hazard half of vessel.Config. Not
// named explicitly among spec §9's "at minimum" options, but the vessel
// biology step needs these two values and they are configurable biology
// parameters by the same rationale as attrition_threshold_h.
type StarvationYAML struct {
	NutrientFloorMM *float64 `yaml:"nutrient_floor_mm"`
	HazardPerH      *float64 `yaml:"hazard_per_h"`
}

// StressKineticsYAML mirrors the dS/dt rate constants on vessel.Config, plus
// the consecutive-violation streak that escalates a persistently out-of-
// range latent to a fatal invariant violation (spec §4.5's failure mode).
type StressKineticsYAML struct {
	UpRatePerH      *float64 `yaml:"up_rate_per_h"`
	DownRatePerH    *float64 `yaml:"down_rate_per_h"`
	ViolationStreak *int     `yaml:"violation_streak"`
}

// TreatmentYAML mirrors the rng_treatment commitment-delay bound (spec
// §4.1: "rng_treatment — per-vessel commitment-delay samples").
type TreatmentYAML struct {
	CommitmentDelayMaxH *float64 `yaml:"commitment_delay_max_h"`
}

// CellLineYAML mirrors vessel.CellLineParams for YAML decoding.
type CellLineYAML struct {
	IntrinsicGrowthPerH     float64            `yaml:"intrinsic_growth_per_h"`
	LagPhaseH               float64            `yaml:"lag_phase_h"`
	CompoundIC50UM          map[string]float64 `yaml:"compound_ic50_um"`
	CompoundHillSlope       map[string]float64 `yaml:"compound_hill_slope"`
	MaxHazardPerCompoundPerH float64           `yaml:"max_hazard_per_compound_per_h"`
}

// SeedingYAML names a reusable seed-event template keyed by vessel type and
// cell line (spec §9: "seeding (per vessel type and cell line)").
type SeedingYAML struct {
	CellLine            string             `yaml:"cell_line"`
	InitialCells        float64            `yaml:"initial_cells"`
	InitialVolumeUL     float64            `yaml:"initial_volume_ul"`
	InitialNutrientsMM  map[string]float64 `yaml:"initial_nutrients_mm"`
	VesselCapacityCells float64            `yaml:"vessel_capacity_cells"`
}

// ChannelYAML mirrors assay.ChannelConfig.
type ChannelYAML struct {
	BaselineMean               float64 `yaml:"baseline_mean"`
	ViabilityFloor             float64 `yaml:"viability_floor"`
	AcuteStressCoefficient     float64 `yaml:"acute_stress_coefficient"`
	ChronicLatentCoefficient   float64 `yaml:"chronic_latent_coefficient"`
	ContactPressureCoefficient float64 `yaml:"contact_pressure_coefficient"`
	TechnicalCV                float64 `yaml:"technical_cv"`
}

// NoiseYAML mirrors assay.Config (spec §9: "noise (biological CV, technical
// CVs, well-failure rates and their characteristic effects)").
type NoiseYAML struct {
	Channels                  map[string]ChannelYAML `yaml:"channels"`
	BiologicalCV              *float64               `yaml:"biological_cv"`
	EdgeWellPenalty           *float64               `yaml:"edge_well_penalty"`
	PlatingTransientHalfLifeH *float64               `yaml:"plating_transient_half_life_h"`
	PlatingTransientMaxCV     *float64               `yaml:"plating_transient_max_cv"`
	WellFailureProbability    *float64               `yaml:"well_failure_probability"`
	CytotoxBaseline           *float64               `yaml:"cytotox_baseline"`
	SegmentationQualityFloor  *float64               `yaml:"segmentation_quality_floor"`
	SegmentationDropQualityThreshold *float64        `yaml:"segmentation_drop_quality_threshold"`
	StructuredArtifacts       *bool                  `yaml:"structured_artifacts"`
}

// EvaporationYAML mirrors spine.EvaporationConfig (spec §9: "evaporation
// (interior/edge rates, min-volume multiplier)").
type EvaporationYAML struct {
	InteriorRatePerH    *float64 `yaml:"interior_rate_per_h"`
	EdgeMultiplier      *float64 `yaml:"edge_multiplier"`
	MinVolumeMultiplier *float64 `yaml:"min_volume_multiplier"`
	PlateRows           *int     `yaml:"plate_rows"`
	PlateCols           *int     `yaml:"plate_cols"`
}

// ContactPressureYAML mirrors the sigmoid parameters on vessel.Config (spec
// §9: "contact_pressure (sigmoid midpoint, width)").
type ContactPressureYAML struct {
	Midpoint      *float64 `yaml:"midpoint"`
	Width         *float64 `yaml:"width"`
	TauH          *float64 `yaml:"tau_h"`
	DrivesBiology *bool    `yaml:"drives_biology"`
}

// EpistemicYAML mirrors epistemic.Config (spec §9: "epistemic (debt
// coefficient alpha, base inflation rate, penalty weights, baseline entropy
// default)").
type EpistemicYAML struct {
	Alpha                  *float64 `yaml:"alpha"`
	PenaltyWeight          *float64 `yaml:"penalty_weight"`
	BaselineEntropy        *float64 `yaml:"baseline_entropy"`
	MeasurementDebtCapBits *float64 `yaml:"measurement_debt_cap_bits"`
}
