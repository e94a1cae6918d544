package vessel

// CellLineParams holds the per-cell-line growth and sensitivity parameters
// consulted by the biology step. One record per cell_lines entry (spec §9
// Design Notes).
type CellLineParams struct {
	// IntrinsicGrowthPerH is the unconstrained exponential growth rate.
	IntrinsicGrowthPerH float64
	// LagPhaseH is the duration over which growth ramps linearly from 0 to
	// full rate after seeding (interval-mean lag factor, never sampled at
	// endpoints).
	LagPhaseH float64
	// CompoundIC50UM and CompoundHillSlope key hazard magnitude to dose, per
	// compound ID.
	CompoundIC50UM    map[string]float64
	CompoundHillSlope map[string]float64
	// MaxHazardPerCompoundPerH bounds an individual compound's attrition hazard.
	MaxHazardPerCompoundPerH float64
}

// Config bundles every tunable the biology step consults, all rejecting
// unknown fields when loaded from YAML (see package bvmconfig).
type Config struct {
	CellLines map[string]CellLineParams

	// AttritionThresholdH is the interval-integrated gate's threshold: no
	// compound-attrition hazard accrues before this many hours since
	// treatment start (spec §4.5, §9).
	AttritionThresholdH float64

	// StarvationNutrientFloorMM is the nutrient concentration below which
	// starvation hazard turns on: a plain threshold on the lowest nutrient
	// concentration in the spine snapshot, not an interval-integrated gate.
	StarvationNutrientFloorMM float64
	StarvationHazardPerH      float64

	// OsmoticVolumeLossThreshold is the fraction of a vessel's seeded
	// volume that must already be lost to evaporation before osmotic-
	// stress hazard turns on; OsmoticHazardPerH is the flat rate applied
	// once past it (spec §4.5 step 1's "osmotic stress" death cause).
	OsmoticVolumeLossThreshold float64
	OsmoticHazardPerH          float64

	// ContaminationEnabled gates the rare discrete contamination event
	// (spec §4.5 step 1's "contamination if enabled"). When false,
	// rng_operational_events is never consumed and contamination hazard
	// never fires. ContaminationProbabilityPerH is the per-hour chance of
	// the event triggering once enabled; ContaminationHazardPerH is the
	// flat hazard applied to a vessel for the remainder of the run once it
	// has triggered.
	ContaminationEnabled         bool
	ContaminationProbabilityPerH float64
	ContaminationHazardPerH      float64

	// GrowthNoiseSigma and HazardNoiseSigma parameterize the per-vessel
	// rng_biology draw (spec §4.1: "rng_biology — growth, stress, hazard
	// stochasticity"): a lognormal multiplicative trait sampled once per
	// vessel, at its first biology step, and held fixed thereafter so the
	// dt=24h/two-dt=12h boundary equivalence (spec §8) holds exactly.
	GrowthNoiseSigma float64
	HazardNoiseSigma float64

	// StressLatentViolationStreak is the number of consecutive steps a
	// stress latent may spend pre-clamp out of [0,1] before the step
	// function escalates to a fatal invariant violation (spec §4.5's
	// failure mode: "persistent violation -> fatal").
	StressLatentViolationStreak int

	// ContactPressureMidpoint and ContactPressureWidth parameterize the
	// confluence -> contact-pressure sigmoid; ContactPressureTauH is the
	// lag time constant (spec recommends ~12h).
	ContactPressureMidpoint float64
	ContactPressureWidth    float64
	ContactPressureTauH     float64

	// StressUpRatePerH and StressDownRatePerH parameterize dS/dt = k_up *
	// p(t) - k_down * S for every axis uniformly; a future config could
	// split these per-axis, but v1 keeps one pair (no v1 scenario needs
	// per-axis kinetics).
	StressUpRatePerH   float64
	StressDownRatePerH float64

	// ContactPressureDrivesBiology gates whether contact pressure feeds
	// stress-latent integration as a driving signal, or stays confined to
	// measurement as a nuisance covariate. The source leaves this
	// unresolved (spec §9 Open Questions); this implementation defaults it
	// to false so contact pressure is a pure nuisance covariate unless a
	// caller opts in.
	ContactPressureDrivesBiology bool

	// VesselCapacityCells is the denominator for confluence = cell_count /
	// capacity, per vessel type (spec §9's "seeding" option maps vessel
	// type to capacity; flattened here to one value since the core
	// supports a single plate format, spec §4.3's 384-well default).
	VesselCapacityCells float64

	// CommitmentDelayMaxH bounds the rng_treatment (spec §4.1: "per-vessel
	// commitment-delay samples") draw: the world samples a uniform delay in
	// [0, CommitmentDelayMaxH) at TREAT_COMPOUND application time and
	// defers the compound's effective treatment-start time by it,
	// representing pipetting/diffusion lag between dosing and the dose
	// actually taking hold. Zero disables the delay (treatment starts
	// exactly at event application, as before this stream was wired in).
	CommitmentDelayMaxH float64
}

// DefaultConfig returns literal defaults consistent with the scenario in
// spec §8 (384-well plate, cell line "A" treated with compound "X" at a
// dose producing a bounded, non-degenerate trajectory over 48h).
func DefaultConfig() Config {
	return Config{
		CellLines: map[string]CellLineParams{
			"A": {
				IntrinsicGrowthPerH: 0.029, // ~ln(2)/24h doubling time
				LagPhaseH:           4,
				CompoundIC50UM:      map[string]float64{"X": 8},
				CompoundHillSlope:   map[string]float64{"X": 1.5},
				MaxHazardPerCompoundPerH: 0.04,
			},
		},
		AttritionThresholdH:          12,
		StarvationNutrientFloorMM:    2,
		StarvationHazardPerH:         0.02,
		OsmoticVolumeLossThreshold:   0.3,
		OsmoticHazardPerH:            0.03,
		ContaminationEnabled:         false,
		ContaminationProbabilityPerH: 0.0008,
		ContaminationHazardPerH:      0.05,
		ContactPressureMidpoint:      0.8,
		ContactPressureWidth:         0.1,
		ContactPressureTauH:          12,
		StressUpRatePerH:             0.15,
		StressDownRatePerH:           0.10,
		ContactPressureDrivesBiology: false,
		VesselCapacityCells:          30000,
		GrowthNoiseSigma:             0.03,
		HazardNoiseSigma:             0.10,
		StressLatentViolationStreak:  4,
		CommitmentDelayMaxH:          1.0,
	}
}
