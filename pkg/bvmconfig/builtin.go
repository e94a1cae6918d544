package bvmconfig

// Builtin returns the built-in biology parameter document, literally
// consistent with vessel.DefaultConfig, assay.DefaultConfig,
// spine.DefaultEvaporationConfig, and epistemic.DefaultConfig (spec §8's
// scenarios assume these exact values). Returns a fresh value on every
// call — unlike the teacher's GetBuiltinConfig singleton, nothing here
// does file I/O, so there is no cost to avoiding a shared mutable map.
func Builtin() *Document {
	ptr := func(f float64) *float64 { return &f }
	iptr := func(i int) *int { return &i }
	bptr := func(b bool) *bool { return &b }

	return &Document{
		CellLines: map[string]CellLineYAML{
			"A": {
				IntrinsicGrowthPerH:      0.029,
				LagPhaseH:                4,
				CompoundIC50UM:           map[string]float64{"X": 8},
				CompoundHillSlope:        map[string]float64{"X": 1.5},
				MaxHazardPerCompoundPerH: 0.04,
			},
		},
		Seeding: map[string]SeedingYAML{
			"384well_A": {
				CellLine:            "A",
				InitialCells:        3000,
				InitialVolumeUL:     50,
				InitialNutrientsMM:  map[string]float64{"glucose": 25},
				VesselCapacityCells: 30000,
			},
		},
		Noise: &NoiseYAML{
			Channels: map[string]ChannelYAML{
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
			BiologicalCV:              ptr(0.12),
			EdgeWellPenalty:           ptr(0.92),
			PlatingTransientHalfLifeH: ptr(8),
			PlatingTransientMaxCV:     ptr(0.25),
			WellFailureProbability:    ptr(0.01),
			CytotoxBaseline:                  ptr(1.0),
			SegmentationQualityFloor:         ptr(0.3),
			SegmentationDropQualityThreshold: ptr(0.05),
			StructuredArtifacts:              bptr(false),
		},
		Evaporation: &EvaporationYAML{
			InteriorRatePerH:    ptr(0.0015),
			EdgeMultiplier:      ptr(4.0),
			MinVolumeMultiplier: ptr(0.70),
			PlateRows:           iptr(16),
			PlateCols:           iptr(24),
		},
		AttritionThresholdH: ptr(12),
		ContactPressure: &ContactPressureYAML{
			Midpoint:      ptr(0.8),
			Width:         ptr(0.1),
			TauH:          ptr(12),
			DrivesBiology: bptr(false),
		},
		Epistemic: &EpistemicYAML{
			Alpha:                  ptr(0.1),
			PenaltyWeight:          ptr(1.0),
			BaselineEntropy:        ptr(1.0),
			MeasurementDebtCapBits: ptr(3.0),
		},
		Starvation: &StarvationYAML{
			NutrientFloorMM: ptr(2),
			HazardPerH:      ptr(0.02),
		},
		StressKinetics: &StressKineticsYAML{
			UpRatePerH:      ptr(0.15),
			DownRatePerH:    ptr(0.10),
			ViolationStreak: iptr(4),
		},
		Osmotic: &OsmoticYAML{
			VolumeLossThreshold: ptr(0.3),
			HazardPerH:          ptr(0.03),
		},
		Contamination: &ContaminationYAML{
			Enabled:         bptr(false),
			ProbabilityPerH: ptr(0.0008),
			HazardPerH:      ptr(0.05),
		},
		BiologyNoise: &BiologyNoiseYAML{
			GrowthNoiseSigma: ptr(0.03),
			HazardNoiseSigma: ptr(0.10),
		},
		Treatment: &TreatmentYAML{
			CommitmentDelayMaxH: ptr(1.0),
		},
	}
}
