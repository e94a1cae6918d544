package bvmconfig

import "fmt"

// validate performs fail-fast checks on a fully merged document, mirroring
// the teacher's Validator: stop at the first error, report section/name/
// field context.
func validate(doc *Document) error {
	if err := validateCellLines(doc); err != nil {
		return err
	}
	if err := validateSeeding(doc); err != nil {
		return err
	}
	if err := validateNoise(doc.Noise); err != nil {
		return err
	}
	if err := validateEvaporation(doc.Evaporation); err != nil {
		return err
	}
	if doc.AttritionThresholdH == nil || *doc.AttritionThresholdH < 0 {
		return newValidationError("root", "", "attrition_threshold_h", fmt.Errorf("must be non-negative"))
	}
	if err := validateContactPressure(doc.ContactPressure); err != nil {
		return err
	}
	if err := validateEpistemic(doc.Epistemic); err != nil {
		return err
	}
	if err := validateStarvation(doc.Starvation); err != nil {
		return err
	}
	if err := validateStressKinetics(doc.StressKinetics); err != nil {
		return err
	}
	if err := validateOsmotic(doc.Osmotic); err != nil {
		return err
	}
	if err := validateContamination(doc.Contamination); err != nil {
		return err
	}
	if err := validateBiologyNoise(doc.BiologyNoise); err != nil {
		return err
	}
	return validateTreatment(doc.Treatment)
}

func validateCellLines(doc *Document) error {
	if len(doc.CellLines) == 0 {
		return newValidationError("cell_lines", "", "", fmt.Errorf("at least one cell line required"))
	}
	for name, l := range doc.CellLines {
		if l.IntrinsicGrowthPerH <= 0 {
			return newValidationError("cell_lines", name, "intrinsic_growth_per_h", fmt.Errorf("must be positive"))
		}
		if l.LagPhaseH < 0 {
			return newValidationError("cell_lines", name, "lag_phase_h", fmt.Errorf("must be non-negative"))
		}
		if l.MaxHazardPerCompoundPerH < 0 {
			return newValidationError("cell_lines", name, "max_hazard_per_compound_per_h", fmt.Errorf("must be non-negative"))
		}
		for compound, ic50 := range l.CompoundIC50UM {
			if ic50 <= 0 {
				return newValidationError("cell_lines", name, fmt.Sprintf("compound_ic50_um[%s]", compound), fmt.Errorf("must be positive"))
			}
			if slope, ok := l.CompoundHillSlope[compound]; !ok {
				return newValidationError("cell_lines", name, fmt.Sprintf("compound_hill_slope[%s]", compound), fmt.Errorf("required when compound_ic50_um is set"))
			} else if slope <= 0 {
				return newValidationError("cell_lines", name, fmt.Sprintf("compound_hill_slope[%s]", compound), fmt.Errorf("must be positive"))
			}
		}
	}
	return nil
}

func validateSeeding(doc *Document) error {
	for name, s := range doc.Seeding {
		if s.CellLine == "" {
			return newValidationError("seeding", name, "cell_line", fmt.Errorf("required"))
		}
		if _, ok := doc.CellLines[s.CellLine]; !ok {
			return newValidationError("seeding", name, "cell_line", fmt.Errorf("cell line %q not found", s.CellLine))
		}
		if s.InitialCells < 0 {
			return newValidationError("seeding", name, "initial_cells", fmt.Errorf("must be non-negative"))
		}
		if s.InitialVolumeUL <= 0 {
			return newValidationError("seeding", name, "initial_volume_ul", fmt.Errorf("must be positive"))
		}
		if s.VesselCapacityCells <= 0 {
			return newValidationError("seeding", name, "vessel_capacity_cells", fmt.Errorf("must be positive"))
		}
	}
	return nil
}

func validateNoise(n *NoiseYAML) error {
	if n == nil {
		return newValidationError("noise", "", "", fmt.Errorf("required"))
	}
	if len(n.Channels) == 0 {
		return newValidationError("noise", "", "channels", fmt.Errorf("at least one channel required"))
	}
	for name, c := range n.Channels {
		if c.BaselineMean < 0 {
			return newValidationError("noise.channels", name, "baseline_mean", fmt.Errorf("must be non-negative"))
		}
		if c.ViabilityFloor < 0 || c.ViabilityFloor > 1 {
			return newValidationError("noise.channels", name, "viability_floor", fmt.Errorf("must be in [0,1]"))
		}
		if c.TechnicalCV < 0 {
			return newValidationError("noise.channels", name, "technical_cv", fmt.Errorf("must be non-negative"))
		}
	}
	if n.BiologicalCV == nil || *n.BiologicalCV < 0 {
		return newValidationError("noise", "", "biological_cv", fmt.Errorf("must be non-negative"))
	}
	if n.EdgeWellPenalty == nil || *n.EdgeWellPenalty <= 0 || *n.EdgeWellPenalty > 1 {
		return newValidationError("noise", "", "edge_well_penalty", fmt.Errorf("must be in (0,1]"))
	}
	if n.WellFailureProbability == nil || *n.WellFailureProbability < 0 || *n.WellFailureProbability > 1 {
		return newValidationError("noise", "", "well_failure_probability", fmt.Errorf("must be in [0,1]"))
	}
	if n.SegmentationQualityFloor == nil || *n.SegmentationQualityFloor < 0 || *n.SegmentationQualityFloor > 1 {
		return newValidationError("noise", "", "segmentation_quality_floor", fmt.Errorf("must be in [0,1]"))
	}
	if n.SegmentationDropQualityThreshold == nil || *n.SegmentationDropQualityThreshold < 0 || *n.SegmentationDropQualityThreshold > 1 {
		return newValidationError("noise", "", "segmentation_drop_quality_threshold", fmt.Errorf("must be in [0,1]"))
	}
	return nil
}

func validateEvaporation(e *EvaporationYAML) error {
	if e == nil {
		return newValidationError("evaporation", "", "", fmt.Errorf("required"))
	}
	if e.InteriorRatePerH == nil || *e.InteriorRatePerH < 0 {
		return newValidationError("evaporation", "", "interior_rate_per_h", fmt.Errorf("must be non-negative"))
	}
	if e.EdgeMultiplier == nil || *e.EdgeMultiplier < 1 {
		return newValidationError("evaporation", "", "edge_multiplier", fmt.Errorf("must be at least 1"))
	}
	if e.MinVolumeMultiplier == nil || *e.MinVolumeMultiplier <= 0 || *e.MinVolumeMultiplier > 1 {
		return newValidationError("evaporation", "", "min_volume_multiplier", fmt.Errorf("must be in (0,1]"))
	}
	if e.PlateRows == nil || *e.PlateRows < 1 {
		return newValidationError("evaporation", "", "plate_rows", fmt.Errorf("must be at least 1"))
	}
	if e.PlateCols == nil || *e.PlateCols < 1 {
		return newValidationError("evaporation", "", "plate_cols", fmt.Errorf("must be at least 1"))
	}
	return nil
}

func validateContactPressure(c *ContactPressureYAML) error {
	if c == nil {
		return newValidationError("contact_pressure", "", "", fmt.Errorf("required"))
	}
	if c.Midpoint == nil || *c.Midpoint < 0 || *c.Midpoint > 1 {
		return newValidationError("contact_pressure", "", "midpoint", fmt.Errorf("must be in [0,1]"))
	}
	if c.Width == nil || *c.Width <= 0 {
		return newValidationError("contact_pressure", "", "width", fmt.Errorf("must be positive"))
	}
	if c.TauH == nil || *c.TauH <= 0 {
		return newValidationError("contact_pressure", "", "tau_h", fmt.Errorf("must be positive"))
	}
	if c.DrivesBiology == nil {
		return newValidationError("contact_pressure", "", "drives_biology", fmt.Errorf("required"))
	}
	return nil
}

func validateEpistemic(e *EpistemicYAML) error {
	if e == nil {
		return newValidationError("epistemic", "", "", fmt.Errorf("required"))
	}
	if e.Alpha == nil || *e.Alpha < 0 {
		return newValidationError("epistemic", "", "alpha", fmt.Errorf("must be non-negative"))
	}
	if e.PenaltyWeight == nil || *e.PenaltyWeight < 0 {
		return newValidationError("epistemic", "", "penalty_weight", fmt.Errorf("must be non-negative"))
	}
	if e.BaselineEntropy == nil || *e.BaselineEntropy < 0 {
		return newValidationError("epistemic", "", "baseline_entropy", fmt.Errorf("must be non-negative"))
	}
	if e.MeasurementDebtCapBits == nil || *e.MeasurementDebtCapBits < 0 {
		return newValidationError("epistemic", "", "measurement_debt_cap_bits", fmt.Errorf("must be non-negative"))
	}
	return nil
}

func validateStarvation(s *StarvationYAML) error {
	if s == nil {
		return newValidationError("starvation", "", "", fmt.Errorf("required"))
	}
	if s.NutrientFloorMM == nil || *s.NutrientFloorMM < 0 {
		return newValidationError("starvation", "", "nutrient_floor_mm", fmt.Errorf("must be non-negative"))
	}
	if s.HazardPerH == nil || *s.HazardPerH < 0 {
		return newValidationError("starvation", "", "hazard_per_h", fmt.Errorf("must be non-negative"))
	}
	return nil
}

func validateStressKinetics(k *StressKineticsYAML) error {
	if k == nil {
		return newValidationError("stress_kinetics", "", "", fmt.Errorf("required"))
	}
	if k.UpRatePerH == nil || *k.UpRatePerH < 0 {
		return newValidationError("stress_kinetics", "", "up_rate_per_h", fmt.Errorf("must be non-negative"))
	}
	if k.DownRatePerH == nil || *k.DownRatePerH < 0 {
		return newValidationError("stress_kinetics", "", "down_rate_per_h", fmt.Errorf("must be non-negative"))
	}
	if k.ViolationStreak == nil || *k.ViolationStreak < 0 {
		return newValidationError("stress_kinetics", "", "violation_streak", fmt.Errorf("must be non-negative"))
	}
	return nil
}

func validateOsmotic(o *OsmoticYAML) error {
	if o == nil {
		return newValidationError("osmotic", "", "", fmt.Errorf("required"))
	}
	if o.VolumeLossThreshold == nil || *o.VolumeLossThreshold < 0 || *o.VolumeLossThreshold > 1 {
		return newValidationError("osmotic", "", "volume_loss_threshold", fmt.Errorf("must be in [0,1]"))
	}
	if o.HazardPerH == nil || *o.HazardPerH < 0 {
		return newValidationError("osmotic", "", "hazard_per_h", fmt.Errorf("must be non-negative"))
	}
	return nil
}

func validateContamination(c *ContaminationYAML) error {
	if c == nil {
		return newValidationError("contamination", "", "", fmt.Errorf("required"))
	}
	if c.Enabled == nil {
		return newValidationError("contamination", "", "enabled", fmt.Errorf("required"))
	}
	if c.ProbabilityPerH == nil || *c.ProbabilityPerH < 0 {
		return newValidationError("contamination", "", "probability_per_h", fmt.Errorf("must be non-negative"))
	}
	if c.HazardPerH == nil || *c.HazardPerH < 0 {
		return newValidationError("contamination", "", "hazard_per_h", fmt.Errorf("must be non-negative"))
	}
	return nil
}

func validateBiologyNoise(n *BiologyNoiseYAML) error {
	if n == nil {
		return newValidationError("biology_noise", "", "", fmt.Errorf("required"))
	}
	if n.GrowthNoiseSigma == nil || *n.GrowthNoiseSigma < 0 {
		return newValidationError("biology_noise", "", "growth_noise_sigma", fmt.Errorf("must be non-negative"))
	}
	if n.HazardNoiseSigma == nil || *n.HazardNoiseSigma < 0 {
		return newValidationError("biology_noise", "", "hazard_noise_sigma", fmt.Errorf("must be non-negative"))
	}
	return nil
}

func validateTreatment(t *TreatmentYAML) error {
	if t == nil {
		return newValidationError("treatment", "", "", fmt.Errorf("required"))
	}
	if t.CommitmentDelayMaxH == nil || *t.CommitmentDelayMaxH < 0 {
		return newValidationError("treatment", "", "commitment_delay_max_h", fmt.Errorf("must be non-negative"))
	}
	return nil
}
