package bvmconfig

import (
	"github.com/cellvm/biovm/pkg/assay"
	"github.com/cellvm/biovm/pkg/epistemic"
	"github.com/cellvm/biovm/pkg/eventlog"
	"github.com/cellvm/biovm/pkg/spine"
	"github.com/cellvm/biovm/pkg/vessel"
)

// Resolved bundles the per-subsystem Config values a world.Config needs,
// plus the named seeding presets, all built from one merged Document.
type Resolved struct {
	Biology     vessel.Config
	Noise       assay.Config
	Evaporation spine.EvaporationConfig
	Epistemic   epistemic.Config
	Seeding     map[string]SeedingPreset
}

// SeedingPreset is a named (vessel type, cell line) seeding template (spec
// §9's "seeding" option), resolvable into a concrete SEED_VESSEL payload
// once the caller supplies a vessel ID and plate position.
type SeedingPreset struct {
	CellLine            string
	InitialCells        float64
	InitialVolumeUL     float64
	InitialNutrientsMM  map[string]float64
	VesselCapacityCells float64
}

// Payload builds the SEED_VESSEL event payload this preset describes.
func (p SeedingPreset) Payload(vesselID, position string) eventlog.SeedVesselPayload {
	return eventlog.SeedVesselPayload{
		VesselID:           vesselID,
		Position:           position,
		CellLine:           p.CellLine,
		InitialCells:       p.InitialCells,
		InitialVolumeUL:    p.InitialVolumeUL,
		InitialNutrientsMM: p.InitialNutrientsMM,
	}
}

// resolve converts a fully merged Document (every pointer field non-nil,
// since it was merged over Builtin()) into the concrete subsystem Configs.
func resolve(doc *Document) Resolved {
	return Resolved{
		Biology:     resolveBiology(doc),
		Noise:       resolveNoise(doc.Noise),
		Evaporation: resolveEvaporation(doc.Evaporation),
		Epistemic:   resolveEpistemic(doc.Epistemic),
		Seeding:     resolveSeeding(doc.Seeding),
	}
}

func resolveBiology(doc *Document) vessel.Config {
	lines := make(map[string]vessel.CellLineParams, len(doc.CellLines))
	for name, l := range doc.CellLines {
		lines[name] = vessel.CellLineParams{
			IntrinsicGrowthPerH:      l.IntrinsicGrowthPerH,
			LagPhaseH:                l.LagPhaseH,
			CompoundIC50UM:           l.CompoundIC50UM,
			CompoundHillSlope:        l.CompoundHillSlope,
			MaxHazardPerCompoundPerH: l.MaxHazardPerCompoundPerH,
		}
	}

	cp := doc.ContactPressure
	starv := doc.Starvation
	kin := doc.StressKinetics
	osm := doc.Osmotic
	contam := doc.Contamination
	noise := doc.BiologyNoise
	treat := doc.Treatment

	// VesselCapacityCells: the core supports one plate format, so take the
	// capacity of whichever seeding preset map iteration yields first;
	// presets with differing capacities are not reconciled.
	capacity := 0.0
	for _, s := range doc.Seeding {
		capacity = s.VesselCapacityCells
		break
	}

	return vessel.Config{
		CellLines:                    lines,
		AttritionThresholdH:          *doc.AttritionThresholdH,
		StarvationNutrientFloorMM:    *starv.NutrientFloorMM,
		StarvationHazardPerH:         *starv.HazardPerH,
		OsmoticVolumeLossThreshold:   *osm.VolumeLossThreshold,
		OsmoticHazardPerH:            *osm.HazardPerH,
		ContaminationEnabled:         *contam.Enabled,
		ContaminationProbabilityPerH: *contam.ProbabilityPerH,
		ContaminationHazardPerH:      *contam.HazardPerH,
		GrowthNoiseSigma:             *noise.GrowthNoiseSigma,
		HazardNoiseSigma:             *noise.HazardNoiseSigma,
		StressLatentViolationStreak:  *kin.ViolationStreak,
		ContactPressureMidpoint:      *cp.Midpoint,
		ContactPressureWidth:         *cp.Width,
		ContactPressureTauH:          *cp.TauH,
		StressUpRatePerH:             *kin.UpRatePerH,
		StressDownRatePerH:           *kin.DownRatePerH,
		ContactPressureDrivesBiology: *cp.DrivesBiology,
		VesselCapacityCells:          capacity,
		CommitmentDelayMaxH:          *treat.CommitmentDelayMaxH,
	}
}

func resolveNoise(n *NoiseYAML) assay.Config {
	channels := make(map[string]assay.ChannelConfig, len(n.Channels))
	for name, c := range n.Channels {
		channels[name] = assay.ChannelConfig{
			BaselineMean:               c.BaselineMean,
			ViabilityFloor:             c.ViabilityFloor,
			AcuteStressCoefficient:     c.AcuteStressCoefficient,
			ChronicLatentCoefficient:   c.ChronicLatentCoefficient,
			ContactPressureCoefficient: c.ContactPressureCoefficient,
			TechnicalCV:                c.TechnicalCV,
		}
	}
	return assay.Config{
		Channels:                  channels,
		BiologicalCV:              *n.BiologicalCV,
		EdgeWellPenalty:           *n.EdgeWellPenalty,
		PlatingTransientHalfLifeH: *n.PlatingTransientHalfLifeH,
		PlatingTransientMaxCV:     *n.PlatingTransientMaxCV,
		WellFailureProbability:    *n.WellFailureProbability,
		CytotoxBaseline:                  *n.CytotoxBaseline,
		SegmentationQualityFloor:         *n.SegmentationQualityFloor,
		SegmentationDropQualityThreshold: *n.SegmentationDropQualityThreshold,
		StructuredArtifacts:              *n.StructuredArtifacts,
	}
}

func resolveEvaporation(e *EvaporationYAML) spine.EvaporationConfig {
	return spine.EvaporationConfig{
		InteriorRatePerH:    *e.InteriorRatePerH,
		EdgeMultiplier:      *e.EdgeMultiplier,
		MinVolumeMultiplier: *e.MinVolumeMultiplier,
		PlateRows:           *e.PlateRows,
		PlateCols:           *e.PlateCols,
	}
}

func resolveEpistemic(e *EpistemicYAML) epistemic.Config {
	return epistemic.Config{
		Alpha:                  *e.Alpha,
		PenaltyWeight:          *e.PenaltyWeight,
		BaselineEntropy:        *e.BaselineEntropy,
		MeasurementDebtCapBits: *e.MeasurementDebtCapBits,
	}
}

func resolveSeeding(presets map[string]SeedingYAML) map[string]SeedingPreset {
	result := make(map[string]SeedingPreset, len(presets))
	for name, s := range presets {
		result[name] = SeedingPreset{
			CellLine:            s.CellLine,
			InitialCells:        s.InitialCells,
			InitialVolumeUL:     s.InitialVolumeUL,
			InitialNutrientsMM:  s.InitialNutrientsMM,
			VesselCapacityCells: s.VesselCapacityCells,
		}
	}
	return result
}
