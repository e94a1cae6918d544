package vessel

import (
	"math"
	"math/rand/v2"

	"github.com/cellvm/biovm/pkg/spine"
)

// SpineReader is the narrow read-only view of the spine the biology step
// needs. *spine.Manager satisfies it; tests can supply a fake, decoupling
// vessel from the spine's concrete locking/storage details.
type SpineReader interface {
	Snapshot(vesselID string) (spine.VesselSpine, error)
}

// hazardProposal is one death cause's instantaneous rate (per hour),
// already folded with its interval-integrated gate multiplier, for the
// interval currently being stepped.
type hazardProposal struct {
	cause    DeathCause
	ratePerH float64
}

// proposeHazards computes per-cause hazard rates for one interval [t0,
// t0+dt), reading concentrations from the spine (never from a vessel
// mirror, per spec §4.5). Compound attrition is gated by
// AttritionThresholdH since treatment start; starvation applies whenever
// the lowest nutrient concentration is below a floor, and osmotic stress
// whenever relative volume loss exceeds a threshold (both plain threshold
// checks on the snapshot, not interval-integrated gates); contamination, if enabled, is a rare discrete event sampled
// from operationalRNG (rng_operational_events) that latches on s once
// triggered. operationalRNG is consulted only when cfg.ContaminationEnabled
// — disabling it leaves every other hazard's rate untouched, satisfying
// the RNG-independence law (spec §8).
func (cfg Config) proposeHazards(s *State, reader SpineReader, t0, dt float64, operationalRNG *rand.Rand) ([]hazardProposal, error) {
	snap, err := reader.Snapshot(s.VesselID)
	if err != nil {
		return nil, err
	}

	var proposals []hazardProposal
	lineParams, hasLine := cfg.CellLines[s.CellLine]

	if hasLine {
		for compoundID, doseUM := range snap.Compounds {
			ic50, hasIC50 := lineParams.CompoundIC50UM[compoundID]
			if !hasIC50 || doseUM <= 0 {
				continue
			}
			treatStartH, treated := s.TTreatmentStartH[compoundID]
			if !treated {
				continue
			}
			hill := lineParams.CompoundHillSlope[compoundID]
			if hill == 0 {
				hill = 1
			}
			fraction := math.Pow(doseUM, hill) / (math.Pow(ic50, hill) + math.Pow(doseUM, hill))
			rate := lineParams.MaxHazardPerCompoundPerH * fraction

			sinceTreat := sinceH(t0, treatStartH)
			gate := intervalGateMultiplier(sinceTreat, dt, cfg.AttritionThresholdH)
			proposals = append(proposals, hazardProposal{cause: CauseCompoundAttrition, ratePerH: rate * gate})
		}
	}

	minNutrient := math.Inf(1)
	for _, concMM := range snap.Nutrients {
		if concMM < minNutrient {
			minNutrient = concMM
		}
	}
	if !math.IsInf(minNutrient, 1) && minNutrient < cfg.StarvationNutrientFloorMM {
		proposals = append(proposals, hazardProposal{cause: CauseStarvation, ratePerH: cfg.StarvationHazardPerH})
	}

	if snap.InitialVolumeUL > 0 {
		volumeLoss := 1 - snap.VolumeUL/snap.InitialVolumeUL
		if volumeLoss > cfg.OsmoticVolumeLossThreshold {
			proposals = append(proposals, hazardProposal{cause: CauseOsmoticStress, ratePerH: cfg.OsmoticHazardPerH})
		}
	}

	if cfg.ContaminationEnabled {
		if !s.Contaminated && operationalRNG != nil {
			triggerProb := 1 - math.Exp(-cfg.ContaminationProbabilityPerH*dt)
			if operationalRNG.Float64() < triggerProb {
				s.Contaminated = true
			}
		}
		if s.Contaminated {
			proposals = append(proposals, hazardProposal{cause: CauseContamination, ratePerH: cfg.ContaminationHazardPerH})
		}
	}

	return proposals, nil
}
