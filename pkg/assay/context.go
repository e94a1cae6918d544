package assay

import "math/rand/v2"

// RunContext holds batch-level biases sampled exactly once per run from
// rng_batch: illumination, per-channel gain, and operator/day/plate shifts
// shared across every well in a batch, producing realistic cross-well
// correlation structure (spec §3's "Run context", §4.6 layer 6).
type RunContext struct {
	IlluminationBias float64
	ChannelGain      map[string]float64
	OperatorShiftH   float64
	DayShift         float64
	PlateShift       float64
}

// NewRunContext samples a RunContext from rng_batch. It must be called at
// most once per run; every well in the run shares the resulting biases.
func NewRunContext(rngBatch *rand.Rand, cfg Config) RunContext {
	gain := make(map[string]float64, len(cfg.Channels))
	for name := range cfg.Channels {
		gain[name] = 1 + 0.10*(rngBatch.Float64()*2-1)
	}
	return RunContext{
		IlluminationBias: 1 + 0.05*(rngBatch.Float64()*2-1),
		ChannelGain:      gain,
		OperatorShiftH:   rngBatch.NormFloat64() * 0.5,
		DayShift:         rngBatch.NormFloat64() * 0.3,
		PlateShift:       rngBatch.NormFloat64() * 0.2,
	}
}
