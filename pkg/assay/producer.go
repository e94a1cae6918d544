package assay

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/cellvm/biovm/pkg/vessel"
)

// Producer measures vessels. It is read-only: Measure never mutates the
// vessel.State it's given, and advances only the rngAssay stream passed to
// each Measure call — never rng_biology (spec §4.6's observer-independence
// invariant).
type Producer struct {
	cfg   Config
	batch RunContext
}

// NewProducer binds a noise-model configuration and the run's batch
// context. The caller owns the rng_assay stream and passes it into each
// Measure call explicitly, so the producer itself holds no RNG state
// between calls (per-entity ownership: no shared mutable stream handle).
func NewProducer(cfg Config, batch RunContext) *Producer {
	return &Producer{cfg: cfg, batch: batch}
}

// Measure produces one observation record for a vessel. position and
// isEdgeWell let the caller supply spine facts the producer has no other
// read path to, keeping Producer decoupled from spine's concrete storage;
// the dominant stress-axis value is computed from s itself. position is
// not used by the current noise model.
func (p *Producer) Measure(s *vessel.State, position string, observationTimeH float64, isEdgeWell bool, rngAssay *rand.Rand) Observation {
	channelNames := sortedChannelNames(p.cfg.Channels)
	intensities := make(map[string]float64, len(channelNames))
	qcFlags := make(map[string]bool, len(channelNames))

	acuteAxisValue := dominantStressValue(s)
	platingCVBoost := p.platingTransientCV(s, observationTimeH)

	failure := p.sampleWellFailure(rngAssay)

	for _, name := range channelNames {
		ch := p.cfg.Channels[name]

		// 1. Baseline channel mean.
		signal := ch.BaselineMean

		// 2. Acute compound effect (stress-axis-driven channel shift).
		signal += ch.AcuteStressCoefficient * acuteAxisValue

		// 3. Chronic latent effect (per-axis linear contribution; v1 reuses
		// the same stress latents as a slower-moving chronic signal since
		// the source does not split acute/chronic state at this layer).
		signal += ch.ChronicLatentCoefficient * chronicLatentValue(s)

		// 4. Viability attenuation with a per-channel floor.
		signal *= ch.ViabilityFloor + (1-ch.ViabilityFloor)*s.Viability

		// 5. Plating/post-dissociation transient: widens CV, doesn't shift
		// the mean, so it is applied as part of the noise draw below.

		// 6. Per-channel, per-batch bias multipliers.
		signal *= p.batch.IlluminationBias * p.batch.ChannelGain[name]
		signal += s.ContactPressure * ch.ContactPressureCoefficient * ch.BaselineMean

		// 7. Edge-well penalty, then well-level lognormal noise.
		if isEdgeWell {
			signal *= p.cfg.EdgeWellPenalty
		}
		totalCV := combinedCV(p.cfg.BiologicalCV, ch.TechnicalCV, platingCVBoost)
		signal *= lognormalNoise(rngAssay, totalCV)

		flagged := false
		if failure != FailureNone {
			signal, flagged = applyWellFailure(failure, signal, rngAssay)
		}

		intensities[name] = signal
		qcFlags[name] = flagged
	}

	// 8. Segmentation distortion.
	quality, rawQuality := p.segmentationQuality(s, rngAssay)
	observedCount := p.applySegmentationDistortion(s.CellCount, quality, rngAssay)
	texture := p.segmentationTexture(quality, rngAssay)
	dropped := rawQuality < p.cfg.SegmentationDropQualityThreshold

	obs := Observation{
		VesselID:            s.VesselID,
		ObservationTimeH:    observationTimeH,
		Viability:           s.Viability,
		ObservedCellCount:   observedCount,
		ChannelIntensities:  intensities,
		ChannelQCFlags:      qcFlags,
		SegmentationQuality: quality,
		Texture:             texture,
		CytotoxSignal:       p.cfg.CytotoxBaseline * (1 - s.Viability),
		Dropped:             dropped,
		WellFailure:         failure,
	}
	if p.cfg.StructuredArtifacts {
		obs.Artifacts = p.buildArtifacts(isEdgeWell, quality, failure)
	}
	return obs
}

func sortedChannelNames(channels map[string]ChannelConfig) []string {
	names := make([]string, 0, len(channels))
	for name := range channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// dominantStressValue picks the largest stress latent as the acute driving
// signal for channel shifts.
func dominantStressValue(s *vessel.State) float64 {
	var best float64
	for _, v := range s.StressLatents {
		if v > best {
			best = v
		}
	}
	return best
}

// chronicLatentValue sums all latents as the slower-moving chronic
// contribution (layer 3 is explicitly "per-axis linear contribution").
func chronicLatentValue(s *vessel.State) float64 {
	var total float64
	for _, v := range s.StressLatents {
		total += v
	}
	return total
}

// platingTransientCV returns a CV boost that decays exponentially with the
// caller-supplied observationTimeH (s.TSeedH is not consulted), modeling
// post-dissociation transient variability.
func (p *Producer) platingTransientCV(s *vessel.State, observationTimeH float64) float64 {
	if p.cfg.PlatingTransientHalfLifeH <= 0 {
		return 0
	}
	sinceSeed := observationTimeH
	decay := math.Pow(0.5, sinceSeed/p.cfg.PlatingTransientHalfLifeH)
	return p.cfg.PlatingTransientMaxCV * decay
}

func combinedCV(cvs ...float64) float64 {
	var sumSq float64
	for _, cv := range cvs {
		sumSq += cv * cv
	}
	return math.Sqrt(sumSq)
}

// lognormalNoise draws a multiplicative noise factor with the given CV,
// mean-preserving (E[factor] ≈ 1).
func lognormalNoise(r *rand.Rand, cv float64) float64 {
	if cv <= 0 {
		return 1
	}
	sigma := math.Sqrt(math.Log(1 + cv*cv))
	mu := -0.5 * sigma * sigma
	return math.Exp(mu + sigma*r.NormFloat64())
}

func (p *Producer) sampleWellFailure(r *rand.Rand) WellFailureMode {
	if r.Float64() >= p.cfg.WellFailureProbability {
		return FailureNone
	}
	modes := []WellFailureMode{FailureBubble, FailureContamination, FailureFocusFailure, FailurePipettingMiss}
	return modes[r.IntN(len(modes))]
}

// applyWellFailure distorts signal with the failure mode's characteristic
// signature and flags the channel for QC.
func applyWellFailure(mode WellFailureMode, signal float64, r *rand.Rand) (float64, bool) {
	switch mode {
	case FailureBubble:
		return signal * (0.3 + 0.2*r.Float64()), true
	case FailureContamination:
		return signal * (1.5 + 0.5*r.Float64()), true
	case FailureFocusFailure:
		return signal * (0.6 + 0.1*r.Float64()), true
	case FailurePipettingMiss:
		return signal * (0.1 + 0.1*r.Float64()), true
	default:
		return signal, false
	}
}

// segmentationQuality computes q in [0,1] from confluence and the same
// stress/failure signals available here as proxies for debris, focus, and
// saturation (spec §4.6 layer 8). It returns both the reported quality
// (floored at SegmentationQualityFloor, used for cell-count distortion) and
// the raw, unfloored draw the QC drop decision consults — a well whose true
// segmentation quality collapsed entirely should be dropped, not silently
// reported at the floor as if it were merely noisy.
func (p *Producer) segmentationQuality(s *vessel.State, r *rand.Rand) (quality, raw float64) {
	confluencePenalty := 0.0
	if c := s.Confluence(); c > 0.9 {
		confluencePenalty = (c - 0.9) * 3 // crowding hurts segmentation near full confluence
	}
	debrisPenalty := (1 - s.Viability) * 0.4
	noise := 0.05 * r.NormFloat64()
	raw = 1 - confluencePenalty - debrisPenalty + noise

	quality = raw
	if quality < p.cfg.SegmentationQualityFloor {
		quality = p.cfg.SegmentationQualityFloor
	}
	if quality > 1 {
		quality = 1
	}
	return quality, raw
}

// segmentationTexture derives object-level sufficient statistics from
// segmentation quality: lower quality merges objects (larger mean area,
// lower edge density) and widens the well-to-well area spread.
func (p *Producer) segmentationTexture(quality float64, r *rand.Rand) TextureStats {
	const baselineAreaPx = 150.0
	degradation := 1 - quality
	meanArea := baselineAreaPx * (1 + degradation*1.5) * lognormalNoise(r, 0.05)
	areaCV := 0.15 + degradation*0.5
	edgeDensity := quality * (0.8 + 0.2*r.Float64())
	return TextureStats{
		MeanObjectAreaPx: meanArea,
		AreaCV:           areaCV,
		EdgeDensity:      edgeDensity,
	}
}

// applySegmentationDistortion changes observed cell count via merge/split
// effects driven by segmentation quality: low quality merges adjacent
// cells (undercounts), occasionally splits debris into spurious objects
// (overcounts), net biased toward undercounting as quality degrades.
func (p *Producer) applySegmentationDistortion(trueCount, quality float64, r *rand.Rand) float64 {
	mergeFraction := (1 - quality) * 0.3
	splitFraction := (1 - quality) * 0.05
	distorted := trueCount * (1 - mergeFraction + splitFraction)
	distorted *= lognormalNoise(r, 0.03*(1-quality)+0.02)
	if distorted < 0 {
		distorted = 0
	}
	return distorted
}

func (p *Producer) buildArtifacts(isEdgeWell bool, quality float64, failure WellFailureMode) *ImagingArtifacts {
	mode := "standard"
	if failure != FailureNone {
		mode = string(failure)
	}
	spatial := 0.0
	if isEdgeWell {
		spatial = 1 - p.cfg.EdgeWellPenalty
	}
	return &ImagingArtifacts{
		BackgroundMultiplier: p.batch.IlluminationBias,
		SegmentationMode:     mode,
		SpatialFieldBias:     spatial * quality,
	}
}
