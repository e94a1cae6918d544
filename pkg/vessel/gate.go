package vessel

import (
	"math"
	"math/rand/v2"
)

// biologyJitter draws a lognormal multiplicative trait centered at 1 from
// r: exp(sigma * z) for z ~ N(0,1). This is the rng_biology stochasticity
// spec §4.1 requires for growth and hazard rates. r == nil or sigma <= 0
// returns exactly 1 (no stochasticity), which keeps the deterministic
// skeleton reachable directly in tests that don't care about it.
func biologyJitter(r *rand.Rand, sigma float64) float64 {
	if r == nil || sigma <= 0 {
		return 1
	}
	return math.Exp(sigma * r.NormFloat64())
}

// intervalGateMultiplier computes the fraction of [t0, t0+dt) that lies at
// or past threshold, for a step-function effect keyed by elapsed time since
// some trigger (e.g. "no compound attrition before 12h post-treatment").
// Gates are integrated over the interval, never sampled at an endpoint —
// sampling at t0 or t1 would make the result depend on step size, which
// breaks the dt=24h-vs-two-dt=12h equivalence the step function must honor.
func intervalGateMultiplier(t0, dt, threshold float64) float64 {
	if dt <= 0 {
		if t0 >= threshold {
			return 1
		}
		return 0
	}
	t1 := t0 + dt
	switch {
	case t1 <= threshold:
		return 0
	case t0 >= threshold:
		return 1
	default:
		return (t1 - threshold) / dt
	}
}

// intervalLagMultiplier is the same rule applied to a linear ramp instead of
// a step: growth ramps linearly from 0 at t=0 to 1 at t=lagPhaseH, and the
// interval mean of that ramp over [t0, t0+dt) is used rather than an
// endpoint sample (spec §4.5: "The same rule is used for linear lag-phase
// ramps (closed-form interval mean)").
func intervalLagMultiplier(t0, dt, lagPhaseH float64) float64 {
	if lagPhaseH <= 0 {
		return 1
	}
	if dt <= 0 {
		return clamp01(t0 / lagPhaseH)
	}
	t1 := t0 + dt
	// Piecewise: ramp f(t) = clamp(t/lagPhaseH, 0, 1). Mean over [t0,t1] is
	// the integral of f divided by dt, split at the point the ramp
	// saturates (if any falls inside the interval).
	if t0 >= lagPhaseH {
		return 1
	}
	if t1 <= lagPhaseH {
		// Entirely within the ramp: mean of a line is the value at the
		// midpoint.
		mid := (t0 + t1) / 2
		return clamp01(mid / lagPhaseH)
	}
	// Splits at lagPhaseH: ramp portion [t0, lagPhaseH), saturated portion
	// [lagPhaseH, t1).
	rampWidth := lagPhaseH - t0
	rampMean := (t0 + lagPhaseH) / 2 / lagPhaseH
	rampIntegral := rampMean * rampWidth
	saturatedWidth := t1 - lagPhaseH
	return (rampIntegral + saturatedWidth) / dt
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
