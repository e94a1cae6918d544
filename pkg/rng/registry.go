// Package rng provides named, independently seeded, splittable pseudo-random
// streams for the biological virtual machine.
//
// A single root seed fans out into a fixed set of named streams
// (rng_batch, rng_biology, rng_assay, rng_operational_events, rng_treatment).
// Streams are derived from the root seed by hashing the stream name, so two
// registries built from the same root seed produce byte-identical sequences
// on every stream regardless of the order callers touch them in — deriving
// a stream never consumes from any other stream.
package rng

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Name identifies a declared stream role. Consumers are expected to request
// streams by name rather than passing *rand.Rand instances around, so the
// RNG guard (see Registry.Guard) can catch a stream being read from the
// wrong subsystem.
type Name string

const (
	// StreamBatch supplies run-level biases (illumination, per-channel gain,
	// operator/day/plate shifts), sampled exactly once per run.
	StreamBatch Name = "rng_batch"
	// StreamOperationalEvents supplies rare discrete ops events (e.g.
	// contamination), isolated from biology so toggling it leaves biology
	// byte-identical.
	StreamOperationalEvents Name = "rng_operational_events"
	// StreamBiology supplies growth, stress, and hazard stochasticity.
	StreamBiology Name = "rng_biology"
	// StreamAssay supplies measurement noise only.
	StreamAssay Name = "rng_assay"
	// StreamTreatment supplies per-vessel commitment-delay samples.
	StreamTreatment Name = "rng_treatment"
)

// declaredStreams is the fixed set of stream roles the registry recognizes.
// A run is not required to touch every stream, but Registry.Stream refuses
// undeclared names outright — stream names are a closed set, not a free
// namespace.
var declaredStreams = map[Name]struct{}{
	StreamBatch:             {},
	StreamOperationalEvents: {},
	StreamBiology:           {},
	StreamAssay:             {},
	StreamTreatment:         {},
}

// Registry owns every named stream for one run. It is created once, seeded
// from a single root seed, and loaned out read-only-ish (advance-only) to
// the subsystems that consume each stream.
type Registry struct {
	rootSeed uint64

	mu      sync.Mutex
	streams map[Name]*rand.Rand
	guard   func(caller Name, accessed Name) error
}

// New creates a registry for the given root seed. All declared streams are
// lazily derived on first access so constructing a registry never consumes
// entropy.
func New(rootSeed uint64) *Registry {
	return &Registry{
		rootSeed: rootSeed,
		streams:  make(map[Name]*rand.Rand, len(declaredStreams)),
	}
}

// deriveSeed turns (rootSeed, name) into a 128-bit seed for a PCG source.
// xxhash of the stream name, mixed with the root seed, gives independent
// streams: no two declared names hash to related states, and the derivation
// is pure — it never touches any other stream's state.
func deriveSeed(rootSeed uint64, key string) (uint64, uint64) {
	h := xxhash.New()
	_, _ = h.WriteString(key)
	lo := h.Sum64() ^ rootSeed
	h2 := xxhash.New()
	_, _ = h2.WriteString(key)
	_, _ = h2.WriteString("#hi")
	hi := h2.Sum64() ^ (rootSeed*0x9E3779B97F4A7C15 + 1)
	return lo, hi
}

// Stream returns the named stream, deriving it on first use. It fails the
// run (returns an error) if name is not a declared stream. It does not
// consult a guard installed via SetGuard; GuardedStream does.
func (r *Registry) Stream(name Name) (*rand.Rand, error) {
	if _, ok := declaredStreams[name]; !ok {
		return nil, fmt.Errorf("rng: undeclared stream %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[name]
	if !ok {
		lo, hi := deriveSeed(r.rootSeed, string(name))
		s = rand.New(rand.NewPCG(lo, hi))
		r.streams[name] = s
	}
	return s, nil
}

// MustStream is Stream but panics on an undeclared name — for use at
// construction time with compile-time-known constants, where an error
// return would only ever indicate a programming mistake.
func (r *Registry) MustStream(name Name) *rand.Rand {
	s, err := r.Stream(name)
	if err != nil {
		panic(err)
	}
	return s
}

// GuardedStream is Stream, but first consults the installed guard with
// caller as the accessing identity. Production call sites use this instead
// of Stream directly so the isolation rule installed via SetGuard is
// actually enforced at every real access, not just exercised in tests
// that call Guard directly.
func (r *Registry) GuardedStream(caller, name Name) (*rand.Rand, error) {
	if err := r.Guard(caller, name); err != nil {
		return nil, err
	}
	return r.Stream(name)
}

// MustGuardedStream is GuardedStream but panics on an undeclared name or a
// guard rejection — for construction-time use where either would only ever
// indicate a programming mistake.
func (r *Registry) MustGuardedStream(caller, name Name) *rand.Rand {
	s, err := r.GuardedStream(caller, name)
	if err != nil {
		panic(err)
	}
	return s
}

// GuardedSubStream is SubStream, but first consults the installed guard
// with caller as the accessing identity.
func (r *Registry) GuardedSubStream(caller, parent Name, key string) (*rand.Rand, error) {
	if err := r.Guard(caller, parent); err != nil {
		return nil, err
	}
	return r.SubStream(parent, key)
}

// SubStream derives a per-entity sub-stream from a declared stream, keyed by
// an arbitrary caller-supplied key (e.g. vessel ID, or "vesselID|cycle").
// Splitting is stable under reordering of unrelated work because it is a
// pure function of (rootSeed, parent name, key) — it never advances the
// parent stream itself.
func (r *Registry) SubStream(parent Name, key string) (*rand.Rand, error) {
	if _, ok := declaredStreams[parent]; !ok {
		return nil, fmt.Errorf("rng: undeclared stream %q", parent)
	}
	lo, hi := deriveSeed(r.rootSeed, string(parent)+"/"+key)
	return rand.New(rand.NewPCG(lo, hi)), nil
}

// Guard checks that accessedBy is permitted to read stream name, per the
// rule installed with SetGuard. It is a no-op (always nil) until a guard is
// installed; callers that care about RNG isolation must install one
// explicitly — usually the world orchestrator, once, at run start.
func (r *Registry) Guard(accessedBy Name, name Name) error {
	r.mu.Lock()
	g := r.guard
	r.mu.Unlock()
	if g == nil {
		return nil
	}
	return g(accessedBy, name)
}

// SetGuard installs the RNG-isolation rule. A conforming guard must fail
// (return non-nil) whenever a measurement-path caller requests
// StreamBiology, or a biology-path caller requests StreamAssay — the
// specific pairing is the caller's responsibility; this package only
// carries the hook.
func (r *Registry) SetGuard(g func(caller Name, accessed Name) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guard = g
}

// RootSeed returns the seed the registry was constructed from, for
// inclusion in run metadata and forensic dumps.
func (r *Registry) RootSeed() uint64 {
	return r.rootSeed
}
