// Package speaker assigns stable speaker labels to voice embedding vectors
// via online nearest-neighbor matching.
//
// The algorithm is greedy and single-pass: each embedding either joins the
// closest existing profile (when cosine distance is under the threshold)
// or founds a new one. Profiles are never merged or split after creation,
// so results are sensitive to the threshold and to noisy early embeddings
// anchoring a profile's centroid direction.
package speaker

import (
	"fmt"
	"math"
	"sync"
)

// UnknownLabel is returned for degenerate input (nil or empty vectors).
const UnknownLabel = "Unknown"

// DefaultThreshold is the cosine-distance match threshold. Lower values
// match more strictly and create more profiles.
const DefaultThreshold = 0.5

// Reference vector adaptation weights: on a match the profile moves toward
// the incoming embedding by an exponential moving average.
const (
	emaKeep  = 0.7
	emaAdopt = 0.3
)

// Profile is one known speaker voice.
type Profile struct {
	// Label is the stable ordinal identifier ("Speaker 1", "Speaker 2", ...).
	Label string

	// Vector is the reference embedding, adapted on every match.
	Vector []float32

	// Count is the number of embeddings observed for this profile.
	Count int
}

// Option configures a Registry.
type Option func(*Registry)

// WithThreshold overrides the match threshold.
func WithThreshold(t float64) Option {
	return func(r *Registry) { r.threshold = t }
}

// Registry maps embedding vectors to stable speaker labels. All methods
// are safe for concurrent use; each Identify is one atomic lookup+update.
type Registry struct {
	threshold float64

	mu       sync.Mutex
	profiles []*Profile
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Identify returns the label for the embedding, registering a new profile
// when no existing one matches. Degenerate input returns UnknownLabel
// without touching the registry.
func (r *Registry) Identify(emb []float32) string {
	if len(emb) == 0 {
		return UnknownLabel
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	best := -1
	bestDist := math.Inf(1)
	for i, p := range r.profiles {
		if d := CosineDistance(emb, p.Vector); d < bestDist {
			bestDist = d
			best = i
		}
	}

	if best >= 0 && bestDist < r.threshold {
		p := r.profiles[best]
		for i := range p.Vector {
			p.Vector[i] = float32(emaKeep*float64(p.Vector[i]) + emaAdopt*float64(emb[i]))
		}
		p.Count++
		return p.Label
	}

	p := &Profile{
		Label:  fmt.Sprintf("Speaker %d", len(r.profiles)+1),
		Vector: append([]float32(nil), emb...),
		Count:  1,
	}
	r.profiles = append(r.profiles, p)
	return p.Label
}

// Reset clears the whole registry. This is the only way profiles are ever
// removed.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.profiles = nil
	r.mu.Unlock()
}

// Count returns the number of registered profiles.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.profiles)
}

// Labels returns the registered labels in registration order.
func (r *Registry) Labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.profiles))
	for i, p := range r.profiles {
		out[i] = p.Label
	}
	return out
}

// Profiles returns a deep copy of the registry contents, for persistence
// and inspection.
func (r *Registry) Profiles() []Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Profile, len(r.profiles))
	for i, p := range r.profiles {
		out[i] = Profile{
			Label:  p.Label,
			Vector: append([]float32(nil), p.Vector...),
			Count:  p.Count,
		}
	}
	return out
}

// Load replaces the registry contents with the given profiles, used to
// restore a persisted registry at session start.
func (r *Registry) Load(profiles []Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles = make([]*Profile, len(profiles))
	for i, p := range profiles {
		cp := p
		cp.Vector = append([]float32(nil), p.Vector...)
		r.profiles[i] = &cp
	}
}

// CosineDistance returns 1 minus the cosine similarity of a and b: 0 for
// identical direction, 1 for orthogonal, up to 2 for opposite. It returns
// 1 (the match-relevant maximum) when either vector has zero norm or the
// dimensions disagree, since no direction can be compared.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}
	return 1 - sim
}
