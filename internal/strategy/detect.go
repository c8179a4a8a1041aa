package strategy

import "openclaw/internal/analysis/indicator"

// Detector turns a point-in-time frame into zero-or-one Signal. Absence is
// a nil result, never an error: "nothing set up today" is the normal case.
type Detector interface {
	Name() string
	Evaluate(f *indicator.Frame) *Signal
}

// Registry evaluates detectors in priority order and returns the first
// match. The order matters: trinity outranks panic outranks 2b, matching
// how overlapping setups are resolved.
type Registry struct {
	detectors []Detector
}

// NewRegistry builds a registry restricted to the named strategies; an
// empty filter enables the full suite.
func NewRegistry(only ...string) *Registry {
	all := []Detector{trinityDetector{}, panicDetector{}, twoBDetector{}}
	if len(only) == 0 {
		return &Registry{detectors: all}
	}
	allowed := make(map[string]bool, len(only))
	for _, name := range only {
		allowed[normalizeName(name)] = true
	}
	var filtered []Detector
	for _, d := range all {
		if allowed[d.Name()] {
			filtered = append(filtered, d)
		}
	}
	return &Registry{detectors: filtered}
}

func (r *Registry) Evaluate(f *indicator.Frame) *Signal {
	if f == nil || f.Len() == 0 {
		return nil
	}
	for _, d := range r.detectors {
		if sig := d.Evaluate(f); sig != nil {
			return sig
		}
	}
	return nil
}

func normalizeName(name string) string {
	switch name {
	case "TRINITY", "Trinity", "trinity":
		return "trinity"
	case "PANIC", "Panic", "panic":
		return "panic"
	case "2B", "2b", "TWOB", "twob":
		return "2b"
	default:
		return name
	}
}
