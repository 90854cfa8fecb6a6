// internal/platform/registry.go
package platform

import (
	"errors"
	"fmt"
)

// ErrUnsupported signals that no registered profile matches a URL.
var ErrUnsupported = errors.New("unsupported platform")

// Registry holds platform profiles in registration order. Detection walks the
// list front to back and returns the first match, so for a fixed registry the
// result for a given URL is stable across calls; when two profiles could both
// match, registration order is the documented tie-break.
type Registry struct {
	profiles []*Profile
	byName   map[string]*Profile
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Profile)}
}

// DefaultRegistry returns a registry loaded with the built-in vendor
// profiles in their documented precedence order.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range builtinProfiles() {
		// Built-in profiles are maintained in this package; a name clash is
		// a programming error.
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

// Register appends a profile. Adding a vendor means registering one new
// profile, never modifying dispatch logic.
func (r *Registry) Register(p *Profile) error {
	if p == nil {
		return fmt.Errorf("nil profile")
	}
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.URLPattern == nil {
		return fmt.Errorf("profile %q has no URL pattern", p.Name)
	}
	if _, exists := r.byName[p.Name]; exists {
		return fmt.Errorf("profile %q already registered", p.Name)
	}
	r.profiles = append(r.profiles, p)
	r.byName[p.Name] = p
	return nil
}

// Detect returns the first registered profile whose URL predicate matches,
// or ErrUnsupported when none does.
func (r *Registry) Detect(url string) (*Profile, error) {
	for _, p := range r.profiles {
		if p.Matches(url) {
			return p, nil
		}
	}
	return nil, ErrUnsupported
}

// Lookup returns a profile by name.
func (r *Registry) Lookup(name string) (*Profile, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Names lists registered profile names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.profiles))
	for i, p := range r.profiles {
		names[i] = p.Name
	}
	return names
}

// Len returns the number of registered profiles.
func (r *Registry) Len() int {
	return len(r.profiles)
}
