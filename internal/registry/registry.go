package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"sync"
	"time"
)

// Machine names end up as state file names and metric label values, so
// they are restricted to a safe character set.
var namePattern = regexp.MustCompile(`^[0-9a-zA-Z_-]+$`)

// Policy is the static configuration of one machine. A zero
// AuthorizationsOr list means no badge can authorize the machine through
// the normal path (always_enabled machines don't need one).
type Policy struct {
	Name                 string   `json:"-"`
	AuthorizationsOr     []string `json:"authorizations_or"`
	UnauthorizedWarnOnly bool     `json:"unauthorized_warn_only"`
	AlwaysEnabled        bool     `json:"always_enabled"`
}

// Registry maps machine names to their policies. Policies are re-read
// from the current snapshot on every call to Get, so a Reload takes
// effect on the next device report without a restart.
type Registry struct {
	path string

	mu       sync.RWMutex
	policies map[string]Policy
	loadTime time.Time
}

// Load reads and validates the machines config file at path.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the machines config file, replacing the policy set.
// The previous policies stay live if the new file fails to load.
func (r *Registry) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read machines config: %w", err)
	}

	var raw map[string]Policy
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse machines config %s: %w", r.path, err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("machines config %s defines no machines", r.path)
	}

	policies := make(map[string]Policy, len(raw))
	for name, pol := range raw {
		if !namePattern.MatchString(name) {
			return fmt.Errorf("invalid machine name %q", name)
		}
		pol.Name = name
		policies[name] = pol
	}

	r.mu.Lock()
	r.policies = policies
	r.loadTime = time.Now().UTC()
	r.mu.Unlock()
	return nil
}

// Get returns a copy of the policy for the named machine.
func (r *Registry) Get(name string) (Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pol, ok := r.policies[name]
	return pol, ok
}

// Names returns the configured machine names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadTime returns when the current policy set was loaded.
func (r *Registry) LoadTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadTime
}
