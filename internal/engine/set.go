package engine

import (
	"fmt"
	"sort"

	"machine-access-backend/internal/directory"
	"machine-access-backend/internal/registry"
)

// Set holds one engine instance per configured machine, built once at
// startup and injected into everything that needs machine state (the
// HTTP layer, the bot, the metrics collector).
type Set struct {
	machines map[string]*Machine
}

// NewSet restores an engine for every machine in the registry.
func NewSet(reg *registry.Registry, dir *directory.Directory, store Store) (*Set, error) {
	set := &Set{machines: make(map[string]*Machine)}
	for _, name := range reg.Names() {
		m, err := NewMachine(name, reg, dir, store)
		if err != nil {
			return nil, fmt.Errorf("machine %s: %w", name, err)
		}
		set.machines[name] = m
	}
	return set, nil
}

// Get returns the engine for the named machine.
func (s *Set) Get(name string) (*Machine, bool) {
	m, ok := s.machines[name]
	return m, ok
}

// Names returns the machine names in the set, sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.machines))
	for name := range s.machines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshots returns a settled snapshot of every machine, ordered by name.
func (s *Set) Snapshots() []Snapshot {
	snaps := make([]Snapshot, 0, len(s.machines))
	for _, name := range s.Names() {
		snaps = append(snaps, s.machines[name].Snapshot())
	}
	return snaps
}
