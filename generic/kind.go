/*
kind.go - Record kind registration and lookup

PURPOSE:
  Provides a registry for domain packages to register their record kinds.
  The lifecycle engine is written once; each kind plugs in how its duration
  is computed, what it validates, and which optional rules apply to it.

HOW IT WORKS:
  1. Domain packages define their RecordKind implementations
  2. Domain packages register them on init()
  3. The service, aggregator, factory and store look kinds up by name

USAGE:
  // In timesheet/types.go
  func init() {
      generic.RegisterKind(WorkEntryKind{})
  }

  kind, err := generic.LookupKind("work_entry")

SEE ALSO:
  - record.go: Record, the shared shape every kind fills in
  - timesheet/, leave/, training/: Concrete kinds
*/
package generic

import (
	"fmt"
	"sort"
	"sync"
)

// Kind names a record variant, e.g. "work_entry".
type Kind string

// RecordKind is the kind-specific part of the lifecycle engine.
type RecordKind interface {
	// Kind returns the registered name.
	Kind() Kind

	// Validate checks kind-specific fields and may fill defaults.
	// Called on create and edit.
	Validate(r *Record) error

	// Duration returns minutes (timed kinds) or whole days (day-based kinds).
	Duration(r *Record) (Amount, error)

	// SupportsCompletion reports whether approved records can be completed.
	SupportsCompletion() bool

	// OwnerMaySoftDelete reports whether the owner may delete an approved
	// record. When false only administrators can remove approved records.
	OwnerMaySoftDelete() bool

	// TracksWeeklySummary reports whether submitted records feed the
	// per-cycle WeeklySummary running total.
	TracksWeeklySummary() bool
}

// =============================================================================
// KIND REGISTRY
// =============================================================================

var (
	kindRegistry = make(map[Kind]RecordKind)
	registryMu   sync.RWMutex
)

// RegisterKind adds a record kind to the global registry.
// Call this from domain package init() functions.
func RegisterKind(k RecordKind) {
	registryMu.Lock()
	defer registryMu.Unlock()
	kindRegistry[k.Kind()] = k
}

// LookupKind finds a registered kind by name.
func LookupKind(name Kind) (RecordKind, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	k, ok := kindRegistry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return k, nil
}

// MustLookupKind finds a registered kind or panics.
// Use in tests or when you're certain the kind exists.
func MustLookupKind(name Kind) RecordKind {
	k, err := LookupKind(name)
	if err != nil {
		panic(err)
	}
	return k
}

// ListKinds returns all registered kind names, sorted.
func ListKinds() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Kind, 0, len(kindRegistry))
	for k := range kindRegistry {
		result = append(result, k)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
