package ingest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/libingest/internal/schema"
	"github.com/JonMunkholm/libingest/internal/store"
)

// DuplicateStrategy declares how an entity detects duplicates.
type DuplicateStrategy int

const (
	// DuplicateConstraint relies on the store's unique constraints; a
	// violation is classified as a duplicate.
	DuplicateConstraint DuplicateStrategy = iota

	// DuplicatePrecheck looks the natural key up before inserting. Used where
	// a unique constraint cannot catch every duplicate, such as author
	// identity with an unknown birth date.
	DuplicatePrecheck
)

func (s DuplicateStrategy) String() string {
	if s == DuplicatePrecheck {
		return "precheck"
	}
	return "constraint"
}

// ValidateFunc turns a raw row into a validated record.
type ValidateFunc func(v *schema.Validator, row schema.Row) (any, error)

// CheckFunc runs a referential check for a record. It returns an error
// wrapping ErrReferential when a referenced row is missing.
type CheckFunc func(ctx context.Context, q store.Queries, rec any) error

// ExistsFunc reports whether a record's natural key is already stored.
type ExistsFunc func(ctx context.Context, q store.Queries, rec any) (bool, error)

// InsertFunc writes a record and returns its key.
type InsertFunc func(ctx context.Context, q store.Queries, rec any) (int64, error)

// EntityDefinition contains everything needed to ingest one entity kind.
type EntityDefinition struct {
	Kind       string            // Entity name, e.g. "book"
	File       string            // Bulk file stem, e.g. "books"
	Order      int               // Dependency order; lower loads first
	Duplicates DuplicateStrategy // How duplicates are detected
	Validate   ValidateFunc
	Check      CheckFunc  // Optional referential check
	Exists     ExistsFunc // Required for DuplicatePrecheck
	Insert     InsertFunc
}

var (
	registry   = make(map[string]EntityDefinition)
	registryMu sync.RWMutex
)

// Register adds an entity definition to the registry.
// Panics if the kind is already registered or the definition is incomplete.
func Register(def EntityDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Kind]; exists {
		panic(fmt.Sprintf("entity already registered: %s", def.Kind))
	}
	if def.Validate == nil || def.Insert == nil {
		panic(fmt.Sprintf("entity %s: Validate and Insert are required", def.Kind))
	}
	if def.Duplicates == DuplicatePrecheck && def.Exists == nil {
		panic(fmt.Sprintf("entity %s: precheck strategy needs Exists", def.Kind))
	}

	registry[def.Kind] = def
}

// Get returns an entity definition by kind.
// Returns false if not found.
func Get(kind string) (EntityDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[kind]
	return def, ok
}

// Ordered returns all registered definitions in dependency order.
func Ordered() []EntityDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]EntityDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].Kind < result[j].Kind
	})

	return result
}
