package auth

import (
	"context"
	"fmt"
)

// RoleSource lists the persisted role rows.
type RoleSource interface {
	ListRoles(ctx context.Context) ([]RoleRecord, error)
}

// RoleRegistry is the read-only set of role records loaded at startup. It is
// safe for concurrent use because it is never mutated after construction.
type RoleRegistry struct {
	byName map[Role]RoleRecord
}

// NewRoleRegistry indexes records by name. A record whose name is outside
// the closed enumeration is rejected.
func NewRoleRegistry(records []RoleRecord) (*RoleRegistry, error) {
	byName := make(map[Role]RoleRecord, len(records))
	for _, rec := range records {
		if !rec.Name.Valid() {
			return nil, fmt.Errorf("unknown role %q in registry", rec.Name)
		}
		byName[rec.Name] = rec
	}
	return &RoleRegistry{byName: byName}, nil
}

func LoadRoleRegistry(ctx context.Context, src RoleSource) (*RoleRegistry, error) {
	records, err := src.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return NewRoleRegistry(records)
}

func (r *RoleRegistry) Lookup(name Role) (RoleRecord, bool) {
	rec, ok := r.byName[name]
	return rec, ok
}

// Validate checks that every seeded role resolves.
func (r *RoleRegistry) Validate() error {
	for _, name := range AllRoles {
		if _, ok := r.byName[name]; !ok {
			return fmt.Errorf("%w: %s", ErrRoleRegistryCorrupt, name)
		}
	}
	return nil
}

// Records returns the registry contents in enumeration order.
func (r *RoleRegistry) Records() []RoleRecord {
	out := make([]RoleRecord, 0, len(r.byName))
	for _, name := range AllRoles {
		if rec, ok := r.byName[name]; ok {
			out = append(out, rec)
		}
	}
	return out
}
