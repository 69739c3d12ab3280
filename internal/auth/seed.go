package auth

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedAccount is one bootstrap account from the accounts file.
type SeedAccount struct {
	Username string   `yaml:"username"`
	Email    string   `yaml:"email"`
	Password string   `yaml:"password"`
	Roles    []string `yaml:"roles"`
}

type seedFile struct {
	Accounts []SeedAccount `yaml:"accounts"`
}

func LoadSeedFile(path string) ([]SeedAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f.Accounts, nil
}

// Seed creates the given accounts, skipping usernames that already exist.
// An account without roles gets the default role. It returns how many
// accounts were created.
func (s *Service) Seed(ctx context.Context, accounts []SeedAccount) (int, error) {
	created := 0
	for _, sa := range accounts {
		exists, err := s.accounts.ExistsByUsername(ctx, sa.Username)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		if err := ValidateSignup(sa.Username, sa.Email, sa.Password); err != nil {
			return created, fmt.Errorf("seed account %q: %w", sa.Username, err)
		}
		roles, err := s.resolveRoles(sa.Roles)
		if err != nil {
			return created, fmt.Errorf("seed account %q: %w", sa.Username, err)
		}
		digest, err := s.hasher.Hash(sa.Password)
		if err != nil {
			return created, err
		}
		if _, err := s.accounts.Create(ctx, &Account{
			Username:     sa.Username,
			Email:        sa.Email,
			PasswordHash: digest,
		}, roles); err != nil {
			return created, fmt.Errorf("seed account %q: %w", sa.Username, err)
		}
		s.logger.Info("seeded account", "username", sa.Username, "roles", sa.Roles)
		created++
	}
	return created, nil
}

func (s *Service) resolveRoles(names []string) ([]RoleRecord, error) {
	if len(names) == 0 {
		names = []string{string(DefaultRole)}
	}
	out := make([]RoleRecord, 0, len(names))
	for _, n := range names {
		r, ok := ParseRole(n)
		if !ok {
			return nil, fmt.Errorf("unknown role %q", n)
		}
		rec, ok := s.roles.Lookup(r)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrRoleRegistryCorrupt, r)
		}
		out = append(out, rec)
	}
	return out, nil
}
