package auth

import (
	"slices"
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// AllRoles is the closed set of roles, in seed order.
var AllRoles = []Role{RoleUser, RoleModerator, RoleAdmin}

// DefaultRole is bound to every account at signup.
const DefaultRole = RoleUser

func (r Role) Valid() bool {
	return slices.Contains(AllRoles, r)
}

// ParseRole resolves a role name case-insensitively. The "ROLE_" authority
// prefix is accepted.
func ParseRole(name string) (Role, bool) {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "ROLE_")
	r := Role(n)
	return r, r.Valid()
}

// RoleRecord is a persisted role row shared by many accounts.
type RoleRecord struct {
	ID   int64 `json:"id"`
	Name Role  `json:"name"`
}

type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the resolved subject of an authenticated request.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Roles    []Role `json:"roles"`
}

func (a *Account) Identity() *Identity {
	return &Identity{
		ID:       a.ID,
		Username: a.Username,
		Roles:    slices.Clone(a.Roles),
	}
}

func (i *Identity) HasRole(r Role) bool {
	return i != nil && slices.Contains(i.Roles, r)
}

func (i *Identity) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if i.HasRole(r) {
			return true
		}
	}
	return false
}
