package domain

import (
	"strings"
	"time"
)

// Role is an application role carried in the caller's token.
type Role string

const (
	RoleOrganizer Role = "organizer"
	RoleAudience  Role = "audience"
)

// ParseRole normalises a role code. ok is false for unknown codes.
func ParseRole(code string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(code)))
	switch r {
	case RoleOrganizer, RoleAudience:
		return r, true
	}
	return "", false
}

// Capability is a permission checked by services instead of comparing role names.
type Capability string

const (
	// CapabilityManageEvents allows creating, updating and deleting events.
	CapabilityManageEvents Capability = "events:manage"
)

var roleCapabilities = map[Role][]Capability{
	RoleOrganizer: {CapabilityManageEvents},
	RoleAudience:  nil,
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Roles  []Role
}

// NewPrincipal returns a Principal for userID holding the known roles among codes.
func NewPrincipal(userID string, codes []string) *Principal {
	p := &Principal{UserID: userID}
	for _, c := range codes {
		if r, ok := ParseRole(c); ok && !p.HasRole(r) {
			p.Roles = append(p.Roles, r)
		}
	}
	return p
}

// HasRole reports whether p holds role. A nil principal holds nothing.
func (p *Principal) HasRole(role Role) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Can reports whether any of p's roles grants capability.
func (p *Principal) Can(capability Capability) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		for _, c := range roleCapabilities[r] {
			if c == capability {
				return true
			}
		}
	}
	return false
}

// IsAudience reports whether the caller attends events, which enables the
// per-event registration flag on reads.
func (p *Principal) IsAudience() bool {
	return p.HasRole(RoleAudience)
}

// ID returns the caller's user ID, or "" for anonymous callers.
func (p *Principal) ID() string {
	if p == nil {
		return ""
	}
	return p.UserID
}

// User is the organizer projection loaded alongside events.
// swagger:model User
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated caller.
type TokenVerifier interface {
	Verify(token string) (*Principal, error)
}
