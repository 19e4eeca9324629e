package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/rentwise/rentwise/backend/go-services/internal/autherr"
)

// Role is a permission bundle tag. A user may hold several at once.
type Role string

const (
	RoleTenant   Role = "tenant"
	RoleLandlord Role = "landlord"
	RoleAdmin    Role = "admin"
)

// VerificationStatus tracks real-name verification; it is independent of roles.
type VerificationStatus string

const (
	VerificationNotSubmitted VerificationStatus = "not_submitted"
	VerificationPending      VerificationStatus = "pending"
	VerificationApproved     VerificationStatus = "approved"
	VerificationRejected     VerificationStatus = "rejected"
)

// ExternalIdentity identifies a user at a third-party identity provider.
type ExternalIdentity struct {
	Provider       string `bson:"provider" json:"provider"`
	ProviderUserID string `bson:"providerUserId" json:"providerUserId"`
}

// User represents an identity record.
type User struct {
	ID                 string             `bson:"_id,omitempty" json:"id"`
	Phone              string             `bson:"phone,omitempty" json:"phone,omitempty"`
	ExternalIdentity   *ExternalIdentity  `bson:"externalIdentity,omitempty" json:"externalIdentity,omitempty"`
	PasswordHash       string             `bson:"passwordHash,omitempty" json:"-"`
	DisplayName        string             `bson:"displayName" json:"displayName"`
	Avatar             string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Roles              []Role             `bson:"roles" json:"roles"`
	VerificationStatus VerificationStatus `bson:"verificationStatus" json:"verificationStatus"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HasPassword reports whether a password was ever set for the user.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }

// HasAnyRole reports whether the user holds at least one of the given roles.
func (u *User) HasAnyRole(required []Role) bool {
	for _, want := range required {
		for _, have := range u.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Validate checks the record-level invariants: a login key is present and
// the role set is non-empty.
func (u *User) Validate() error {
	if u.Phone == "" && u.ExternalIdentity == nil {
		return fmt.Errorf("%w: phone or external identity required", autherr.ErrInvalidUser)
	}
	if u.ExternalIdentity != nil && (u.ExternalIdentity.Provider == "" || u.ExternalIdentity.ProviderUserID == "") {
		return fmt.Errorf("%w: incomplete external identity", autherr.ErrInvalidUser)
	}
	if len(u.Roles) == 0 {
		return fmt.Errorf("%w: roles must not be empty", autherr.ErrInvalidUser)
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate shared state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.ExternalIdentity != nil {
		ext := *u.ExternalIdentity
		c.ExternalIdentity = &ext
	}
	c.Roles = append([]Role(nil), u.Roles...)
	return &c
}

// ParseRoles converts raw role names into a de-duplicated role set.
// Unknown names and empty sets are rejected.
func ParseRoles(names []string) ([]Role, error) {
	seen := map[Role]bool{}
	out := make([]Role, 0, len(names))
	for _, n := range names {
		r := Role(strings.ToLower(strings.TrimSpace(n)))
		switch r {
		case RoleTenant, RoleLandlord, RoleAdmin:
		default:
			return nil, fmt.Errorf("%w: %q", autherr.ErrUnknownRole, n)
		}
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: roles must not be empty", autherr.ErrInvalidUser)
	}
	return out, nil
}
