// Package authz decides whether a validated caller may access a resource.
package authz

import (
	"context"
	"fmt"

	"github.com/rentwise/rentwise/backend/go-services/internal/autherr"
	"github.com/rentwise/rentwise/backend/go-services/internal/models"
	"github.com/rentwise/rentwise/backend/go-services/internal/tokens"
	"github.com/rentwise/rentwise/backend/go-services/pkg/metrics"
)

// UserLookup is the read side of the identity store the decider needs.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Decision is the outcome of an authorization check. Reason is set on deny.
type Decision struct {
	Allowed bool
	Reason  error
	User    *models.User
}

// Decider re-reads the caller's roles from the identity store on every
// check, so role changes apply to tokens that were issued earlier.
type Decider struct {
	users UserLookup
}

func NewDecider(u UserLookup) *Decider {
	return &Decider{users: u}
}

// Authorize allows when required is empty, or when the current user holds at
// least one of the required roles. It only reads and never mutates state.
func (d *Decider) Authorize(ctx context.Context, claims *tokens.Claims, required ...models.Role) Decision {
	dec := d.decide(ctx, claims, required)
	outcome := "allow"
	if !dec.Allowed {
		outcome = autherr.Code(dec.Reason)
	}
	metrics.AuthzDecisions.WithLabelValues(outcome).Inc()
	return dec
}

func (d *Decider) decide(ctx context.Context, claims *tokens.Claims, required []models.Role) Decision {
	if claims == nil {
		return Decision{Reason: autherr.ErrInvalidToken}
	}
	if len(required) == 0 {
		return Decision{Allowed: true}
	}
	u, err := d.users.FindByID(ctx, claims.UserID())
	if err != nil {
		return Decision{Reason: fmt.Errorf("resolve subject: %w", err)}
	}
	if u == nil {
		return Decision{Reason: autherr.ErrUnknownSubject}
	}
	if !u.HasAnyRole(required) {
		return Decision{Reason: autherr.ErrInsufficientRole, User: u}
	}
	return Decision{Allowed: true, User: u}
}
