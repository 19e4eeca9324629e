package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rentwise/rentwise/backend/go-services/internal/autherr"
	"github.com/rentwise/rentwise/backend/go-services/internal/config"
	"github.com/rentwise/rentwise/backend/go-services/internal/models"
	"github.com/rentwise/rentwise/backend/go-services/pkg/logger"
)

// Claims are the assertions carried by an access token. Roles are
// deliberately absent: authorization re-reads them from the identity store.
type Claims struct {
	Phone string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject the token asserts.
func (c *Claims) UserID() string { return c.Subject }

// Denylist is consulted on validation when configured (see package revocation).
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Engine issues and validates HS256 access tokens.
type Engine struct {
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	denylist Denylist
}

type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithDenylist enables revocation checks.
func WithDenylist(d Denylist) Option {
	return func(e *Engine) { e.denylist = d }
}

// New creates an Engine from the JWT section of the configuration.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg.JWT.Secret == "" {
		return nil, errors.New("tokens: signing secret is empty")
	}
	if cfg.JWT.AccessTokenTTL <= 0 {
		return nil, errors.New("tokens: token lifetime must be positive")
	}
	e := &Engine{
		secret: []byte(cfg.JWT.Secret),
		ttl:    cfg.JWT.AccessTokenTTL,
		now:    time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// TTL returns the configured token lifetime.
func (e *Engine) TTL() time.Duration { return e.ttl }

// Issue creates a signed access token for the user.
func (e *Engine) Issue(u *models.User) (string, error) {
	if u == nil || u.ID == "" {
		return "", errors.New("tokens: user has no id")
	}
	now := e.now()
	claims := Claims{
		Phone: u.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(e.ttl)),
		},
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString(e.secret)
}

// Validate verifies signature, algorithm and expiry. Every failure is
// reported as autherr.ErrInvalidToken so callers cannot tell which check failed.
func (e *Engine) Validate(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return e.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(e.now),
	)
	if err != nil || !tok.Valid || claims.Subject == "" {
		logger.Debugf("token rejected: %v", err)
		return nil, autherr.ErrInvalidToken
	}
	if e.denylist != nil && claims.ID != "" {
		revoked, err := e.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			// fail closed
			logger.Warnf("revocation lookup failed: %v", err)
			return nil, autherr.ErrInvalidToken
		}
		if revoked {
			return nil, autherr.ErrInvalidToken
		}
	}
	return claims, nil
}

// Revoke puts the token on the denylist until it would have expired anyway.
// Without a denylist tokens are purely stateless and this is a no-op.
func (e *Engine) Revoke(ctx context.Context, c *Claims) error {
	if e.denylist == nil || c == nil || c.ID == "" || c.ExpiresAt == nil {
		return nil
	}
	return e.denylist.Revoke(ctx, c.ID, c.ExpiresAt.Time.Sub(e.now()))
}
