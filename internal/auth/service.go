// Package auth exposes the boundary operations of the identity core:
// registration, password and federated login, token authentication,
// authorization and logout.
package auth

import (
	"context"
	"sync"

	"github.com/rentwise/rentwise/backend/go-services/internal/autherr"
	"github.com/rentwise/rentwise/backend/go-services/internal/authz"
	"github.com/rentwise/rentwise/backend/go-services/internal/federation"
	"github.com/rentwise/rentwise/backend/go-services/internal/models"
	"github.com/rentwise/rentwise/backend/go-services/internal/password"
	"github.com/rentwise/rentwise/backend/go-services/internal/tokens"
	"github.com/rentwise/rentwise/backend/go-services/internal/users"
	"github.com/rentwise/rentwise/backend/go-services/pkg/logger"
	"github.com/rentwise/rentwise/backend/go-services/pkg/metrics"
)

// Result is returned by every successful login or registration.
type Result struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
}

type Service struct {
	users   *users.Service
	hasher  password.Hasher
	tokens  *tokens.Engine
	decider *authz.Decider
	fed     *federation.Adapter

	dummyOnce sync.Once
	dummyHash string
}

// NewService wires the components. fed may be nil when no provider is configured.
func NewService(u *users.Service, h password.Hasher, t *tokens.Engine, d *authz.Decider, fed *federation.Adapter) *Service {
	return &Service{users: u, hasher: h, tokens: t, decider: d, fed: fed}
}

// RegisterWithPassword creates a password user and signs them in. Mismatched
// or out-of-policy passwords are rejected before the store is touched.
func (s *Service) RegisterWithPassword(ctx context.Context, phone, plaintext, confirm, displayName string) (*Result, error) {
	res, err := s.register(ctx, phone, plaintext, confirm, displayName)
	recordAttempt("register", err)
	return res, err
}

func (s *Service) register(ctx context.Context, phone, plaintext, confirm, displayName string) (*Result, error) {
	if plaintext != confirm {
		return nil, autherr.ErrPasswordMismatch
	}
	if !password.WithinPolicy(plaintext) {
		return nil, autherr.ErrPasswordPolicy
	}
	u, err := s.users.CreateWithPassword(ctx, phone, plaintext, displayName)
	if err != nil {
		return nil, err
	}
	logger.Infof("auth: registered user %s", u.ID)
	return s.issue(u)
}

// LoginWithPassword reports ErrInvalidCredentials for an unknown phone, a
// user without a password, and a wrong password alike.
func (s *Service) LoginWithPassword(ctx context.Context, phone, plaintext string) (*Result, error) {
	res, err := s.login(ctx, phone, plaintext)
	recordAttempt("password", err)
	return res, err
}

func (s *Service) login(ctx context.Context, phone, plaintext string) (*Result, error) {
	u, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.HasPassword() {
		// keep timing close to the wrong-password path
		s.hasher.Verify(plaintext, s.dummy())
		return nil, autherr.ErrInvalidCredentials
	}
	if !s.hasher.Verify(plaintext, u.PasswordHash) {
		return nil, autherr.ErrInvalidCredentials
	}
	return s.issue(u)
}

// LoginWithFederatedIdentity signs in through a configured provider.
func (s *Service) LoginWithFederatedIdentity(ctx context.Context, req federation.LoginRequest) (*Result, error) {
	if s.fed == nil {
		recordAttempt("federated", autherr.ErrFederationExchangeFailed)
		return nil, autherr.ErrFederationExchangeFailed
	}
	u, tok, err := s.fed.Login(ctx, req)
	recordAttempt("federated", err)
	if err != nil {
		return nil, err
	}
	return &Result{User: u, AccessToken: tok}, nil
}

// Authenticate validates a presented token.
func (s *Service) Authenticate(ctx context.Context, raw string) (*tokens.Claims, error) {
	return s.tokens.Validate(ctx, raw)
}

// Authorize never fails; a deny carries its reason.
func (s *Service) Authorize(ctx context.Context, claims *tokens.Claims, required ...models.Role) authz.Decision {
	return s.decider.Authorize(ctx, claims, required...)
}

// Logout revokes the presented token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, claims *tokens.Claims) error {
	return s.tokens.Revoke(ctx, claims)
}

// ChangePassword replaces the caller's password. Users that already have a
// password must present it.
func (s *Service) ChangePassword(ctx context.Context, userID, current, plaintext, confirm string) error {
	if plaintext != confirm {
		return autherr.ErrPasswordMismatch
	}
	if !password.WithinPolicy(plaintext) {
		return autherr.ErrPasswordPolicy
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return autherr.ErrUserNotFound
	}
	if u.HasPassword() && !s.hasher.Verify(current, u.PasswordHash) {
		return autherr.ErrInvalidCredentials
	}
	_, err = s.users.ChangePassword(ctx, userID, plaintext)
	return err
}

func (s *Service) issue(u *models.User) (*Result, error) {
	tok, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &Result{User: u, AccessToken: tok}, nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("rentwise-placeholder")
		if err != nil {
			logger.Warnf("auth: placeholder hash: %v", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func recordAttempt(method string, err error) {
	outcome := "success"
	if err != nil {
		outcome = autherr.Code(err)
	}
	metrics.LoginAttempts.WithLabelValues(method, outcome).Inc()
}
