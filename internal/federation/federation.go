// Package federation signs users in through third-party identity providers.
// A provider turns a one-time code into a stable external user id; the
// adapter then finds or creates the matching local user and issues a token.
package federation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rentwise/rentwise/backend/go-services/internal/autherr"
	"github.com/rentwise/rentwise/backend/go-services/internal/models"
	"github.com/rentwise/rentwise/backend/go-services/internal/users"
	"github.com/rentwise/rentwise/backend/go-services/pkg/logger"
)

// Identity is what a provider reports back for a valid code.
type Identity struct {
	ProviderUserID string
	UnionID        string
}

// Exchanger performs the single network exchange with one provider.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// ExchangerFunc adapts a plain function to Exchanger.
type ExchangerFunc func(ctx context.Context, code string) (*Identity, error)

func (f ExchangerFunc) Exchange(ctx context.Context, code string) (*Identity, error) {
	return f(ctx, code)
}

// UserStore is the subset of the identity store used on the federated path.
type UserStore interface {
	FindByExternalIdentity(ctx context.Context, provider, providerUserID string) (*models.User, error)
	CreateFromExternalIdentity(ctx context.Context, ext models.ExternalIdentity, displayName, avatar string) (*models.User, error)
	UpdateProfileFields(ctx context.Context, id string, upd users.ProfileUpdate) (*models.User, error)
}

// TokenIssuer signs access tokens for resolved users.
type TokenIssuer interface {
	Issue(u *models.User) (string, error)
}

type LoginRequest struct {
	Provider    string
	Code        string
	DisplayName string
	Avatar      string
}

type Adapter struct {
	users      UserStore
	tokens     TokenIssuer
	timeout    time.Duration
	exchangers map[string]Exchanger
}

// NewAdapter registers one exchanger per provider name. The timeout bounds
// each exchange; a non-positive value means no extra bound.
func NewAdapter(u UserStore, t TokenIssuer, timeout time.Duration, exchangers map[string]Exchanger) *Adapter {
	ex := make(map[string]Exchanger, len(exchangers))
	for name, e := range exchangers {
		ex[name] = e
	}
	return &Adapter{users: u, tokens: t, timeout: timeout, exchangers: ex}
}

// Providers lists the registered provider names.
func (a *Adapter) Providers() []string {
	out := make([]string, 0, len(a.exchangers))
	for name := range a.exchangers {
		out = append(out, name)
	}
	return out
}

// Login runs exchange, resolve and issue for one attempt.
func (a *Adapter) Login(ctx context.Context, req LoginRequest) (*models.User, string, error) {
	id, err := a.exchange(ctx, req.Provider, req.Code)
	if err != nil {
		return nil, "", err
	}
	u, err := a.resolve(ctx, models.ExternalIdentity{Provider: req.Provider, ProviderUserID: id.ProviderUserID}, req.DisplayName, req.Avatar)
	if err != nil {
		return nil, "", err
	}
	tok, err := a.tokens.Issue(u)
	if err != nil {
		return nil, "", err
	}
	return u, tok, nil
}

func (a *Adapter) exchange(ctx context.Context, provider, code string) (*Identity, error) {
	ex, ok := a.exchangers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", autherr.ErrFederationExchangeFailed, provider)
	}
	if code == "" {
		return nil, fmt.Errorf("%w: empty code", autherr.ErrFederationExchangeFailed)
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	id, err := ex.Exchange(ctx, code)
	if err != nil {
		logger.Warnf("federation: %s exchange failed: %v", provider, err)
		return nil, fmt.Errorf("%w: %s: %v", autherr.ErrFederationExchangeFailed, provider, err)
	}
	if id == nil || id.ProviderUserID == "" {
		return nil, fmt.Errorf("%w: %s returned no user id", autherr.ErrFederationExchangeFailed, provider)
	}
	return id, nil
}

func (a *Adapter) resolve(ctx context.Context, ext models.ExternalIdentity, displayName, avatar string) (*models.User, error) {
	u, err := a.users.FindByExternalIdentity(ctx, ext.Provider, ext.ProviderUserID)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return a.refresh(ctx, u, displayName, avatar), nil
	}

	u, err = a.users.CreateFromExternalIdentity(ctx, ext, displayName, avatar)
	if err == nil {
		logger.Infof("federation: created user %s for %s", u.ID, ext.Provider)
		return u, nil
	}
	if !errors.Is(err, autherr.ErrDuplicateExternalIdentity) {
		return nil, err
	}

	// lost a create race; the winner's record is now visible
	u, err = a.users.FindByExternalIdentity(ctx, ext.Provider, ext.ProviderUserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("resolve %s identity: record missing after duplicate insert", ext.Provider)
	}
	return u, nil
}

// refresh applies supplied profile changes. Failures are logged and the
// stored record is returned unchanged.
func (a *Adapter) refresh(ctx context.Context, u *models.User, displayName, avatar string) *models.User {
	var upd users.ProfileUpdate
	if displayName != "" && displayName != u.DisplayName {
		upd.DisplayName = displayName
	}
	if avatar != "" && avatar != u.Avatar {
		upd.Avatar = avatar
	}
	if upd.DisplayName == "" && upd.Avatar == "" {
		return u
	}
	updated, err := a.users.UpdateProfileFields(ctx, u.ID, upd)
	if err != nil || updated == nil {
		logger.Warnf("federation: profile refresh for %s failed: %v", u.ID, err)
		return u
	}
	return updated
}
