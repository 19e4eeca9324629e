package federation

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rentwise/rentwise/backend/go-services/internal/config"
	"golang.org/x/oauth2"
)

// OIDCExchanger redeems an authorization code at an OpenID Connect
// provider and verifies the returned ID token. The verified subject is the
// external user id.
type OIDCExchanger struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewOIDCExchanger discovers the provider's endpoints and keys from its issuer URL.
func NewOIDCExchanger(ctx context.Context, cfg config.OIDCConfig) (*OIDCExchanger, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile"},
	}
	return NewOIDCExchangerWith(oc, provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})), nil
}

// NewOIDCExchangerWith builds an exchanger from explicit parts.
func NewOIDCExchangerWith(oc *oauth2.Config, verifier *oidc.IDTokenVerifier) *OIDCExchanger {
	return &OIDCExchanger{oauth: oc, verifier: verifier}
}

func (o *OIDCExchanger) Exchange(ctx context.Context, code string) (*Identity, error) {
	tok, err := o.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oidc: code exchange: %w", err)
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, errors.New("oidc: token response has no id_token")
	}
	idt, err := o.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("oidc: verify id_token: %w", err)
	}
	if idt.Subject == "" {
		return nil, errors.New("oidc: id_token has no subject")
	}
	return &Identity{ProviderUserID: idt.Subject}, nil
}
