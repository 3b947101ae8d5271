package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Settings configures one OIDC issuer and the front end's OAuth2 client.
type Settings struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	JWKSURL      string
}

// Provider resolves the issuer's OAuth2 endpoints from its discovery document.
type Provider struct {
	settings   Settings
	httpClient *http.Client

	mu         sync.Mutex
	discovered *oauth2.Endpoint
}

// NewProvider creates a provider. A nil httpClient uses a 5s timeout client.
func NewProvider(settings Settings, httpClient *http.Client) *Provider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	settings.Issuer = strings.TrimSuffix(settings.Issuer, "/")
	return &Provider{settings: settings, httpClient: httpClient}
}

// Settings returns the provider settings.
func (p *Provider) Settings() Settings {
	return p.settings
}

// Endpoint returns the discovered endpoints, falling back to issuer + /oauth2/{authorize,token}.
// Only a successful discovery is cached.
func (p *Provider) Endpoint(ctx context.Context) oauth2.Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.discovered != nil {
		return *p.discovered
	}
	if ep, err := p.discover(ctx); err == nil {
		p.discovered = &ep
		return ep
	}
	return oauth2.Endpoint{
		AuthURL:  p.settings.Issuer + "/oauth2/authorize",
		TokenURL: p.settings.Issuer + "/oauth2/token",
	}
}

func (p *Provider) discover(ctx context.Context) (oauth2.Endpoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.settings.Issuer+"/.well-known/openid-configuration", nil)
	if err != nil {
		return oauth2.Endpoint{}, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return oauth2.Endpoint{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return oauth2.Endpoint{}, fmt.Errorf("discovery returned status %d", resp.StatusCode)
	}

	var doc struct {
		AuthorizationEndpoint string `json:"authorization_endpoint"`
		TokenEndpoint         string `json:"token_endpoint"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return oauth2.Endpoint{}, fmt.Errorf("failed to decode discovery document: %w", err)
	}
	if doc.AuthorizationEndpoint == "" || doc.TokenEndpoint == "" {
		return oauth2.Endpoint{}, fmt.Errorf("discovery document is missing endpoints")
	}
	return oauth2.Endpoint{AuthURL: doc.AuthorizationEndpoint, TokenURL: doc.TokenEndpoint}, nil
}

// LoginConfig contains OIDC login configuration for frontend
type LoginConfig struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	ClientID              string `json:"client_id"`
	RedirectURI           string `json:"redirect_uri"`
	Scope                 string `json:"scope"`
	AuthorizationURL      string `json:"authorization_url"`
	State                 string `json:"state"`
}

// LoginConfig returns what the front end needs to start an authorization code flow.
func (p *Provider) LoginConfig(ctx context.Context, state string) *LoginConfig {
	client := NewClient(p.settings, p.Endpoint(ctx))
	return &LoginConfig{
		AuthorizationEndpoint: client.config.Endpoint.AuthURL,
		TokenEndpoint:         client.config.Endpoint.TokenURL,
		ClientID:              p.settings.ClientID,
		RedirectURI:           p.settings.RedirectURI,
		Scope:                 strings.Join(client.config.Scopes, " "),
		AuthorizationURL:      client.AuthCodeURL(state),
		State:                 state,
	}
}
