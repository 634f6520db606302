// Package oauth obtains and refreshes bearer credentials from an OAuth token
// authority using the client-credentials grant.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultTokenURL is the Camunda SaaS token authority.
	DefaultTokenURL = "https://login.cloud.camunda.io/oauth/token"
	// DefaultAudience is the audience Zeebe gateways accept.
	DefaultAudience = "zeebe.camunda.io"
	// DefaultRefreshSkew is how long before expiry a token is renewed.
	DefaultRefreshSkew = 30 * time.Second
)

// Config holds client-credential exchange settings
type Config struct {
	TokenURL     string
	Audience     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	RefreshSkew  time.Duration
	HTTPClient   *http.Client
}

// Credential is a bearer token and the instant it stops being valid.
type Credential struct {
	AccessToken string
	TokenType   string
	Expiry      time.Time
}

// ExpiresIn returns the remaining validity, zero when the token has no expiry.
func (c *Credential) ExpiresIn(now time.Time) time.Duration {
	if c.Expiry.IsZero() {
		return 0
	}
	return c.Expiry.Sub(now)
}

// AuthError reports a failed credential acquisition or refresh.
type AuthError struct {
	TokenURL string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("oauth: token request to %s failed: %v", e.TokenURL, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err carries an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Provider hands out the current bearer token and renews it before expiry.
// It is safe for concurrent use.
type Provider struct {
	tokenURL string
	source   oauth2.TokenSource
	logger   *slog.Logger
}

// NewProvider creates a Provider. No request is made until Acquire or Token.
func NewProvider(config *Config, logger *slog.Logger) *Provider {
	tokenURL := config.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	skew := config.RefreshSkew
	if skew <= 0 {
		skew = DefaultRefreshSkew
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	params := url.Values{}
	if config.Audience != "" {
		params.Set("audience", config.Audience)
	}

	exchange := &exchangeSource{
		config: &clientcredentials.Config{
			ClientID:       config.ClientID,
			ClientSecret:   config.ClientSecret,
			TokenURL:       tokenURL,
			Scopes:         config.Scopes,
			EndpointParams: params,
			AuthStyle:      oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
		logger:     logger,
	}

	return &Provider{
		tokenURL: tokenURL,
		source:   oauth2.ReuseTokenSourceWithExpiry(nil, exchange, skew),
		logger:   logger,
	}
}

// Acquire returns a valid credential, performing the exchange if nothing is
// cached yet.
func (p *Provider) Acquire(ctx context.Context) (*Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, &AuthError{TokenURL: p.tokenURL, Err: err}
	}

	// The token source has no context; the caller's deadline bounds the wait
	// and the HTTP client timeout bounds the exchange itself.
	type tokenResult struct {
		tok *oauth2.Token
		err error
	}
	ch := make(chan tokenResult, 1)
	go func() {
		tok, err := p.source.Token()
		ch <- tokenResult{tok: tok, err: err}
	}()

	var tok *oauth2.Token
	select {
	case <-ctx.Done():
		return nil, &AuthError{TokenURL: p.tokenURL, Err: ctx.Err()}
	case r := <-ch:
		if r.err != nil {
			return nil, &AuthError{TokenURL: p.tokenURL, Err: r.err}
		}
		tok = r.tok
	}

	return &Credential{
		AccessToken: tok.AccessToken,
		TokenType:   tok.Type(),
		Expiry:      tok.Expiry,
	}, nil
}

// Token returns the current access token string.
func (p *Provider) Token(ctx context.Context) (string, error) {
	cred, err := p.Acquire(ctx)
	if err != nil {
		return "", err
	}
	return cred.AccessToken, nil
}

// exchangeSource performs one client-credential exchange per Token call;
// caching is left to the wrapping ReuseTokenSource.
type exchangeSource struct {
	config     *clientcredentials.Config
	httpClient *http.Client
	logger     *slog.Logger
}

func (s *exchangeSource) Token() (*oauth2.Token, error) {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, s.httpClient)

	tok, err := s.config.Token(ctx)
	if err != nil {
		s.logger.Error("Failed to obtain access token",
			slog.String("token_url", s.config.TokenURL),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("Access token obtained",
		slog.String("token_url", s.config.TokenURL),
		slog.Time("expiry", tok.Expiry),
	)

	return tok, nil
}
