// Package auth builds authenticated HTTP clients for the DAM API.
//
// Supported schemes, in order of precedence: legacy OAuth1 consumer/token signing,
// a permanent token, and OAuth2 tokens obtained through the authorization code or
// client credentials grant.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/dghubble/oauth1"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	authorizePath = "v6/authentication/oauth2/auth"
	tokenPath     = "v6/authentication/oauth2/token"
)

// ErrNotAuthenticated is returned when a client is requested before any credentials are available.
var ErrNotAuthenticated = errors.New("not authenticated: no token, permanent token or OAuth1 credentials")

// OAuth1Credentials are the consumer and token pairs of the legacy OAuth1 scheme.
type OAuth1Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	Token          string
	TokenSecret    string
}

func (c OAuth1Credentials) empty() bool {
	return c.ConsumerKey == "" && c.Token == ""
}

// Config holds the credentials of an API client. Only the fields of the chosen scheme need to be set.
type Config struct {
	BaseURL        string
	ClientID       string
	ClientSecret   string
	RedirectURL    string
	Scopes         []string
	PermanentToken string
	OAuth1         OAuth1Credentials
}

// Authenticator holds the credentials of one API client. The token source is shared by every
// HTTP client it creates, so concurrent requests trigger at most one token refresh.
type Authenticator struct {
	config Config
	oauth  *oauth2.Config
	logger log.Logger

	permanent oauth2.TokenSource

	mu     sync.RWMutex
	source oauth2.TokenSource
}

// NewAuthenticator ...
func NewAuthenticator(config Config, logger log.Logger) (*Authenticator, error) {
	base, err := url.Parse(config.BaseURL)
	if err != nil || !base.IsAbs() {
		return nil, fmt.Errorf("invalid base URL: %q", config.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	if !config.OAuth1.empty() && (config.OAuth1.ConsumerKey == "" || config.OAuth1.Token == "") {
		return nil, errors.New("OAuth1 credentials need both a consumer key and a token")
	}

	a := &Authenticator{
		config: config,
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       config.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  base.ResolveReference(&url.URL{Path: authorizePath}).String(),
				TokenURL: base.ResolveReference(&url.URL{Path: tokenPath}).String(),
			},
		},
		logger: logger,
	}
	if config.PermanentToken != "" {
		a.permanent = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.PermanentToken, TokenType: "Bearer"})
	}

	return a, nil
}

// AuthorizationURL returns the URL the user visits to grant access. state is echoed back to the redirect URL.
func (a *Authenticator) AuthorizationURL(state string) string {
	return a.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token and keeps it for subsequent requests.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, errors.New("authorization code is required")
	}

	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	a.logger.Debugf("Obtained OAuth2 token, expires at %s", token.Expiry)

	a.SetToken(token)
	return token, nil
}

// SetToken installs a previously obtained token. It is refreshed through the token endpoint once expired.
func (a *Authenticator) SetToken(token *oauth2.Token) {
	a.setSource(a.oauth.TokenSource(context.Background(), token))
}

// UseClientCredentials switches to the client credentials grant.
func (a *Authenticator) UseClientCredentials() {
	cc := &clientcredentials.Config{
		ClientID:     a.oauth.ClientID,
		ClientSecret: a.oauth.ClientSecret,
		TokenURL:     a.oauth.Endpoint.TokenURL,
		Scopes:       a.oauth.Scopes,
	}
	a.setSource(oauth2.ReuseTokenSource(nil, cc.TokenSource(context.Background())))
}

// Token returns the current OAuth2 token, refreshing it when needed.
func (a *Authenticator) Token() (*oauth2.Token, error) {
	source := a.tokenSource()
	if source == nil {
		return nil, ErrNotAuthenticated
	}
	return source.Token()
}

// HTTPClient returns a client authenticating every request on top of base (http.DefaultClient when nil).
// Credentials are resolved per request, so a client created before Exchange uses the token obtained later.
func (a *Authenticator) HTTPClient(base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	return &http.Client{
		Transport:     a.RoundTripper(base.Transport),
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
		Timeout:       base.Timeout,
	}
}

// RoundTripper wraps base (http.DefaultTransport when nil) with request authentication.
func (a *Authenticator) RoundTripper(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	if !a.config.OAuth1.empty() {
		a.logger.Debugf("Authenticating with OAuth1 consumer %s", a.config.OAuth1.ConsumerKey)
		config := oauth1.NewConfig(a.config.OAuth1.ConsumerKey, a.config.OAuth1.ConsumerSecret)
		token := oauth1.NewToken(a.config.OAuth1.Token, a.config.OAuth1.TokenSecret)
		ctx := context.WithValue(context.Background(), oauth1.HTTPClient, &http.Client{Transport: base})
		return config.Client(ctx, token).Transport
	}

	return &bearerTransport{auth: a, base: base}
}

type bearerTransport struct {
	auth *Authenticator
	base http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	source := t.auth.tokenSource()
	if source == nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, ErrNotAuthenticated
	}
	return (&oauth2.Transport{Source: source, Base: t.base}).RoundTrip(req)
}

func (a *Authenticator) setSource(source oauth2.TokenSource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source = source
}

func (a *Authenticator) tokenSource() oauth2.TokenSource {
	if a.config.PermanentToken != "" {
		return a.permanent
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.source
}
