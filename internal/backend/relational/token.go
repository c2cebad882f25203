package relational

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/flexprice/staffdesk/internal/cache"
	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/httpclient"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/golang-jwt/jwt/v4"
)

// tokenEarlyExpiry is subtracted from every token lifetime before caching
const tokenEarlyExpiry = 5 * time.Minute

// Token is a bearer token and its remaining lifetime
type Token struct {
	AccessToken string
	ExpiresIn   time.Duration
}

// TokenSource fetches a fresh access token from an identity provider
type TokenSource interface {
	Name() string
	FetchToken(ctx context.Context) (*Token, error)
}

// HTTPTokenSource exchanges client credentials for a token at a JSON endpoint
type HTTPTokenSource struct {
	client       httpclient.Client
	url          string
	clientID     string
	clientSecret string
}

func NewHTTPTokenSource(client httpclient.Client, url, clientID, clientSecret string) *HTTPTokenSource {
	return &HTTPTokenSource{
		client:       client,
		url:          url,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (s *HTTPTokenSource) Name() string {
	return "http:" + s.url
}

func (s *HTTPTokenSource) FetchToken(ctx context.Context) (*Token, error) {
	body, err := json.Marshal(tokenRequest{ClientID: s.clientID, ClientSecret: s.clientSecret})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode token request").
			Mark(ierr.ErrInternal)
	}

	resp, err := s.client.Send(ctx, &httpclient.Request{
		Method:  "POST",
		URL:     s.url,
		Headers: map[string]string{"Accept": "application/json"},
		Body:    body,
	})
	if err != nil {
		return nil, authError(err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Body, &tr); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Identity provider returned an unreadable token").
			Mark(ierr.ErrAuthFailed)
	}

	if tr.AccessToken == "" {
		return nil, ierr.NewError("token response has no access_token").
			WithHint("Identity provider did not return a token").
			Mark(ierr.ErrAuthFailed)
	}

	tok := &Token{AccessToken: tr.AccessToken}
	if tr.ExpiresIn > 0 {
		tok.ExpiresIn = time.Duration(tr.ExpiresIn) * time.Second
	} else {
		tok.ExpiresIn = jwtLifetime(tr.AccessToken, time.Now())
	}
	return tok, nil
}

// jwtLifetime reads the exp claim without verifying the signature. Tokens
// that are not JWTs or carry no exp have zero lifetime and are never cached.
func jwtLifetime(raw string, now time.Time) time.Duration {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return 0
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return 0
	}
	return time.Unix(int64(exp), 0).Sub(now)
}

// authError keeps cancellation distinct from a failed token exchange
func authError(err error) error {
	if ierr.IsCancelled(err) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return ierr.WithError(err).
			WithHint("Request was cancelled").
			Mark(ierr.ErrCancelled)
	}
	return ierr.WithError(err).
		WithHint("Could not obtain an access token for the database").
		Mark(ierr.ErrAuthFailed)
}

// TokenProvider caches tokens from a TokenSource until shortly before they expire
type TokenProvider struct {
	source TokenSource
	cache  cache.Cache
	key    string
	logger *logger.Logger

	// serializes fetches so concurrent callers share one exchange
	mu sync.Mutex
}

func NewTokenProvider(source TokenSource, c cache.Cache, log *logger.Logger) *TokenProvider {
	return &TokenProvider{
		source: source,
		cache:  c,
		key:    cache.GenerateKey(cache.PrefixToken, source.Name()),
		logger: log,
	}
}

// Token returns a cached token or fetches a new one
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	if tok, ok := p.cached(ctx); ok {
		return tok, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if tok, ok := p.cached(ctx); ok {
		return tok, nil
	}

	span := cache.StartTokenFetchSpan(ctx, p.source.Name())
	tok, err := p.source.FetchToken(ctx)
	cache.FinishTokenFetchSpan(span, err)
	if err != nil {
		return "", err
	}

	if ttl := tok.ExpiresIn - tokenEarlyExpiry; ttl > 0 {
		p.cache.Set(ctx, p.key, tok.AccessToken, ttl)
	} else {
		p.logger.Debugw("token lifetime too short to cache", "source", p.source.Name(), "expires_in", tok.ExpiresIn)
	}
	return tok.AccessToken, nil
}

// Invalidate drops the cached token so the next call fetches a fresh one
func (p *TokenProvider) Invalidate(ctx context.Context) {
	p.cache.Delete(ctx, p.key)
}

func (p *TokenProvider) cached(ctx context.Context) (string, bool) {
	v, ok := p.cache.Get(ctx, p.key)
	if !ok {
		return "", false
	}
	tok, ok := v.(string)
	return tok, ok && tok != ""
}
