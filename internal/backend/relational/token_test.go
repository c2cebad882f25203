package relational

import (
	"context"
	"testing"
	"time"

	"github.com/flexprice/staffdesk/internal/cache"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/testutil"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	calls    int
	lifetime time.Duration
}

func (c *countingSource) Name() string { return "counting" }

func (c *countingSource) FetchToken(ctx context.Context) (*Token, error) {
	c.calls++
	return &Token{AccessToken: "t", ExpiresIn: c.lifetime}, nil
}

func TestTokenProviderCachesWithEarlyExpiry(t *testing.T) {
	ctx := context.Background()

	long := &countingSource{lifetime: time.Hour}
	p := NewTokenProvider(long, cache.NewInMemoryCache(time.Hour), logger.NewNopLogger())
	for i := 0; i < 3; i++ {
		tok, err := p.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "t", tok)
	}
	assert.Equal(t, 1, long.calls)

	p.Invalidate(ctx)
	_, err := p.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, long.calls)

	short := &countingSource{lifetime: 4 * time.Minute}
	p = NewTokenProvider(short, cache.NewInMemoryCache(time.Hour), logger.NewNopLogger())
	_, _ = p.Token(ctx)
	_, _ = p.Token(ctx)
	assert.Equal(t, 2, short.calls, "tokens inside the early-expiry window are not cached")
}

func TestHTTPTokenSourceFallsBackToJWTExp(t *testing.T) {
	exp := time.Now().Add(2 * time.Hour)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "svc",
		"exp": exp.Unix(),
	}).SignedString([]byte("irrelevant"))
	require.NoError(t, err)

	client := testutil.NewMockHTTPClient()
	client.RegisterJSONResponse("POST", "/token", `{"access_token":"`+raw+`"}`)

	src := NewHTTPTokenSource(client, "https://auth.example.com/token", "id", "secret")
	tok, err := src.FetchToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, raw, tok.AccessToken)
	assert.InDelta(t, (2 * time.Hour).Seconds(), tok.ExpiresIn.Seconds(), 5)

	reqs := client.Requests()
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"client_id":"id","client_secret":"secret"}`, string(reqs[0].Body))
}

func TestJWTLifetimeOfOpaqueToken(t *testing.T) {
	assert.Equal(t, time.Duration(0), jwtLifetime("not-a-jwt", time.Now()))
}
