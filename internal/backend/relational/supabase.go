package relational

import (
	"context"
	"time"

	"github.com/nedpals/supabase-go"
)

// SupabaseTokenSource signs in a service user with email and password
// through Supabase Auth and uses the session access token
type SupabaseTokenSource struct {
	client   *supabase.Client
	url      string
	email    string
	password string
}

func NewSupabaseTokenSource(url, key, email, password string) *SupabaseTokenSource {
	return &SupabaseTokenSource{
		client:   supabase.CreateClient(url, key),
		url:      url,
		email:    email,
		password: password,
	}
}

func (s *SupabaseTokenSource) Name() string {
	return "supabase:" + s.url + ":" + s.email
}

func (s *SupabaseTokenSource) FetchToken(ctx context.Context) (*Token, error) {
	details, err := s.client.Auth.SignIn(ctx, supabase.UserCredentials{
		Email:    s.email,
		Password: s.password,
	})
	if err != nil {
		return nil, authError(err)
	}

	lifetime := time.Duration(details.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = jwtLifetime(details.AccessToken, time.Now())
	}
	return &Token{AccessToken: details.AccessToken, ExpiresIn: lifetime}, nil
}
