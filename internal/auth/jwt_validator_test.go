package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

func buildToken(t *testing.T, mutate func(*jwt.Builder) *jwt.Builder) jwt.Token {
	t.Helper()
	now := time.Now()
	b := jwt.NewBuilder().
		Issuer("kasir-api").
		Audience([]string{"kasir-admin"}).
		Subject("admin-1").
		Claim("role", RoleAdmin).
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(time.Minute))
	if mutate != nil {
		b = mutate(b)
	}
	tok, err := b.Build()
	require.NoError(t, err)
	return tok
}

func TestTokenValidator(t *testing.T) {
	now := time.Now()
	validator := TokenValidator{Issuer: "kasir-api", Audience: "kasir-admin", ClockSkew: time.Second, Algorithm: jwa.HS256}

	tests := []struct {
		name    string
		mutate  func(*jwt.Builder) *jwt.Builder
		alg     jwa.SignatureAlgorithm
		wantErr bool
	}{
		{name: "valid", alg: jwa.HS256},
		{name: "issuer mismatch", alg: jwa.HS256, wantErr: true, mutate: func(b *jwt.Builder) *jwt.Builder { return b.Issuer("other") }},
		{name: "audience mismatch", alg: jwa.HS256, wantErr: true, mutate: func(b *jwt.Builder) *jwt.Builder { return b.Audience([]string{"shop"}) }},
		{name: "expired", alg: jwa.HS256, wantErr: true, mutate: func(b *jwt.Builder) *jwt.Builder { return b.Expiration(now.Add(-time.Minute)) }},
		{name: "not yet valid", alg: jwa.HS256, wantErr: true, mutate: func(b *jwt.Builder) *jwt.Builder { return b.NotBefore(now.Add(5 * time.Minute)) }},
		{name: "missing subject", alg: jwa.HS256, wantErr: true, mutate: func(b *jwt.Builder) *jwt.Builder { return b.Subject("") }},
		{name: "wrong role", alg: jwa.HS256, wantErr: true, mutate: func(b *jwt.Builder) *jwt.Builder { return b.Claim("role", "cashier") }},
		{name: "algorithm mismatch", alg: jwa.RS256, wantErr: true},
		{name: "no algorithm", alg: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(buildToken(t, tt.mutate), tt.alg, now)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTokenValidatorExpiredSentinel(t *testing.T) {
	now := time.Now()
	tok := buildToken(t, func(b *jwt.Builder) *jwt.Builder { return b.Expiration(now.Add(-time.Hour)) })
	err := TokenValidator{Algorithm: jwa.HS256}.Validate(tok, jwa.HS256, now)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenValidatorNil(t *testing.T) {
	require.Error(t, TokenValidator{}.Validate(nil, jwa.HS256, time.Now()))
}
