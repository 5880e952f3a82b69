package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// RoleAdmin is the only role issued today; tokens carry it in the "role" claim.
const RoleAdmin = "admin"

const roleClaim = "role"

var (
	// ErrTokenExpired marks a well-formed token whose exp has passed.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenRole marks a token without the admin role.
	ErrTokenRole = errors.New("auth: token does not grant admin access")
)

// TokenValidator checks the claims of a parsed admin access token.
type TokenValidator struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
}

// Validate checks the signing algorithm, subject, role, issuer, audience and
// the exp/nbf window at now.
func (v TokenValidator) Validate(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) error {
	switch {
	case tok == nil:
		return errors.New("auth: nil token")
	case algorithm == "":
		return errors.New("auth: token missing algorithm")
	case v.Algorithm != "" && algorithm != v.Algorithm:
		return fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	case tok.Subject() == "":
		return errors.New("auth: token does not name an admin")
	}

	opts := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithAcceptableSkew(max(v.ClockSkew, 0)),
		jwt.WithValidator(jwt.ValidatorFunc(requireAdminRole)),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}
	err := jwt.Validate(tok, opts...)
	if errors.Is(err, jwt.ErrTokenExpired()) {
		return fmt.Errorf("%w: %w", ErrTokenExpired, err)
	}
	return err
}

func requireAdminRole(_ context.Context, tok jwt.Token) jwt.ValidationError {
	raw, ok := tok.Get(roleClaim)
	if role, _ := raw.(string); !ok || role != RoleAdmin {
		return jwt.NewValidationError(ErrTokenRole)
	}
	return nil
}
