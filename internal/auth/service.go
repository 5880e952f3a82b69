package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/kasir-api/internal/common"
)

const defaultAccessTTL = 12 * time.Hour

// Service coordinates admin signup, credential checks and access tokens.
type Service struct {
	store     Store
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
	newID     func() string
	signer    jwa.SignatureAlgorithm
	validator TokenValidator
	issuer    string
	audience  string
	clockSkew time.Duration
	params    *argon2id.Params
}

// Config configures the auth service.
type Config struct {
	Store          Store
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
	// HashParams overrides argon2id.DefaultParams; tests use cheaper settings.
	HashParams *argon2id.Params
}

// SignupInput is the payload of POST /auth/signup.
type SignupInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginInput is the payload of POST /auth/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult bundles the admin with a freshly signed access token.
type LoginResult struct {
	Admin     Admin     `json:"admin"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("auth: store is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "kasir-api"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "kasir-admin"
	}
	clockSkew := max(cfg.ClockSkew, 0)
	params := cfg.HashParams
	if params == nil {
		params = argon2id.DefaultParams
	}

	return &Service{
		store:     cfg.Store,
		secret:    []byte(secret),
		accessTTL: accessTTL,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
		signer:    jwa.HS256,
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: clockSkew,
			Algorithm: jwa.HS256,
		},
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
		params:    params,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// FindByEmail returns the admin registered under email.
func (s *Service) FindByEmail(ctx context.Context, email string) (Admin, bool, error) {
	admin, err := s.store.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrAdminNotFound) {
		return Admin{}, false, nil
	}
	if err != nil {
		return Admin{}, false, fmt.Errorf("find admin: %w", err)
	}
	return admin, true, nil
}

// Signup creates an admin. A registered email is rejected before touching the
// store; the store's unique constraint covers concurrent signups.
func (s *Service) Signup(ctx context.Context, in SignupInput) (Admin, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := common.Validate(in); err != nil {
		return Admin{}, err
	}
	if _, found, err := s.FindByEmail(ctx, in.Email); err != nil {
		return Admin{}, err
	} else if found {
		return Admin{}, emailTaken()
	}

	hash, err := argon2id.CreateHash(in.Password, s.params)
	if err != nil {
		return Admin{}, fmt.Errorf("hash password: %w", err)
	}
	created, err := s.store.Create(ctx, Admin{
		ID:           s.newID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	})
	if errors.Is(err, ErrEmailTaken) {
		return Admin{}, emailTaken()
	}
	if err != nil {
		return Admin{}, fmt.Errorf("create admin: %w", err)
	}
	return created, nil
}

// Validate returns the admin whose credentials match, or an INVALID_CREDENTIALS
// error. Unknown email and wrong password are indistinguishable.
func (s *Service) Validate(ctx context.Context, email, password string) (Admin, error) {
	admin, found, err := s.FindByEmail(ctx, email)
	if err != nil {
		return Admin{}, err
	}
	if !found {
		return Admin{}, invalidCredentials()
	}
	ok, err := argon2id.ComparePasswordAndHash(password, admin.PasswordHash)
	if err != nil || !ok {
		return Admin{}, invalidCredentials()
	}
	return admin, nil
}

// Login validates credentials and issues a signed access token.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := common.Validate(in); err != nil {
		return LoginResult{}, err
	}
	admin, err := s.Validate(ctx, in.Email, in.Password)
	if err != nil {
		return LoginResult{}, err
	}
	token, expiresAt, err := s.signAccessToken(admin.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	return LoginResult{Admin: admin, Token: token, ExpiresAt: expiresAt}, nil
}

// Me fetches the authenticated admin.
func (s *Service) Me(ctx context.Context, adminID string) (Admin, error) {
	if strings.TrimSpace(adminID) == "" {
		return Admin{}, common.Unauthorized("", "unauthorized")
	}
	admin, err := s.store.FindByID(ctx, adminID)
	if errors.Is(err, ErrAdminNotFound) {
		return Admin{}, common.Unauthorized("", "unauthorized")
	}
	if err != nil {
		return Admin{}, fmt.Errorf("load admin: %w", err)
	}
	return admin, nil
}

// ParseAccessToken validates an access token and returns the subject (admin ID).
func (s *Service) ParseAccessToken(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", common.Unauthorized("", "missing token")
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return "", invalidToken(err)
	}
	if s.validator.Algorithm != "" && algorithm != s.validator.Algorithm {
		return "", invalidToken(fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret), jwt.WithValidate(false))
	if err != nil {
		return "", invalidToken(err)
	}
	if err := s.validator.Validate(parsed, algorithm, s.now()); err != nil {
		return "", invalidToken(err)
	}
	return parsed.Subject(), nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) != 1 {
		return "", fmt.Errorf("auth: expected one signature, got %d", len(signatures))
	}
	headers := signatures[0].ProtectedHeaders()
	if headers == nil {
		return "", errors.New("auth: token missing protected headers")
	}
	alg := headers.Algorithm()
	switch alg {
	case "":
		return "", errors.New("auth: token missing algorithm")
	case jwa.NoSignature:
		return "", errors.New("auth: token uses none algorithm")
	}
	return alg, nil
}

func (s *Service) signAccessToken(adminID string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	token, err := jwt.NewBuilder().
		JwtID(uuid.NewString()).
		Subject(adminID).
		Claim(roleClaim, RoleAdmin).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailTaken() *common.AppError {
	err := common.NewAppError(common.CodeEmailAlreadyUsed, "email is already registered", http.StatusBadRequest, nil)
	err.Details = map[string]any{"field": "email"}
	return err
}

func invalidCredentials() *common.AppError {
	return common.Unauthorized(common.CodeInvalidCredentials, "invalid email or password")
}

func invalidToken(cause error) *common.AppError {
	return common.NewAppError(common.CodeUnauthorized, "invalid token", http.StatusUnauthorized, cause)
}
