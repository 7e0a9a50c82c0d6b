package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/healx/internal/config"
	"github.com/smallbiznis/healx/internal/identity"
	"go.uber.org/zap"
)

const (
	devAdminPrefix = "admin:"
	clockLeeway    = 30 * time.Second
)

var (
	ErrMissingToken      = errors.New("missing_token")
	ErrInvalidToken      = errors.New("invalid_token")
	ErrAuthNotConfigured = errors.New("auth_not_configured")
)

// Verifier turns a bearer token into the calling principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (identity.Principal, error)
}

// Claims carries the user id in sub and an optional role.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func NewVerifier(cfg config.Config, log *zap.Logger) (Verifier, error) {
	log = log.Named("auth")
	switch {
	case cfg.AuthJWTSecret != "":
		return NewJWTVerifier(cfg.AuthJWTSecret), nil
	case cfg.AuthDevTokens && !cfg.IsProduction():
		log.Warn("AUTH_JWT_SECRET not set, accepting raw user ids as bearer tokens")
		return DevVerifier{}, nil
	default:
		return nil, ErrAuthNotConfigured
	}
}

type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithLeeway(clockLeeway),
		),
	}
}

func (v *JWTVerifier) Verify(ctx context.Context, token string) (identity.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return identity.Principal{}, ErrMissingToken
	}

	var claims Claims
	parsed, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return identity.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return identity.Principal{}, ErrInvalidToken
	}
	role, ok := identity.ParseRole(claims.Role)
	if !ok {
		return identity.Principal{}, ErrInvalidToken
	}
	return identity.Principal{UserID: subject, Role: role}, nil
}

// DevVerifier treats the token itself as the user id. Local use only.
type DevVerifier struct{}

func (DevVerifier) Verify(ctx context.Context, token string) (identity.Principal, error) {
	token = strings.TrimSpace(token)
	role := identity.RolePatient
	if rest, ok := strings.CutPrefix(token, devAdminPrefix); ok {
		token = strings.TrimSpace(rest)
		role = identity.RoleAdmin
	}
	if token == "" {
		return identity.Principal{}, ErrMissingToken
	}
	return identity.Principal{UserID: token, Role: role}, nil
}

// BearerToken extracts the token of an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
