package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/suaiden-dev/matriculausa-rewards/internal/apperrors"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
)

const (
	defaultAccessTokenTTL = 15 * time.Minute
	defaultSigningMethod  = "HS256"
)

// Access tokens are issued by the platform auth system, the claims carry the actor
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	UserID       uuid.UUID   `json:"uid"`
	Role         models.Role `json:"role"`
	UniversityID *uuid.UUID  `json:"university_id,omitempty"`
}

// Token manager with sensible default
type Config struct {
	// Secret key shared with the auth system
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Lifetime of tokens issued by Issue
	// If not set than default is used
	AccessTTL time.Duration
}

type TokenManager struct {
	key       string
	alg       jwt.SigningMethod
	accessTTL time.Duration
}

func New(cfg Config) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg := jwt.GetSigningMethod(cfg.Alg)
	if _, ok := alg.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing method %q, HMAC expected", cfg.Alg)
	}

	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = defaultAccessTokenTTL
	}

	return &TokenManager{
		key:       cfg.SecretKey,
		alg:       alg,
		accessTTL: cfg.AccessTTL,
	}, nil
}

// Issue signs an access token for the actor
// Used by tooling and tests, production tokens come from the auth system
func (m *TokenManager) Issue(actor models.Actor) (string, time.Time, error) {
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(m.accessTTL)

	token := jwt.NewWithClaims(m.alg, AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   actor.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:       actor.ID,
		Role:         actor.Role,
		UniversityID: actor.UniversityID,
	})

	signed, err := token.SignedString([]byte(m.key))
	if err != nil {
		return "", expiresAt, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	return signed, expiresAt, nil
}

// Parse and validate access token
func (m *TokenManager) ParseAccess(access string) (models.Actor, error) {
	claims := &AccessTokenClaims{}

	_, err := jwt.ParseWithClaims(
		access,
		claims,
		func(t *jwt.Token) (any, error) {
			return []byte(m.key), nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return models.Actor{}, fmt.Errorf("%w: %w", apperrors.ErrUnauthenticated, err)
	}

	if claims.UserID == uuid.Nil {
		return models.Actor{}, fmt.Errorf("%w: token has no user", apperrors.ErrUnauthenticated)
	}

	switch claims.Role {
	case models.RoleStudent, models.RoleAdmin:
	case models.RoleUniversity:
		if claims.UniversityID == nil {
			return models.Actor{}, fmt.Errorf("%w: university token without university", apperrors.ErrUnauthenticated)
		}
	default:
		return models.Actor{}, fmt.Errorf("%w: unknown role %q", apperrors.ErrUnauthenticated, claims.Role)
	}

	return models.Actor{
		ID:           claims.UserID,
		Role:         claims.Role,
		UniversityID: claims.UniversityID,
	}, nil
}

// Authenticate reads the bearer token of the request
func (m *TokenManager) Authenticate(_ context.Context, r *http.Request) (models.Actor, error) {
	header := r.Header.Get("Authorization")

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return models.Actor{}, fmt.Errorf("%w: bearer token required", apperrors.ErrUnauthenticated)
	}

	return m.ParseAccess(strings.TrimSpace(token))
}
