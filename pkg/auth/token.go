package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// clockSkew tolerates drift between the identity service and API replicas.
const clockSkew = 30 * time.Second

// MintAccessToken signs a token for payload. Production tokens come from the
// identity service; local tooling and tests share the secret and mint here.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := validateSigner(cfg); err != nil {
		return "", err
	}
	if cfg.ExpirationMinutes <= 0 {
		return "", errors.New("jwt expiration minutes must be positive")
	}
	if err := payload.validate(); err != nil {
		return "", err
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	claims := AccessTokenClaims{
		UserID:         payload.UserID,
		OrganizationID: payload.OrganizationID,
		Role:           payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry, then checks that the
// token names a user, an organization and a known role.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	if err := validateSigner(cfg); err != nil {
		return nil, err
	}

	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return []byte(cfg.Secret), nil },
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	if err != nil {
		return nil, err
	}

	role, err := enums.ParseMemberRole(string(claims.Role))
	if err != nil {
		return nil, fmt.Errorf("token carries %w", err)
	}
	claims.Role = role
	if claims.UserID == uuid.Nil || claims.OrganizationID == uuid.Nil {
		return nil, errors.New("token missing user or organization")
	}
	return claims, nil
}

func validateSigner(cfg config.JWTConfig) error {
	if cfg.Secret == "" {
		return errors.New("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return errors.New("jwt issuer is required")
	}
	return nil
}

func (p AccessTokenPayload) validate() error {
	switch {
	case p.UserID == uuid.Nil:
		return errors.New("user id is required")
	case p.OrganizationID == uuid.Nil:
		return errors.New("organization id is required")
	case !p.Role.IsValid():
		return fmt.Errorf("invalid member role %q", p.Role)
	}
	return nil
}
