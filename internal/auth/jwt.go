package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Device roles.
const (
	RoleScanner = "scanner"
	RoleAdmin   = "admin"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrBadKey       = errors.New("enrollment key rejected")
)

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	AccessExp    time.Time `json:"access_expires_at"`
	RefreshExp   time.Time `json:"refresh_expires_at"`
}

// Claims represents JWT payload.
type Claims struct {
	Role string `json:"role"`
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token carries the admin role.
func (c Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// RoleForKey maps an enrollment key to a role. With no keys configured every caller
// enrolls as a scanner when open is true.
func RoleForKey(key, enrollKey, adminKey string, open bool) (string, error) {
	switch {
	case adminKey != "" && key == adminKey:
		return RoleAdmin, nil
	case enrollKey != "" && key == enrollKey:
		return RoleScanner, nil
	case enrollKey == "" && adminKey == "" && open:
		return RoleScanner, nil
	}
	return "", ErrBadKey
}

// Issue issues signed access and refresh tokens.
func Issue(subject, role, issuer, key string, accessTTL, refreshTTL time.Duration) (TokenPair, error) {
	now := time.Now()
	accessExp := now.Add(accessTTL)
	refreshExp := now.Add(refreshTTL)

	accessToken, err := sign(subject, role, kindAccess, issuer, key, now, accessExp)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := sign(subject, role, kindRefresh, issuer, key, now, refreshExp)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func sign(subject, role, kind, issuer, key string, now, exp time.Time) (string, error) {
	claims := Claims{
		Role: role,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}

// Parse validates an access token and returns claims.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	return parse(tokenStr, key, issuer, kindAccess)
}

// ParseRefresh validates a refresh token and returns claims.
func ParseRefresh(tokenStr, key, issuer string) (Claims, error) {
	return parse(tokenStr, key, issuer, kindRefresh)
}

func parse(tokenStr, key, issuer, kind string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.New("issuer mismatch")
	}
	if claims.Kind != kind {
		return Claims{}, ErrInvalidToken
	}
	return *claims, nil
}
