package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quizie/quizie/internal/errors"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	defaultAccessTTL  = 7 * 24 * time.Hour
	defaultRefreshTTL = 30 * 24 * time.Hour
)

// Claims carry the user ID in the subject plus a type discriminator so a
// refresh token can never be used as an access token.
type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair is issued on register and login.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	if accessTTL == 0 {
		accessTTL = defaultAccessTTL
	}
	if refreshTTL == 0 {
		refreshTTL = defaultRefreshTTL
	}

	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Pair issues an access and a refresh token for the user.
func (t *TokenIssuer) Pair(userID string) (TokenPair, error) {
	access, err := t.sign(userID, tokenTypeAccess, t.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := t.sign(userID, tokenTypeRefresh, t.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (t *TokenIssuer) sign(userID, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// VerifyAccess validates an access token and returns the user ID it carries.
func (t *TokenIssuer) VerifyAccess(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("invalid or expired token"),
			errors.WithCause(err),
		)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Type != tokenTypeAccess {
		return "", errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("invalid token type"))
	}

	return claims.Subject, nil
}
