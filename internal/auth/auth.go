// Package auth verifies transport credentials and maps them to user ids.
package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"linku/backend/internal/apperr"

	jwt "github.com/golang-jwt/jwt/v5"
)

// IdentityProvider turns a bearer credential into a stable user id.
type IdentityProvider interface {
	Verify(ctx context.Context, token string) (uint, error)
}

// TokenIssuer signs credentials for a subject (uid or handle).
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

// HandleResolver maps a login handle to its user id.
type HandleResolver interface {
	ResolveHandle(ctx context.Context, handle string) (uint, error)
}

type HandleResolverFunc func(ctx context.Context, handle string) (uint, error)

func (f HandleResolverFunc) ResolveHandle(ctx context.Context, handle string) (uint, error) {
	return f(ctx, handle)
}

// JWTProvider verifies HS256 tokens. The subject claim carries either the
// numeric user id or the login handle.
type JWTProvider struct {
	secret   []byte
	issuer   string
	ttl      time.Duration
	resolver HandleResolver
	now      func() time.Time
}

func NewJWTProvider(secret, issuer string, ttl time.Duration, resolver HandleResolver) *JWTProvider {
	return &JWTProvider{
		secret:   []byte(secret),
		issuer:   issuer,
		ttl:      ttl,
		resolver: resolver,
		now:      time.Now,
	}
}

func (p *JWTProvider) Verify(ctx context.Context, token string) (uint, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, apperr.ErrNotAuthenticated
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		return 0, apperr.ErrNotAuthenticated.Wrap(err)
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return 0, apperr.ErrNotAuthenticated.WithMessage("token has no subject")
	}
	if id, err := strconv.ParseUint(sub, 10, 64); err == nil && id > 0 {
		return uint(id), nil
	}
	if p.resolver == nil {
		return 0, apperr.ErrNotAuthenticated.WithMessage("unknown subject")
	}
	uid, err := p.resolver.ResolveHandle(ctx, sub)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return 0, apperr.ErrNotAuthenticated.WithMessage("unknown subject")
		}
		return 0, err
	}
	return uid, nil
}

// Issue signs a token whose subject is subject (a numeric id or a handle).
func (p *JWTProvider) Issue(subject string) (string, error) {
	now := p.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    p.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
