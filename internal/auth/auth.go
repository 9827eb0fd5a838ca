// Package auth identifies the operator behind a request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrJamesThe3rd/caja/internal/http/apierror"
)

const issuer = "caja"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrNoOperator   = errors.New("token names no operator")
)

// Claims identifies the operator working the register.
type Claims struct {
	jwt.RegisteredClaims
	Operator string `json:"operator"`
}

// Tokens issues and verifies HS256 operator tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(operator string) (string, error) {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return "", ErrNoOperator
	}

	now := t.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   operator,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Operator: operator,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return signed, nil
}

func (t *Tokens) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}

		return t.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}

		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Operator == "" {
		return nil, ErrNoOperator
	}

	return claims, nil
}

type ctxKey struct{}

func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, ctxKey{}, operator)
}

// OperatorFrom returns the authenticated operator, if any.
func OperatorFrom(ctx context.Context) (string, bool) {
	op, ok := ctx.Value(ctxKey{}).(string)

	return op, ok && op != ""
}

// Middleware requires a valid bearer token and stores its operator in the
// request context. A nil Tokens disables authentication.
func Middleware(tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tokens == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				apierror.WriteStatus(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")

				return
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				apierror.WriteStatus(w, http.StatusUnauthorized, "unauthorized", err.Error())

				return
			}

			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), claims.Operator)))
		})
	}
}
