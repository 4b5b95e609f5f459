package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"AgentTreasury/internal/model"
)

const issuer = "agent-treasury"

// Claims identify the caller. Subject is the caller address.
type Claims struct {
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 caller tokens.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for subject valid for ttl. A zero ttl never expires.
func (t *Tokens) Issue(subject model.Address, ttl time.Duration) (string, error) {
	if subject.IsZero() {
		return "", errors.New("subject required")
	}
	now := t.now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:  subject.String(),
		Issuer:   issuer,
		IssuedAt: jwt.NewNumericDate(now),
	}}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify returns the caller address carried by token.
func (t *Tokens) Verify(token string) (model.Address, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(t.now), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}
	sub := model.Address(claims.Subject)
	if sub.IsZero() {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

type callerKey struct{}

// Caller returns the authenticated caller, or the zero address.
func Caller(ctx context.Context) model.Address {
	a, _ := ctx.Value(callerKey{}).(model.Address)
	return a
}

// authenticate attaches the bearer token's subject to the request. Requests
// without a token pass through anonymously; a bad token is rejected.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "expected bearer token")
			return
		}
		caller, err := s.tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}
