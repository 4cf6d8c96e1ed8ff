package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	customError "github.com/segyhp/repayment-engine/pkg/errors"
	"github.com/segyhp/repayment-engine/pkg/response"
)

// SystemRecorder is recorded on payments and edits when no caller identity is known.
const SystemRecorder = "system"

type contextKey string

const recorderContextKey contextKey = "recorder"

// Claims are the bearer token claims the API reads. Tokens are issued elsewhere.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

// Identity is the name stored as recorded_by / updated_by.
func (c *Claims) Identity() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Subject
}

// Authenticator validates HS256 bearer tokens.
type Authenticator struct {
	secret []byte
	issuer string
}

func NewAuthenticator(secret, issuer string) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &Authenticator{secret: []byte(secret), issuer: issuer}, nil
}

// Validate parses a token and checks its signature, expiry and issuer.
func (a *Authenticator) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Identity() == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// Middleware rejects requests without a valid bearer token and puts the caller's
// identity on the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			response.Error(w, http.StatusUnauthorized, "Missing authorization header",
				customError.WrapUnauthorized("missing authorization header"))
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			response.Error(w, http.StatusUnauthorized, "Invalid authorization format",
				customError.WrapUnauthorized("invalid authorization format"))
			return
		}

		claims, err := a.Validate(parts[1])
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "Invalid token", customError.WrapUnauthorized(err.Error()))
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithRecorder(r.Context(), claims.Identity())))
	})
}

func ContextWithRecorder(ctx context.Context, recorder string) context.Context {
	return context.WithValue(ctx, recorderContextKey, recorder)
}

// RecorderFromContext returns the authenticated caller, or SystemRecorder.
func RecorderFromContext(ctx context.Context) string {
	if recorder, ok := ctx.Value(recorderContextKey).(string); ok && recorder != "" {
		return recorder
	}
	return SystemRecorder
}
