package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// tokenTTL is how long an issued admin token stays valid. There is no
// refresh mechanism; after expiry the admin logs in again.
const tokenTTL = 7 * 24 * time.Hour

// ExpiresIn is the human-readable token lifetime reported by the API.
const ExpiresIn = "7d"

// ErrWrongPassword is returned by IssueToken on a password mismatch.
var ErrWrongPassword = errors.New("wrong password")

type contextKey string

// ClaimsContextKey is where the auth middleware stores verified claims on
// the request context.
const ClaimsContextKey = contextKey("claims")

// AppClaims represents the custom claims for the admin JWT.
type AppClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Service issues and verifies bearer tokens for the single admin identity.
// Verification is purely cryptographic; no session state is kept.
type Service struct {
	secret        []byte
	adminPassword string
}

func NewService(secret []byte, adminPassword string) *Service {
	return &Service{secret: secret, adminPassword: adminPassword}
}

// IssueToken exchanges the admin password for a signed token. The comparison
// is an exact match against the configured password.
func (s *Service) IssueToken(password string) (string, error) {
	if password != s.adminPassword {
		return "", ErrWrongPassword
	}

	now := time.Now()
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: "admin",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken validates signature and expiry and returns the claims.
func (s *Service) ParseToken(tokenString string) (*AppClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AppClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// ClaimsFromContext returns the claims the middleware attached to the request.
func ClaimsFromContext(ctx context.Context) (*AppClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*AppClaims)
	return claims, ok
}

// HandleLogin exchanges {"password": ...} for a bearer token.
func HandleLogin(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Password == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Password is required"})
			return
		}

		token, err := svc.IssueToken(body.Password)
		if err != nil {
			logrus.Warn("Rejected login attempt with wrong password")
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "Invalid password"})
			return
		}

		render.JSON(w, r, map[string]any{
			"token":     token,
			"expiresIn": ExpiresIn,
			"user":      map[string]string{"role": "admin"},
		})
	}
}

// HandleVerifyToken reports whether the presented token is valid. It runs
// behind the auth middleware, so reaching it means the token checked out.
func HandleVerifyToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		render.JSON(w, r, map[string]any{
			"valid":     true,
			"user":      claims,
			"expiresIn": ExpiresIn,
		})
	}
}
