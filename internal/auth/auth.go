// Package auth implements the single-user login backed by environment
// credentials and an HS256 token stored in a cookie.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// CookieName is the cookie that carries the session token.
	CookieName = "auth-token"
	// TokenTTL is both the token expiry and the cookie max age.
	TokenTTL = 30 * 24 * time.Hour

	bcryptCost = 12
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotConfigured      = errors.New("auth is not configured")
)

// Config holds the single user's credentials. PasswordHashB64 is a bcrypt
// hash encoded as base64 so it survives shells and .env files.
type Config struct {
	Username        string
	PasswordHashB64 string
	Secret          string
}

// Enabled reports whether any credential is set.
func (c Config) Enabled() bool {
	return c.Username != "" || c.PasswordHashB64 != "" || c.Secret != ""
}

type Authenticator struct {
	username string
	hash     []byte
	secret   []byte
	now      func() time.Time
}

// New validates cfg. It returns ErrNotConfigured when no credential is set.
func New(cfg Config) (*Authenticator, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	var missing []string
	if cfg.Username == "" {
		missing = append(missing, "AUTH_USERNAME")
	}
	if cfg.PasswordHashB64 == "" {
		missing = append(missing, "AUTH_PASSWORD_HASH_B64")
	}
	if cfg.Secret == "" {
		missing = append(missing, "AUTH_SECRET")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("incomplete auth configuration, missing %s", strings.Join(missing, ", "))
	}

	hash, err := base64.StdEncoding.DecodeString(strings.TrimSpace(cfg.PasswordHashB64))
	if err != nil {
		return nil, fmt.Errorf("decode AUTH_PASSWORD_HASH_B64: %w", err)
	}
	if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("AUTH_PASSWORD_HASH_B64 is not a bcrypt hash: %w", err)
	}

	return &Authenticator{
		username: cfg.Username,
		hash:     hash,
		secret:   []byte(cfg.Secret),
		now:      time.Now,
	}, nil
}

// HashPassword returns the base64 encoded bcrypt hash expected in
// AUTH_PASSWORD_HASH_B64.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(hash), nil
}

// Verify checks username and password. Every mismatch is reported as
// ErrInvalidCredentials.
func (a *Authenticator) Verify(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// IssueToken signs a token for the configured user.
func (a *Authenticator) IssueToken() (string, time.Time, error) {
	now := a.now()
	expires := now.Add(TokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   a.username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Login verifies the credentials and issues a token.
func (a *Authenticator) Login(username, password string) (string, time.Time, error) {
	if err := a.Verify(username, password); err != nil {
		return "", time.Time{}, err
	}
	return a.IssueToken()
}

// ParseToken validates a token and returns its subject.
func (a *Authenticator) ParseToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject != a.username {
		return "", fmt.Errorf("%w: unknown subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// SetCookie stores the token on the response.
func SetCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the token cookie.
func ClearCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func isSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

type contextKey struct{}

// WithUser stores the authenticated username.
func WithUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, contextKey{}, username)
}

// UserFromContext returns the authenticated username, if any.
func UserFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(contextKey{}).(string)
	return u, ok
}
