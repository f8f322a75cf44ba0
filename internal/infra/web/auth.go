package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ===== Bearer token primitives =====

type AuthConfig struct {
	HMACSecret []byte
	Issuer     string
	TTL        time.Duration
}

// AuthManager mints and verifies HS256 upload tokens.
type AuthManager struct{ cfg AuthConfig }

func NewAuthManager(secret string, ttl time.Duration) *AuthManager {
	return &AuthManager{cfg: AuthConfig{
		HMACSecret: []byte(secret),
		Issuer:     "road-boundary-service",
		TTL:        ttl,
	}}
}

type UploadClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

const scopeUpload = "upload"

// Mint returns a signed token for subject, valid for the configured TTL.
func (a *AuthManager) Mint(subject string) (string, error) {
	now := time.Now()
	claims := UploadClaims{
		Scope: scopeUpload,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.cfg.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.cfg.HMACSecret)
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*UploadClaims, error) {
	// Authorization: Bearer <jwt>
	hdr := r.Header.Get("Authorization")
	if len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
		return a.parse(strings.TrimSpace(hdr[7:]))
	}
	return nil, errors.New("missing token")
}

func (a *AuthManager) parse(tok string) (*UploadClaims, error) {
	claims := &UploadClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.cfg.HMACSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.cfg.Issuer),
	)
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Scope != scopeUpload {
		return nil, errors.New("token scope does not allow uploads")
	}
	return claims, nil
}

// RequireToken rejects requests without a valid upload token. A nil manager
// disables the check.
func RequireToken(a *AuthManager) Middleware {
	return func(next http.Handler) http.Handler {
		if a == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := a.ParseFromRequest(r); err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="upload"`)
				respondError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
