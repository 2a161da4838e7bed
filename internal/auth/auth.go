// Package auth issues and validates session tokens. Raters get a bearer
// token at registration; the admin surface is gated by a bcrypt password
// check that yields a token with the admin flag set.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type Auth struct {
	secret            []byte
	expiry            time.Duration
	adminPasswordHash string
}

type Claims struct {
	RaterID string `json:"rater_id,omitempty"`
	Handle  string `json:"handle,omitempty"`
	Admin   bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

func New(secret string, expiryMinutes int, adminPasswordHash string) *Auth {
	return &Auth{
		secret:            []byte(secret),
		expiry:            time.Duration(expiryMinutes) * time.Minute,
		adminPasswordHash: adminPasswordHash,
	}
}

// HashPassword produces a bcrypt hash suitable for the config file.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckAdminPassword verifies the admin password against the configured
// hash. An empty configured hash disables admin login entirely.
func (a *Auth) CheckAdminPassword(password string) bool {
	if a.adminPasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(a.adminPasswordHash), []byte(password)) == nil
}

// RaterToken issues a session token for a rater.
func (a *Auth) RaterToken(raterID, handle string) (string, error) {
	return a.sign(Claims{RaterID: raterID, Handle: handle})
}

// AdminToken issues an admin session token.
func (a *Auth) AdminToken() (string, error) {
	return a.sign(Claims{Admin: true})
}

func (a *Auth) sign(claims Claims) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.expiry)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *Auth) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// ExtractClaims reads the JWT from the Authorization header (Bearer token).
// Returns nil if no valid token is present (for public endpoints).
func (a *Auth) ExtractClaims(r *http.Request) *Claims {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil
	}
	claims, err := a.ValidateToken(parts[1])
	if err != nil {
		return nil
	}
	return claims
}
