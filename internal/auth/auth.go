// internal/auth/auth.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// Claims is the token payload. A driver token carries ShiftID and the codes it
// was issued for; an admin token carries AdminID and IsAdmin.
type Claims struct {
	ShiftID     string                 `json:"_id,omitempty"`
	DriverCode  string                 `json:"driverCode,omitempty"`
	VehicleCode string                 `json:"vehicleCode,omitempty"`
	AdminID     string                 `json:"adminId,omitempty"`
	Login       string                 `json:"login,omitempty"`
	IsAdmin     bool                   `json:"isAdmin,omitempty"`
	Anonymous   bool                   `json:"anonymous_user,omitempty"`
	Permissions map[string]interface{} `json:"claims,omitempty"`
	// TokenType is set when signing; callers leave it empty.
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// IsDriver reports whether the token belongs to an open driver shift.
func (c *Claims) IsDriver() bool {
	return c.ShiftID != ""
}

// --- Hashing ---

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// --- Tokens ---

var ErrInvalidToken = errors.New("invalid or expired token")

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type TokenService struct {
	secret            []byte
	expiration        time.Duration
	refreshExpiration time.Duration
}

func NewTokenService(secret string, expiration, refreshExpiration time.Duration) *TokenService {
	return &TokenService{
		secret:            []byte(secret),
		expiration:        expiration,
		refreshExpiration: refreshExpiration,
	}
}

func (s *TokenService) sign(claims Claims, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.TokenType = tokenType
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *TokenService) GenerateAccessToken(claims Claims) (string, error) {
	return s.sign(claims, TokenTypeAccess, s.expiration)
}

func (s *TokenService) GenerateRefreshToken(claims Claims) (string, error) {
	return s.sign(claims, TokenTypeRefresh, s.refreshExpiration)
}

// Verify accepts access tokens only; a refresh token is not a bearer token.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	return s.verify(tokenString, TokenTypeAccess)
}

// VerifyRefresh accepts refresh tokens only.
func (s *TokenService) VerifyRefresh(tokenString string) (*Claims, error) {
	return s.verify(tokenString, TokenTypeRefresh)
}

func (s *TokenService) verify(tokenString, tokenType string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("%w: %q token used as %q", ErrInvalidToken, claims.TokenType, tokenType)
	}
	return claims, nil
}
