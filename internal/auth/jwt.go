package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/minhvu/schedly-be/internal/apperr"
	"github.com/minhvu/schedly-be/internal/models"
)

// Subject values distinguishing access tokens from password-reset tokens.
const (
	subjectAccess        = "access"
	subjectPasswordReset = "password_reset"
)

// ResetTokenTTL bounds how long a password-reset token stays usable.
const ResetTokenTTL = 15 * time.Minute

// Claims defines the JWT claims structure.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed bearer tokens. The signing secret
// and lifetime are injected at construction; there is no package-level key.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService signing with secret for tokens
// valid for ttl.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Issue creates a new access token for a given user.
func (ts *TokenService) Issue(user models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectAccess,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ts.secret)
}

// Verify parses and validates an access token. Any failure (malformed
// string, wrong signature, elapsed expiry) comes back wrapped in
// apperr.ErrUnauthenticated; a token failing one check is trusted for
// nothing.
func (ts *TokenService) Verify(tokenStr string) (*Claims, error) {
	claims, err := ts.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Subject != subjectAccess {
		return nil, fmt.Errorf("%w: wrong token type", apperr.ErrUnauthenticated)
	}
	return claims, nil
}

// IssueResetToken creates a short-lived password-reset token carrying only
// the user id. It cannot pass Verify, so it grants no API access.
func (ts *TokenService) IssueResetToken(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectPasswordReset,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ResetTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ts.secret)
}

// VerifyResetToken validates a password-reset token and returns the user id
// it was issued for.
func (ts *TokenService) VerifyResetToken(tokenStr string) (string, error) {
	claims, err := ts.parse(tokenStr)
	if err != nil {
		return "", err
	}
	if claims.Subject != subjectPasswordReset {
		return "", fmt.Errorf("%w: wrong token type", apperr.ErrUnauthenticated)
	}
	return claims.UserID, nil
}

func (ts *TokenService) parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ts.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: malformed token", apperr.ErrUnauthenticated)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: bad signature", apperr.ErrUnauthenticated)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: token expired", apperr.ErrUnauthenticated)
		default:
			return nil, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
		}
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", apperr.ErrUnauthenticated)
	}
	return claims, nil
}
