package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aquatrace/aquatrace-go/internal/conf"
	"github.com/aquatrace/aquatrace-go/internal/errors"
)

// Claims is the bearer token payload issued on login.
type Claims struct {
	UserID   uint   `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates bearer tokens for API clients that cannot
// hold cookies.
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
}

// NewTokenIssuer builds a token issuer from the security settings.
func NewTokenIssuer(settings *conf.Settings) *TokenIssuer {
	expiry := settings.Security.JWTExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &TokenIssuer{
		secret: []byte(settings.Security.JWTSecret),
		expiry: expiry,
	}
}

// Issue signs a bearer token for the user.
func (t *TokenIssuer) Issue(userID uint, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "aquatrace",
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiry)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", errors.New(err).
			Component("security").
			Category(errors.CategoryAuth).
			Context("operation", "issue_token").
			Build()
	}
	return signed, nil
}

// Validate parses and verifies a bearer token, returning its claims.
// Expired, malformed, or wrongly signed tokens map to ErrUnauthenticated.
func (t *TokenIssuer) Validate(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Newf("unexpected signing method %q", tok.Method.Alg()).
				Component("security").
				Category(errors.CategoryAuth).
				Build()
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}
