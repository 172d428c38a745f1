package actor

import (
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid actor token")

// Claims carries the caller identity. The subject is the numeric user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SignToken issues an HS256 token for a.
func SignToken(secret, issuer string, a Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(a.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(a.ID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies raw and returns the actor it names.
func ParseToken(secret, issuer, raw string) (Actor, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return Actor{}, errors.Wrap(ErrInvalidToken, err.Error())
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Actor{}, errors.Wrapf(ErrInvalidToken, "subject %q", claims.Subject)
	}
	role, ok := ParseRole(claims.Role)
	if !ok {
		return Actor{}, errors.Wrapf(ErrInvalidToken, "role %q", claims.Role)
	}
	return New(id, role), nil
}
