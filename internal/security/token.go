package security

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the stateless half of the token pair. Display fields are
// denormalized for convenience and refreshed from the store on every
// refresh, never trusted across rotations.
type AccessClaims struct {
	PrincipalID string `json:"pid"`
	Role        string `json:"role"`
	DisplayName string `json:"name"`
	jwt.RegisteredClaims
}

func GenerateAccessToken(secret string, principalID string, role string, displayName string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		PrincipalID: principalID,
		Role:        role,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   principalID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func ParseAccessToken(tokenStr string, secret string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*AccessClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// HashSessionSecret digests the opaque session reference for storage. The
// plaintext secret exists only in the caller's hands.
func HashSessionSecret(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// HashLookupValue digests a plaintext lookup key (email) so the sealed
// column never needs to be scanned.
func HashLookupValue(value string) []byte {
	sum := sha256.Sum256([]byte(value))
	return sum[:]
}
