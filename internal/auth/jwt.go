package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrKeyMismatch = errors.New("token does not grant access to this file")

// FileClaims grant read access to a single stored file.
type FileClaims struct {
	Key string `json:"key"`
	jwt.RegisteredClaims
}

func GenerateFileToken(secret, key string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := FileClaims{
		Key: key,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateFileToken checks the signature and expiry of tokenStr and that it
// was issued for key.
func ValidateFileToken(secret, key, tokenStr string) (*FileClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &FileClaims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*FileClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if claims.Key != key {
		return nil, ErrKeyMismatch
	}
	return claims, nil
}
