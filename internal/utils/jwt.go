package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrJWTSecretMissing = errors.New("JWT_SECRET is not configured")

type Claims struct {
	ReceptionistID string `json:"receptionistId"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates receptionist session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateJWT creates a new token for a receptionist. Every token carries a
// unique id so it can be revoked on logout.
func (t *TokenIssuer) GenerateJWT(receptionistID, role string) (string, *Claims, error) {
	if len(t.secret) == 0 {
		return "", nil, ErrJWTSecretMissing
	}
	now := t.now()
	claims := &Claims{
		ReceptionistID: receptionistID,
		Role:           role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   receptionistID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ValidateJWT validates a token string and returns its claims.
func (t *TokenIssuer) ValidateJWT(tokenStr string) (*Claims, error) {
	if len(t.secret) == 0 {
		return nil, ErrJWTSecretMissing
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.ReceptionistID == "" {
		return nil, fmt.Errorf("token is not valid")
	}
	return claims, nil
}
