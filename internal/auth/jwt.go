package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type SessionClaims struct {
	SessionID uuid.UUID `json:"sid"`
	jwt.RegisteredClaims
}

type JWTHandler struct {
	secretKey  []byte
	sessionTTL time.Duration
}

func NewJWTHandler(secretKey string, sessionTTL time.Duration) *JWTHandler {
	return &JWTHandler{
		secretKey:  []byte(secretKey),
		sessionTTL: sessionTTL,
	}
}

// GenerateSessionToken creates a session JWT for a freshly paired app.
func (j *JWTHandler) GenerateSessionToken() (string, uuid.UUID, error) {
	now := time.Now()
	sessionID := uuid.New()
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.sessionTTL)),
			Issuer:    "pinpad-bridge",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", uuid.Nil, err
	}
	return signed, sessionID, nil
}

// ValidateSessionToken validates and parses a session JWT.
func (j *JWTHandler) ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
