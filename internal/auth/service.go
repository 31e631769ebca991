package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidPairingKey = errors.New("invalid pairing key")

// Service pairs the mobile app with the bridge. One shared pairing key,
// exchanged out of band, buys a short-lived session JWT; no user accounts,
// no stored credentials.
type Service struct {
	logger     *zap.Logger
	jwtHandler *JWTHandler
	pairingKey string
}

func NewService(logger *zap.Logger, pairingKey, jwtSecret string, sessionTTL time.Duration) *Service {
	return &Service{
		logger:     logger,
		jwtHandler: NewJWTHandler(jwtSecret, sessionTTL),
		pairingKey: pairingKey,
	}
}

// IssueSession exchanges the pairing key for a session token.
func (s *Service) IssueSession(pairingKey string) (string, uuid.UUID, error) {
	if s.pairingKey == "" ||
		subtle.ConstantTimeCompare([]byte(pairingKey), []byte(s.pairingKey)) != 1 {
		s.logger.Warn("Pairing attempt with invalid key")
		return "", uuid.Nil, ErrInvalidPairingKey
	}

	token, sessionID, err := s.jwtHandler.GenerateSessionToken()
	if err != nil {
		return "", uuid.Nil, err
	}

	s.logger.Info("Session issued", zap.String("session_id", sessionID.String()))
	return token, sessionID, nil
}

// ValidateToken validates a session token and returns its claims.
func (s *Service) ValidateToken(token string) (*SessionClaims, error) {
	return s.jwtHandler.ValidateSessionToken(token)
}
