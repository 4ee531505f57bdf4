package token

import (
	"sync"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"golang.org/x/crypto/bcrypt"

	"github.com/presencehq/presence-backend-go/internal/domain/attendance"
)

type Service interface {
	GenerateActorToken(tenantID string, actor attendance.Actor) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
	RevokeToken(token string)
	IsTokenRevoked(token string) bool
}

type TokenService struct {
	secretKey      string
	expirationTime string
	tokenAuth      *jwtauth.JWTAuth
	revokedTokens  map[string]int64
	mu             sync.RWMutex
}

func NewTokenService(secretKey string, expirationTime string) Service {
	return &TokenService{
		secretKey:      secretKey,
		expirationTime: expirationTime,
		tokenAuth:      jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		revokedTokens:  make(map[string]int64),
	}
}

func (s *TokenService) JWTAuth() *jwtauth.JWTAuth {
	return s.tokenAuth
}

// GenerateActorToken issues an access token carrying the acting identity.
// Every authenticated request resolves its audit actor from these claims.
func (s *TokenService) GenerateActorToken(tenantID string, actor attendance.Actor) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(s.expirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = time.Now().Add(expDuration).Unix()

	_, tokenString, err := s.tokenAuth.Encode(map[string]interface{}{
		"tenant_id":  tenantID,
		"actor_id":   actor.ID,
		"actor_name": actor.Name,
		"actor_role": actor.Role,
		"type":       "access",
		"exp":        expiresAt,
	})
	return tokenString, expiresAt, err
}

func (s *TokenService) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokedTokens[token] = time.Now().Unix()
}

func (s *TokenService) IsTokenRevoked(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, revoked := s.revokedTokens[token]
	return revoked
}

// HashDeviceKey hashes a kiosk device key for storage in configuration.
func HashDeviceKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyDeviceKey compares a presented kiosk device key against its stored
// bcrypt hash.
func VerifyDeviceKey(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
