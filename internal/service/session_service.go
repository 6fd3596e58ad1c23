package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/curricuforge/internal/config"
)

// ErrInvalidSessionToken is returned for tokens that fail signature, expiry or
// shape checks.
var ErrInvalidSessionToken = errors.New("invalid session token")

const sessionIssuer = "curricuforge"

// SessionClaims identifies an anonymous forge session. The JWT ID is the
// session id used as the state store key.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SessionService issues and validates the signed session cookie value.
type SessionService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionService creates a new SessionService.
func NewSessionService(cfg *config.Config) *SessionService {
	return &SessionService{
		secret: []byte(cfg.SessionSecret),
		ttl:    cfg.SessionTTL,
		now:    time.Now,
	}
}

// TTL reports how long issued tokens stay valid.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Issue starts a new session and returns its id with the signed token.
func (s *SessionService) Issue() (string, string, error) {
	id := uuid.New().String()
	signed, err := s.sign(id)
	if err != nil {
		return "", "", err
	}
	return id, signed, nil
}

func (s *SessionService) sign(id string) (string, error) {
	now := s.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Validate parses tokenStr and returns the session id it carries.
func (s *SessionService) Validate(tokenStr string) (string, error) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.ID, nil
}

// Renew validates tokenStr like Validate. Once the token is past half its
// lifetime it also returns a freshly signed token for the same session, so
// an active visitor keeps their state. renewed is empty otherwise.
func (s *SessionService) Renew(tokenStr string) (id, renewed string, err error) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return "", "", err
	}
	if claims.IssuedAt != nil && s.now().Sub(claims.IssuedAt.Time) < s.ttl/2 {
		return claims.ID, "", nil
	}
	renewed, err = s.sign(claims.ID)
	if err != nil {
		return "", "", err
	}
	return claims.ID, renewed, nil
}

func (s *SessionService) parse(tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSessionToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSessionToken
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		return nil, fmt.Errorf("%w: bad session id", ErrInvalidSessionToken)
	}
	return claims, nil
}
