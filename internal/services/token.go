package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenPurpose discriminates the three token kinds sharing one signing
// secret. Decoding checks the purpose claim so an access token can never
// pass as a verification or reset token.
type TokenPurpose string

const (
	PurposeAccess TokenPurpose = "access"
	PurposeVerify TokenPurpose = "verify"
	PurposeReset  TokenPurpose = "reset"
)

var (
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenInvalid         = errors.New("token invalid")
	ErrTokenPurposeMismatch = errors.New("token purpose mismatch")
)

// TokenClaims carries the user identity plus the purpose tag.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID  uuid.UUID `json:"user_id"`
	Email   string    `json:"email"`
	Purpose string    `json:"purpose"`
}

// TokenService issues and validates signed, expiring tokens. The clock is
// injectable so expiry behavior is testable.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret), now: time.Now}
}

// Issue produces a signed token for the given subject, tagged with purpose
// and expiring after ttl. Callers supply the TTL appropriate to the
// purpose (access 60m, verify 24h, reset 30m by config).
func (s *TokenService) Issue(userID uuid.UUID, email string, purpose TokenPurpose, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:  userID,
		Email:   email,
		Purpose: string(purpose),
	})

	return token.SignedString(s.secret)
}

// Decode verifies the signature, expiry and purpose tag. Returns
// ErrTokenExpired, ErrTokenInvalid or ErrTokenPurposeMismatch.
func (s *TokenService) Decode(tokenString string, expected TokenPurpose) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Purpose != string(expected) {
		return nil, ErrTokenPurposeMismatch
	}
	return claims, nil
}
