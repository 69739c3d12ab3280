package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the session lifetime when none is configured.
const DefaultTokenTTL = 24 * time.Hour

type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	Roles    []Role `json:"roles"`
	jwt.RegisteredClaims
}

// TokenService issues and validates stateless HS256 session tokens. The
// signing key is fixed at construction; there is no revocation list, so any
// correctly signed, unexpired token is accepted.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *TokenService) TTL() time.Duration { return s.ttl }

func (s *TokenService) Issue(id *Identity) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		UserID:   id.ID,
		Username: id.Username,
		Roles:    id.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

// Validate checks signature and expiry and returns the identity the token
// was issued for. Errors are ErrTokenMalformed, ErrTokenInvalidSignature or
// ErrTokenExpired.
func (s *TokenService) Validate(tokenStr string) (*Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, classifyTokenError(err)
	}
	if claims.UserID == 0 || claims.Username == "" {
		return nil, ErrTokenMalformed
	}
	for _, r := range claims.Roles {
		if !r.Valid() {
			return nil, ErrTokenMalformed
		}
	}
	return &Identity{
		ID:       claims.UserID,
		Username: claims.Username,
		Roles:    claims.Roles,
	}, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenMalformed
	}
}
