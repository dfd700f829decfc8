package auth

import (
	"errors"
	"time"

	"github.com/geocoder89/farmhub/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is fixed; tokens are the only session state and are never stored.
const TokenTTL = 7 * 24 * time.Hour

// ErrInvalidToken covers every verification failure. Expired, tampered and
// malformed tokens are deliberately indistinguishable to callers.
var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	now    func() time.Time
}

func NewManager(secret string) *Manager {
	return &Manager{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// WithClock returns a copy of the manager that reads time from now.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	return &Manager{secret: m.secret, now: now}
}

func (m *Manager) IssueToken(u user.User) (string, error) {
	now := m.now().UTC()

	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			Subject:   u.ID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *Manager) VerifyToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
