package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ctxKey int

const SessionKey ctxKey = 1

// Claims is the JWT payload. The custom fields mirror what clients decode:
// userId, username, role and email.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Email    string `json:"email"`
}

// Session is the authenticated identity of a request. It is built once by the
// authentication middleware and read from the request context afterwards.
type Session struct {
	UserID    string
	Username  string
	Email     string
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}

// Identity is what a token is issued for.
type Identity struct {
	UserID   string
	Username string
	Email    string
	Role     Role
}

type Keys struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewKeys(secret string, ttl time.Duration) (*Keys, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &Keys{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (k *Keys) GenerateToken(id Identity) (string, Claims, error) {
	if !id.Role.Valid() {
		return "", Claims{}, fmt.Errorf("cannot issue token for role %s", id.Role)
	}
	now := k.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(k.ttl)),
		},
		UserID:   id.UserID,
		Username: id.Username,
		Role:     id.Role,
		Email:    id.Email,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("signing token: %w", err)
	}
	return token, claims, nil
}

func (k *Keys) ValidateToken(token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return k.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(k.now), jwt.WithExpirationRequired())
	if err != nil {
		return Claims{}, fmt.Errorf("parsing token: %w", err)
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return Claims{}, errors.New("token is missing identity claims")
	}
	return claims, nil
}

func (c Claims) Session() Session {
	s := Session{
		UserID:   c.UserID,
		Username: c.Username,
		Email:    c.Email,
		Role:     c.Role,
		TokenID:  c.ID,
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s
}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(SessionKey).(Session)
	return s, ok
}
