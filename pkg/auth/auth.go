package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

const (
	AuthorizationHeader = "Authorization"
	Bearer              = "Bearer "
	TokenType           = "bearer"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("auth secret is not set (AUTH_SECRET)")
)

type Config struct {
	Secret   string        `yaml:"secret" envconfig:"AUTH_SECRET"`
	TokenTTL time.Duration `yaml:"tokenTTL" envconfig:"AUTH_TOKEN_TTL" default:"24h"`
}

func (c Config) Validate() error {
	if c.Secret == "" {
		return ErrNoSecret
	}
	return nil
}

type Claims struct {
	UserID  int  `json:"uid"`
	IsAdmin bool `json:"adm"`
	jwt.RegisteredClaims
}

type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Manager issues and verifies HS256 access tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TokenTTL,
		now:    time.Now,
	}, nil
}

func (m *Manager) Issue(userID int, isAdmin bool) (Token, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := &Claims{
		UserID:  userID,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, errors.Wrap(err, "sign token")
	}
	return Token{
		AccessToken: signed,
		TokenType:   TokenType,
		ExpiresAt:   expiresAt,
	}, nil
}

func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
