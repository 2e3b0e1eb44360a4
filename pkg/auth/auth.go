package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	AdminUser = "admin"
	issuer    = "certportal"
)

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidSession  = errors.New("invalid session")
)

// Claims 会话令牌内容
type Claims struct {
	jwt.RegisteredClaims
}

// Gate 单一管理员口令 + 签名会话令牌
type Gate struct {
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewGate password 可以是明文, 也可以是 bcrypt 哈希
func NewGate(password, secret string, ttl time.Duration) (*Gate, error) {
	if password == "" || secret == "" {
		return nil, errors.New("auth: password and secret are required")
	}

	hash := []byte(password)
	if !isBcryptHash(password) {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("auth: hash password: %w", err)
		}
	}

	return &Gate{
		passwordHash: hash,
		secret:       []byte(secret),
		ttl:          ttl,
		now:          time.Now,
	}, nil
}

func isBcryptHash(s string) bool {
	for _, p := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func (g *Gate) CheckPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword(g.passwordHash, []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

// Login 校验口令并签发会话令牌
func (g *Gate) Login(password string) (string, error) {
	if err := g.CheckPassword(password); err != nil {
		return "", err
	}
	return g.IssueToken(AdminUser)
}

func (g *Gate) IssueToken(subject string) (string, error) {
	now := g.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return token, nil
}

// ParseToken 返回令牌中的用户, 只接受 admin
func (g *Gate) ParseToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidSession
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidSession
	}
	if claims.Subject != AdminUser {
		return "", ErrInvalidSession
	}
	return claims.Subject, nil
}

func (g *Gate) TTL() time.Duration {
	return g.ttl
}
