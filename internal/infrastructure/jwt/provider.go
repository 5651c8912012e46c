package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/checkoff-auth/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the JWT payload fields.
type Claims struct {
	UserID   string   `json:"userId"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Projects []string `json:"projects"`
	DeviceID string   `json:"deviceId"`
	jwt.RegisteredClaims
}

// Provider signs and verifies access tokens, HS256 with a shared secret or
// RS256 with a key pair.
type Provider struct {
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	expiry    time.Duration
	now       func() time.Time
}

// NewProvider uses HS256 when cfg.JWTSecret is set, otherwise RS256 keys read from disk.
func NewProvider(cfg *config.Config) (*Provider, error) {
	if cfg.JWTSecret != "" {
		return NewHMAC([]byte(cfg.JWTSecret), cfg.JWTExpiry), nil
	}

	privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return NewRSA(privKey, pubKey, cfg.JWTExpiry), nil
}

func NewHMAC(secret []byte, expiry time.Duration) *Provider {
	return &Provider{method: jwt.SigningMethodHS256, signKey: secret, verifyKey: secret, expiry: expiry, now: time.Now}
}

func NewRSA(priv *rsa.PrivateKey, pub *rsa.PublicKey, expiry time.Duration) *Provider {
	return &Provider{method: jwt.SigningMethodRS256, signKey: priv, verifyKey: pub, expiry: expiry, now: time.Now}
}

// Expiry is the lifetime of tokens returned by Sign.
func (p *Provider) Expiry() time.Duration { return p.expiry }

// Sign issues a token for c. Registered claims are filled in here.
func (p *Provider) Sign(c Claims) (string, error) {
	now := p.now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   c.UserID,
		ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	return jwt.NewWithClaims(p.method, c).SignedString(p.signKey)
}

func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != p.method.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return p.verifyKey, nil
	}, jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
