package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"solitaire-cipher/backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenAudience is the only audience the API signs or accepts. Tokens minted
// for another service sharing the secret are refused.
const TokenAudience = "solitaire-cipher-api"

const clockSkew = 30 * time.Second

var (
	ErrMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// Claims identify a user. Subject repeats UserID as a decimal string and ID
// is a random jti, unique per login.
type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"name"`
	jwt.RegisteredClaims
}

// tokenCodec signs and verifies HS256 tokens for one issuer.
type tokenCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func newTokenCodec(cfg config.Config) (tokenCodec, error) {
	if cfg.JWTSecret == "" {
		return tokenCodec{}, ErrMissingSecret
	}
	return tokenCodec{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.JWTIssuer,
		ttl:    cfg.JWTTTL,
		now:    time.Now,
	}, nil
}

func (tc tokenCodec) issue(userID int64, username string) (string, error) {
	now := tc.now().UTC().Truncate(time.Second)
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tc.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			Audience:  jwt.ClaimStrings{TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tc.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tc.secret)
}

func (tc tokenCodec) parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return tc.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tc.issuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(tc.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID <= 0 || claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return nil, fmt.Errorf("%w: subject does not match user", ErrInvalidToken)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrInvalidToken)
	}
	return claims, nil
}

// GenerateToken signs a session token for the user valid for cfg.JWTTTL.
func GenerateToken(userID int64, username string, cfg config.Config) (string, error) {
	tc, err := newTokenCodec(cfg)
	if err != nil {
		return "", err
	}
	return tc.issue(userID, username)
}

// ParseAndValidateToken checks signature, issuer, audience and lifetime.
// Every rejection wraps ErrInvalidToken except a missing secret.
func ParseAndValidateToken(tokenString string, cfg config.Config) (*Claims, error) {
	tc, err := newTokenCodec(cfg)
	if err != nil {
		return nil, err
	}
	return tc.parse(tokenString)
}
