package auth

import (
	"strings"
	"testing"
	"time"

	"solitaire-cipher/backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{JWTSecret: "secret", JWTIssuer: "solitaire-cipher", JWTTTL: time.Hour}
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	tok, err := GenerateToken(42, "alice", cfg)
	require.NoError(t, err)

	claims, err := ParseAndValidateToken(tok, cfg)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "42", claims.Subject)
	require.Equal(t, jwt.ClaimStrings{TokenAudience}, claims.Audience)
	require.NotEmpty(t, claims.ID)

	again, err := GenerateToken(42, "alice", cfg)
	require.NoError(t, err)
	second, err := ParseAndValidateToken(again, cfg)
	require.NoError(t, err)
	require.NotEqual(t, claims.ID, second.ID)
}

func TestTokenLifetime(t *testing.T) {
	tc, err := newTokenCodec(testConfig())
	require.NoError(t, err)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tc.now = func() time.Time { return start }
	tok, err := tc.issue(5, "carol")
	require.NoError(t, err)

	tc.now = func() time.Time { return start.Add(59 * time.Minute) }
	_, err = tc.parse(tok)
	require.NoError(t, err)

	tc.now = func() time.Time { return start.Add(time.Hour + clockSkew + time.Second) }
	_, err = tc.parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	tc.now = func() time.Time { return start.Add(-time.Hour) }
	_, err = tc.parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsForeignClaims(t *testing.T) {
	cfg := testConfig()
	sign := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return tok
	}
	now := time.Now()
	base := func() Claims {
		return Claims{
			UserID: 3,
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        "jti",
				Issuer:    cfg.JWTIssuer,
				Subject:   "3",
				Audience:  jwt.ClaimStrings{TokenAudience},
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
	}
	secret := []byte(cfg.JWTSecret)

	_, err := ParseAndValidateToken(sign(base(), jwt.SigningMethodHS256, secret), cfg)
	require.NoError(t, err)

	otherAudience := base()
	otherAudience.Audience = jwt.ClaimStrings{"billing"}
	noExpiry := base()
	noExpiry.ExpiresAt = nil
	wrongSubject := base()
	wrongSubject.Subject = "4"
	noJTI := base()
	noJTI.ID = ""

	cases := map[string]string{
		"audience":     sign(otherAudience, jwt.SigningMethodHS256, secret),
		"no expiry":    sign(noExpiry, jwt.SigningMethodHS256, secret),
		"subject":      sign(wrongSubject, jwt.SigningMethodHS256, secret),
		"no jti":       sign(noJTI, jwt.SigningMethodHS256, secret),
		"alg none":     sign(base(), jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType),
		"other hs alg": sign(base(), jwt.SigningMethodHS512, secret),
	}
	for name, tok := range cases {
		_, err := ParseAndValidateToken(tok, cfg)
		require.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestTokenRejectsWrongSecretAndIssuer(t *testing.T) {
	cfg := testConfig()
	tok, err := GenerateToken(1, "alice", cfg)
	require.NoError(t, err)

	other := cfg
	other.JWTSecret = "different"
	_, err = ParseAndValidateToken(tok, other)
	require.Error(t, err)

	other = cfg
	other.JWTIssuer = "someone-else"
	_, err = ParseAndValidateToken(tok, other)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRequiresSecret(t *testing.T) {
	_, err := GenerateToken(1, "alice", config.Config{})
	require.ErrorIs(t, err, ErrMissingSecret)
	_, err = ParseAndValidateToken("x.y.z", config.Config{})
	require.ErrorIs(t, err, ErrMissingSecret)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	require.NoError(t, ComparePasswordHash(hash, "correct horse"))
	require.Error(t, ComparePasswordHash(hash, "wrong horse"))

	for _, bad := range []string{"", "short", strings.Repeat("x", 73)} {
		_, err := HashPassword(bad)
		require.Error(t, err)
		require.True(t, IsPasswordValidationError(err), bad)
	}
}
