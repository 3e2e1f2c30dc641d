package utils_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/SscSPs/settlement_engine/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDocumentNumber(t *testing.T) {
	at := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	n1, err := utils.GenerateDocumentNumber("INV", at)
	require.NoError(t, err)
	n2, err := utils.GenerateDocumentNumber("INV", at)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^INV-20260301-[0-9A-F]{8}$`), n1)
	assert.NotEqual(t, n1, n2)
}

func TestSecretHash(t *testing.T) {
	hash, err := utils.HashSecret("svc-key")
	require.NoError(t, err)
	assert.True(t, utils.CheckSecretHash("svc-key", hash))
	assert.False(t, utils.CheckSecretHash("other", hash))
}

func TestJWTRoundTrip(t *testing.T) {
	token, err := utils.GenerateJWT("user-1", "secret", time.Minute, "issuer")
	require.NoError(t, err)

	claims, err := utils.ParseAndValidateJWT(token, "secret", "issuer")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "issuer", claims.Issuer)

	_, err = utils.ParseAndValidateJWT(token, "secret", "")
	assert.NoError(t, err, "an unconfigured issuer accepts any")

	_, err = utils.ParseAndValidateJWT(token, "wrong", "issuer")
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	_, err = utils.ParseAndValidateJWT(token, "secret", "someone-else")
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestParseAndValidateJWT_Rejections(t *testing.T) {
	expired, err := utils.GenerateJWT("user-1", "secret", -time.Hour, "")
	require.NoError(t, err)
	_, err = utils.ParseAndValidateJWT(expired, "secret", "")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	anonymous, err := utils.GenerateJWT("", "secret", time.Minute, "")
	require.NoError(t, err)
	_, err = utils.ParseAndValidateJWT(anonymous, "secret", "")
	assert.ErrorIs(t, err, utils.ErrTokenSubjectMissing)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "user-1"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = utils.ParseAndValidateJWT(hs512, "secret", "")
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestPosthogWrapper_DisabledIsNoop(t *testing.T) {
	var w *utils.PosthogClientWrapper
	assert.False(t, w.IsInitialized())
	w.Enqueue("u", "e", nil)
	w.Close()
}
