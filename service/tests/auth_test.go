package service_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogin_CorrectPassword(t *testing.T) {
	svc, _, _ := setupService(t)

	token, err := svc.Login("hunter2")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	expiry, err := svc.VerifyJWT(token)
	assert.NoError(t, err)
	assert.True(t, expiry.After(time.Now()))
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.Login("wrong")
	assert.Error(t, err)
}

func TestVerifyJWT_Invalid(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.VerifyJWT("invalid.token.string")
	assert.Error(t, err)
}

func TestAuthenticateToken_EmptyToken(t *testing.T) {
	svc, _, _ := setupService(t)

	err := svc.AuthenticateToken("")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "token not provided")
}

func TestVerifyJWT_InvalidSigningMethod(t *testing.T) {
	svc, _, _ := setupService(t)

	// "none" algorithm attack: attacker strips the signature and hopes the
	// verifier accepts the unsigned token
	header := map[string]string{
		"alg": "none",
		"typ": "JWT",
	}
	payload := map[string]any{
		"sub": "operator",
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}

	headerBytes, _ := json.Marshal(header)
	payloadBytes, _ := json.Marshal(payload)

	enc := base64.RawURLEncoding
	noneToken := enc.EncodeToString(headerBytes) + "." + enc.EncodeToString(payloadBytes) + "."

	_, err := svc.VerifyJWT(noneToken)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "signing method none is invalid")
}

func TestVerifyJWT_SharedSecret(t *testing.T) {
	svc, _, _ := setupService(t)
	other, _, _ := setupService(t)

	// Both instances share the test secret, so tokens are interchangeable
	token, err := other.CreateJWT()
	assert.NoError(t, err)

	_, err = svc.VerifyJWT(token)
	assert.NoError(t, err)
}
