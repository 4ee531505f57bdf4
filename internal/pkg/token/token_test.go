package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presencehq/presence-backend-go/internal/domain/attendance"
)

var testActor = attendance.Actor{ID: "kiosk-01", Name: "Front Door Kiosk", Role: "kiosk"}

func TestGenerateActorToken_ClaimsRoundTrip(t *testing.T) {
	t.Parallel()
	svc := NewTokenService("test-secret", "1h")

	tokenString, expiresAt, err := svc.GenerateActorToken("t1", testActor)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)
	assert.Greater(t, expiresAt, int64(0))

	decoded, err := svc.JWTAuth().Decode(tokenString)
	require.NoError(t, err)

	tenantID, _ := decoded.Get("tenant_id")
	actorID, _ := decoded.Get("actor_id")
	actorRole, _ := decoded.Get("actor_role")
	tokenType, _ := decoded.Get("type")
	assert.Equal(t, "t1", tenantID)
	assert.Equal(t, "kiosk-01", actorID)
	assert.Equal(t, "kiosk", actorRole)
	assert.Equal(t, "access", tokenType)
}

func TestGenerateActorToken_InvalidExpiration(t *testing.T) {
	t.Parallel()
	svc := NewTokenService("test-secret", "not-a-duration")

	_, _, err := svc.GenerateActorToken("t1", testActor)
	assert.Error(t, err)
}

func TestRevokeToken(t *testing.T) {
	t.Parallel()
	svc := NewTokenService("test-secret", "1h")

	tokenString, _, err := svc.GenerateActorToken("t1", testActor)
	require.NoError(t, err)

	assert.False(t, svc.IsTokenRevoked(tokenString))
	svc.RevokeToken(tokenString)
	assert.True(t, svc.IsTokenRevoked(tokenString))
}

func TestDeviceKeyHashing(t *testing.T) {
	t.Parallel()

	hash, err := HashDeviceKey("super-secret-device-key")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.True(t, VerifyDeviceKey(hash, "super-secret-device-key"))
	assert.False(t, VerifyDeviceKey(hash, "wrong-key"))
	assert.False(t, VerifyDeviceKey("not-a-hash", "super-secret-device-key"))
}
