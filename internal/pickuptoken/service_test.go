package pickuptoken

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitedash/bitedash-backend/pkg/config"
	pkgerrors "github.com/bitedash/bitedash-backend/pkg/errors"
)

func newTestService(t *testing.T, now time.Time) *service {
	t.Helper()
	svc, err := NewService(config.PickupConfig{
		SecretKey: "pickup-test-secret",
		MaxAge:    24 * time.Hour,
	})
	require.NoError(t, err)
	typed := svc.(*service)
	typed.now = func() time.Time { return now }
	return typed
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	issuedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, issuedAt)

	token, err := svc.Issue(42, "ORD-20260310-00042")
	require.NoError(t, err)

	claims, err := svc.Verify(token, 42, "ORD-20260310-00042")
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.OrderID)
	assert.Equal(t, "ORD-20260310-00042", claims.OrderNumber)
	assert.Equal(t, issuedAt.UnixMilli(), claims.Timestamp)
}

func TestTokenWireFormat(t *testing.T) {
	svc := newTestService(t, time.Now())

	token, err := svc.Issue(7, "ORD-20260310-00007")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Contains(t, payload, "orderId")
	assert.Contains(t, payload, "orderNumber")
	assert.Contains(t, payload, "timestamp")
	assert.Contains(t, payload, "signature")
	assert.Equal(t, float64(7), payload["orderId"])
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	svc := newTestService(t, time.Now())

	token, err := svc.Issue(42, "ORD-20260310-00042")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)
	var claims Claims
	require.NoError(t, json.Unmarshal(raw, &claims))
	claims.OrderID = 43
	tampered, err := json.Marshal(claims)
	require.NoError(t, err)

	_, err = svc.Verify(base64.StdEncoding.EncodeToString(tampered), 43, claims.OrderNumber)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}

func TestVerifyRejectsWrongOrder(t *testing.T) {
	svc := newTestService(t, time.Now())

	token, err := svc.Issue(42, "ORD-20260310-00042")
	require.NoError(t, err)

	_, err = svc.Verify(token, 99, "ORD-20260310-00099")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, issuedAt)

	token, err := svc.Issue(42, "ORD-20260310-00042")
	require.NoError(t, err)

	svc.now = func() time.Time { return issuedAt.Add(24*time.Hour + time.Minute) }
	_, err = svc.Verify(token, 42, "ORD-20260310-00042")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))

	// just inside the window still verifies
	svc.now = func() time.Time { return issuedAt.Add(23 * time.Hour) }
	_, err = svc.Verify(token, 42, "ORD-20260310-00042")
	require.NoError(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := newTestService(t, time.Now())

	_, err := svc.Verify("not-base64!!!", 1, "ORD")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.Verify(base64.StdEncoding.EncodeToString([]byte("not json")), 1, "ORD")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestGenerateOTPIsSixDigits(t *testing.T) {
	svc := newTestService(t, time.Now())
	for i := 0; i < 50; i++ {
		otp, err := svc.GenerateOTP()
		require.NoError(t, err)
		require.Len(t, otp, 6)
		for _, r := range otp {
			require.True(t, r >= '0' && r <= '9')
		}
	}
}

func TestDecodeReturnsClaimsWithoutOrderBinding(t *testing.T) {
	issuedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, issuedAt)

	token, err := svc.Issue(42, "ORD-20260310-00042")
	require.NoError(t, err)

	claims, err := svc.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.OrderID)
	assert.Equal(t, "ORD-20260310-00042", claims.OrderNumber)

	// expired tokens fail even without an order to compare against
	svc.now = func() time.Time { return issuedAt.Add(25 * time.Hour) }
	_, err = svc.Decode(token)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}
