package token

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-0123456789abcdef0123456789")

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(testSecret, time.Hour, NewMemoryDenylist())
}

func TestIssueValidate_RoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	raw, issued, err := svc.Issue("usr_1")
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.True(t, strings.HasPrefix(issued.JTI, "jti_"))

	claims, err := svc.Validate(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, "usr_1", claims.Subject)
	assert.Equal(t, issued.JTI, claims.JTI)
	assert.Empty(t, claims.Purpose)
}

func TestValidate_Idempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	raw, _, err := svc.Issue("usr_1")
	require.NoError(t, err)

	first, err := svc.Validate(ctx, raw)
	require.NoError(t, err)
	second, err := svc.Validate(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestValidate_AllFailuresAreUnauthenticated(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Expired: issue in the past, validate at the present.
	past := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return past }
	expired, _, err := svc.Issue("usr_1")
	require.NoError(t, err)
	svc.now = time.Now

	other := NewService([]byte("another-secret-0123456789abcdef01234"), time.Hour, nil)
	badSig, _, err := other.Issue("usr_1")
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"malformed":     "not-a-token",
		"empty":         "",
		"expired":       expired,
		"bad signature": badSig,
	} {
		_, err := svc.Validate(ctx, raw)
		assert.ErrorIs(t, err, ErrUnauthenticated, name)
	}
}

func TestValidate_RejectsAlgNone(t *testing.T) {
	svc := newTestService(t)
	// {"alg":"none","typ":"JWT"} with a valid-looking payload.
	raw := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0." +
		"eyJzdWIiOiJ1c3JfMSIsImp0aSI6Imp0aV94IiwiZXhwIjo5OTk5OTk5OTk5fQ."
	_, err := svc.Validate(context.Background(), raw)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRevoke_DeniesUntilExpiry(t *testing.T) {
	denylist := NewMemoryDenylist()
	svc := NewService(testSecret, time.Hour, denylist)
	ctx := context.Background()

	raw, issued, err := svc.Issue("usr_1")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, raw))
	_, err = svc.Validate(ctx, raw)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// Revoking again fails because the token no longer validates.
	assert.ErrorIs(t, svc.Revoke(ctx, raw), ErrUnauthenticated)

	// After the token's own expiry the denylist entry may be purged without
	// re-admitting it: expiry alone now rejects the token.
	after := issued.ExpiresAt.Add(time.Second)
	denylist.now = func() time.Time { return after }
	assert.Equal(t, 0, denylist.Len())
	svc.now = func() time.Time { return after }
	_, err = svc.Validate(ctx, raw)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestIssueWithPurpose(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	raw, _, err := svc.IssueWithPurpose("usr_1", PurposePasswordReset, 15*time.Minute)
	require.NoError(t, err)

	claims, err := svc.Validate(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, PurposePasswordReset, claims.Purpose)
}

func TestMemoryDenylist_ConcurrentAccess(t *testing.T) {
	denylist := NewMemoryDenylist()
	ctx := context.Background()
	expiry := time.Now().Add(time.Hour)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			jti := "jti_" + string(rune('a'+n))
			_ = denylist.Add(ctx, jti, expiry)
			_, _ = denylist.Contains(ctx, jti)
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	assert.Equal(t, 8, denylist.Len())
}

func TestRedisDenylist(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	denylist := NewRedisDenylist(client)
	ctx := context.Background()

	require.NoError(t, denylist.Add(ctx, "jti_1", time.Now().Add(time.Hour)))

	revoked, err := denylist.Contains(ctx, "jti_1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = denylist.Contains(ctx, "jti_other")
	require.NoError(t, err)
	assert.False(t, revoked)

	// Entries age out with the token.
	mr.FastForward(2 * time.Hour)
	revoked, err = denylist.Contains(ctx, "jti_1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisDenylist_ErrorSurfaces(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	denylist := NewRedisDenylist(client)
	svc := NewService(testSecret, time.Hour, denylist)
	ctx := context.Background()

	raw, _, err := svc.Issue("usr_1")
	require.NoError(t, err)

	// Denylist failure must fail closed, not admit the token.
	_, err = svc.Validate(ctx, raw)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
