package access

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrimhub/scrimhub/internal/identity"
	"github.com/scrimhub/scrimhub/internal/logging"
	"github.com/scrimhub/scrimhub/internal/scope"
	"github.com/scrimhub/scrimhub/internal/token"
)

var testSecret = []byte("test-secret-0123456789abcdef0123456789")

type fixture struct {
	router *gin.Engine
	tokens *token.Service
	users  *identity.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := identity.NewMemoryStore()
	tokens := token.NewService(testSecret, time.Hour, token.NewMemoryDenylist())
	resolver := identity.NewResolver(users, logging.New("error", "text"))

	r := gin.New()
	authed := r.Group("/", Authenticate(tokens, resolver))
	authed.GET("/whoami", func(c *gin.Context) {
		ac := MustContext(c)
		c.JSON(http.StatusOK, gin.H{"orgId": ac.OrgID, "userId": ac.UserID, "role": string(ac.Role)})
	})
	authed.DELETE("/admin-only", RequireRole(identity.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	return &fixture{router: r, tokens: tokens, users: users}
}

func (f *fixture) seedUser(t *testing.T, id, orgID string, role identity.Role) string {
	t.Helper()
	u := &identity.User{
		ID: id, OrgID: orgID, Email: id + "@example.gg", Role: role,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, f.users.Create(context.Background(), scope.For(orgID), u))
	raw, _, err := f.tokens.Issue(id)
	require.NoError(t, err)
	return raw
}

func (f *fixture) do(method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestAuthenticate_HappyPath(t *testing.T) {
	f := newFixture(t)
	raw := f.seedUser(t, "usr_1", "org_a", identity.RoleCoach)

	w := f.do(http.MethodGet, "/whoami", raw)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "org_a", body["orgId"])
	assert.Equal(t, "usr_1", body["userId"])
	assert.Equal(t, "coach", body["role"])
}

func TestAuthenticate_UniformFailureShape(t *testing.T) {
	f := newFixture(t)

	// An expired token: issued with a past TTL.
	expired, _, err := f.tokens.IssueWithPurpose("usr_1", "", -time.Minute)
	require.NoError(t, err)

	// A revoked token for a real user.
	revoked := f.seedUser(t, "usr_r", "org_a", identity.RoleViewer)
	require.NoError(t, f.tokens.Revoke(context.Background(), revoked))

	// A valid token for a user that does not exist.
	orphan, _, err := f.tokens.Issue("usr_ghost")
	require.NoError(t, err)

	// A password-reset token presented as a session.
	reset, _, err := f.tokens.IssueWithPurpose("usr_r", token.PurposePasswordReset, time.Hour)
	require.NoError(t, err)

	cases := map[string]string{
		"no token":      "",
		"malformed":     "garbage",
		"expired":       expired,
		"revoked":       revoked,
		"orphan":        orphan,
		"purpose token": reset,
	}

	var canonical string
	for name, bearer := range cases {
		w := f.do(http.MethodGet, "/whoami", bearer)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
		if canonical == "" {
			canonical = w.Body.String()
		}
		// Body is byte-identical across every failure mode.
		assert.Equal(t, canonical, w.Body.String(), name)
	}
}

func TestAuthenticate_DisabledUser(t *testing.T) {
	f := newFixture(t)
	raw := f.seedUser(t, "usr_1", "org_a", identity.RoleAdmin)

	u, err := f.users.Get(context.Background(), scope.For("org_a"), "usr_1")
	require.NoError(t, err)
	u.Disabled = true
	require.NoError(t, f.users.Update(context.Background(), scope.For("org_a"), u))

	w := f.do(http.MethodGet, "/whoami", raw)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	f := newFixture(t)
	viewer := f.seedUser(t, "usr_v", "org_a", identity.RoleViewer)
	admin := f.seedUser(t, "usr_a", "org_a", identity.RoleAdmin)
	owner := f.seedUser(t, "usr_o", "org_a", identity.RoleOwner)

	w := f.do(http.MethodDelete, "/admin-only", viewer)
	require.Equal(t, http.StatusForbidden, w.Code)
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, CodeInsufficientRole, body.Error.Code)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/admin-only", admin).Code)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/admin-only", owner).Code)
}

func TestContext_RoundTrip(t *testing.T) {
	ac := Context{OrgID: "org_a", UserID: "usr_1", Role: identity.RoleAnalyst}
	ctx := WithContext(context.Background(), ac)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, ac, got)
	assert.Equal(t, "org_a", got.Scope().OrgID())

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestRawToken_AvailableForLogout(t *testing.T) {
	f := newFixture(t)
	raw := f.seedUser(t, "usr_1", "org_a", identity.RoleOwner)

	var captured string
	f.router.POST("/logout-probe", Authenticate(f.tokens, identity.NewResolver(f.users, logging.New("error", "text"))), func(c *gin.Context) {
		captured, _ = RawToken(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	w := f.do(http.MethodPost, "/logout-probe", raw)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, raw, captured)
}
