package org

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrimhub/scrimhub/internal/access"
	"github.com/scrimhub/scrimhub/internal/identity"
	"github.com/scrimhub/scrimhub/internal/logging"
	"github.com/scrimhub/scrimhub/internal/scope"
	"github.com/scrimhub/scrimhub/internal/token"
)

const testUpgradeURL = "https://scrimhub.gg/settings/billing"

type fixture struct {
	router *gin.Engine
	orgs   *MemoryStore
	users  *identity.MemoryStore
	tokens *token.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.New("error", "text")
	orgs := NewMemoryStore()
	users := identity.NewMemoryStore()
	tokens := token.NewService([]byte("test-secret-0123456789abcdef0123456789"), time.Hour, token.NewMemoryDenylist())
	resolver := identity.NewResolver(users, logger)
	h := NewHandler(orgs, users, tokens, logger, 14, testUpgradeURL)

	r := gin.New()
	public := r.Group("/v1")
	h.RegisterPublicRoutes(public, nil)

	protected := r.Group("/v1", access.Authenticate(tokens, resolver))
	h.RegisterProtectedRoutes(protected)

	// A probe route behind the feature and subscription gates.
	gated := protected.Group("/",
		RequireActiveSubscription(orgs, testUpgradeURL),
		RequireFeature(orgs, FeatureScrims, testUpgradeURL))
	gated.GET("/scrims-probe", func(c *gin.Context) { c.Status(http.StatusOK) })

	return &fixture{router: r, orgs: orgs, users: users, tokens: tokens}
}

func (f *fixture) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) signup(t *testing.T, slug, email string) (tokenStr, orgID string) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{
		"orgName": "Nova Five", "slug": slug, "email": email,
		"name": "Sam Captain", "password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
		Org   struct {
			ID string `json:"id"`
		} `json:"org"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token, resp.Org.ID
}

func TestSignup_CreatesTrialOrgAndOwner(t *testing.T) {
	f := newFixture(t)
	tok, orgID := f.signup(t, "nova-five", "cap@example.gg")
	require.NotEmpty(t, tok)

	o, err := f.orgs.Get(context.Background(), orgID)
	require.NoError(t, err)
	assert.Equal(t, TierAmateur, o.Tier)
	assert.Equal(t, StatusTrial, o.Status)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 14), o.TrialEndsAt, time.Minute)

	// The token works against a protected route.
	w := f.do(t, http.MethodGet, "/v1/org", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignup_DuplicateSlugAndEmail(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "nova-five", "cap@example.gg")

	w := f.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{
		"orgName": "Other", "slug": "nova-five", "email": "other@example.gg",
		"name": "O", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{
		"orgName": "Other", "slug": "other-org", "email": "cap@example.gg",
		"name": "O", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin_UniformFailure(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "nova-five", "cap@example.gg")

	ok := f.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{
		"email": "cap@example.gg", "password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, ok.Code)

	wrongPass := f.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{
		"email": "cap@example.gg", "password": "wrong-password",
	})
	noUser := f.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{
		"email": "ghost@example.gg", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	assert.Equal(t, http.StatusUnauthorized, noUser.Code)
	// Wrong password and unknown account are indistinguishable.
	assert.Equal(t, wrongPass.Body.String(), noUser.Body.String())
}

func TestLogout_RevokesToken(t *testing.T) {
	f := newFixture(t)
	tok, _ := f.signup(t, "nova-five", "cap@example.gg")

	w := f.do(t, http.MethodPost, "/v1/auth/logout", tok, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/v1/org", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPasswordReset_Flow(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "nova-five", "cap@example.gg")

	// The request endpoint never discloses whether the account exists.
	known := f.do(t, http.MethodPost, "/v1/auth/password-reset", "", gin.H{"email": "cap@example.gg"})
	unknown := f.do(t, http.MethodPost, "/v1/auth/password-reset", "", gin.H{"email": "ghost@example.gg"})
	assert.Equal(t, http.StatusAccepted, known.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())

	// Confirm with a mailer-delivered token (minted directly here).
	login := f.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{
		"email": "cap@example.gg", "password": "hunter2hunter2",
	})
	var resp struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &resp))
	reset, _, err := f.tokens.IssueWithPurpose(resp.User.ID, token.PurposePasswordReset, time.Minute)
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/v1/auth/password-reset/confirm", "", gin.H{
		"token": reset, "password": "a-brand-new-password",
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	// Reset tokens are single-use.
	w = f.do(t, http.MethodPost, "/v1/auth/password-reset/confirm", "", gin.H{
		"token": reset, "password": "yet-another-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A session token cannot confirm a reset.
	session, _, err := f.tokens.Issue(resp.User.ID)
	require.NoError(t, err)
	w = f.do(t, http.MethodPost, "/v1/auth/password-reset/confirm", "", gin.H{
		"token": session, "password": "sneaky-password-change",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Old password is dead, new one works.
	old := f.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{
		"email": "cap@example.gg", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusUnauthorized, old.Code)
	fresh := f.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{
		"email": "cap@example.gg", "password": "a-brand-new-password",
	})
	assert.Equal(t, http.StatusOK, fresh.Code)
}

func TestCreateUser_NeverASecondOwner(t *testing.T) {
	f := newFixture(t)
	tok, _ := f.signup(t, "nova-five", "cap@example.gg")

	w := f.do(t, http.MethodPost, "/v1/users", tok, gin.H{
		"email": "second@example.gg", "name": "Second", "password": "hunter2hunter2",
		"role": "owner",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/v1/users", tok, gin.H{
		"email": "coach@example.gg", "name": "Coach", "password": "hunter2hunter2",
		"role": "coach",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

// losingUserStore delegates to a real store but fails Create until cleared,
// standing in for the losing side of two concurrent signups.
type losingUserStore struct {
	identity.Store
	createErr error
}

func (s *losingUserStore) Create(ctx context.Context, sc scope.Scope, u *identity.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	return s.Store.Create(ctx, sc, u)
}

func TestSignup_OwnerCreateFailureFreesSlug(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logging.New("error", "text")
	orgs := NewMemoryStore()
	users := &losingUserStore{Store: identity.NewMemoryStore(), createErr: identity.ErrEmailTaken}
	tokens := token.NewService([]byte("test-secret-0123456789abcdef0123456789"), time.Hour, token.NewMemoryDenylist())
	h := NewHandler(orgs, users, tokens, logger, 14, testUpgradeURL)
	r := gin.New()
	h.RegisterPublicRoutes(r.Group("/v1"), nil)
	f := &fixture{router: r, orgs: orgs, tokens: tokens}

	body := gin.H{
		"orgName": "Nova Five", "slug": "nova-five", "email": "cap@example.gg",
		"name": "Sam Captain", "password": "hunter2hunter2",
	}
	w := f.do(t, http.MethodPost, "/v1/auth/signup", "", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	// The org row did not survive the failed owner create.
	_, err := orgs.GetBySlug(context.Background(), "nova-five")
	assert.ErrorIs(t, err, ErrOrgNotFound)

	// The slug is usable again once creates succeed.
	users.createErr = nil
	w = f.do(t, http.MethodPost, "/v1/auth/signup", "", body)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateUser_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	tok, _ := f.signup(t, "nova-five", "cap@example.gg")

	w := f.do(t, http.MethodPost, "/v1/users", tok, gin.H{
		"email": "viewer@example.gg", "name": "V", "password": "hunter2hunter2",
		"role": "viewer",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	login := f.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{
		"email": "viewer@example.gg", "password": "hunter2hunter2",
	})
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &resp))

	w = f.do(t, http.MethodPost, "/v1/users", resp.Token, gin.H{
		"email": "x@example.gg", "name": "X", "password": "hunter2hunter2",
		"role": "viewer",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), access.CodeInsufficientRole)
}

func TestDisableUser(t *testing.T) {
	f := newFixture(t)
	tok, _ := f.signup(t, "nova-five", "cap@example.gg")

	w := f.do(t, http.MethodPost, "/v1/users", tok, gin.H{
		"email": "coach@example.gg", "name": "Coach", "password": "hunter2hunter2",
		"role": "coach",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// Disabled users can no longer log in.
	w = f.do(t, http.MethodDelete, "/v1/users/"+created.User.ID, tok, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	login := f.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{
		"email": "coach@example.gg", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusUnauthorized, login.Code)
}

func TestDisableUser_OwnerProtected(t *testing.T) {
	f := newFixture(t)
	tok, orgID := f.signup(t, "nova-five", "cap@example.gg")

	users, err := f.users.List(context.Background(), access.Context{OrgID: orgID}.Scope())
	require.NoError(t, err)
	require.Len(t, users, 1)

	w := f.do(t, http.MethodDelete, "/v1/users/"+users[0].ID, tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeatureGate_UpgradeShape(t *testing.T) {
	f := newFixture(t)
	tok, _ := f.signup(t, "nova-five", "cap@example.gg")

	w := f.do(t, http.MethodGet, "/v1/scrims-probe", tok, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Feature      string `json:"feature"`
				CurrentTier  string `json:"current_tier"`
				RequiredTier string `json:"required_tier"`
				UpgradeURL   string `json:"upgrade_url"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, access.CodeUpgradeRequired, body.Error.Code)
	assert.Equal(t, "scrims", body.Error.Details.Feature)
	assert.Equal(t, "amateur", body.Error.Details.CurrentTier)
	assert.Equal(t, "semi_pro", body.Error.Details.RequiredTier)
	assert.Equal(t, testUpgradeURL, body.Error.Details.UpgradeURL)
}

func TestSubscriptionGate_TrialExpired(t *testing.T) {
	f := newFixture(t)
	tok, orgID := f.signup(t, "nova-five", "cap@example.gg")

	o, err := f.orgs.Get(context.Background(), orgID)
	require.NoError(t, err)
	o.Tier = TierSemiPro // feature would pass; the 402 must fire first
	o.Status = StatusExpired
	require.NoError(t, f.orgs.Update(context.Background(), o))

	w := f.do(t, http.MethodGet, "/v1/scrims-probe", tok, nil)
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), access.CodeTrialExpired)

	// The expired org can still see its own org page.
	w = f.do(t, http.MethodGet, "/v1/org", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
