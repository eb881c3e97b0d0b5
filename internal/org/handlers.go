package org

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/scrimhub/scrimhub/internal/access"
	"github.com/scrimhub/scrimhub/internal/identity"
	"github.com/scrimhub/scrimhub/internal/idgen"
	"github.com/scrimhub/scrimhub/internal/logging"
	"github.com/scrimhub/scrimhub/internal/scope"
	"github.com/scrimhub/scrimhub/internal/token"
	"github.com/scrimhub/scrimhub/internal/traces"
	"github.com/scrimhub/scrimhub/internal/validation"
)

const passwordResetTTL = 15 * time.Minute

// Handler provides the org, auth, and user-management endpoints.
type Handler struct {
	store      Store
	users      identity.Store
	tokens     *token.Service
	logger     *slog.Logger
	trialDays  int
	upgradeURL string
	now        func() time.Time
}

// NewHandler creates a new org handler.
func NewHandler(store Store, users identity.Store, tokens *token.Service, logger *slog.Logger, trialDays int, upgradeURL string) *Handler {
	return &Handler{
		store:      store,
		users:      users,
		tokens:     tokens,
		logger:     logger,
		trialDays:  trialDays,
		upgradeURL: upgradeURL,
		now:        time.Now,
	}
}

// RegisterPublicRoutes sets up the routes that require no authentication.
// limit supplies the per-bucket abuse throttles; nil disables them.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup, limit func(bucket string) gin.HandlerFunc) {
	if limit == nil {
		limit = func(string) gin.HandlerFunc {
			return func(c *gin.Context) { c.Next() }
		}
	}
	r.POST("/auth/signup", limit("register"), h.Signup)
	r.POST("/auth/login", limit("login"), h.Login)
	r.POST("/auth/password-reset", limit("password_reset"), h.RequestPasswordReset)
	r.POST("/auth/password-reset/confirm", limit("password_reset"), h.ConfirmPasswordReset)
	r.GET("/constants", h.Constants)
	r.GET("/faq", h.FAQ)
}

// RegisterProtectedRoutes sets up routes behind the authentication
// middleware. Role gates are applied per route.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/auth/logout", h.Logout)
	r.GET("/org", h.GetOrg)
	r.PATCH("/org", access.RequireRole(identity.RoleAdmin), h.UpdateOrg)
	r.GET("/users", h.ListUsers)
	r.POST("/users", access.RequireRole(identity.RoleAdmin), h.CreateUser)
	r.DELETE("/users/:id", access.RequireRole(identity.RoleAdmin), h.DisableUser)
}

// ---------- Auth endpoints ----------

// Signup handles POST /v1/auth/signup: creates an org on a fresh trial, its
// owner account, and a session token.
func (h *Handler) Signup(c *gin.Context) {
	var req struct {
		OrgName  string `json:"orgName" binding:"required"`
		Slug     string `json:"slug" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Name     string `json:"name" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		access.WriteInvalid(c, "orgName, slug, email, name, and password are required.")
		return
	}

	req.Slug = validation.NormalizeSlug(req.Slug)
	req.Email = validation.NormalizeEmail(req.Email)
	if !validation.IsValidSlug(req.Slug) {
		access.WriteInvalid(c, "Slug must be 3-64 lowercase letters, digits, or hyphens.")
		return
	}
	if !validation.IsValidEmail(req.Email) {
		access.WriteInvalid(c, "Invalid email address.")
		return
	}
	if len(req.Password) < identity.MinPasswordLength {
		access.WriteInvalid(c, "Password must be at least 10 characters.")
		return
	}

	ctx, span := traces.StartSpan(c.Request.Context(), "org.Signup",
		attribute.String("org.slug", req.Slug))
	defer span.End()

	// The org does not exist yet, so the email uniqueness check cannot be
	// tenant-scoped.
	preSc := scope.Unscoped("signup precedes tenant context")
	if _, err := h.users.GetByEmail(ctx, preSc, req.Email); err == nil {
		access.WriteConflict(c, "That email is already registered.")
		return
	}

	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		logging.L(ctx).Error("password hash failed", "error", err)
		access.WriteInternal(c)
		return
	}

	now := h.now()
	o := &Organization{
		ID:             idgen.WithPrefix("org_"),
		Name:           validation.SanitizeString(req.OrgName, 200),
		Slug:           req.Slug,
		Tier:           TierAmateur,
		Status:         StatusTrial,
		TrialStartedAt: now,
		TrialEndsAt:    now.AddDate(0, 0, h.trialDays),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.store.Create(ctx, o); err != nil {
		if errors.Is(err, ErrSlugTaken) {
			access.WriteConflict(c, "That slug is already taken.")
			return
		}
		logging.L(ctx).Error("org create failed", "error", err)
		access.WriteInternal(c)
		return
	}
	span.SetAttributes(traces.OrgID(o.ID))

	owner := &identity.User{
		ID:           idgen.WithPrefix("usr_"),
		OrgID:        o.ID,
		Email:        req.Email,
		Name:         validation.SanitizeString(req.Name, 200),
		Role:         identity.RoleOwner,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.users.Create(ctx, scope.For(o.ID), owner); err != nil {
		// Two signups can race past the email precheck; the loser must not
		// leave an ownerless org squatting the slug.
		if derr := h.store.Delete(ctx, o.ID); derr != nil {
			logging.L(ctx).Error("signup rollback failed", "orgId", o.ID, "error", derr)
		}
		if errors.Is(err, identity.ErrEmailTaken) {
			access.WriteConflict(c, "That email is already registered.")
			return
		}
		logging.L(ctx).Error("owner create failed", "orgId", o.ID, "error", err)
		access.WriteInternal(c)
		return
	}

	raw, _, err := h.tokens.Issue(owner.ID)
	if err != nil {
		logging.L(ctx).Error("token issue failed", "userId", owner.ID, "error", err)
		access.WriteInternal(c)
		return
	}

	h.logger.Info("org signed up", "orgId", o.ID, "slug", o.Slug)
	c.JSON(http.StatusCreated, gin.H{"token": raw, "org": o, "user": owner})
}

// Login handles POST /v1/auth/login. Wrong email, wrong password, and
// disabled account all produce the same 401.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		access.WriteInvalid(c, "email and password are required.")
		return
	}

	ctx := c.Request.Context()

	// Login identifies the user before the tenant is known.
	sc := scope.Unscoped("login precedes tenant context")
	u, err := h.users.GetByEmail(ctx, sc, validation.NormalizeEmail(req.Email))
	if err != nil || u.Disabled || !identity.CheckPassword(u.PasswordHash, req.Password) {
		access.WriteUnauthenticated(c)
		return
	}

	raw, _, err := h.tokens.Issue(u.ID)
	if err != nil {
		logging.L(ctx).Error("token issue failed", "userId", u.ID, "error", err)
		access.WriteInternal(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": raw, "user": u})
}

// Logout handles POST /v1/auth/logout: revokes the presented token.
func (h *Handler) Logout(c *gin.Context) {
	raw, ok := access.RawToken(c.Request.Context())
	if !ok {
		access.WriteUnauthenticated(c)
		return
	}
	if err := h.tokens.Revoke(c.Request.Context(), raw); err != nil {
		access.WriteUnauthenticated(c)
		return
	}
	c.Status(http.StatusNoContent)
}

// RequestPasswordReset handles POST /v1/auth/password-reset. The response
// is 202 whether or not the email exists; the reset token goes out by email,
// never in the response body.
func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		access.WriteInvalid(c, "email is required.")
		return
	}

	ctx := c.Request.Context()
	sc := scope.Unscoped("password reset precedes tenant context")
	u, err := h.users.GetByEmail(ctx, sc, validation.NormalizeEmail(req.Email))
	if err == nil && !u.Disabled {
		raw, claims, err := h.tokens.IssueWithPurpose(u.ID, token.PurposePasswordReset, passwordResetTTL)
		if err != nil {
			logging.L(ctx).Error("reset token issue failed", "userId", u.ID, "error", err)
		} else {
			_ = raw // handed to the mailer, not the client
			h.logger.Info("password reset token issued", "userId", u.ID, "jti", claims.JTI)
		}
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "If that account exists, a reset link is on its way."})
}

// ConfirmPasswordReset handles POST /v1/auth/password-reset/confirm.
// The reset token is single-use: it is revoked on success.
func (h *Handler) ConfirmPasswordReset(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		access.WriteInvalid(c, "token and password are required.")
		return
	}
	if len(req.Password) < identity.MinPasswordLength {
		access.WriteInvalid(c, "Password must be at least 10 characters.")
		return
	}

	ctx := c.Request.Context()
	claims, err := h.tokens.Validate(ctx, req.Token)
	if err != nil || claims.Purpose != token.PurposePasswordReset {
		access.WriteUnauthenticated(c)
		return
	}

	sc := scope.Unscoped("password reset precedes tenant context")
	u, err := h.users.Get(ctx, sc, claims.Subject)
	if err != nil || u.Disabled {
		access.WriteUnauthenticated(c)
		return
	}

	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		logging.L(ctx).Error("password hash failed", "error", err)
		access.WriteInternal(c)
		return
	}
	u.PasswordHash = hash
	u.UpdatedAt = h.now()
	if err := h.users.Update(ctx, scope.For(u.OrgID), u); err != nil {
		logging.L(ctx).Error("password update failed", "userId", u.ID, "error", err)
		access.WriteInternal(c)
		return
	}

	_ = h.tokens.Revoke(ctx, req.Token)
	c.Status(http.StatusNoContent)
}

// ---------- Org endpoints ----------

// GetOrg handles GET /v1/org: the caller's own org plus its tier policy.
func (h *Handler) GetOrg(c *gin.Context) {
	ac := access.MustContext(c)

	o, err := h.store.Get(c.Request.Context(), ac.OrgID)
	if err != nil {
		logging.L(c.Request.Context()).Error("org lookup failed", "orgId", ac.OrgID, "error", err)
		access.WriteInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"org": o, "policy": PolicyFor(o.Tier)})
}

// UpdateOrg handles PATCH /v1/org (admin+). Only the display name is
// editable here; tier and status changes come from billing.
func (h *Handler) UpdateOrg(c *gin.Context) {
	ac := access.MustContext(c)

	var req struct {
		Name *string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		access.WriteInvalid(c, "Invalid body.")
		return
	}

	o, err := h.store.Get(c.Request.Context(), ac.OrgID)
	if err != nil {
		access.WriteInternal(c)
		return
	}
	if req.Name != nil {
		o.Name = validation.SanitizeString(*req.Name, 200)
	}
	o.UpdatedAt = h.now()

	if err := h.store.Update(c.Request.Context(), o); err != nil {
		logging.L(c.Request.Context()).Error("org update failed", "orgId", o.ID, "error", err)
		access.WriteInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"org": o})
}

// ---------- User endpoints ----------

// ListUsers handles GET /v1/users.
func (h *Handler) ListUsers(c *gin.Context) {
	ac := access.MustContext(c)

	users, err := h.users.List(c.Request.Context(), ac.Scope())
	if err != nil {
		access.WriteInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// CreateUser handles POST /v1/users (admin+). An org has exactly one owner;
// the store refuses to mint another.
func (h *Handler) CreateUser(c *gin.Context) {
	ac := access.MustContext(c)

	var req struct {
		Email    string        `json:"email" binding:"required"`
		Name     string        `json:"name" binding:"required"`
		Password string        `json:"password" binding:"required"`
		Role     identity.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		access.WriteInvalid(c, "email, name, password, and role are required.")
		return
	}

	req.Email = validation.NormalizeEmail(req.Email)
	if !validation.IsValidEmail(req.Email) {
		access.WriteInvalid(c, "Invalid email address.")
		return
	}
	if !identity.ValidRole(req.Role) {
		access.WriteInvalid(c, "Unknown role.")
		return
	}
	if len(req.Password) < identity.MinPasswordLength {
		access.WriteInvalid(c, "Password must be at least 10 characters.")
		return
	}

	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		access.WriteInternal(c)
		return
	}

	now := h.now()
	u := &identity.User{
		ID:           idgen.WithPrefix("usr_"),
		OrgID:        ac.OrgID,
		Email:        req.Email,
		Name:         validation.SanitizeString(req.Name, 200),
		Role:         req.Role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.users.Create(c.Request.Context(), ac.Scope(), u); err != nil {
		if errors.Is(err, identity.ErrOwnerExists) {
			access.WriteConflict(c, "This org already has an owner.")
			return
		}
		if errors.Is(err, identity.ErrEmailTaken) {
			access.WriteConflict(c, "That email is already registered.")
			return
		}
		access.WriteInternal(c)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": u})
}

// DisableUser handles DELETE /v1/users/:id (admin+). Accounts are soft
// disabled, never deleted; the owner cannot be disabled.
func (h *Handler) DisableUser(c *gin.Context) {
	ac := access.MustContext(c)
	id := c.Param("id")

	u, err := h.users.Get(c.Request.Context(), ac.Scope(), id)
	if err != nil {
		access.WriteNotFound(c, "user")
		return
	}
	if u.Role == identity.RoleOwner {
		access.WriteInvalid(c, "The owner account cannot be disabled.")
		return
	}

	u.Disabled = true
	u.UpdatedAt = h.now()
	if err := h.users.Update(c.Request.Context(), ac.Scope(), u); err != nil {
		access.WriteInternal(c)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------- Public reference endpoints ----------

// Constants handles GET /v1/constants: the tier catalogue and role ladder.
func (h *Handler) Constants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tiers": Catalogue(),
		"roles": []identity.Role{
			identity.RoleViewer, identity.RoleAnalyst, identity.RoleCoach,
			identity.RoleAdmin, identity.RoleOwner,
		},
		"trial_days": h.trialDays,
	})
}

// FAQ handles GET /v1/faq.
func (h *Handler) FAQ(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"faq": []gin.H{
		{
			"q": "What happens when my trial ends?",
			"a": "Your data stays put, but feature routes return 402 until you subscribe.",
		},
		{
			"q": "What does each tier include?",
			"a": "See /v1/constants for the full catalogue of limits and features per tier.",
		},
		{
			"q": "Can I move a player or match to another org?",
			"a": "No. Records belong to the org that created them.",
		},
		{
			"q": "How many staff accounts can I create?",
			"a": "Staff accounts are unlimited on every tier; player and match limits depend on your tier.",
		},
	}})
}
