package match

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scrimhub/scrimhub/internal/access"
	"github.com/scrimhub/scrimhub/internal/identity"
	"github.com/scrimhub/scrimhub/internal/idgen"
	"github.com/scrimhub/scrimhub/internal/logging"
	"github.com/scrimhub/scrimhub/internal/org"
	"github.com/scrimhub/scrimhub/internal/pagination"
	"github.com/scrimhub/scrimhub/internal/realtime"
	"github.com/scrimhub/scrimhub/internal/validation"
)

// Handler provides the match endpoints.
type Handler struct {
	store      Store
	orgs       org.Store
	hub        *realtime.Hub
	upgradeURL string
	now        func() time.Time
}

// NewHandler creates a new match handler. hub may be nil.
func NewHandler(store Store, orgs org.Store, hub *realtime.Hub, upgradeURL string) *Handler {
	return &Handler{store: store, orgs: orgs, hub: hub, upgradeURL: upgradeURL, now: time.Now}
}

// RegisterRoutes sets up the match routes on an authenticated group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/matches", h.ListMatches)
	r.GET("/matches/:id", h.GetMatch)
	r.POST("/matches", access.RequireRole(identity.RoleCoach), h.CreateMatch)
	r.PATCH("/matches/:id", access.RequireRole(identity.RoleAnalyst), h.UpdateMatch)
	r.DELETE("/matches/:id", access.RequireRole(identity.RoleAdmin), h.DeleteMatch)
}

// ListMatches handles GET /v1/matches. With a limit param the listing is
// cursor-paginated, newest first.
func (h *Handler) ListMatches(c *gin.Context) {
	ac := access.MustContext(c)

	matches, err := h.store.List(c.Request.Context(), ac.Scope())
	if err != nil {
		access.WriteInternal(c)
		return
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID > matches[j].ID
	})

	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 {
		c.JSON(http.StatusOK, gin.H{"matches": matches, "count": len(matches)})
		return
	}

	cur, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		access.WriteInvalid(c, "Invalid cursor.")
		return
	}
	if cur != nil {
		matches = pagination.After(matches, cur, func(m *Match) (time.Time, string) {
			return m.CreatedAt, m.ID
		})
	}
	page, next, more := pagination.ComputePage(matches, limit, func(m *Match) (time.Time, string) {
		return m.CreatedAt, m.ID
	})
	c.JSON(http.StatusOK, gin.H{
		"matches": page, "count": len(page),
		"nextCursor": next, "hasMore": more,
	})
}

// GetMatch handles GET /v1/matches/:id.
func (h *Handler) GetMatch(c *gin.Context) {
	ac := access.MustContext(c)

	m, err := h.store.Get(c.Request.Context(), ac.Scope(), c.Param("id"))
	if err != nil {
		access.WriteNotFound(c, "match")
		return
	}
	c.JSON(http.StatusOK, gin.H{"match": m})
}

// CreateMatch handles POST /v1/matches (coach+). Scrims need the scrims
// feature; every create is bounded by MaxMatchesPerMonth against a live
// count of the scheduled month.
func (h *Handler) CreateMatch(c *gin.Context) {
	ac := access.MustContext(c)
	ctx := c.Request.Context()

	var req struct {
		Kind        Kind      `json:"kind" binding:"required"`
		Opponent    string    `json:"opponent" binding:"required"`
		Game        string    `json:"game" binding:"required"`
		ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		access.WriteInvalid(c, "kind, opponent, game, and scheduledAt are required.")
		return
	}
	if !ValidKind(req.Kind) {
		access.WriteInvalid(c, "kind must be official or scrim.")
		return
	}

	o, err := h.orgs.Get(ctx, ac.OrgID)
	if err != nil {
		logging.L(ctx).Error("org lookup failed", "orgId", ac.OrgID, "error", err)
		access.WriteInternal(c)
		return
	}
	policy := org.PolicyFor(o.Tier)

	if req.Kind == KindScrim && !policy.HasFeature(org.FeatureScrims) {
		required, _ := org.MinTierFor(org.FeatureScrims)
		access.WriteUpgradeRequired(c, string(org.FeatureScrims), string(policy.Tier), string(required), h.upgradeURL)
		return
	}

	if policy.MaxMatchesPerMonth > 0 {
		current, err := h.store.CountInMonth(ctx, ac.Scope(), req.ScheduledAt)
		if err != nil {
			access.WriteInternal(c)
			return
		}
		if current >= policy.MaxMatchesPerMonth {
			access.WriteLimitReached(c, "matches this month", policy.MaxMatchesPerMonth, current)
			return
		}
	}

	now := h.now()
	m := &Match{
		ID:          idgen.WithPrefix("mtc_"),
		OrgID:       ac.OrgID,
		Kind:        req.Kind,
		Opponent:    validation.SanitizeString(req.Opponent, 200),
		Game:        validation.SanitizeString(req.Game, 100),
		ScheduledAt: req.ScheduledAt.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.store.Create(ctx, ac.Scope(), m); err != nil {
		access.WriteInternal(c)
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(ac.OrgID, realtime.EventMatchRecorded, m)
	}
	c.JSON(http.StatusCreated, gin.H{"match": m})
}

// UpdateMatch handles PATCH /v1/matches/:id (analyst+). Result and score
// are open to every tier; VOD URL and review notes need vod_reviews.
func (h *Handler) UpdateMatch(c *gin.Context) {
	ac := access.MustContext(c)
	ctx := c.Request.Context()

	m, err := h.store.Get(ctx, ac.Scope(), c.Param("id"))
	if err != nil {
		access.WriteNotFound(c, "match")
		return
	}

	var req struct {
		Result      *string `json:"result"`
		Score       *string `json:"score"`
		VODURL      *string `json:"vodUrl"`
		ReviewNotes *string `json:"reviewNotes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		access.WriteInvalid(c, "Invalid body.")
		return
	}

	if req.VODURL != nil || req.ReviewNotes != nil {
		o, err := h.orgs.Get(ctx, ac.OrgID)
		if err != nil {
			access.WriteInternal(c)
			return
		}
		policy := org.PolicyFor(o.Tier)
		if !policy.HasFeature(org.FeatureVODReviews) {
			required, _ := org.MinTierFor(org.FeatureVODReviews)
			access.WriteUpgradeRequired(c, string(org.FeatureVODReviews), string(policy.Tier), string(required), h.upgradeURL)
			return
		}
	}

	if req.Result != nil {
		m.Result = validation.SanitizeString(*req.Result, 50)
	}
	if req.Score != nil {
		m.Score = validation.SanitizeString(*req.Score, 50)
	}
	if req.VODURL != nil {
		m.VODURL = validation.SanitizeString(*req.VODURL, 500)
	}
	if req.ReviewNotes != nil {
		m.ReviewNotes = validation.SanitizeString(*req.ReviewNotes, 10000)
	}
	m.UpdatedAt = h.now()

	if err := h.store.Update(ctx, ac.Scope(), m); err != nil {
		access.WriteNotFound(c, "match")
		return
	}
	c.JSON(http.StatusOK, gin.H{"match": m})
}

// DeleteMatch handles DELETE /v1/matches/:id (admin+).
func (h *Handler) DeleteMatch(c *gin.Context) {
	ac := access.MustContext(c)
	id := c.Param("id")

	if err := h.store.Delete(c.Request.Context(), ac.Scope(), id); err != nil {
		access.WriteNotFound(c, "match")
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(ac.OrgID, realtime.EventMatchDeleted, gin.H{"id": id})
	}
	c.Status(http.StatusNoContent)
}
