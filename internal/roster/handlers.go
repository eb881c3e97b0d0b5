package roster

import (
	"errors"
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

// Handler provides the player endpoints.
type Handler struct {
	store Store
	orgs  org.Store
	hub   *realtime.Hub
	now   func() time.Time
}

// NewHandler creates a new roster handler. hub may be nil.
func NewHandler(store Store, orgs org.Store, hub *realtime.Hub) *Handler {
	return &Handler{store: store, orgs: orgs, hub: hub, now: time.Now}
}

// RegisterRoutes sets up the player routes on an authenticated group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/players", h.ListPlayers)
	r.GET("/players/:id", h.GetPlayer)
	r.POST("/players", access.RequireRole(identity.RoleCoach), h.CreatePlayer)
	r.PATCH("/players/:id", access.RequireRole(identity.RoleCoach), h.UpdatePlayer)
	r.DELETE("/players/:id", access.RequireRole(identity.RoleAdmin), h.DeletePlayer)
}

// ListPlayers handles GET /v1/players. With a limit param the listing is
// cursor-paginated, newest first.
func (h *Handler) ListPlayers(c *gin.Context) {
	ac := access.MustContext(c)

	players, err := h.store.List(c.Request.Context(), ac.Scope())
	if err != nil {
		access.WriteInternal(c)
		return
	}
	sort.Slice(players, func(i, j int) bool {
		if !players[i].CreatedAt.Equal(players[j].CreatedAt) {
			return players[i].CreatedAt.After(players[j].CreatedAt)
		}
		return players[i].ID > players[j].ID
	})

	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 {
		c.JSON(http.StatusOK, gin.H{"players": players, "count": len(players)})
		return
	}

	cur, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		access.WriteInvalid(c, "Invalid cursor.")
		return
	}
	if cur != nil {
		players = pagination.After(players, cur, func(p *Player) (time.Time, string) {
			return p.CreatedAt, p.ID
		})
	}
	page, next, more := pagination.ComputePage(players, limit, func(p *Player) (time.Time, string) {
		return p.CreatedAt, p.ID
	})
	c.JSON(http.StatusOK, gin.H{
		"players": page, "count": len(page),
		"nextCursor": next, "hasMore": more,
	})
}

// GetPlayer handles GET /v1/players/:id.
func (h *Handler) GetPlayer(c *gin.Context) {
	ac := access.MustContext(c)

	p, err := h.store.Get(c.Request.Context(), ac.Scope(), c.Param("id"))
	if err != nil {
		access.WriteNotFound(c, "player")
		return
	}
	c.JSON(http.StatusOK, gin.H{"player": p})
}

// CreatePlayer handles POST /v1/players (coach+). The tier's MaxPlayers
// limit is checked against a live count of active players, so an aborted
// create leaves nothing to reconcile.
func (h *Handler) CreatePlayer(c *gin.Context) {
	ac := access.MustContext(c)
	ctx := c.Request.Context()

	var req struct {
		Handle   string `json:"handle" binding:"required"`
		Name     string `json:"name" binding:"required"`
		Game     string `json:"game" binding:"required"`
		Position string `json:"position"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		access.WriteInvalid(c, "handle, name, and game are required.")
		return
	}
	if !validation.IsValidHandle(req.Handle) {
		access.WriteInvalid(c, "Handle must be 2-32 letters, digits, underscores, or hyphens.")
		return
	}

	o, err := h.orgs.Get(ctx, ac.OrgID)
	if err != nil {
		logging.L(ctx).Error("org lookup failed", "orgId", ac.OrgID, "error", err)
		access.WriteInternal(c)
		return
	}
	policy := org.PolicyFor(o.Tier)
	if policy.MaxPlayers > 0 {
		current, err := h.store.CountActive(ctx, ac.Scope())
		if err != nil {
			access.WriteInternal(c)
			return
		}
		if current >= policy.MaxPlayers {
			access.WriteLimitReached(c, "active players", policy.MaxPlayers, current)
			return
		}
	}

	now := h.now()
	p := &Player{
		ID:        idgen.WithPrefix("plr_"),
		OrgID:     ac.OrgID,
		Handle:    req.Handle,
		Name:      validation.SanitizeString(req.Name, 200),
		Game:      validation.SanitizeString(req.Game, 100),
		Position:  validation.SanitizeString(req.Position, 100),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.Create(ctx, ac.Scope(), p); err != nil {
		if errors.Is(err, ErrHandleTaken) {
			access.WriteConflict(c, "That handle is already on your roster.")
			return
		}
		access.WriteInternal(c)
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(ac.OrgID, realtime.EventPlayerAdded, p)
	}
	c.JSON(http.StatusCreated, gin.H{"player": p})
}

// UpdatePlayer handles PATCH /v1/players/:id (coach+). Reactivating a
// benched player goes back through the MaxPlayers limit.
func (h *Handler) UpdatePlayer(c *gin.Context) {
	ac := access.MustContext(c)
	ctx := c.Request.Context()

	p, err := h.store.Get(ctx, ac.Scope(), c.Param("id"))
	if err != nil {
		access.WriteNotFound(c, "player")
		return
	}

	var req struct {
		Name     *string `json:"name"`
		Position *string `json:"position"`
		Active   *bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		access.WriteInvalid(c, "Invalid body.")
		return
	}

	if req.Active != nil && *req.Active && !p.Active {
		o, err := h.orgs.Get(ctx, ac.OrgID)
		if err != nil {
			access.WriteInternal(c)
			return
		}
		policy := org.PolicyFor(o.Tier)
		if policy.MaxPlayers > 0 {
			current, err := h.store.CountActive(ctx, ac.Scope())
			if err != nil {
				access.WriteInternal(c)
				return
			}
			if current >= policy.MaxPlayers {
				access.WriteLimitReached(c, "active players", policy.MaxPlayers, current)
				return
			}
		}
	}

	if req.Name != nil {
		p.Name = validation.SanitizeString(*req.Name, 200)
	}
	if req.Position != nil {
		p.Position = validation.SanitizeString(*req.Position, 100)
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	p.UpdatedAt = h.now()

	if err := h.store.Update(ctx, ac.Scope(), p); err != nil {
		access.WriteNotFound(c, "player")
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(ac.OrgID, realtime.EventPlayerUpdated, p)
	}
	c.JSON(http.StatusOK, gin.H{"player": p})
}

// DeletePlayer handles DELETE /v1/players/:id (admin+).
func (h *Handler) DeletePlayer(c *gin.Context) {
	ac := access.MustContext(c)
	id := c.Param("id")

	if err := h.store.Delete(c.Request.Context(), ac.Scope(), id); err != nil {
		access.WriteNotFound(c, "player")
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(ac.OrgID, realtime.EventPlayerRemoved, gin.H{"id": id})
	}
	c.Status(http.StatusNoContent)
}
