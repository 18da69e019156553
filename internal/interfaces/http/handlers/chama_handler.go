package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chama-ledger.backend/internal/domain/entities"
	domainerrors "chama-ledger.backend/internal/domain/errors"
	"chama-ledger.backend/internal/interfaces/http/response"
)

// ChamaService manages chama membership
type ChamaService interface {
	AddMember(ctx context.Context, chamaID uuid.UUID, input *entities.AddMemberInput, actor entities.Actor) (*entities.ChamaMember, error)
	ListMembers(ctx context.Context, chamaID uuid.UUID, actor entities.Actor) ([]*entities.ChamaMember, error)
}

// LeaderboardService serves and rebuilds chama rankings
type LeaderboardService interface {
	Get(ctx context.Context, chamaID uuid.UUID, actor entities.Actor) ([]*entities.LeaderboardEntry, error)
	RecomputeFor(ctx context.Context, chamaID uuid.UUID, actor entities.Actor) ([]*entities.LeaderboardEntry, error)
}

// ChamaHandler handles chama endpoints
type ChamaHandler struct {
	chamas      ChamaService
	leaderboard LeaderboardService
}

// NewChamaHandler creates a new chama handler
func NewChamaHandler(chamas ChamaService, leaderboard LeaderboardService) *ChamaHandler {
	return &ChamaHandler{chamas: chamas, leaderboard: leaderboard}
}

// AddMember adds a member to a chama
// POST /api/v1/chamas/:id/members
func (h *ChamaHandler) AddMember(c *gin.Context) {
	chamaID, ok := parseIDParam(c, "id", "chama")
	if !ok {
		return
	}

	var input entities.AddMemberInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	member, err := h.chamas.AddMember(c.Request.Context(), chamaID, &input, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"member": member})
}

// ListMembers lists a chama's members
// GET /api/v1/chamas/:id/members
func (h *ChamaHandler) ListMembers(c *gin.Context) {
	chamaID, ok := parseIDParam(c, "id", "chama")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	members, err := h.chamas.ListMembers(c.Request.Context(), chamaID, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	if members == nil {
		members = []*entities.ChamaMember{}
	}

	response.Success(c, http.StatusOK, gin.H{"members": members})
}

// GetLeaderboard returns the ranking
// GET /api/v1/chamas/:id/leaderboard
func (h *ChamaHandler) GetLeaderboard(c *gin.Context) {
	h.serveLeaderboard(c, h.leaderboard.Get)
}

// RecomputeLeaderboard rebuilds the ranking now
// POST /api/v1/chamas/:id/leaderboard/recompute
func (h *ChamaHandler) RecomputeLeaderboard(c *gin.Context) {
	h.serveLeaderboard(c, h.leaderboard.RecomputeFor)
}

func (h *ChamaHandler) serveLeaderboard(c *gin.Context, load func(context.Context, uuid.UUID, entities.Actor) ([]*entities.LeaderboardEntry, error)) {
	chamaID, ok := parseIDParam(c, "id", "chama")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	entries, err := load(c.Request.Context(), chamaID, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []*entities.LeaderboardEntry{}
	}

	response.Success(c, http.StatusOK, gin.H{"chamaId": chamaID, "leaderboard": entries})
}
