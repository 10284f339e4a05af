package controller

import (
	"context"
	"ctchen222/rps-arena/internal/api/models"
	"ctchen222/rps-arena/internal/api/response"
	"ctchen222/rps-arena/internal/arena"
	"ctchen222/rps-arena/internal/battle"
	"ctchen222/rps-arena/internal/player"
	"ctchen222/rps-arena/internal/registry"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -source=arena_controller.go -destination=mock_arena.go -package=controller

// Arena is the part of the arena the operator API drives.
type Arena interface {
	Bots(ctx context.Context) ([]registry.Entry, error)
	Ping(ctx context.Context) ([]registry.Entry, []registry.Eviction, error)
	SetTimeout(ctx context.Context, d time.Duration) ([]registry.Eviction, error)
	ClearTimeout(ctx context.Context) ([]registry.Eviction, error)
	Battle(ctx context.Context, bot1, bot2, rounds int) (*battle.Result, error)
}

// ArenaController handles the operator HTTP requests.
type ArenaController struct {
	arena Arena
}

// NewArenaController creates a new ArenaController.
func NewArenaController(a Arena) *ArenaController {
	return &ArenaController{arena: a}
}

// Health reports whether the arena loop is still serving commands.
func (ac *ArenaController) Health(c *gin.Context) {
	if _, err := ac.arena.Bots(c.Request.Context()); err != nil {
		response.ErrorResponse(c, statusFor(err), err.Error())
		return
	}
	response.SuccessResponse(c, gin.H{"status": "ok"})
}

// ListBots returns the registered bots in index order.
func (ac *ArenaController) ListBots(c *gin.Context) {
	entries, err := ac.arena.Bots(c.Request.Context())
	if err != nil {
		response.ErrorResponse(c, statusFor(err), err.Error())
		return
	}
	response.SuccessResponseList(c, models.NewBots(entries))
}

// Ping sends a keepalive to every bot and returns the survivors.
func (ac *ArenaController) Ping(c *gin.Context) {
	entries, evicted, err := ac.arena.Ping(c.Request.Context())
	if err != nil {
		response.ErrorResponse(c, statusFor(err), err.Error())
		return
	}
	response.SuccessResponse(c, models.MaintenanceResponse{
		Evicted: models.NewEvictions(evicted),
		Bots:    models.NewBots(entries),
	})
}

// SetTimeout changes the per-operation timeout of every bot.
func (ac *ArenaController) SetTimeout(c *gin.Context) {
	var req models.TimeoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	d := time.Duration(*req.Seconds * float64(time.Second))
	evicted, err := ac.arena.SetTimeout(c.Request.Context(), d)
	if err != nil {
		response.ErrorResponse(c, statusFor(err), err.Error())
		return
	}
	response.SuccessResponse(c, models.MaintenanceResponse{Evicted: models.NewEvictions(evicted)})
}

// ClearTimeout lets every bot block indefinitely.
func (ac *ArenaController) ClearTimeout(c *gin.Context) {
	evicted, err := ac.arena.ClearTimeout(c.Request.Context())
	if err != nil {
		response.ErrorResponse(c, statusFor(err), err.Error())
		return
	}
	response.SuccessResponse(c, models.MaintenanceResponse{Evicted: models.NewEvictions(evicted)})
}

// Battle runs a battle and waits for its result.
func (ac *ArenaController) Battle(c *gin.Context) {
	var req models.BattleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := ac.arena.Battle(c.Request.Context(), *req.Bot1, *req.Bot2, *req.Rounds)
	if err != nil {
		response.ErrorResponse(c, statusFor(err), err.Error())
		return
	}
	response.SuccessResponse(c, models.NewBattleResponse(res))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, battle.ErrNoSuchBot), errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, battle.ErrSameBot), errors.Is(err, battle.ErrNoRounds), errors.Is(err, player.ErrInvalidTimeout):
		return http.StatusBadRequest
	case errors.Is(err, arena.ErrStopped), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		// The failure came from a bot connection.
		return http.StatusBadGateway
	}
}
