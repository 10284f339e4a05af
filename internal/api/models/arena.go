package models

import (
	"ctchen222/rps-arena/internal/battle"
	"ctchen222/rps-arena/internal/registry"
)

// TimeoutRequest sets the per-operation timeout on every bot.
type TimeoutRequest struct {
	Seconds *float64 `json:"seconds" binding:"required"`
}

// BattleRequest pairs two bots by their current index.
type BattleRequest struct {
	Bot1   *int `json:"bot1" binding:"required"`
	Bot2   *int `json:"bot2" binding:"required"`
	Rounds *int `json:"rounds" binding:"required"`
}

// Bot is one registered bot.
type Bot struct {
	Index          int     `json:"index"`
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Addr           string  `json:"addr"`
	TimeoutSeconds float64 `json:"timeout_seconds"`
}

// Eviction is a bot removed by a maintenance operation.
type Eviction struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// MaintenanceResponse reports the outcome of ping and timeout changes.
type MaintenanceResponse struct {
	Evicted []Eviction `json:"evicted"`
	Bots    []Bot      `json:"bots,omitempty"`
}

// BattleResponse is the score of a finished battle.
type BattleResponse struct {
	ID             string  `json:"id"`
	Bot1           string  `json:"bot1"`
	Bot2           string  `json:"bot2"`
	Rounds         int     `json:"rounds"`
	Wins1          int     `json:"wins1"`
	Wins2          int     `json:"wins2"`
	Ties           int     `json:"ties"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	CDF1           float64 `json:"cdf1"`
	CDF2           float64 `json:"cdf2"`
}

func NewBots(entries []registry.Entry) []Bot {
	bots := make([]Bot, 0, len(entries))
	for _, e := range entries {
		bots = append(bots, Bot{
			Index:          e.Index,
			ID:             e.ID,
			Name:           e.Name,
			Addr:           e.Addr,
			TimeoutSeconds: e.Timeout.Seconds(),
		})
	}
	return bots
}

func NewEvictions(evicted []registry.Eviction) []Eviction {
	out := make([]Eviction, 0, len(evicted))
	for _, ev := range evicted {
		out = append(out, Eviction{
			Index: ev.Index,
			ID:    ev.ID,
			Name:  ev.Name,
			Error: ev.Err.Error(),
		})
	}
	return out
}

func NewBattleResponse(r *battle.Result) BattleResponse {
	return BattleResponse{
		ID:             r.ID,
		Bot1:           r.Bot1,
		Bot2:           r.Bot2,
		Rounds:         r.Rounds,
		Wins1:          r.Wins1,
		Wins2:          r.Wins2,
		Ties:           r.Ties,
		ElapsedSeconds: r.Elapsed.Seconds(),
		CDF1:           r.CDF1,
		CDF2:           r.CDF2,
	}
}
