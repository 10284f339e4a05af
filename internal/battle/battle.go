// Package battle runs a fixed number of synchronized rounds between two
// registered bots and scores the result.
package battle

import (
	"context"
	"ctchen222/rps-arena/internal/game"
	"ctchen222/rps-arena/internal/player"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNoSuchBot = errors.New("no such bot")
	ErrSameBot   = errors.New("a bot cannot battle itself")
	ErrNoRounds  = errors.New("battle needs at least one round")
)

var (
	tracer = otel.Tracer("battle")
	meter  = otel.Meter("battle")

	battleCounter, _ = meter.Int64Counter("rps.battles",
		metric.WithDescription("Battles run, by status"))
	battleDuration, _ = meter.Float64Histogram("rps.battle.duration",
		metric.WithDescription("Wall-clock time of completed battles"),
		metric.WithUnit("s"))
)

// Lookup resolves a registry index to a connection.
type Lookup interface {
	Get(i int) (*player.Player, error)
}

// Result is the score of a completed battle, from bot1's point of view.
type Result struct {
	ID      string        `json:"id"`
	Bot1    string        `json:"bot1"`
	Bot2    string        `json:"bot2"`
	Rounds  int           `json:"rounds"`
	Wins1   int           `json:"wins1"`
	Wins2   int           `json:"wins2"`
	Ties    int           `json:"ties"`
	Elapsed time.Duration `json:"elapsed"`
	// CDF1 and CDF2 estimate how likely each bot is the stronger one.
	CDF1 float64 `json:"cdf1"`
	CDF2 float64 `json:"cdf2"`
}

// Battle is a validated pairing ready to run.
type Battle struct {
	ID     string
	Bot1   *player.Player
	Bot2   *player.Player
	Rounds int
}

// New checks the pairing without touching either connection.
func New(bots Lookup, bot1, bot2, rounds int) (*Battle, error) {
	if rounds < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrNoRounds, rounds)
	}
	p1, err := bots.Get(bot1)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchBot, bot1)
	}
	p2, err := bots.Get(bot2)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchBot, bot2)
	}
	if bot1 == bot2 || p1.SameSocket(p2) {
		return nil, ErrSameBot
	}
	return &Battle{
		ID:     uuid.New().String(),
		Bot1:   p1,
		Bot2:   p2,
		Rounds: rounds,
	}, nil
}

// Run validates the pairing and plays it.
func Run(ctx context.Context, bots Lookup, bot1, bot2, rounds int) (*Result, error) {
	b, err := New(bots, bot1, bot2, rounds)
	if err != nil {
		return nil, err
	}
	return b.Run(ctx)
}

// Run plays every round. On any failure both bots are told to abort and the
// failure is returned without a partial score.
func (b *Battle) Run(ctx context.Context) (*Result, error) {
	ctx, span := tracer.Start(ctx, "battle.Run", trace.WithAttributes(
		attribute.String("battle.id", b.ID),
		attribute.String("bot1.name", b.Bot1.Name),
		attribute.String("bot2.name", b.Bot2.Name),
		attribute.Int("battle.rounds", b.Rounds),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := b.play(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Battle failed")
		b.abort(ctx)
		battleCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "failed")))
		return nil, err
	}
	res.Elapsed = time.Since(start)
	res.CDF1, res.CDF2 = Significance(res.Wins1, res.Wins2, b.Rounds)

	span.SetAttributes(
		attribute.Int("battle.wins1", res.Wins1),
		attribute.Int("battle.wins2", res.Wins2),
		attribute.Int("battle.ties", res.Ties),
	)
	battleCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "finished")))
	battleDuration.Record(ctx, res.Elapsed.Seconds())
	slog.InfoContext(ctx, "battle finished",
		"battle.id", b.ID,
		"bot1.name", b.Bot1.Name,
		"bot2.name", b.Bot2.Name,
		"wins1", res.Wins1,
		"wins2", res.Wins2,
		"ties", res.Ties,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

func (b *Battle) play(ctx context.Context) (*Result, error) {
	res := &Result{
		ID:     b.ID,
		Bot1:   b.Bot1.Name,
		Bot2:   b.Bot2.Name,
		Rounds: b.Rounds,
	}

	if err := b.Bot1.StartGame(ctx); err != nil {
		return nil, fmt.Errorf("start %s: %w", b.Bot1.Name, err)
	}
	if err := b.Bot2.StartGame(ctx); err != nil {
		return nil, fmt.Errorf("start %s: %w", b.Bot2.Name, err)
	}

	for round := 1; round <= b.Rounds; round++ {
		m1, err := b.Bot1.GetMove(ctx)
		if err != nil {
			return nil, fmt.Errorf("round %d: %s: %w", round, b.Bot1.Name, err)
		}
		m2, err := b.Bot2.GetMove(ctx)
		if err != nil {
			return nil, fmt.Errorf("round %d: %s: %w", round, b.Bot2.Name, err)
		}
		slog.DebugContext(ctx, "moves are", "battle.id", b.ID, "round", round, "move1", m1.String(), "move2", m2.String())

		switch game.Play(m1, m2) {
		case game.Win:
			res.Wins1++
		case game.Lose:
			res.Wins2++
		default:
			res.Ties++
		}

		if err := relay(ctx, b.Bot1, m2, round == b.Rounds); err != nil {
			return nil, fmt.Errorf("round %d: %s: %w", round, b.Bot1.Name, err)
		}
		if err := relay(ctx, b.Bot2, m1, round == b.Rounds); err != nil {
			return nil, fmt.Errorf("round %d: %s: %w", round, b.Bot2.Name, err)
		}
	}
	return res, nil
}

func relay(ctx context.Context, p *player.Player, opponent game.Move, last bool) error {
	if last {
		return p.EndGame(ctx, opponent)
	}
	return p.ContinueGame(ctx, opponent)
}

func (b *Battle) abort(ctx context.Context) {
	for _, p := range []*player.Player{b.Bot1, b.Bot2} {
		if err := p.AbortGame(ctx); err != nil {
			slog.WarnContext(ctx, "abort not delivered", "battle.id", b.ID, "player.id", p.ID, "error", err)
		}
	}
}

// Significance returns the normal approximation of the probability that each
// bot is the stronger one, given its lead over steps rounds. A single round's
// score difference has variance 2/3 under random play.
func Significance(wins1, wins2, steps int) (cdf1, cdf2 float64) {
	if steps <= 0 {
		return 0.5, 0.5
	}
	diff := float64(wins1 - wins2)
	s := math.Sqrt(4 * float64(steps) / 3)
	cdf1 = 0.5 * (1 + math.Erf(diff/s))
	cdf2 = 0.5 * (1 + math.Erf(-diff/s))
	return cdf1, cdf2
}
