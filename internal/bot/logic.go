package bot

import (
	"ctchen222/rps-arena/internal/game"
	"fmt"
	"strings"
)

// Strategy picks a bot's moves. Reset is called when a battle starts and
// Observe after every round with the opponent's move.
type Strategy interface {
	Reset()
	Next() game.Move
	Observe(opponent game.Move)
}

// StrategyFor returns the strategy registered under name.
func StrategyFor(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "rock":
		return Constant{Move: game.Rock}, nil
	case "paper":
		return Constant{Move: game.Paper}, nil
	case "scissor", "scissors":
		return Constant{Move: game.Scissor}, nil
	case "cycle":
		return &Cycle{}, nil
	case "random", "":
		return Random{}, nil
	case "beat":
		return &Beat{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// Constant always plays the same move.
type Constant struct {
	Move game.Move
}

func (c Constant) Reset()            {}
func (c Constant) Next() game.Move   { return c.Move }
func (c Constant) Observe(game.Move) {}

// Cycle plays rock, paper, scissor in turn, starting over each battle.
type Cycle struct {
	next game.Move
}

func (c *Cycle) Reset() { c.next = game.Rock }

func (c *Cycle) Next() game.Move {
	m := c.next
	c.next = c.next.Counter()
	return m
}

func (c *Cycle) Observe(game.Move) {}

// Random plays uniformly at random.
type Random struct{}

func (Random) Reset()            {}
func (Random) Next() game.Move   { return game.RandomMove() }
func (Random) Observe(game.Move) {}

// Beat plays whatever beats the opponent's previous move, and randomly in the
// first round.
type Beat struct {
	last game.Move
	seen bool
}

func (b *Beat) Reset() { b.seen = false }

func (b *Beat) Next() game.Move {
	if !b.seen {
		return game.RandomMove()
	}
	return b.last.Counter()
}

func (b *Beat) Observe(opponent game.Move) {
	b.last = opponent
	b.seen = true
}
