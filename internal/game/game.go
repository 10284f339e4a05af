package game

import (
	"math/rand/v2"
)

// Move is one of the three rock-paper-scissors hands.
type Move uint8

// Outcome is the result of a round seen from one side.
type Outcome uint8

const (
	// Moves, ordered so that each move beats the one before it (cyclically).
	Rock Move = iota
	Paper
	Scissor

	numMoves = 3
)

const (
	Tie Outcome = iota
	Win
	Lose
)

// Moves lists every valid move.
var Moves = [numMoves]Move{Rock, Paper, Scissor}

func (m Move) String() string {
	switch m {
	case Rock:
		return "Rock"
	case Paper:
		return "Paper"
	case Scissor:
		return "Scissor"
	}
	return "Move(?)"
}

// Valid reports whether m is Rock, Paper or Scissor.
func (m Move) Valid() bool {
	return m < numMoves
}

// Beats reports whether m wins against other.
func (m Move) Beats(other Move) bool {
	return (m+numMoves-other)%numMoves == 1
}

// Counter returns the move that beats m.
func (m Move) Counter() Move {
	return (m + 1) % numMoves
}

// Play classifies a round from the point of view of the player holding a.
func Play(a, b Move) Outcome {
	switch {
	case a == b:
		return Tie
	case a.Beats(b):
		return Win
	default:
		return Lose
	}
}

func (o Outcome) String() string {
	switch o {
	case Win:
		return "Win"
	case Lose:
		return "Lose"
	}
	return "Tie"
}

// Invert returns the same outcome seen from the opponent's side.
func (o Outcome) Invert() Outcome {
	switch o {
	case Win:
		return Lose
	case Lose:
		return Win
	}
	return Tie
}

// RandomMove picks a move uniformly at random.
func RandomMove() Move {
	return Moves[rand.IntN(numMoves)]
}
