package game

import (
	"testing"
)

func TestPlay(t *testing.T) {
	tests := []struct {
		name string
		a, b Move
		want Outcome
	}{
		{name: "Rock beats Scissor", a: Rock, b: Scissor, want: Win},
		{name: "Scissor beats Paper", a: Scissor, b: Paper, want: Win},
		{name: "Paper beats Rock", a: Paper, b: Rock, want: Win},
		{name: "Rock loses to Paper", a: Rock, b: Paper, want: Lose},
		{name: "Paper loses to Scissor", a: Paper, b: Scissor, want: Lose},
		{name: "Scissor loses to Rock", a: Scissor, b: Rock, want: Lose},
		{name: "Rock ties Rock", a: Rock, b: Rock, want: Tie},
		{name: "Paper ties Paper", a: Paper, b: Paper, want: Tie},
		{name: "Scissor ties Scissor", a: Scissor, b: Scissor, want: Tie},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Play(tt.a, tt.b); got != tt.want {
				t.Errorf("Play(%v, %v) got = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestPlayIsAntisymmetric(t *testing.T) {
	for _, a := range Moves {
		for _, b := range Moves {
			ab, ba := Play(a, b), Play(b, a)
			if a == b {
				if ab != Tie || ba != Tie {
					t.Errorf("Play(%v, %v) = %v/%v, want Tie/Tie", a, b, ab, ba)
				}
				continue
			}
			if ab.Invert() != ba {
				t.Errorf("Play(%v, %v) = %v but Play(%v, %v) = %v", a, b, ab, b, a, ba)
			}
		}
	}
}

func TestNoDominantMove(t *testing.T) {
	for _, m := range Moves {
		wins, losses := 0, 0
		for _, other := range Moves {
			switch Play(m, other) {
			case Win:
				wins++
			case Lose:
				losses++
			}
		}
		if wins != 1 || losses != 1 {
			t.Errorf("%v wins %d and loses %d times, want 1 and 1", m, wins, losses)
		}
	}
}

func TestCounterCycle(t *testing.T) {
	for _, m := range Moves {
		if !m.Counter().Beats(m) {
			t.Errorf("%v.Counter() = %v does not beat %v", m, m.Counter(), m)
		}
		if got := m.Counter().Counter().Counter(); got != m {
			t.Errorf("counter cycle from %v returned %v after 3 steps", m, got)
		}
	}
}

func TestRandomMove(t *testing.T) {
	// Not a statistical test, only checks that every move shows up.
	seen := make(map[Move]bool)
	for i := 0; i < 300; i++ {
		m := RandomMove()
		if !m.Valid() {
			t.Fatalf("RandomMove() returned invalid move: %v", m)
		}
		seen[m] = true
	}
	if len(seen) != len(Moves) {
		t.Errorf("RandomMove() produced %d distinct moves over 300 runs, want %d", len(seen), len(Moves))
	}
}
