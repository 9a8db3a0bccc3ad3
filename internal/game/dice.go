package game

import "math/rand"

// Dice is the single source of randomness for a session.
type Dice interface {
	// Roll returns a value in [1, faces].
	Roll(faces int) int
	// Chance reports true with probability p.
	Chance(p float64) bool
	// Intn returns a value in [0, n).
	Intn(n int) int
}

type randomDice struct{}

func (randomDice) Roll(faces int) int    { return rand.Intn(faces) + 1 }
func (randomDice) Chance(p float64) bool { return rand.Float64() < p }
func (randomDice) Intn(n int) int        { return rand.Intn(n) }

func RandomDice() Dice { return randomDice{} }

// EscapeFunc gives the probability that runner escapes opponent.
type EscapeFunc func(runner, opponent *Player) float64

// ConstantEscape ignores the contestants and always returns p.
func ConstantEscape(p float64) EscapeFunc {
	return func(*Player, *Player) float64 { return p }
}

func clamp01(p float64) float64 {
	switch {
	case p < 0 || p != p:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
