package game

import (
	"time"

	"github.com/kiliankoe/gridclash/internal/grid"
)

// Rules holds the tunable parameters of a session. Values without firm product
// numbers (damage, ice penalty, escape odds) live here rather than in code.
type Rules struct {
	TickInterval               time.Duration
	TurnDuration               int
	TransitionDuration         int
	CombatTurnDuration         int
	CombatTurnDurationNoEscape int
	SlipChance                 float64
	DamagePerHit               int
	IcePenalty                 int
	WinsToVictory              int
	InventoryCap               int
	RunCap                     int
	EscapeChance               EscapeFunc
}

func DefaultRules() Rules {
	return Rules{
		TickInterval:               time.Second,
		TurnDuration:               30,
		TransitionDuration:         3,
		CombatTurnDuration:         5,
		CombatTurnDurationNoEscape: 3,
		SlipChance:                 0.1,
		DamagePerHit:               1,
		IcePenalty:                 0,
		WinsToVictory:              3,
		InventoryCap:               2,
		RunCap:                     2,
		EscapeChance:               ConstantEscape(0.3),
	}
}

// runCap is the number of escape attempts p gets per combat; the chip doubles it.
func (r Rules) runCap(p *Player) int {
	if p.Holds(grid.ItemChip) {
		return r.RunCap * 2
	}
	return r.RunCap
}

// WinCondition reports the winner once the game is decided, or nil.
type WinCondition func(players []*Player) *Player

// ClassicWin ends the game when a player reaches threshold combat wins.
func ClassicWin(threshold int) WinCondition {
	return func(players []*Player) *Player {
		for _, p := range players {
			if p.Wins >= threshold {
				return p
			}
		}
		return nil
	}
}

// CaptureTheFlagWin ends the game when the flag carrier is back on its spawn point.
func CaptureTheFlagWin(players []*Player) *Player {
	for _, p := range players {
		if p.HasFlag && p.Position == p.SpawnPoint {
			return p
		}
	}
	return nil
}

func winConditionFor(mode grid.Mode, r Rules) WinCondition {
	if mode == grid.ModeCaptureTheFlag {
		return CaptureTheFlagWin
	}
	return ClassicWin(r.WinsToVictory)
}
