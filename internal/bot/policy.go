package bot

import (
	"github.com/kiliankoe/gridclash/internal/game"
	"github.com/kiliankoe/gridclash/internal/grid"
)

type Kind string

const (
	Move       Kind = "move"
	Attack     Kind = "attack"
	ToggleDoor Kind = "toggle-door"
	EndTurn    Kind = "end-turn"
)

// Action is one turn request a policy asks its bot to send.
type Action struct {
	Kind   Kind
	To     grid.Coord
	Target string
}

// View is what a bot knows when it decides.
type View struct {
	Self      game.Player
	Others    []game.Player
	Map       *grid.Map
	Reachable []grid.Coord
}

// Policy decides what a virtual player does on its turn and in combat.
type Policy interface {
	Turn(v View) Action
	Combat(self game.CombatantSnapshot) game.CombatMove
}

// PolicyFor returns the policy matching the profile chosen by the host.
func PolicyFor(aggressive bool) Policy {
	if aggressive {
		return Aggressive{}
	}
	return Defensive{}
}

// Aggressive hunts the nearest player and always fights.
type Aggressive struct{}

func (Aggressive) Turn(v View) Action {
	if v.Self.Attributes.ActionsLeft > 0 {
		for _, o := range v.Others {
			if v.Self.Position.Adjacent(o.Position) {
				return Action{Kind: Attack, Target: o.ID}
			}
		}
	}
	if a, ok := carryFlag(v); ok {
		return a
	}
	goals := make([]grid.Coord, 0, len(v.Others))
	for _, o := range v.Others {
		goals = append(goals, o.Position)
	}
	if a, ok := approach(v, goals); ok {
		return a
	}
	if a, ok := openDoor(v); ok {
		return a
	}
	return Action{Kind: EndTurn}
}

func (Aggressive) Combat(game.CombatantSnapshot) game.CombatMove { return game.MoveAttack }

// Defensive collects items and keeps its distance.
type Defensive struct{}

func (Defensive) Turn(v View) Action {
	if a, ok := carryFlag(v); ok {
		return a
	}
	if len(v.Self.Inventory) < 2 {
		for _, c := range v.Reachable {
			if it := v.Map.ItemAt(c); it != nil && it.Collectible() && c != v.Self.Position {
				return Action{Kind: Move, To: c}
			}
		}
	}
	if a, ok := flee(v); ok {
		return a
	}
	return Action{Kind: EndTurn}
}

// Combat runs while escapes are left.
func (Defensive) Combat(self game.CombatantSnapshot) game.CombatMove {
	if self.CanRun {
		return game.MoveRun
	}
	return game.MoveAttack
}

// carryFlag heads home with the flag, or toward the flag while nobody holds it.
func carryFlag(v View) (Action, bool) {
	if v.Map == nil || v.Map.Mode != grid.ModeCaptureTheFlag {
		return Action{}, false
	}
	if v.Self.HasFlag {
		return approach(v, []grid.Coord{v.Self.SpawnPoint})
	}
	for _, it := range v.Map.Items {
		if it.Kind == grid.ItemFlag && it.OnGrid {
			return approach(v, []grid.Coord{it.Position})
		}
	}
	return Action{}, false
}

// approach moves to the reachable tile closest to any goal, when that beats
// standing still.
func approach(v View, goals []grid.Coord) (Action, bool) {
	if len(goals) == 0 {
		return Action{}, false
	}
	best, bestAt := nearest(v.Self.Position, goals), v.Self.Position
	for _, c := range v.Reachable {
		if d := nearest(c, goals); d < best {
			best, bestAt = d, c
		}
	}
	if bestAt == v.Self.Position {
		return Action{}, false
	}
	return Action{Kind: Move, To: bestAt}, true
}

func flee(v View) (Action, bool) {
	if len(v.Others) == 0 {
		return Action{}, false
	}
	threats := make([]grid.Coord, 0, len(v.Others))
	for _, o := range v.Others {
		threats = append(threats, o.Position)
	}
	best, bestAt := nearest(v.Self.Position, threats), v.Self.Position
	for _, c := range v.Reachable {
		if d := nearest(c, threats); d > best {
			best, bestAt = d, c
		}
	}
	if bestAt == v.Self.Position {
		return Action{}, false
	}
	return Action{Kind: Move, To: bestAt}, true
}

// openDoor opens a closed door next to the bot when its action is unused.
func openDoor(v View) (Action, bool) {
	if v.Map == nil || v.Self.Attributes.ActionsLeft == 0 {
		return Action{}, false
	}
	p := v.Self.Position
	for _, c := range []grid.Coord{{X: p.X, Y: p.Y - 1}, {X: p.X + 1, Y: p.Y}, {X: p.X, Y: p.Y + 1}, {X: p.X - 1, Y: p.Y}} {
		if t, err := v.Map.Tile(c); err == nil && t.Type == grid.TileDoorClosed {
			return Action{Kind: ToggleDoor, To: c}, true
		}
	}
	return Action{}, false
}

func nearest(c grid.Coord, goals []grid.Coord) int {
	best := -1
	for _, g := range goals {
		if d := manhattan(c, g); best < 0 || d < best {
			best = d
		}
	}
	return best
}

func manhattan(a, b grid.Coord) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}
