package game

import (
	"strings"
	"time"

	"github.com/kiliankoe/gridclash/internal/grid"
)

type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseWaiting    Phase = "waiting"
	PhaseTurn       Phase = "turn"
	PhaseCombat     Phase = "combat"
	PhaseTransition Phase = "transition"
	PhaseOver       Phase = "over"
)

type DiceChoice string

const (
	DiceAttack  DiceChoice = "attack"
	DiceDefense DiceChoice = "defense"
)

const (
	baseStat  = 4
	statBonus = 2
	maxName   = 20
)

type Attributes struct {
	Speed        int        `json:"speedPoints"`
	CurrentSpeed int        `json:"currentSpeed"`
	Life         int        `json:"lifePoints"`
	CurrentHP    int        `json:"currentHP"`
	Offense      int        `json:"offensePoints"`
	Defense      int        `json:"defensePoints"`
	DiceChoice   DiceChoice `json:"diceChoice"`
	ActionsLeft  int        `json:"actionLeft"`
}

// Profile is what a client submits when it picks a character.
type Profile struct {
	Name      string     `json:"name"`
	Character string     `json:"character"`
	Bonus     string     `json:"bonus"` // "life" | "speed"
	Dice      DiceChoice `json:"dice"`
}

// Attributes builds the starting stats for the profile. The +2 bonus goes to
// exactly one of speed or life and exactly one die choice is set.
func (p Profile) Attributes() (Attributes, error) {
	a := Attributes{Speed: baseStat, Life: baseStat, Offense: baseStat, Defense: baseStat}
	switch p.Bonus {
	case "life":
		a.Life += statBonus
	case "speed":
		a.Speed += statBonus
	default:
		return Attributes{}, ErrInvalidProfile
	}
	if p.Dice != DiceAttack && p.Dice != DiceDefense {
		return Attributes{}, ErrInvalidProfile
	}
	a.DiceChoice = p.Dice
	a.CurrentHP = a.Life
	a.CurrentSpeed = a.Speed
	return a, nil
}

func (p Profile) normalized() (Profile, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Character = strings.TrimSpace(p.Character)
	if p.Name == "" || len([]rune(p.Name)) > maxName {
		return p, ErrInvalidProfile
	}
	if !IsCharacter(p.Character) {
		return p, ErrInvalidProfile
	}
	return p, nil
}

type Player struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Character    string       `json:"character"`
	IsHost       bool         `json:"isHost"`
	Attributes   Attributes   `json:"attributes"`
	Position     grid.Coord   `json:"position"`
	SpawnPoint   grid.Coord   `json:"spawnPoint"`
	Inventory    []*grid.Item `json:"inventory"`
	HasFlag      bool         `json:"hasFlag"`
	Wins         int          `json:"nbWins"`
	IsVirtual    bool         `json:"isVirtual"`
	IsAggressive bool         `json:"isAgressive"`
	JoinedAt     time.Time    `json:"joinedAt"`
}

func (p *Player) modifiers() grid.Modifier {
	var m grid.Modifier
	for _, it := range p.Inventory {
		d := it.Kind.Modifier()
		m.Offense += d.Offense
		m.Defense += d.Defense
		m.Speed += d.Speed
		m.Life += d.Life
	}
	return m
}

func (p *Player) Offense() int { return p.Attributes.Offense + p.modifiers().Offense }
func (p *Player) Defense() int { return p.Attributes.Defense + p.modifiers().Defense }
func (p *Player) Speed() int   { return max(0, p.Attributes.Speed+p.modifiers().Speed) }
func (p *Player) MaxHP() int   { return max(1, p.Attributes.Life+p.modifiers().Life) }

func (p *Player) Holds(kind grid.ItemKind) bool {
	for _, it := range p.Inventory {
		if it.Kind == kind {
			return true
		}
	}
	return false
}

// view returns a copy safe to hand to transports after the lock is released.
func (p *Player) view() Player {
	out := *p
	out.Inventory = make([]*grid.Item, len(p.Inventory))
	for i, it := range p.Inventory {
		cp := *it
		out.Inventory[i] = &cp
	}
	return out
}

// RoomState is the full snapshot broadcast after every state change so a client
// that missed an event resynchronizes on the next one.
type RoomState struct {
	Code           string          `json:"accessCode"`
	Players        []Player        `json:"players"`
	MaxPlayers     int             `json:"maxPlayers"`
	IsLocked       bool            `json:"isLocked"`
	IsActive       bool            `json:"isActive"`
	Phase          Phase           `json:"phase"`
	ActivePlayerID string          `json:"activePlayerId,omitempty"`
	Clock          int             `json:"clock"`
	Debug          bool            `json:"debugMode"`
	Map            *grid.Map       `json:"map,omitempty"`
	Combat         *CombatSnapshot `json:"combat,omitempty"`
}
