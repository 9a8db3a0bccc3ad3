package bot

import (
	"sync"
	"time"

	"github.com/kiliankoe/gridclash/internal/game"
	"github.com/kiliankoe/gridclash/internal/grid"
	"github.com/rs/zerolog/log"
)

// Room is the part of a game room a bot plays through. It is the same action
// surface the socket transport uses for humans.
type Room interface {
	State() game.RoomState
	Reachable(playerID string) []grid.Coord
	Move(playerID string, path []grid.Coord) error
	ToggleDoor(playerID string, at grid.Coord) error
	StartCombat(playerID, targetID string) error
	CombatMove(playerID string, move game.CombatMove) error
	EndTurn(playerID string) error
}

// Bot drives one virtual player. Room events only wake its goroutine; the bot
// reads a fresh snapshot before every decision so dropped wakeups cost nothing.
type Bot struct {
	room   Room
	id     string
	policy Policy
	think  time.Duration

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

func New(room Room, playerID string, policy Policy, think time.Duration) *Bot {
	b := &Bot{
		room:   room,
		id:     playerID,
		policy: policy,
		think:  think,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

// Factory builds bots for game.RoomManager.
func Factory(think time.Duration) game.BotFactory {
	return func(r *game.Room, playerID string, aggressive bool) game.Actor {
		return New(r, playerID, PolicyFor(aggressive), think)
	}
}

// Send is called under the room lock and only signals the bot loop.
func (b *Bot) Send(event string, _ any) {
	switch event {
	case game.EvReachableTiles, game.EvYourAttack, game.EvContinueTurn:
		select {
		case b.wake <- struct{}{}:
		default:
		}
	case game.EvRoomDestroyed:
		b.Close()
	}
}

func (b *Bot) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *Bot) run() {
	for {
		select {
		case <-b.done:
			return
		case <-b.wake:
		}
		if b.think > 0 {
			select {
			case <-b.done:
				return
			case <-time.After(b.think):
			}
		}
		b.act()
	}
}

func (b *Bot) act() {
	st := b.room.State()
	if st.ActivePlayerID != b.id && (st.Combat == nil || st.Combat.TurnPlayerID != b.id) {
		return
	}
	switch st.Phase {
	case game.PhaseTurn:
		b.turn(st)
	case game.PhaseCombat:
		b.fight(st)
	}
}

func (b *Bot) turn(st game.RoomState) {
	v := View{Map: st.Map, Reachable: b.room.Reachable(b.id)}
	for _, p := range st.Players {
		if p.ID == b.id {
			v.Self = p
		} else {
			v.Others = append(v.Others, p)
		}
	}
	a := b.policy.Turn(v)

	var err error
	switch a.Kind {
	case Move:
		err = b.room.Move(b.id, []grid.Coord{a.To})
	case Attack:
		err = b.room.StartCombat(b.id, a.Target)
	case ToggleDoor:
		err = b.room.ToggleDoor(b.id, a.To)
	default:
		err = b.room.EndTurn(b.id)
	}
	if err != nil && a.Kind != EndTurn {
		log.Debug().Err(err).Str("player", b.id).Str("action", string(a.Kind)).Msg("bot action refused")
		err = b.room.EndTurn(b.id)
	}
	if err != nil {
		log.Debug().Err(err).Str("player", b.id).Msg("bot could not end turn")
	}
}

func (b *Bot) fight(st game.RoomState) {
	c := st.Combat
	if c.TurnPlayerID != b.id {
		return
	}
	self := c.Attacker
	if c.Defender.Player.ID == b.id {
		self = c.Defender
	}
	if err := b.room.CombatMove(b.id, b.policy.Combat(self)); err != nil {
		log.Debug().Err(err).Str("player", b.id).Msg("bot combat move refused")
		if err := b.room.CombatMove(b.id, game.MoveAttack); err != nil {
			log.Debug().Err(err).Str("player", b.id).Msg("bot fallback attack refused")
		}
	}
}
