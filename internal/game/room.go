package game

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kiliankoe/gridclash/internal/grid"
	"github.com/rs/zerolog/log"
)

// Room is one game instance. Every read and write of its roster, map and
// session happens under mu, so timer ticks and client actions never interleave.
type Room struct {
	Code       string
	CreatedAt  time.Time
	Players    []*Player
	MaxPlayers int
	IsLocked   bool
	Map        *grid.Map

	actors    map[string]Actor
	session   *Session
	destroyed bool
	rules     Rules
	dice      Dice
	ticker    TickerFunc
	win       WinCondition
	onOver    func(GameResult)

	mu sync.Mutex
}

func (r *Room) player(id string) (*Player, int) {
	for i, p := range r.Players {
		if p.ID == id {
			return p, i
		}
	}
	return nil, -1
}

func (r *Room) host() *Player {
	for _, p := range r.Players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

func (r *Room) isHost(id string) bool {
	p, _ := r.player(id)
	return p != nil && p.IsHost
}

func (r *Room) humans() int {
	n := 0
	for _, p := range r.Players {
		if !p.IsVirtual {
			n++
		}
	}
	return n
}

func (r *Room) takenCharacters() []string {
	out := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, p.Character)
	}
	sort.Strings(out)
	return out
}

func (r *Room) broadcast(event string, payload any) {
	for _, a := range r.actors {
		a.Send(event, payload)
	}
}

func (r *Room) sendTo(playerID, event string, payload any) {
	if a := r.actors[playerID]; a != nil {
		a.Send(event, payload)
	}
}

func (r *Room) playerViews() []Player {
	out := make([]Player, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, p.view())
	}
	return out
}

func (r *Room) state() RoomState {
	st := RoomState{
		Code:       r.Code,
		Players:    r.playerViews(),
		MaxPlayers: r.MaxPlayers,
		IsLocked:   r.IsLocked,
		Phase:      PhaseLobby,
	}
	if r.Map != nil {
		st.Map = r.Map.Clone()
	}
	if s := r.session; s != nil {
		st.IsActive = s.phase != PhaseOver
		st.Phase = s.phase
		st.Debug = s.debug
		st.Map = s.grid.Clone()
		st.Clock = s.turnTimer.Count
		if p := s.active(); p != nil {
			st.ActivePlayerID = p.ID
		}
		if s.combat != nil {
			snap := s.combatSnapshot()
			st.Combat = &snap
			st.Clock = s.combatTimer.Count
		}
	}
	return st
}

// syncState pushes the full snapshot that heals any missed event.
func (r *Room) syncState() {
	r.broadcast(EvRoomState, r.state())
}

func (r *Room) broadcastRoster() {
	r.broadcast(EvPlayersUpdated, r.playerViews())
	r.broadcast(EvTakenCharactersUpdated, r.takenCharacters())
	r.syncState()
}

func closeActor(a Actor) {
	if c, ok := a.(interface{ Close() }); ok {
		c.Close()
	}
}

// teardown cancels every timer and releases every actor. Safe to call twice.
func (r *Room) teardown(reason string) {
	if r.destroyed {
		return
	}
	r.destroyed = true
	if r.session != nil {
		r.session.stop()
	}
	r.broadcast(EvRoomDestroyed, map[string]any{"accessCode": r.Code, "reason": reason})
	for id, a := range r.actors {
		closeActor(a)
		delete(r.actors, id)
	}
	log.Info().Str("code", r.Code).Str("reason", reason).Msg("room destroyed")
}

// State returns a copy of the room for transports and tests.
func (r *Room) State() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state()
}

func (r *Room) TakenCharacters() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.takenCharacters()
}

// Player returns a copy of the roster entry.
func (r *Room) Player(id string) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, _ := r.player(id)
	if p == nil {
		return Player{}, false
	}
	return p.view(), true
}

// Reachable returns the tiles the active player may move to, for that player only.
func (r *Room) Reachable(playerID string) []grid.Coord {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.session
	if s == nil || s.phase != PhaseTurn {
		return nil
	}
	if p := s.active(); p == nil || p.ID != playerID {
		return nil
	}
	return append([]grid.Coord(nil), s.reachable.Tiles...)
}

// StartGame builds the session and starts the room loop. Host only; the room
// must be locked and hold at least two players.
func (r *Room) StartGame(hostID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return ErrRoomNotFound
	}
	if !r.isHost(hostID) {
		return ErrNotHost
	}
	if r.session != nil {
		return ErrGameStarted
	}
	if !r.IsLocked {
		return ErrMustLock
	}
	if len(r.Players) < 2 {
		return ErrNotEnoughPlayer
	}
	if r.Map.Mode == grid.ModeCaptureTheFlag && len(r.Players)%2 != 0 {
		return ErrOddPlayerCount
	}
	s := newSession(r)
	r.session = s
	s.begin()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	ticks, stopTicker := r.ticker(r.rules.TickInterval)
	go r.run(ctx, ticks, stopTicker)
	log.Info().Str("code", r.Code).Int("players", len(r.Players)).Msg("game started")
	return nil
}

func (r *Room) run(ctx context.Context, ticks <-chan time.Time, stopTicker func()) {
	defer stopTicker()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			r.mu.Lock()
			if r.session != nil && !r.destroyed {
				r.session.tick()
			}
			r.mu.Unlock()
		}
	}
}

// withSession runs fn under the room lock against a live session.
func (r *Room) withSession(fn func(s *Session) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return ErrRoomNotFound
	}
	if r.session == nil {
		return ErrGameNotStarted
	}
	return fn(r.session)
}

func (r *Room) EndTurn(playerID string) error {
	return r.withSession(func(s *Session) error { return s.EndTurn(playerID) })
}

func (r *Room) Move(playerID string, path []grid.Coord) error {
	return r.withSession(func(s *Session) error { return s.Move(playerID, path) })
}

func (r *Room) ToggleDoor(playerID string, at grid.Coord) error {
	return r.withSession(func(s *Session) error { return s.ToggleDoor(playerID, at) })
}

func (r *Room) Teleport(playerID string, at grid.Coord) error {
	return r.withSession(func(s *Session) error { return s.Teleport(playerID, at) })
}

func (r *Room) DropItem(playerID string, itemID int) error {
	return r.withSession(func(s *Session) error { return s.DropItem(playerID, itemID) })
}

func (r *Room) ToggleDebug(hostID string) error {
	return r.withSession(func(s *Session) error {
		if !r.isHost(hostID) {
			return ErrNotHost
		}
		s.toggleDebug()
		return nil
	})
}

func (r *Room) StartCombat(playerID, targetID string) error {
	return r.withSession(func(s *Session) error { return s.StartCombat(playerID, targetID) })
}

func (r *Room) CombatMove(playerID string, move CombatMove) error {
	return r.withSession(func(s *Session) error { return s.CombatMove(playerID, move) })
}
