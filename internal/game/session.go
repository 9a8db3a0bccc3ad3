package game

import (
	"context"
	"sort"
	"time"

	"github.com/kiliankoe/gridclash/internal/grid"
	"github.com/rs/zerolog/log"
)

// Session is the runtime of a started room. It is only touched under the
// owning room's lock.
type Session struct {
	room  *Room
	grid  *grid.Map
	rules Rules
	dice  Dice
	win   WinCondition

	phase            Phase
	turnIndex        int
	turnTimer        *GameTimer
	pausedRemaining  int
	combat           *Combat
	combatTimer      *GameTimer
	reachable        grid.Reachable
	movementUnlocked bool
	debug            bool
	viewedEnd        map[string]bool
	winner           *Player
	startedAt        time.Time

	cancel context.CancelFunc
}

type turnInfo struct {
	PlayerID string `json:"playerId"`
	Clock    int    `json:"clock"`
}

type clockInfo struct {
	Count int `json:"count"`
}

type reachableInfo struct {
	PlayerID  string       `json:"playerId"`
	Reachable []grid.Coord `json:"reachable"`
	Speed     int          `json:"currentSpeed"`
}

func newSession(r *Room) *Session {
	s := &Session{
		room:        r,
		grid:        r.Map.Clone(),
		rules:       r.rules,
		dice:        r.dice,
		win:         r.win,
		phase:       PhaseWaiting,
		turnTimer:   NewCountdown(r.rules.TickInterval),
		combatTimer: NewCountdown(r.rules.TickInterval),
		viewedEnd:   map[string]bool{},
		startedAt:   time.Now().UTC(),
	}
	if s.win == nil {
		s.win = winConditionFor(s.grid.Mode, s.rules)
	}
	return s
}

func (s *Session) players() []*Player { return s.room.Players }

func (s *Session) active() *Player {
	ps := s.players()
	if len(ps) == 0 || s.turnIndex < 0 || s.turnIndex >= len(ps) {
		return nil
	}
	return ps[s.turnIndex]
}

func (s *Session) isActive(playerID string) bool {
	p := s.active()
	return p != nil && p.ID == playerID
}

func (s *Session) playerAt(c grid.Coord) *Player {
	for _, p := range s.players() {
		if p.Position == c {
			return p
		}
	}
	return nil
}

// blockedFor returns the occupancy test used for self's searches.
func (s *Session) blockedFor(self *Player) func(grid.Coord) bool {
	return func(c grid.Coord) bool {
		p := s.playerAt(c)
		return p != nil && p != self
	}
}

// begin resolves mystery boxes, assigns spawn points, orders the roster by speed
// and enters the first transition.
func (s *Session) begin() {
	s.resolveMysteryBoxes()

	starts := s.grid.StartPoints()
	for i := len(starts) - 1; i > 0; i-- {
		j := s.dice.Intn(i + 1)
		starts[i], starts[j] = starts[j], starts[i]
	}
	ps := s.players()
	for i, p := range ps {
		p.Position = starts[i]
		p.SpawnPoint = starts[i]
		p.Wins = 0
		p.HasFlag = false
		p.Inventory = []*grid.Item{}
		p.Attributes.CurrentHP = p.MaxHP()
		p.Attributes.CurrentSpeed = p.Speed()
	}
	for _, c := range starts[len(ps):] {
		s.grid.TakeItem(c)
	}

	for i := len(ps) - 1; i > 0; i-- {
		j := s.dice.Intn(i + 1)
		ps[i], ps[j] = ps[j], ps[i]
	}
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Speed() > ps[j].Speed() })

	s.room.broadcast(EvGameStarted, s.room.state())
	s.turnIndex = 0
	s.beginTransition()
}

func (s *Session) resolveMysteryBoxes() {
	used := map[grid.ItemKind]bool{}
	for _, it := range s.grid.Items {
		used[it.Kind] = true
	}
	for _, it := range s.grid.Items {
		if it.Kind != grid.ItemMystery {
			continue
		}
		var free []grid.ItemKind
		for _, k := range grid.EffectKinds {
			if !used[k] {
				free = append(free, k)
			}
		}
		if len(free) == 0 {
			free = grid.EffectKinds
		}
		it.Kind = free[s.dice.Intn(len(free))]
		used[it.Kind] = true
	}
}

func (s *Session) beginTransition() {
	s.phase = PhaseTransition
	s.movementUnlocked = false
	s.reachable = grid.Reachable{}
	s.turnTimer.Start(s.rules.TransitionDuration)
	if next := s.active(); next != nil {
		s.room.broadcast(EvTurnTransition, turnInfo{PlayerID: next.ID, Clock: s.turnTimer.Count})
	}
	s.room.syncState()
}

func (s *Session) beginTurn() {
	p := s.active()
	if p == nil {
		return
	}
	s.phase = PhaseTurn
	p.Attributes.CurrentSpeed = p.Speed()
	p.Attributes.ActionsLeft = 1
	s.turnTimer.Start(s.rules.TurnDuration)
	s.movementUnlocked = true
	s.room.broadcast(EvTurnStarted, turnInfo{PlayerID: p.ID, Clock: s.turnTimer.Count})
	s.refreshReachable()
	s.room.syncState()
	log.Debug().Str("code", s.room.Code).Str("player", p.ID).Msg("turn started")
}

// refreshReachable recomputes the active player's reachable tiles and sends
// them to that player only.
func (s *Session) refreshReachable() {
	p := s.active()
	if p == nil {
		return
	}
	s.reachable = grid.FindReachable(s.grid, p.Position, p.Attributes.CurrentSpeed, s.blockedFor(p), s.debug)
	s.room.sendTo(p.ID, EvReachableTiles, reachableInfo{
		PlayerID:  p.ID,
		Reachable: append([]grid.Coord(nil), s.reachable.Tiles...),
		Speed:     p.Attributes.CurrentSpeed,
	})
}

func (s *Session) endTurn() {
	p := s.active()
	s.turnTimer.Stop()
	s.movementUnlocked = false
	if p != nil {
		p.Attributes.ActionsLeft = 0
		s.room.broadcast(EvTurnEnded, turnInfo{PlayerID: p.ID})
	}
	if n := len(s.players()); n > 0 {
		s.turnIndex = (s.turnIndex + 1) % n
	}
	s.beginTransition()
}

// EndTurn is the voluntary pass of the active player.
func (s *Session) EndTurn(playerID string) error {
	if s.phase != PhaseTurn || !s.isActive(playerID) {
		return ErrNotYourTurn
	}
	s.endTurn()
	return nil
}

// settle ends the turn when the active player can no longer do anything.
func (s *Session) settle() {
	p := s.active()
	if p == nil || s.phase != PhaseTurn {
		return
	}
	if p.Attributes.ActionsLeft == 0 && len(s.reachable.Tiles) <= 1 {
		s.endTurn()
	}
}

func (s *Session) tick() {
	switch s.phase {
	case PhaseTurn:
		count, done := s.turnTimer.Tick()
		s.room.broadcast(EvTurnClock, clockInfo{Count: count})
		if done {
			s.endTurn()
		}
	case PhaseTransition:
		count, done := s.turnTimer.Tick()
		if p := s.active(); p != nil {
			s.room.broadcast(EvTurnTransition, turnInfo{PlayerID: p.ID, Clock: count})
		}
		if done {
			s.beginTurn()
		}
	case PhaseCombat:
		count, done := s.combatTimer.Tick()
		s.room.broadcast(EvCombatClock, clockInfo{Count: count})
		if done {
			s.combatTimeout()
		}
	}
}

func (s *Session) toggleDebug() {
	s.debug = !s.debug
	s.room.broadcast(EvDebugToggled, map[string]any{"debugMode": s.debug})
	if s.phase == PhaseTurn {
		s.refreshReachable()
	}
	s.room.syncState()
}

// checkWin moves the session to game over when the win condition holds.
func (s *Session) checkWin() bool {
	w := s.win(s.players())
	if w == nil {
		return false
	}
	s.gameOver(w)
	return true
}

func (s *Session) gameOver(winner *Player) {
	if s.phase == PhaseOver {
		return
	}
	s.phase = PhaseOver
	s.winner = winner
	s.turnTimer.Stop()
	s.combatTimer.Stop()
	s.movementUnlocked = false
	s.combat = nil
	payload := map[string]any{"winnerId": ""}
	if winner != nil {
		payload["winnerId"] = winner.ID
		payload["winnerName"] = winner.Name
	}
	s.room.broadcast(EvGameOver, payload)
	s.room.syncState()
	if s.cancel != nil {
		s.cancel()
	}
	if s.room.onOver != nil {
		go s.room.onOver(s.result())
	}
	log.Info().Str("code", s.room.Code).Interface("winner", payload["winnerId"]).Msg("game over")
}

// ended reports whether every remaining human has left the end-game view.
func (s *Session) ended() bool {
	if s.phase != PhaseOver {
		return false
	}
	for _, p := range s.players() {
		if !p.IsVirtual && !s.viewedEnd[p.ID] {
			return false
		}
	}
	return true
}

func (s *Session) stop() {
	s.turnTimer.Stop()
	s.combatTimer.Stop()
	s.combat = nil
	if s.cancel != nil {
		s.cancel()
	}
}

// departed runs after p was removed from the roster at index idx.
func (s *Session) departed(p *Player, idx int) {
	if s.phase == PhaseOver {
		s.viewedEnd[p.ID] = true
		return
	}
	wasActive := idx == s.turnIndex
	initiatorStays := false
	if c := s.combat; c != nil && c.involves(p) {
		other := c.opponent(p)
		initiatorStays = other == c.Attacker.Player
		s.abortCombat(other)
	}
	s.scatterInventory(p, p.Position)

	if idx < s.turnIndex {
		s.turnIndex--
	}
	n := len(s.players())
	if n < 2 {
		var last *Player
		if n == 1 {
			last = s.players()[0]
		}
		s.gameOver(last)
		return
	}
	if s.phase == PhaseOver {
		return
	}
	if wasActive {
		if s.turnIndex >= n {
			s.turnIndex = 0
		}
		s.turnTimer.Stop()
		s.beginTransition()
		return
	}
	if initiatorStays {
		s.resumeAfterCombat(false)
	}
}

// scatterInventory drops p's items on the nearest free tiles around at.
func (s *Session) scatterInventory(p *Player, at grid.Coord) {
	for _, it := range p.Inventory {
		c, ok := grid.NearestFree(s.grid, at, func(c grid.Coord) bool {
			t, _ := s.grid.Tile(c)
			return t.Terrain && t.ItemID == 0
		})
		if !ok {
			continue
		}
		if err := s.grid.PlaceItem(it.ID, c); err == nil {
			s.room.broadcast(EvItemDropped, itemEvent{PlayerID: p.ID, Item: *it})
		}
	}
	p.Inventory = []*grid.Item{}
	p.HasFlag = false
}

// GameResult summarizes a finished game for exporters.
type GameResult struct {
	Code      string
	MapName   string
	Mode      grid.Mode
	StartedAt time.Time
	EndedAt   time.Time
	Winner    string
	Players   []Player
}

func (s *Session) result() GameResult {
	res := GameResult{
		Code:      s.room.Code,
		MapName:   s.grid.Name,
		Mode:      s.grid.Mode,
		StartedAt: s.startedAt,
		EndedAt:   time.Now().UTC(),
		Players:   s.room.playerViews(),
	}
	if s.winner != nil {
		res.Winner = s.winner.Name
	}
	return res
}
