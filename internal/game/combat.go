package game

import (
	"github.com/kiliankoe/gridclash/internal/grid"
	"github.com/rs/zerolog/log"
)

type CombatMove string

const (
	MoveAttack CombatMove = "attack"
	MoveRun    CombatMove = "run"
)

type CombatOutcome string

const (
	OutcomeVictory CombatOutcome = "victory"
	OutcomeEscaped CombatOutcome = "escaped"
	OutcomeAborted CombatOutcome = "aborted"
)

const (
	bigDie   = 6
	smallDie = 4
)

type Combatant struct {
	Player      *Player
	RunAttempts int
	OnIce       bool
}

type AttackResult struct {
	AttackerID  string `json:"attackerId"`
	DefenderID  string `json:"defenderId"`
	AttackDie   int    `json:"attackDie"`
	DefenseDie  int    `json:"defenseDie"`
	AttackRoll  int    `json:"attackRoll"`
	DefenseRoll int    `json:"defenseRoll"`
	Success     bool   `json:"success"`
	Forfeited   bool   `json:"forfeited,omitempty"`
}

// Combat is one duel nested inside the initiator's turn. Attacker is always
// the initiator; turn points at whichever side acts in the current exchange.
type Combat struct {
	Attacker   *Combatant
	Defender   *Combatant
	LastAttack *AttackResult
	Locked     bool

	turn *Combatant
}

type CombatantSnapshot struct {
	Player      Player `json:"player"`
	RunAttempts int    `json:"runAttempts"`
	RunCap      int    `json:"runCap"`
	CanRun      bool   `json:"canRun"`
	OnIce       bool   `json:"onIce"`
}

type CombatSnapshot struct {
	Attacker     CombatantSnapshot `json:"attacker"`
	Defender     CombatantSnapshot `json:"defender"`
	TurnPlayerID string            `json:"turnPlayerId"`
	AttackResult *AttackResult     `json:"attackResult,omitempty"`
	Outcome      CombatOutcome     `json:"outcome,omitempty"`
	WinnerID     string            `json:"winnerId,omitempty"`
	LoserID      string            `json:"loserId,omitempty"`
}

func (c *Combat) involves(p *Player) bool {
	return c.Attacker.Player == p || c.Defender.Player == p
}

func (c *Combat) opponent(p *Player) *Player {
	if c.Attacker.Player == p {
		return c.Defender.Player
	}
	return c.Attacker.Player
}

func (c *Combat) other(cb *Combatant) *Combatant {
	if cb == c.Attacker {
		return c.Defender
	}
	return c.Attacker
}

// Reset clears every combatant and roll. Calling it again changes nothing.
func (c *Combat) Reset() {
	c.Attacker = nil
	c.Defender = nil
	c.LastAttack = nil
	c.Locked = false
	c.turn = nil
}

func combatantSnapshot(cb *Combatant, r Rules) CombatantSnapshot {
	if cb == nil {
		return CombatantSnapshot{}
	}
	limit := r.runCap(cb.Player)
	return CombatantSnapshot{
		Player:      cb.Player.view(),
		RunAttempts: cb.RunAttempts,
		RunCap:      limit,
		CanRun:      cb.RunAttempts < limit,
		OnIce:       cb.OnIce,
	}
}

func (c *Combat) snapshotWith(r Rules) CombatSnapshot {
	snap := CombatSnapshot{
		Attacker: combatantSnapshot(c.Attacker, r),
		Defender: combatantSnapshot(c.Defender, r),
	}
	if c.turn != nil {
		snap.TurnPlayerID = c.turn.Player.ID
	}
	if c.LastAttack != nil {
		res := *c.LastAttack
		snap.AttackResult = &res
	}
	return snap
}

func (s *Session) combatSnapshot() CombatSnapshot {
	if s.combat == nil {
		return CombatSnapshot{}
	}
	return s.combat.snapshotWith(s.rules)
}

func (s *Session) onIce(p *Player) bool {
	t, err := s.grid.Tile(p.Position)
	return err == nil && t.Type == grid.TileIce
}

// StartCombat lets the active player attack an adjacent player. It spends the
// action and pauses the turn clock until the duel resolves.
func (s *Session) StartCombat(playerID, targetID string) error {
	p, err := s.requireTurn(playerID)
	if err != nil {
		return err
	}
	if s.combat != nil {
		return ErrCombatInProgress
	}
	if p.Attributes.ActionsLeft <= 0 {
		return ErrNoActionLeft
	}
	target, _ := s.room.player(targetID)
	if target == nil || target == p {
		return ErrInvalidTarget
	}
	if !p.Position.Adjacent(target.Position) {
		return ErrNotAdjacent
	}

	p.Attributes.ActionsLeft--
	s.pausedRemaining = s.turnTimer.Count
	s.turnTimer.Pause()
	s.movementUnlocked = false
	s.phase = PhaseCombat
	s.combat = &Combat{
		Attacker: &Combatant{Player: p, OnIce: s.onIce(p)},
		Defender: &Combatant{Player: target, OnIce: s.onIce(target)},
		Locked:   true,
	}
	s.combat.turn = s.combat.Attacker
	log.Info().Str("code", s.room.Code).Str("attacker", p.ID).Str("defender", target.ID).Msg("combat started")
	s.room.broadcast(EvCombatStarted, s.combatSnapshot())
	s.startExchange()
	return nil
}

func (s *Session) startExchange() {
	c := s.combat
	actor := c.turn
	duration := s.rules.CombatTurnDuration
	if actor.RunAttempts >= s.rules.runCap(actor.Player) {
		duration = s.rules.CombatTurnDurationNoEscape
	}
	s.combatTimer.Start(duration)
	snap := s.combatSnapshot()
	s.room.sendTo(actor.Player.ID, EvYourAttack, snap)
	s.room.sendTo(c.other(actor).Player.ID, EvYourDefense, snap)
	s.room.broadcast(EvNextCombatTurn, turnInfo{PlayerID: actor.Player.ID, Clock: duration})
	s.room.syncState()
}

// CombatMove applies the acting contestant's choice for this exchange.
func (s *Session) CombatMove(playerID string, move CombatMove) error {
	c := s.combat
	if s.phase != PhaseCombat || c == nil {
		return ErrNoCombat
	}
	if c.turn.Player.ID != playerID {
		return ErrNotYourTurn
	}
	switch move {
	case MoveAttack:
		s.attack(false)
		return nil
	case MoveRun:
		return s.run()
	default:
		return ErrInvalidMove
	}
}

// dieFor is the face count a contestant rolls: the big die only when its dice
// choice matches the role it plays in this exchange.
func dieFor(p *Player, role DiceChoice) int {
	if p.Attributes.DiceChoice == role {
		return bigDie
	}
	return smallDie
}

func (s *Session) roll(cb *Combatant, role DiceChoice) (die, total int) {
	die = s.dice.Roll(dieFor(cb.Player, role))
	if role == DiceAttack {
		total = cb.Player.Offense() + die
	} else {
		total = cb.Player.Defense() + die
	}
	if cb.OnIce {
		total -= s.rules.IcePenalty
	}
	return die, total
}

// attack resolves one exchange. A forfeited exchange (timer ran out) rolls
// nothing and never lands.
func (s *Session) attack(forfeit bool) {
	c := s.combat
	att, def := c.turn, c.other(c.turn)
	res := &AttackResult{AttackerID: att.Player.ID, DefenderID: def.Player.ID, Forfeited: forfeit}
	if !forfeit {
		res.AttackDie, res.AttackRoll = s.roll(att, DiceAttack)
		res.DefenseDie, res.DefenseRoll = s.roll(def, DiceDefense)
		res.Success = res.AttackRoll > res.DefenseRoll
	}
	c.LastAttack = res
	if res.Success {
		def.Player.Attributes.CurrentHP = max(0, def.Player.Attributes.CurrentHP-s.rules.DamagePerHit)
	}
	s.room.broadcast(EvAttackResult, s.combatSnapshot())
	if def.Player.Attributes.CurrentHP == 0 {
		s.finishCombat(OutcomeVictory, att.Player, def.Player)
		return
	}
	c.turn = def
	s.startExchange()
}

func (s *Session) run() error {
	c := s.combat
	runner := c.turn
	if runner.RunAttempts >= s.rules.runCap(runner.Player) {
		return ErrEscapeExhausted
	}
	runner.RunAttempts++
	chance := 0.0
	if s.rules.EscapeChance != nil {
		chance = clamp01(s.rules.EscapeChance(runner.Player, c.other(runner).Player))
	}
	if s.dice.Chance(chance) {
		s.finishCombat(OutcomeEscaped, nil, nil)
		return nil
	}
	s.room.broadcast(EvRunFailed, s.combatSnapshot())
	c.turn = c.other(runner)
	s.startExchange()
	return nil
}

func (s *Session) combatTimeout() {
	if s.combat == nil {
		return
	}
	s.attack(true)
}

// finishCombat closes the duel, applies defeat effects and hands control back
// to the turn scheduler.
func (s *Session) finishCombat(outcome CombatOutcome, winner, loser *Player) {
	c := s.combat
	s.combatTimer.Stop()
	snap := s.combatSnapshot()
	snap.Outcome = outcome
	initiator := c.Attacker.Player
	for _, cb := range []*Combatant{c.Attacker, c.Defender} {
		cb.Player.Attributes.CurrentHP = cb.Player.MaxHP()
	}
	if winner != nil {
		snap.WinnerID = winner.ID
		snap.LoserID = loser.ID
		winner.Wins++
		s.defeat(loser)
	}
	c.Reset()
	s.combat = nil
	s.room.broadcast(EvCombatResult, snap)
	s.room.broadcast(EvCombatEnded, snap)
	log.Info().Str("code", s.room.Code).Str("outcome", string(outcome)).Str("winner", snap.WinnerID).Msg("combat ended")

	if s.checkWin() {
		return
	}
	s.resumeAfterCombat(loser == initiator)
}

// abortCombat ends the duel because a contestant left; the one remaining is
// credited the win.
func (s *Session) abortCombat(remaining *Player) {
	c := s.combat
	s.combatTimer.Stop()
	snap := s.combatSnapshot()
	snap.Outcome = OutcomeAborted
	if remaining != nil {
		snap.WinnerID = remaining.ID
		remaining.Wins++
		remaining.Attributes.CurrentHP = remaining.MaxHP()
	}
	c.Reset()
	s.combat = nil
	s.phase = PhaseTurn
	s.room.broadcast(EvCombatAborted, snap)
	s.checkWin()
}

// resumeAfterCombat gives the turn back to its owner when it can still act,
// otherwise advances to the next player.
func (s *Session) resumeAfterCombat(ownerLost bool) {
	p := s.active()
	s.phase = PhaseTurn
	if p == nil {
		return
	}
	if ownerLost {
		s.endTurn()
		return
	}
	s.reachable = grid.FindReachable(s.grid, p.Position, p.Attributes.CurrentSpeed, s.blockedFor(p), s.debug)
	if p.Attributes.ActionsLeft == 0 && len(s.reachable.Tiles) <= 1 {
		s.endTurn()
		return
	}
	s.turnTimer.Start(s.pausedRemaining)
	s.movementUnlocked = true
	s.room.broadcast(EvContinueTurn, turnInfo{PlayerID: p.ID, Clock: s.turnTimer.Count})
	s.refreshReachable()
	s.room.syncState()
}

// defeat respawns loser and scatters its inventory around where it fell.
func (s *Session) defeat(loser *Player) {
	fell := loser.Position
	s.scatterInventory(loser, fell)
	spawn := loser.SpawnPoint
	if other := s.playerAt(spawn); other != nil && other != loser {
		if c, ok := grid.NearestFree(s.grid, spawn, func(c grid.Coord) bool { return s.playerAt(c) == nil }); ok {
			spawn = c
		}
	}
	loser.Position = spawn
	loser.Attributes.CurrentHP = loser.MaxHP()
	s.room.broadcast(EvPlayerMoved, moveEvent{PlayerID: loser.ID, Position: spawn})
}
