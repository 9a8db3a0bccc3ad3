package game

// Actor is anything that receives room events: a socket relay for humans or a
// policy loop for virtual players. Send must not block.
type Actor interface {
	Send(event string, payload any)
}

const (
	EvPlayersUpdated         = "players-updated"
	EvTakenCharactersUpdated = "taken-characters-updated"
	EvRoomLockToggled        = "room-lock-toggled"
	EvRoomDestroyed          = "room-destroyed"
	EvRoomState              = "room-state"
	EvKicked                 = "kicked"
	EvGameStarted            = "game-started"

	EvTurnStarted    = "turn-started"
	EvTurnClock      = "turn-clock"
	EvTurnEnded      = "turn-ended"
	EvTurnTransition = "turn-transition"
	EvReachableTiles = "reachable-tiles"
	EvPlayerMoved    = "player-moved"
	EvDoorToggled    = "door-toggled"
	EvItemPickedUp   = "item-picked-up"
	EvItemDropped    = "item-dropped"
	EvSlipped        = "slipped"
	EvDebugToggled   = "debug-toggled"
	EvGameOver       = "game-over"

	EvCombatStarted  = "combat-started"
	EvYourAttack     = "your-attack"
	EvYourDefense    = "your-defense"
	EvCombatClock    = "combat-clock"
	EvAttackResult   = "attack-result"
	EvCombatResult   = "combat-result"
	EvRunFailed      = "run-failed"
	EvCombatAborted  = "combat-aborted"
	EvCombatEnded    = "combat-ended"
	EvNextCombatTurn = "next-combat-turn"
	EvContinueTurn   = "continue-turn"
)
