package game

// Rejection is a synchronous refusal of a request. It never changes state; the
// caller has to re-issue the request.
type Rejection struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (r *Rejection) Error() string { return r.Message }

func reject(reason, message string) *Rejection {
	return &Rejection{Reason: reason, Message: message}
}

var (
	ErrMalformedCode   = reject("malformed_code", "access code must be exactly 4 digits")
	ErrRoomNotFound    = reject("room_not_found", "no room uses this access code")
	ErrRoomLocked      = reject("room_locked", "room is locked")
	ErrRoomFull        = reject("room_full", "room is full")
	ErrCharacterTaken  = reject("character_taken", "character already taken")
	ErrInvalidProfile  = reject("invalid_profile", "invalid name, character or attributes")
	ErrNotHost         = reject("not_host", "only the host may do this")
	ErrNotInRoom       = reject("not_in_room", "player is not in this room")
	ErrNoCharacterLeft = reject("no_character_left", "every character is taken")
	ErrNotEnoughPlayer = reject("not_enough_players", "not enough players to start")
	ErrOddPlayerCount  = reject("odd_player_count", "capture the flag needs an even number of players")
	ErrMustLock        = reject("room_unlocked", "lock the room before starting")
	ErrRoomFullLocked  = reject("room_full", "a full room cannot be unlocked")
	ErrGameStarted     = reject("game_started", "game already started")
	ErrGameNotStarted  = reject("game_not_started", "no game in progress")
	ErrNoCodeLeft      = reject("no_code_left", "every access code is in use")

	ErrNotYourTurn      = reject("not_your_turn", "it is not your turn")
	ErrMovementLocked   = reject("movement_locked", "movement is locked")
	ErrUnreachable      = reject("unreachable", "destination outside reachable tiles")
	ErrOccupied         = reject("occupied", "destination is occupied")
	ErrNoActionLeft     = reject("no_action_left", "no action left this turn")
	ErrNotAdjacent      = reject("not_adjacent", "target is not adjacent")
	ErrNotADoor         = reject("not_a_door", "tile is not a door")
	ErrDoorBlocked      = reject("door_blocked", "someone stands in the doorway")
	ErrDebugOnly        = reject("debug_only", "only available in debug mode")
	ErrNoItemHere       = reject("no_item", "player does not hold this item")
	ErrCannotDrop       = reject("cannot_drop", "no free tile to drop the item")
	ErrCombatInProgress = reject("combat_in_progress", "a combat is already running")
	ErrNoCombat         = reject("no_combat", "no combat in progress")
	ErrInvalidTarget    = reject("invalid_target", "invalid combat target")
	ErrInvalidMove      = reject("invalid_move", "combat move must be attack or run")
	ErrEscapeExhausted  = reject("escape_exhausted", "no escape attempts left")
)
