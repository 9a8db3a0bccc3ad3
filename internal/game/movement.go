package game

import (
	"errors"

	"github.com/kiliankoe/gridclash/internal/grid"
)

type itemEvent struct {
	PlayerID string    `json:"playerId"`
	Item     grid.Item `json:"item"`
}

type moveEvent struct {
	PlayerID string     `json:"playerId"`
	Position grid.Coord `json:"position"`
}

type doorEvent struct {
	Position grid.Coord    `json:"position"`
	TileType grid.TileType `json:"tileType"`
}

func (s *Session) requireTurn(playerID string) (*Player, error) {
	if s.phase != PhaseTurn || !s.isActive(playerID) {
		return nil, ErrNotYourTurn
	}
	return s.active(), nil
}

// Move walks the active player toward the last coordinate of path. The server
// recomputes the route itself; the client's intermediate steps are advisory.
func (s *Session) Move(playerID string, path []grid.Coord) error {
	p, err := s.requireTurn(playerID)
	if err != nil {
		return err
	}
	if !s.movementUnlocked {
		return ErrMovementLocked
	}
	if len(path) == 0 {
		return ErrUnreachable
	}
	dest := path[len(path)-1]
	if s.playerAt(dest) != nil {
		return ErrOccupied
	}
	planned, err := grid.FindPath(s.grid, s.reachable, p.Position, dest, s.blockedFor(p))
	switch {
	case errors.Is(err, grid.ErrOccupied):
		return ErrOccupied
	case err != nil:
		return ErrUnreachable
	}

	spent, slipped := s.walk(p, planned)
	if !s.debug {
		p.Attributes.CurrentSpeed = max(0, p.Attributes.CurrentSpeed-spent)
	}
	if s.checkWin() {
		return nil
	}
	if slipped {
		s.endTurn()
		return nil
	}
	s.refreshReachable()
	s.room.syncState()
	s.settle()
	return nil
}

// walk moves p step by step and returns the movement cost to charge. It stops
// early on an item pickup or an ice slip; a slip is charged the whole plan.
func (s *Session) walk(p *Player, path []grid.Coord) (spent int, slipped bool) {
	for _, step := range path[1:] {
		t, _ := s.grid.Tile(step)
		spent += t.Weight()
		p.Position = step
		s.room.broadcast(EvPlayerMoved, moveEvent{PlayerID: p.ID, Position: step})

		if s.pickUp(p, step) {
			return spent, false
		}
		if t.Type == grid.TileIce && !s.debug && s.dice.Chance(s.rules.SlipChance) {
			s.room.broadcast(EvSlipped, moveEvent{PlayerID: p.ID, Position: step})
			return grid.PathCost(s.grid, path), true
		}
	}
	return spent, false
}

// pickUp collects a collectible item on at when the inventory has room.
func (s *Session) pickUp(p *Player, at grid.Coord) bool {
	it := s.grid.ItemAt(at)
	if it == nil || !it.Collectible() || len(p.Inventory) >= s.rules.InventoryCap {
		return false
	}
	s.grid.TakeItem(at)
	p.Inventory = append(p.Inventory, it)
	if it.Kind == grid.ItemFlag {
		p.HasFlag = true
	}
	if d := it.Kind.Modifier().Life; d > 0 {
		p.Attributes.CurrentHP += d
	}
	s.room.broadcast(EvItemPickedUp, itemEvent{PlayerID: p.ID, Item: *it})
	return true
}

// ToggleDoor opens or closes a door next to the active player, spending the action.
func (s *Session) ToggleDoor(playerID string, at grid.Coord) error {
	p, err := s.requireTurn(playerID)
	if err != nil {
		return err
	}
	if p.Attributes.ActionsLeft <= 0 {
		return ErrNoActionLeft
	}
	if !p.Position.Adjacent(at) {
		return ErrNotAdjacent
	}
	t, err := s.grid.Tile(at)
	if err != nil || !t.IsDoor() {
		return ErrNotADoor
	}
	if s.playerAt(at) != nil {
		return ErrDoorBlocked
	}
	typ, err := s.grid.ToggleDoor(at)
	if err != nil {
		return ErrNotADoor
	}
	p.Attributes.ActionsLeft--
	s.room.broadcast(EvDoorToggled, doorEvent{Position: at, TileType: typ})
	s.refreshReachable()
	s.room.syncState()
	s.settle()
	return nil
}

// Teleport moves the active player anywhere free. Debug mode only.
func (s *Session) Teleport(playerID string, at grid.Coord) error {
	p, err := s.requireTurn(playerID)
	if err != nil {
		return err
	}
	if !s.debug {
		return ErrDebugOnly
	}
	if !s.grid.Walkable(at) {
		return ErrUnreachable
	}
	if s.playerAt(at) != nil {
		return ErrOccupied
	}
	p.Position = at
	s.room.broadcast(EvPlayerMoved, moveEvent{PlayerID: p.ID, Position: at})
	s.pickUp(p, at)
	if s.checkWin() {
		return nil
	}
	s.refreshReachable()
	s.room.syncState()
	return nil
}

// DropItem puts one of the active player's items on its tile, or the nearest
// free one.
func (s *Session) DropItem(playerID string, itemID int) error {
	p, err := s.requireTurn(playerID)
	if err != nil {
		return err
	}
	idx := -1
	for i, it := range p.Inventory {
		if it.ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNoItemHere
	}
	it := p.Inventory[idx]
	c, ok := grid.NearestFree(s.grid, p.Position, func(c grid.Coord) bool {
		t, _ := s.grid.Tile(c)
		return t.Terrain && t.ItemID == 0
	})
	if !ok {
		return ErrCannotDrop
	}
	if err := s.grid.PlaceItem(it.ID, c); err != nil {
		return ErrCannotDrop
	}
	p.Inventory = append(p.Inventory[:idx], p.Inventory[idx+1:]...)
	if it.Kind == grid.ItemFlag {
		p.HasFlag = false
	}
	p.Attributes.CurrentHP = min(p.Attributes.CurrentHP, p.MaxHP())
	s.room.broadcast(EvItemDropped, itemEvent{PlayerID: p.ID, Item: *it})
	s.refreshReachable()
	s.room.syncState()
	return nil
}
