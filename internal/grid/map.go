package grid

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds  = errors.New("coordinate out of bounds")
	ErrTileOccupied = errors.New("tile already holds an item")
	ErrNotADoor     = errors.New("tile is not a door")
	ErrUnknownItem  = errors.New("unknown item")
	ErrInvalidMap   = errors.New("invalid map")
)

type Mode string

const (
	ModeClassic        Mode = "classic"
	ModeCaptureTheFlag Mode = "ctf"
)

type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Coord) String() string { return fmt.Sprintf("%d,%d", c.X, c.Y) }

// Adjacent reports whether o is one orthogonal step from c.
func (c Coord) Adjacent(o Coord) bool {
	dx, dy := c.X-o.X, c.Y-o.Y
	return dx*dx+dy*dy == 1
}

func (c Coord) neighbors() [4]Coord {
	return [4]Coord{
		{X: c.X, Y: c.Y - 1},
		{X: c.X + 1, Y: c.Y},
		{X: c.X, Y: c.Y + 1},
		{X: c.X - 1, Y: c.Y},
	}
}

type TileType string

const (
	TileBase       TileType = "base"
	TileIce        TileType = "ice"
	TileWater      TileType = "water"
	TileWall       TileType = "wall"
	TileDoorClosed TileType = "doorClosed"
	TileDoorOpen   TileType = "doorOpen"
)

// Impassable is the weight of tiles a player can never enter.
const Impassable = -1

type Tile struct {
	Type        TileType `json:"tileType"`
	Traversable bool     `json:"traversable"`
	Terrain     bool     `json:"terrain"`
	ItemID      int      `json:"itemId,omitempty"`
}

// NewTile returns a tile of type t with its authoring flags derived from the type.
func NewTile(t TileType) Tile {
	tile := Tile{Type: t}
	tile.refresh()
	return tile
}

func (t *Tile) refresh() {
	switch t.Type {
	case TileBase, TileIce, TileDoorOpen:
		t.Traversable = true
		t.Terrain = t.Type != TileDoorOpen
	default:
		t.Traversable = false
		t.Terrain = false
	}
}

// Weight is the nominal cost of stepping onto the tile, or Impassable. Water
// carries a weight but is never traversable.
func (t Tile) Weight() int {
	switch t.Type {
	case TileIce:
		return 0
	case TileBase, TileDoorOpen:
		return 1
	case TileWater:
		return 2
	default:
		return Impassable
	}
}

func (t Tile) IsDoor() bool { return t.Type == TileDoorClosed || t.Type == TileDoorOpen }

// Map is a square grid of tiles plus the item catalog placed on it.
type Map struct {
	ID          string   `json:"_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Size        int      `json:"size"`
	Mode        Mode     `json:"mode"`
	IsVisible   bool     `json:"isVisible"`
	Tiles       [][]Tile `json:"tiles"`
	Items       []*Item  `json:"items"`
}

func (m *Map) InBounds(c Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.Y < len(m.Tiles) && c.X < len(m.Tiles[c.Y])
}

func (m *Map) Tile(c Coord) (*Tile, error) {
	if !m.InBounds(c) {
		return nil, ErrOutOfBounds
	}
	return &m.Tiles[c.Y][c.X], nil
}

// weight is the cost of entering c. Tiles flagged non-traversable are never
// entered, whatever their nominal weight.
func (m *Map) weight(c Coord) int {
	if !m.InBounds(c) {
		return Impassable
	}
	t := m.Tiles[c.Y][c.X]
	if !t.Traversable {
		return Impassable
	}
	return t.Weight()
}

// Walkable reports whether a player may stand on c, ignoring other players.
func (m *Map) Walkable(c Coord) bool { return m.weight(c) != Impassable }

func (m *Map) Item(id int) *Item {
	for _, it := range m.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// ItemAt returns the item placed on c, if any.
func (m *Map) ItemAt(c Coord) *Item {
	t, err := m.Tile(c)
	if err != nil || t.ItemID == 0 {
		return nil
	}
	return m.Item(t.ItemID)
}

// PlaceItem puts a reserve item on c. The tile slot and the item's OnGrid flag
// are only ever changed together here and in TakeItem.
func (m *Map) PlaceItem(id int, c Coord) error {
	it := m.Item(id)
	if it == nil {
		return ErrUnknownItem
	}
	t, err := m.Tile(c)
	if err != nil {
		return err
	}
	if t.ItemID != 0 && t.ItemID != id {
		return ErrTileOccupied
	}
	if it.OnGrid {
		m.Tiles[it.Position.Y][it.Position.X].ItemID = 0
	}
	t.ItemID = id
	it.OnGrid = true
	it.Position = c
	return nil
}

// TakeItem removes whatever item sits on c and returns it to reserve.
func (m *Map) TakeItem(c Coord) *Item {
	t, err := m.Tile(c)
	if err != nil || t.ItemID == 0 {
		return nil
	}
	it := m.Item(t.ItemID)
	t.ItemID = 0
	if it != nil {
		it.OnGrid = false
		it.Position = Coord{}
	}
	return it
}

// ToggleDoor flips a door between open and closed. Any item on the tile goes
// back to reserve either way.
func (m *Map) ToggleDoor(c Coord) (TileType, error) {
	t, err := m.Tile(c)
	if err != nil {
		return "", err
	}
	switch t.Type {
	case TileDoorClosed:
		t.Type = TileDoorOpen
	case TileDoorOpen:
		t.Type = TileDoorClosed
	default:
		return "", ErrNotADoor
	}
	t.refresh()
	m.TakeItem(c)
	return t.Type, nil
}

// StartPoints lists the coordinates of start point items still on the grid.
func (m *Map) StartPoints() []Coord {
	var out []Coord
	for _, it := range m.Items {
		if it.Kind == ItemStartPoint && it.OnGrid {
			out = append(out, it.Position)
		}
	}
	return out
}

// Clone deep-copies the map so a running game never mutates a catalog entry.
func (m *Map) Clone() *Map {
	out := *m
	out.Tiles = make([][]Tile, len(m.Tiles))
	for y := range m.Tiles {
		out.Tiles[y] = append([]Tile(nil), m.Tiles[y]...)
	}
	out.Items = make([]*Item, len(m.Items))
	for i, it := range m.Items {
		cp := *it
		out.Items[i] = &cp
	}
	return &out
}

// MaxPlayers returns the roster cap for a map of the given side length.
func MaxPlayers(size int) int {
	switch size {
	case 10:
		return 2
	case 15:
		return 4
	case 20:
		return 6
	default:
		return 0
	}
}

// Validate checks the structural rules a playable map must satisfy.
func (m *Map) Validate() error {
	if MaxPlayers(m.Size) == 0 {
		return fmt.Errorf("%w: size %d not one of 10, 15, 20", ErrInvalidMap, m.Size)
	}
	if m.Mode != ModeClassic && m.Mode != ModeCaptureTheFlag {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidMap, m.Mode)
	}
	if len(m.Tiles) != m.Size {
		return fmt.Errorf("%w: expected %d rows, got %d", ErrInvalidMap, m.Size, len(m.Tiles))
	}
	for y, row := range m.Tiles {
		if len(row) != m.Size {
			return fmt.Errorf("%w: row %d has %d tiles", ErrInvalidMap, y, len(row))
		}
	}
	seen := map[int]bool{}
	counts := map[ItemKind]int{}
	for _, it := range m.Items {
		if it.ID <= 0 || seen[it.ID] {
			return fmt.Errorf("%w: duplicate or missing item id %d", ErrInvalidMap, it.ID)
		}
		seen[it.ID] = true
		counts[it.Kind]++
		if !it.OnGrid {
			continue
		}
		t, err := m.Tile(it.Position)
		if err != nil {
			return fmt.Errorf("%w: item %d: %v", ErrInvalidMap, it.ID, err)
		}
		if t.ItemID != it.ID {
			return fmt.Errorf("%w: item %d not registered on tile %s", ErrInvalidMap, it.ID, it.Position)
		}
		if !t.Terrain {
			return fmt.Errorf("%w: item %d placed on %s tile", ErrInvalidMap, it.ID, t.Type)
		}
	}
	for y, row := range m.Tiles {
		for x, t := range row {
			if want := NewTile(t.Type); t.Traversable != want.Traversable || t.Terrain != want.Terrain {
				return fmt.Errorf("%w: tile %d,%d flags disagree with type %q", ErrInvalidMap, x, y, t.Type)
			}
			if t.ItemID == 0 {
				continue
			}
			it := m.Item(t.ItemID)
			if it == nil || !it.OnGrid || it.Position != (Coord{X: x, Y: y}) {
				return fmt.Errorf("%w: tile %d,%d references item %d inconsistently", ErrInvalidMap, x, y, t.ItemID)
			}
		}
	}
	if counts[ItemStartPoint] < 2 {
		return fmt.Errorf("%w: at least two start points required", ErrInvalidMap)
	}
	if m.Mode == ModeCaptureTheFlag && counts[ItemFlag] != 1 {
		return fmt.Errorf("%w: capture the flag needs exactly one flag", ErrInvalidMap)
	}
	if m.Mode == ModeClassic && counts[ItemFlag] != 0 {
		return fmt.Errorf("%w: flag only allowed in capture the flag", ErrInvalidMap)
	}
	return nil
}

// NewMap returns a size×size map of base tiles with no items.
func NewMap(name string, size int, mode Mode) *Map {
	m := &Map{Name: name, Size: size, Mode: mode, Tiles: make([][]Tile, size)}
	for y := range m.Tiles {
		m.Tiles[y] = make([]Tile, size)
		for x := range m.Tiles[y] {
			m.Tiles[y][x] = NewTile(TileBase)
		}
	}
	return m
}

// SetTile changes the type of the tile at c, dropping any item it can no longer hold.
func (m *Map) SetTile(c Coord, t TileType) error {
	tile, err := m.Tile(c)
	if err != nil {
		return err
	}
	tile.Type = t
	tile.refresh()
	if !tile.Terrain {
		m.TakeItem(c)
	}
	return nil
}

// AddItem registers a new item with the next free id, placing it on c when
// onGrid is set.
func (m *Map) AddItem(kind ItemKind, c Coord, onGrid bool) (*Item, error) {
	id := 1
	for _, it := range m.Items {
		if it.ID >= id {
			id = it.ID + 1
		}
	}
	it := &Item{ID: id, Kind: kind}
	m.Items = append(m.Items, it)
	if !onGrid {
		return it, nil
	}
	if err := m.PlaceItem(id, c); err != nil {
		m.Items = m.Items[:len(m.Items)-1]
		return nil, err
	}
	return it, nil
}
