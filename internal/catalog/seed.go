package catalog

import (
	"context"
	"fmt"

	"github.com/kiliankoe/gridclash/internal/grid"
)

type placement struct {
	kind grid.ItemKind
	at   grid.Coord
}

func build(name, desc string, size int, mode grid.Mode, tiles map[grid.Coord]grid.TileType, items []placement) (*grid.Map, error) {
	m := grid.NewMap(name, size, mode)
	m.Description = desc
	m.IsVisible = true
	for c, t := range tiles {
		if err := m.SetTile(c, t); err != nil {
			return nil, err
		}
	}
	for _, p := range items {
		if _, err := m.AddItem(p.kind, p.at, true); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return m, m.Validate()
}

func line(tiles map[grid.Coord]grid.TileType, t grid.TileType, from, to grid.Coord) {
	for x := from.X; x <= to.X; x++ {
		for y := from.Y; y <= to.Y; y++ {
			tiles[grid.Coord{X: x, Y: y}] = t
		}
	}
}

// DefaultMaps returns the maps a fresh catalog starts with.
func DefaultMaps() ([]*grid.Map, error) {
	duelTiles := map[grid.Coord]grid.TileType{}
	line(duelTiles, grid.TileWall, grid.Coord{X: 3, Y: 3}, grid.Coord{X: 6, Y: 3})
	line(duelTiles, grid.TileWall, grid.Coord{X: 3, Y: 6}, grid.Coord{X: 6, Y: 6})
	line(duelTiles, grid.TileWater, grid.Coord{X: 0, Y: 5}, grid.Coord{X: 2, Y: 5})
	line(duelTiles, grid.TileIce, grid.Coord{X: 7, Y: 4}, grid.Coord{X: 9, Y: 4})
	duelTiles[grid.Coord{X: 4, Y: 3}] = grid.TileDoorClosed
	duelTiles[grid.Coord{X: 5, Y: 6}] = grid.TileDoorClosed

	duel, err := build("Duel", "Two walls, one door each, and a cold stretch of ice.", 10, grid.ModeClassic, duelTiles, []placement{
		{grid.ItemStartPoint, grid.Coord{X: 0, Y: 0}},
		{grid.ItemStartPoint, grid.Coord{X: 9, Y: 9}},
		{grid.ItemMystery, grid.Coord{X: 0, Y: 9}},
		{grid.ItemMystery, grid.Coord{X: 9, Y: 0}},
		{grid.ItemSword, grid.Coord{X: 2, Y: 7}},
		{grid.ItemShield, grid.Coord{X: 7, Y: 2}},
		{grid.ItemBoots, grid.Coord{X: 4, Y: 1}},
		{grid.ItemPotion, grid.Coord{X: 5, Y: 8}},
		{grid.ItemAmulet, grid.Coord{X: 1, Y: 4}},
		{grid.ItemChip, grid.Coord{X: 8, Y: 5}},
	})
	if err != nil {
		return nil, err
	}

	bastionTiles := map[grid.Coord]grid.TileType{}
	line(bastionTiles, grid.TileWater, grid.Coord{X: 5, Y: 5}, grid.Coord{X: 5, Y: 9})
	line(bastionTiles, grid.TileWater, grid.Coord{X: 9, Y: 5}, grid.Coord{X: 9, Y: 9})
	line(bastionTiles, grid.TileWall, grid.Coord{X: 6, Y: 5}, grid.Coord{X: 8, Y: 5})
	line(bastionTiles, grid.TileIce, grid.Coord{X: 6, Y: 9}, grid.Coord{X: 8, Y: 9})
	bastionTiles[grid.Coord{X: 7, Y: 5}] = grid.TileDoorClosed

	bastion, err := build("Bastion", "Four corners race for the flag in the middle.", 15, grid.ModeCaptureTheFlag, bastionTiles, []placement{
		{grid.ItemStartPoint, grid.Coord{X: 0, Y: 0}},
		{grid.ItemStartPoint, grid.Coord{X: 14, Y: 0}},
		{grid.ItemStartPoint, grid.Coord{X: 0, Y: 14}},
		{grid.ItemStartPoint, grid.Coord{X: 14, Y: 14}},
		{grid.ItemFlag, grid.Coord{X: 7, Y: 7}},
		{grid.ItemMystery, grid.Coord{X: 7, Y: 0}},
		{grid.ItemMystery, grid.Coord{X: 7, Y: 14}},
		{grid.ItemSword, grid.Coord{X: 3, Y: 3}},
		{grid.ItemShield, grid.Coord{X: 11, Y: 3}},
		{grid.ItemBoots, grid.Coord{X: 3, Y: 11}},
		{grid.ItemPotion, grid.Coord{X: 11, Y: 11}},
		{grid.ItemAmulet, grid.Coord{X: 7, Y: 3}},
		{grid.ItemChip, grid.Coord{X: 7, Y: 11}},
	})
	if err != nil {
		return nil, err
	}
	return []*grid.Map{duel, bastion}, nil
}

// Seed fills an empty catalog with DefaultMaps. It reports how many maps it added.
func Seed(ctx context.Context, st Store) (int, error) {
	existing, err := st.List(ctx, false)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	maps, err := DefaultMaps()
	if err != nil {
		return 0, err
	}
	for _, m := range maps {
		if err := st.Put(ctx, m); err != nil {
			return 0, fmt.Errorf("seed %s: %w", m.Name, err)
		}
	}
	return len(maps), nil
}
