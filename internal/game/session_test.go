package game

import (
	"testing"
	"time"

	"github.com/kiliankoe/gridclash/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartGamePlacesPlayersOnStartPoints(t *testing.T) {
	f := started(t)
	st := f.room.State()

	starts := map[grid.Coord]bool{{X: 0, Y: 0}: true, {X: 9, Y: 9}: true}
	seen := map[grid.Coord]bool{}
	for _, p := range st.Players {
		assert.True(t, starts[p.Position], "%s should stand on a start point", p.Name)
		assert.Equal(t, p.Position, p.SpawnPoint)
		assert.False(t, seen[p.Position], "start points are not shared")
		seen[p.Position] = true
	}
	assert.Equal(t, 1, f.guestA.count(EvGameStarted))
	assert.Equal(t, f.host, st.Players[0].ID, "the faster player goes first")
}

func TestUnusedStartPointsAreRemoved(t *testing.T) {
	rm := NewRoomManager(WithTicker(manualTicker), WithDice(&scriptedDice{}))
	r, host, err := rm.CreateRoom(hostProfile, bigMap(t, grid.ModeClassic), &recorder{})
	require.NoError(t, err)
	t.Cleanup(func() { rm.Destroy(r.Code, "test done") })
	_, _, err = rm.Join(r.Code, guestProfile, nil)
	require.NoError(t, err)
	_, err = rm.ToggleLock(r.Code, host.ID)
	require.NoError(t, err)

	require.NoError(t, r.StartGame(host.ID))
	assert.Len(t, r.State().Map.StartPoints(), 2)
	assert.Len(t, r.Map.StartPoints(), 4, "the lobby map is never mutated")
}

func TestTurnTimerExpiryAdvancesTurn(t *testing.T) {
	f := started(t)
	assert.Equal(t, 30, f.room.State().Clock)

	f.tick(29)
	assert.Equal(t, PhaseTurn, f.room.State().Phase)

	f.tick(1)
	st := f.room.State()
	assert.Equal(t, PhaseTransition, st.Phase)
	assert.Equal(t, f.guest, st.ActivePlayerID)
	assert.Equal(t, 1, f.hostA.count(EvTurnEnded))

	f.tick(3)
	st = f.room.State()
	assert.Equal(t, PhaseTurn, st.Phase)
	assert.Equal(t, f.guest, st.ActivePlayerID)
	assert.Equal(t, 4, f.player(t, f.guest).Attributes.CurrentSpeed)

	// order wraps back to the host
	require.NoError(t, f.room.EndTurn(f.guest))
	f.tick(3)
	assert.Equal(t, f.host, f.room.State().ActivePlayerID)
}

func TestEndTurnOnlyForActivePlayer(t *testing.T) {
	f := started(t)

	assert.ErrorIs(t, f.room.EndTurn(f.guest), ErrNotYourTurn)
	require.NoError(t, f.room.EndTurn(f.host))
	assert.ErrorIs(t, f.room.EndTurn(f.host), ErrNotYourTurn, "no double pass")
	assert.Equal(t, PhaseTransition, f.room.State().Phase)
}

func TestReachableTilesGoOnlyToActivePlayer(t *testing.T) {
	f := started(t)

	assert.NotZero(t, f.hostA.count(EvReachableTiles))
	assert.Zero(t, f.guestA.count(EvReachableTiles))
	assert.NotEmpty(t, f.room.Reachable(f.host))
	assert.Empty(t, f.room.Reachable(f.guest))
}

func TestMoveDetoursAroundWater(t *testing.T) {
	f := started(t)
	f.arrange(func(s *Session) {
		place(s, f.host, grid.Coord{X: 0, Y: 0})
		place(s, f.guest, grid.Coord{X: 9, Y: 9})
		require.NoError(t, s.grid.SetTile(grid.Coord{X: 1, Y: 0}, grid.TileWater))
	})

	assert.ErrorIs(t, f.room.Move(f.host, []grid.Coord{{X: 1, Y: 0}}), ErrUnreachable, "water is never entered")
	require.NoError(t, f.room.Move(f.host, []grid.Coord{{X: 2, Y: 0}}))

	p := f.player(t, f.host)
	assert.Equal(t, grid.Coord{X: 2, Y: 0}, p.Position)
	assert.Equal(t, 2, p.Attributes.CurrentSpeed, "the four step detour around the water")
	assert.Equal(t, 4, f.guestA.count(EvPlayerMoved))
}

func TestMoveRejections(t *testing.T) {
	f := started(t)
	f.arrange(func(s *Session) {
		place(s, f.host, grid.Coord{X: 0, Y: 0})
		place(s, f.guest, grid.Coord{X: 1, Y: 0})
	})

	// an occupied tile inside the budget is still refused
	assert.ErrorIs(t, f.room.Move(f.host, []grid.Coord{{X: 1, Y: 0}}), ErrOccupied)
	assert.ErrorIs(t, f.room.Move(f.host, []grid.Coord{{X: 0, Y: 9}}), ErrUnreachable)
	assert.ErrorIs(t, f.room.Move(f.host, nil), ErrUnreachable)
	assert.ErrorIs(t, f.room.Move(f.guest, []grid.Coord{{X: 2, Y: 0}}), ErrNotYourTurn)

	p := f.player(t, f.host)
	assert.Equal(t, grid.Coord{X: 0, Y: 0}, p.Position)
	assert.Equal(t, 6, p.Attributes.CurrentSpeed)
}

func TestIceSlipEndsTurn(t *testing.T) {
	f := started(t)
	f.arrange(func(s *Session) {
		place(s, f.host, grid.Coord{X: 0, Y: 0})
		place(s, f.guest, grid.Coord{X: 9, Y: 9})
		require.NoError(t, s.grid.SetTile(grid.Coord{X: 1, Y: 0}, grid.TileIce))
		require.NoError(t, s.grid.SetTile(grid.Coord{X: 2, Y: 0}, grid.TileIce))
	})
	f.dice.chances = []bool{true}

	require.NoError(t, f.room.Move(f.host, []grid.Coord{{X: 3, Y: 0}}))

	p := f.player(t, f.host)
	assert.Equal(t, grid.Coord{X: 1, Y: 0}, p.Position, "stops on the tile it slipped on")
	assert.Equal(t, 5, p.Attributes.CurrentSpeed, "the whole planned cost is charged")
	assert.Equal(t, 1, f.guestA.count(EvSlipped))
	st := f.room.State()
	assert.Equal(t, PhaseTransition, st.Phase)
	assert.Equal(t, f.guest, st.ActivePlayerID)
}

func TestTurnEndsWhenNothingLeftToDo(t *testing.T) {
	f := started(t)
	f.arrange(func(s *Session) {
		place(s, f.host, grid.Coord{X: 0, Y: 0})
		place(s, f.guest, grid.Coord{X: 9, Y: 9})
		p, _ := s.room.player(f.host)
		p.Attributes.CurrentSpeed = 1
		p.Attributes.ActionsLeft = 0
	})

	require.NoError(t, f.room.Move(f.host, []grid.Coord{{X: 1, Y: 0}}))
	assert.Equal(t, PhaseTransition, f.room.State().Phase)
	assert.Equal(t, f.guest, f.room.State().ActivePlayerID)
}

func TestItemPickupStopsMovement(t *testing.T) {
	f := started(t)
	var sword *grid.Item
	f.arrange(func(s *Session) {
		place(s, f.host, grid.Coord{X: 0, Y: 0})
		place(s, f.guest, grid.Coord{X: 9, Y: 9})
		var err error
		sword, err = s.grid.AddItem(grid.ItemSword, grid.Coord{X: 1, Y: 0}, true)
		require.NoError(t, err)
	})

	require.NoError(t, f.room.Move(f.host, []grid.Coord{{X: 3, Y: 0}}))

	p := f.player(t, f.host)
	assert.Equal(t, grid.Coord{X: 1, Y: 0}, p.Position)
	require.Len(t, p.Inventory, 1)
	assert.Equal(t, sword.ID, p.Inventory[0].ID)
	assert.Equal(t, 5, p.Attributes.CurrentSpeed)
	assert.Equal(t, 6, p.Offense())
	assert.Equal(t, 1, f.guestA.count(EvItemPickedUp))
	assert.Nil(t, f.room.State().Map.ItemAt(grid.Coord{X: 1, Y: 0}))
}

func TestFullInventorySkipsItems(t *testing.T) {
	f := started(t)
	f.arrange(func(s *Session) {
		place(s, f.host, grid.Coord{X: 0, Y: 0})
		place(s, f.guest, grid.Coord{X: 9, Y: 9})
		p, _ := s.room.player(f.host)
		for _, k := range []grid.ItemKind{grid.ItemAmulet, grid.ItemPotion} {
			it, err := s.grid.AddItem(k, grid.Coord{}, false)
			require.NoError(t, err)
			p.Inventory = append(p.Inventory, it)
		}
		_, err := s.grid.AddItem(grid.ItemBoots, grid.Coord{X: 1, Y: 0}, true)
		require.NoError(t, err)
	})

	require.NoError(t, f.room.Move(f.host, []grid.Coord{{X: 2, Y: 0}}))

	p := f.player(t, f.host)
	assert.Equal(t, grid.Coord{X: 2, Y: 0}, p.Position, "a full inventory walks past items")
	assert.Len(t, p.Inventory, 2)
	assert.NotNil(t, f.room.State().Map.ItemAt(grid.Coord{X: 1, Y: 0}))
}

func TestDropItem(t *testing.T) {
	f := started(t)
	var sword *grid.Item
	f.arrange(func(s *Session) {
		place(s, f.host, grid.Coord{X: 0, Y: 0})
		place(s, f.guest, grid.Coord{X: 9, Y: 9})
		var err error
		sword, err = s.grid.AddItem(grid.ItemSword, grid.Coord{}, false)
		require.NoError(t, err)
		p, _ := s.room.player(f.host)
		p.Inventory = append(p.Inventory, sword)
	})

	assert.ErrorIs(t, f.room.DropItem(f.host, 999), ErrNoItemHere)
	require.NoError(t, f.room.DropItem(f.host, sword.ID))

	assert.Empty(t, f.player(t, f.host).Inventory)
	it := f.room.State().Map.ItemAt(grid.Coord{X: 1, Y: 0})
	require.NotNil(t, it, "the start point tile is taken so the sword lands next to it")
	assert.Equal(t, sword.ID, it.ID)
	assert.True(t, it.OnGrid)
}

func TestToggleDoor(t *testing.T) {
	f := started(t)
	door := grid.Coord{X: 1, Y: 0}
	f.arrange(func(s *Session) {
		place(s, f.host, grid.Coord{X: 0, Y: 0})
		place(s, f.guest, grid.Coord{X: 9, Y: 9})
		require.NoError(t, s.grid.SetTile(door, grid.TileDoorClosed))
	})

	assert.ErrorIs(t, f.room.ToggleDoor(f.host, grid.Coord{X: 5, Y: 5}), ErrNotAdjacent)
	assert.ErrorIs(t, f.room.ToggleDoor(f.host, grid.Coord{X: 0, Y: 1}), ErrNotADoor)
	require.NoError(t, f.room.ToggleDoor(f.host, door))

	tile, err := f.room.State().Map.Tile(door)
	require.NoError(t, err)
	assert.Equal(t, grid.TileDoorOpen, tile.Type)
	assert.Equal(t, 0, f.player(t, f.host).Attributes.ActionsLeft)
	assert.Contains(t, f.room.Reachable(f.host), grid.Coord{X: 2, Y: 0})
	assert.ErrorIs(t, f.room.ToggleDoor(f.host, door), ErrNoActionLeft)
}

func TestToggleDoorBlockedByPlayer(t *testing.T) {
	f := started(t)
	door := grid.Coord{X: 1, Y: 0}
	f.arrange(func(s *Session) {
		require.NoError(t, s.grid.SetTile(door, grid.TileDoorOpen))
		place(s, f.host, grid.Coord{X: 0, Y: 0})
		place(s, f.guest, door)
	})

	assert.ErrorIs(t, f.room.ToggleDoor(f.host, door), ErrDoorBlocked)
	assert.Equal(t, 1, f.player(t, f.host).Attributes.ActionsLeft)
}

func TestDebugMode(t *testing.T) {
	f := started(t)
	f.arrange(func(s *Session) {
		place(s, f.host, grid.Coord{X: 0, Y: 0})
		place(s, f.guest, grid.Coord{X: 9, Y: 9})
	})

	assert.ErrorIs(t, f.room.Teleport(f.host, grid.Coord{X: 5, Y: 5}), ErrDebugOnly)
	assert.ErrorIs(t, f.room.ToggleDebug(f.guest), ErrNotHost)
	require.NoError(t, f.room.ToggleDebug(f.host))
	assert.True(t, f.room.State().Debug)
	assert.Equal(t, 1, f.guestA.count(EvDebugToggled))

	// the budget no longer applies and nothing is charged
	require.NoError(t, f.room.Move(f.host, []grid.Coord{{X: 0, Y: 9}}))
	assert.Equal(t, 6, f.player(t, f.host).Attributes.CurrentSpeed)

	assert.ErrorIs(t, f.room.Teleport(f.host, grid.Coord{X: 9, Y: 9}), ErrOccupied)
	require.NoError(t, f.room.Teleport(f.host, grid.Coord{X: 5, Y: 5}))
	assert.Equal(t, grid.Coord{X: 5, Y: 5}, f.player(t, f.host).Position)
}

func TestDebugModeNeverSlips(t *testing.T) {
	f := started(t)
	f.arrange(func(s *Session) {
		place(s, f.host, grid.Coord{X: 0, Y: 0})
		place(s, f.guest, grid.Coord{X: 9, Y: 9})
		require.NoError(t, s.grid.SetTile(grid.Coord{X: 1, Y: 0}, grid.TileIce))
	})
	require.NoError(t, f.room.ToggleDebug(f.host))
	f.dice.chances = []bool{true}

	require.NoError(t, f.room.Move(f.host, []grid.Coord{{X: 2, Y: 0}}))
	assert.Equal(t, grid.Coord{X: 2, Y: 0}, f.player(t, f.host).Position)
	assert.Equal(t, PhaseTurn, f.room.State().Phase)
}

func TestCaptureTheFlag(t *testing.T) {
	results := make(chan GameResult, 1)
	f := newFixture(t, testMap(t, grid.ModeCaptureTheFlag), WithResults(func(r GameResult) { results <- r }))
	require.NoError(t, f.room.StartGame(f.host))
	f.tick(3)
	f.arrange(func(s *Session) {
		p, _ := s.room.player(f.host)
		p.Position = grid.Coord{X: 5, Y: 4}
		p.SpawnPoint = grid.Coord{X: 5, Y: 4}
		place(s, f.guest, grid.Coord{X: 9, Y: 9})
	})

	require.NoError(t, f.room.Move(f.host, []grid.Coord{{X: 5, Y: 5}}))
	assert.True(t, f.player(t, f.host).HasFlag)
	assert.Equal(t, PhaseTurn, f.room.State().Phase)

	require.NoError(t, f.room.Move(f.host, []grid.Coord{{X: 5, Y: 4}}))
	assert.Equal(t, PhaseOver, f.room.State().Phase)
	assert.False(t, f.room.State().IsActive)

	payload, ok := f.guestA.last(EvGameOver)
	require.True(t, ok)
	assert.Equal(t, f.host, payload.(map[string]any)["winnerId"])

	select {
	case res := <-results:
		assert.Equal(t, "Alice", res.Winner)
		assert.Equal(t, grid.ModeCaptureTheFlag, res.Mode)
	case <-time.After(time.Second):
		t.Fatal("expected a game result")
	}
}

func TestLeavingOpponentEndsTwoPlayerGame(t *testing.T) {
	f := started(t)

	require.NoError(t, f.rm.Leave(f.room.Code, f.guest))
	st := f.room.State()
	assert.Equal(t, PhaseOver, st.Phase)
	assert.Len(t, st.Players, 1)
	assert.Equal(t, 1, f.rm.Rooms(), "the host still sees the end screen")

	require.NoError(t, f.rm.Leave(f.room.Code, f.host))
	assert.Equal(t, 0, f.rm.Rooms())
}

func TestActivePlayerLeavingPassesTheTurn(t *testing.T) {
	rm := NewRoomManager(WithTicker(manualTicker), WithDice(&scriptedDice{}))
	r, host, err := rm.CreateRoom(hostProfile, bigMap(t, grid.ModeClassic), &recorder{})
	require.NoError(t, err)
	t.Cleanup(func() { rm.Destroy(r.Code, "test done") })
	_, guest, err := rm.Join(r.Code, guestProfile, &recorder{})
	require.NoError(t, err)
	_, carl, err := rm.Join(r.Code, Profile{Name: "Carl", Character: "rogue", Bonus: "life", Dice: DiceAttack}, &recorder{})
	require.NoError(t, err)
	_, err = rm.ToggleLock(r.Code, host.ID)
	require.NoError(t, err)
	require.NoError(t, r.StartGame(host.ID))

	tick := func(n int) {
		for i := 0; i < n; i++ {
			r.mu.Lock()
			r.session.tick()
			r.mu.Unlock()
		}
	}
	tick(3)
	require.NoError(t, r.EndTurn(host.ID))
	tick(3)

	leaving := r.State().ActivePlayerID
	require.Contains(t, []string{guest.ID, carl.ID}, leaving)
	next := guest.ID
	if leaving == guest.ID {
		next = carl.ID
	}

	require.NoError(t, rm.Leave(r.Code, leaving))
	st := r.State()
	assert.Equal(t, PhaseTransition, st.Phase)
	assert.Equal(t, next, st.ActivePlayerID)
	assert.Len(t, st.Players, 2)
}
