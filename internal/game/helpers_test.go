package game

import (
	"sync"
	"testing"
	"time"

	"github.com/kiliankoe/gridclash/internal/grid"
)

type sent struct {
	Event   string
	Payload any
}

// recorder is an Actor that keeps every event it receives.
type recorder struct {
	mu     sync.Mutex
	events []sent
	closed bool
}

func (r *recorder) Send(event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sent{event, payload})
}

func (r *recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *recorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func (r *recorder) last(event string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Event == event {
			return r.events[i].Payload, true
		}
	}
	return nil, false
}

func (r *recorder) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// scriptedDice replays queued rolls and chances. Once a queue is empty Roll
// returns 1 and Chance returns false. Intn cycles so codes never collide.
type scriptedDice struct {
	mu      sync.Mutex
	rolls   []int
	chances []bool
	faces   []int
	odds    []float64
	n       int
}

func (d *scriptedDice) Roll(faces int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faces = append(d.faces, faces)
	if len(d.rolls) == 0 {
		return 1
	}
	v := d.rolls[0]
	d.rolls = d.rolls[1:]
	return v
}

func (d *scriptedDice) Chance(p float64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.odds = append(d.odds, p)
	if len(d.chances) == 0 {
		return false
	}
	v := d.chances[0]
	d.chances = d.chances[1:]
	return v
}

func (d *scriptedDice) Intn(n int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.n++
	return (d.n - 1) % n
}

// manualTicker never fires; tests advance sessions with tick.
func manualTicker(time.Duration) (<-chan time.Time, func()) {
	return make(chan time.Time), func() {}
}

func testMap(t *testing.T, mode grid.Mode) *grid.Map {
	t.Helper()
	m := grid.NewMap("arena", 10, mode)
	for _, c := range []grid.Coord{{X: 0, Y: 0}, {X: 9, Y: 9}} {
		if _, err := m.AddItem(grid.ItemStartPoint, c, true); err != nil {
			t.Fatalf("add start point: %v", err)
		}
	}
	if mode == grid.ModeCaptureTheFlag {
		if _, err := m.AddItem(grid.ItemFlag, grid.Coord{X: 5, Y: 5}, true); err != nil {
			t.Fatalf("add flag: %v", err)
		}
	}
	return m
}

var (
	hostProfile  = Profile{Name: "Alice", Character: "knight", Bonus: "speed", Dice: DiceAttack}
	guestProfile = Profile{Name: "Bob", Character: "mage", Bonus: "life", Dice: DiceDefense}
)

type fixture struct {
	rm     *RoomManager
	room   *Room
	dice   *scriptedDice
	host   string
	guest  string
	hostA  *recorder
	guestA *recorder
}

func newFixture(t *testing.T, m *grid.Map, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{dice: &scriptedDice{}, hostA: &recorder{}, guestA: &recorder{}}
	opts = append([]Option{WithDice(f.dice), WithTicker(manualTicker)}, opts...)
	f.rm = NewRoomManager(opts...)
	r, host, err := f.rm.CreateRoom(hostProfile, m, f.hostA)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	_, guest, err := f.rm.Join(r.Code, guestProfile, f.guestA)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	f.room, f.host, f.guest = r, host.ID, guest.ID
	t.Cleanup(func() { f.rm.Destroy(r.Code, "test done") })
	return f
}

// started returns a two player game whose first turn (the host, faster) is live.
func started(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := newFixture(t, testMap(t, grid.ModeClassic), opts...)
	if err := f.room.StartGame(f.host); err != nil {
		t.Fatalf("start game: %v", err)
	}
	f.tick(DefaultRules().TransitionDuration)
	if st := f.room.State(); st.Phase != PhaseTurn || st.ActivePlayerID != f.host {
		t.Fatalf("expected host turn, got phase %s active %s", st.Phase, st.ActivePlayerID)
	}
	return f
}

func (f *fixture) tick(n int) {
	for i := 0; i < n; i++ {
		f.room.mu.Lock()
		if f.room.session != nil {
			f.room.session.tick()
		}
		f.room.mu.Unlock()
	}
}

// arrange mutates the live session under the room lock, then refreshes the
// active player's reachable tiles.
func (f *fixture) arrange(fn func(s *Session)) {
	f.room.mu.Lock()
	defer f.room.mu.Unlock()
	fn(f.room.session)
	if f.room.session.phase == PhaseTurn {
		f.room.session.refreshReachable()
	}
}

func (f *fixture) player(t *testing.T, id string) Player {
	t.Helper()
	p, ok := f.room.Player(id)
	if !ok {
		t.Fatalf("player %s not in room", id)
	}
	return p
}

func place(s *Session, id string, c grid.Coord) {
	p, _ := s.room.player(id)
	p.Position = c
}
