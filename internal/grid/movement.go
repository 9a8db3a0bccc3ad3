package grid

import (
	"container/heap"
	"errors"
)

var (
	ErrUnreachable = errors.New("destination outside reachable tiles")
	ErrOccupied    = errors.New("destination occupied")
)

// Reachable is the result of a budgeted uniform-cost search from one tile.
type Reachable struct {
	Origin  Coord          `json:"origin"`
	Budget  int            `json:"budget"`
	Visited map[Coord]bool `json:"-"`
	Costs   map[Coord]int  `json:"-"`
	Tiles   []Coord        `json:"reachable"`
}

func (r Reachable) Contains(c Coord) bool { return r.Visited[c] }

// Cost returns the cumulative movement cost to reach c.
func (r Reachable) Cost(c Coord) (int, bool) {
	v, ok := r.Costs[c]
	return v, ok
}

type node struct {
	at   Coord
	cost int
	seq  int
}

// frontier orders by cost, then by the order nodes were pushed.
type frontier []node

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].cost != f[j].cost {
		return f[i].cost < f[j].cost
	}
	return f[i].seq < f[j].seq
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)   { *f = append(*f, x.(node)) }
func (f *frontier) Pop() any {
	old := *f
	n := old[len(old)-1]
	*f = old[:len(old)-1]
	return n
}

// FindReachable returns every tile reachable from start spending at most budget.
// blocked tiles (other players) are never entered. With unlimited set the budget
// is ignored.
func FindReachable(m *Map, start Coord, budget int, blocked func(Coord) bool, unlimited bool) Reachable {
	r := Reachable{
		Origin:  start,
		Budget:  budget,
		Visited: map[Coord]bool{},
		Costs:   map[Coord]int{start: 0},
	}
	if !m.InBounds(start) {
		return r
	}
	seq := 0
	pq := &frontier{{at: start, cost: 0, seq: seq}}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(node)
		if r.Visited[cur.at] {
			continue
		}
		r.Visited[cur.at] = true
		r.Tiles = append(r.Tiles, cur.at)
		for _, next := range cur.at.neighbors() {
			if r.Visited[next] {
				continue
			}
			w := m.weight(next)
			if w == Impassable || (blocked != nil && blocked(next)) {
				continue
			}
			cost := cur.cost + w
			if !unlimited && cost > budget {
				continue
			}
			if prev, ok := r.Costs[next]; ok && prev <= cost {
				continue
			}
			r.Costs[next] = cost
			seq++
			heap.Push(pq, node{at: next, cost: cost, seq: seq})
		}
	}
	return r
}

// FindPath searches the cheapest path from start to dest using only tiles in r.
// The returned path includes both endpoints.
func FindPath(m *Map, r Reachable, start, dest Coord, blocked func(Coord) bool) ([]Coord, error) {
	if !r.Contains(dest) {
		return nil, ErrUnreachable
	}
	if dest == start || (blocked != nil && blocked(dest)) {
		return nil, ErrOccupied
	}
	costs := map[Coord]int{start: 0}
	prev := map[Coord]Coord{}
	done := map[Coord]bool{}
	seq := 0
	pq := &frontier{{at: start, seq: seq}}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(node)
		if done[cur.at] {
			continue
		}
		done[cur.at] = true
		if cur.at == dest {
			break
		}
		for _, next := range cur.at.neighbors() {
			if done[next] || !r.Contains(next) {
				continue
			}
			if blocked != nil && blocked(next) {
				continue
			}
			cost := cur.cost + m.weight(next)
			if c, ok := costs[next]; ok && c <= cost {
				continue
			}
			costs[next] = cost
			prev[next] = cur.at
			seq++
			heap.Push(pq, node{at: next, cost: cost, seq: seq})
		}
	}
	if !done[dest] {
		return nil, ErrUnreachable
	}
	path := []Coord{dest}
	for at := dest; at != start; {
		at = prev[at]
		path = append(path, at)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// PathCost sums the weights of every step after the first tile.
func PathCost(m *Map, path []Coord) int {
	total := 0
	for _, c := range path[1:] {
		total += m.weight(c)
	}
	return total
}

// NearestFree walks outward from c in breadth-first order and returns the first
// walkable tile accepted by free.
func NearestFree(m *Map, c Coord, free func(Coord) bool) (Coord, bool) {
	if !m.InBounds(c) {
		return Coord{}, false
	}
	seen := map[Coord]bool{c: true}
	queue := []Coord{c}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if m.Walkable(cur) && free(cur) {
			return cur, true
		}
		for _, next := range cur.neighbors() {
			if seen[next] || !m.InBounds(next) {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
		}
	}
	return Coord{}, false
}
