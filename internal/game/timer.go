package game

import "time"

// GameTimer is a count-up or count-down clock advanced by the room loop. It
// owns no goroutine; the room calls Tick once per TickSpeed.
type GameTimer struct {
	Count     int           `json:"count"`
	TickSpeed time.Duration `json:"tickSpeed"`
	Increment int           `json:"increment"`
	MaxCount  int           `json:"maxCount,omitempty"`

	running bool
}

func NewCountdown(tickSpeed time.Duration) *GameTimer {
	return &GameTimer{TickSpeed: tickSpeed, Increment: -1}
}

func NewCountup(tickSpeed time.Duration, maxCount int) *GameTimer {
	return &GameTimer{TickSpeed: tickSpeed, Increment: 1, MaxCount: maxCount}
}

// Start resets the count and runs the timer. Starting a running timer restarts it.
func (t *GameTimer) Start(count int) {
	t.Count = count
	t.running = true
}

// Stop halts the timer. Stopping a stopped timer does nothing.
func (t *GameTimer) Stop() { t.running = false }

// Pause keeps the current count so Resume continues from it.
func (t *GameTimer) Pause() { t.running = false }

func (t *GameTimer) Resume() { t.running = true }

func (t *GameTimer) Running() bool { return t.running }

// Tick advances the count by one step. done is true exactly once, on the tick
// that reaches zero (countdown) or MaxCount (count-up); the timer stops itself.
func (t *GameTimer) Tick() (count int, done bool) {
	if !t.running {
		return t.Count, false
	}
	t.Count += t.Increment
	switch {
	case t.Increment < 0 && t.Count <= 0:
		t.Count = 0
		done = true
	case t.Increment > 0 && t.MaxCount > 0 && t.Count >= t.MaxCount:
		t.Count = t.MaxCount
		done = true
	}
	if done {
		t.running = false
	}
	return t.Count, done
}

// TickerFunc returns a tick channel firing every d and a func that stops it.
// Tests substitute a channel they drive by hand.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}
