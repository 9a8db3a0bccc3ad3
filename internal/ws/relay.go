package ws

import (
    "sync"

    socketio "github.com/googollee/go-socket.io"
    "github.com/rs/zerolog/log"
)

const relayBuffer = 128

type envelope struct {
    event   string
    payload any
}

// relay is the room actor for a human socket. The room calls Send under its
// lock, so events are queued and emitted from a separate goroutine.
type relay struct {
    conn socketio.Conn
    ctx  *ConnCtx

    mu     sync.Mutex
    closed bool
    out    chan envelope
    done   chan struct{}
}

func newRelay(conn socketio.Conn, ctx *ConnCtx) *relay {
    r := &relay{conn: conn, ctx: ctx, out: make(chan envelope, relayBuffer), done: make(chan struct{})}
    go r.pump()
    return r
}

func (r *relay) Send(event string, payload any) {
    r.mu.Lock()
    defer r.mu.Unlock()
    if r.closed {
        return
    }
    select {
    case r.out <- envelope{event, payload}:
    default:
        // the next room-state snapshot heals the gap
        log.Warn().Str("sid", r.conn.ID()).Str("event", event).Msg("relay full, event dropped")
    }
}

// Close stops accepting events; queued ones are still delivered.
func (r *relay) Close() {
    r.mu.Lock()
    defer r.mu.Unlock()
    if !r.closed {
        r.closed = true
        close(r.out)
    }
}

func (r *relay) pump() {
    defer close(r.done)
    for e := range r.out {
        r.conn.Emit(e.event, e.payload)
    }
    if r.ctx != nil {
        r.ctx.release(r)
    }
}
