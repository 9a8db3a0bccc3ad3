package ws

import (
    "context"
    "errors"
    "net/http"
    "sync"
    "time"

    "github.com/gin-gonic/gin"
    socketio "github.com/googollee/go-socket.io"
    "github.com/kiliankoe/gridclash/internal/catalog"
    "github.com/kiliankoe/gridclash/internal/config"
    "github.com/kiliankoe/gridclash/internal/game"
    "github.com/kiliankoe/gridclash/internal/grid"
    "github.com/rs/zerolog/log"
    "golang.org/x/time/rate"
)

// ConnCtx binds a socket to at most one player seat. Handlers and the relay
// goroutine both touch it, hence the lock.
type ConnCtx struct {
    mu       sync.Mutex
    code     string
    playerID string
    relay    *relay
    limiter  *rate.Limiter
}

func (c *ConnCtx) bind(code, playerID string, r *relay) {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.code, c.playerID, c.relay = code, playerID, r
}

func (c *ConnCtx) seat() (code, playerID string) {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.code, c.playerID
}

// release clears the seat if r still owns it.
func (c *ConnCtx) release(r *relay) {
    c.mu.Lock()
    defer c.mu.Unlock()
    if r == nil || c.relay == r {
        c.code, c.playerID, c.relay = "", "", nil
    }
}

type Server struct {
    RM      *game.RoomManager
    Catalog catalog.Store
    config  config.Config
}

func New(rm *game.RoomManager, st catalog.Store, cfg config.Config) *Server {
    return &Server{RM: rm, Catalog: st, config: cfg}
}

type codePayload struct {
    Code string `json:"accessCode"`
}

type createPayload struct {
    MapID   string       `json:"mapId"`
    Profile game.Profile `json:"player"`
}

type joinPayload struct {
    Code    string       `json:"accessCode"`
    Profile game.Profile `json:"player"`
}

type playerPayload struct {
    PlayerID string `json:"playerId"`
}

type botPayload struct {
    Aggressive bool `json:"isAggressive"`
}

type pathPayload struct {
    Path []grid.Coord `json:"path"`
}

type tilePayload struct {
    Position grid.Coord `json:"position"`
}

type itemPayload struct {
    ItemID int `json:"itemId"`
}

type combatPayload struct {
    TargetID string          `json:"targetId"`
    Move     game.CombatMove `json:"move"`
}

// Mount attaches the Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
    io := socketio.NewServer(nil)

    io.OnConnect("/", func(s socketio.Conn) error {
        s.SetContext(&ConnCtx{limiter: srv.limiter()})
        log.Info().Str("sid", s.ID()).Msg("socket connected")
        return nil
    })

    // lobby
    io.OnEvent("/", "validate-code", func(s socketio.Conn, payload codePayload) map[string]any {
        room, err := srv.RM.ValidateCode(payload.Code)
        if err != nil {
            return srv.reply(s, err)
        }
        st := room.State()
        return map[string]any{"ok": true, "takenCharacters": room.TakenCharacters(), "maxPlayers": st.MaxPlayers, "mode": st.Map.Mode}
    })

    io.OnEvent("/", "create-room", func(s socketio.Conn, payload createPayload) map[string]any {
        ctx := connCtx(s)
        if code, _ := ctx.seat(); code != "" {
            return srv.err(s, "already_in_room", "leave your current room first")
        }
        lookup, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        m, err := srv.Catalog.Get(lookup, payload.MapID)
        if errors.Is(err, catalog.ErrNotFound) {
            return srv.err(s, "map_not_found", "map not found")
        }
        if err != nil {
            return srv.reply(s, err)
        }
        rl := newRelay(s, ctx)
        room, p, err := srv.RM.CreateRoom(payload.Profile, m, rl)
        if err != nil {
            rl.Close()
            return srv.reply(s, err)
        }
        ctx.bind(room.Code, p.ID, rl)
        log.Info().Str("sid", s.ID()).Str("code", room.Code).Str("player", p.ID).Msg("create-room")
        return map[string]any{"ok": true, "accessCode": room.Code, "playerId": p.ID, "name": p.Name}
    })

    io.OnEvent("/", "join-room", func(s socketio.Conn, payload joinPayload) map[string]any {
        ctx := connCtx(s)
        if code, _ := ctx.seat(); code != "" {
            return srv.err(s, "already_in_room", "leave your current room first")
        }
        rl := newRelay(s, ctx)
        room, p, err := srv.RM.Join(payload.Code, payload.Profile, rl)
        if err != nil {
            rl.Close()
            var rej *game.Rejection
            if errors.As(err, &rej) {
                s.Emit("join-failed", rej)
            }
            return srv.reply(s, err)
        }
        ctx.bind(room.Code, p.ID, rl)
        log.Info().Str("sid", s.ID()).Str("code", room.Code).Str("player", p.ID).Msg("join-room")
        return map[string]any{"ok": true, "accessCode": room.Code, "playerId": p.ID, "name": p.Name}
    })

    io.OnEvent("/", "leave-room", func(s socketio.Conn) map[string]any {
        ctx := connCtx(s)
        code, id := ctx.seat()
        if code == "" {
            return srv.reply(s, game.ErrNotInRoom)
        }
        ctx.release(nil)
        return srv.reply(s, srv.RM.Leave(code, id))
    })

    io.OnEvent("/", "remove-player", func(s socketio.Conn, payload playerPayload) map[string]any {
        code, id := connCtx(s).seat()
        return srv.reply(s, srv.RM.RemovePlayer(code, id, payload.PlayerID))
    })

    io.OnEvent("/", "toggle-lock", func(s socketio.Conn) map[string]any {
        code, id := connCtx(s).seat()
        locked, err := srv.RM.ToggleLock(code, id)
        if err != nil {
            return srv.reply(s, err)
        }
        return map[string]any{"ok": true, "isLocked": locked}
    })

    io.OnEvent("/", "add-virtual-player", func(s socketio.Conn, payload botPayload) map[string]any {
        code, id := connCtx(s).seat()
        p, err := srv.RM.AddVirtualPlayer(code, id, payload.Aggressive)
        if err != nil {
            return srv.reply(s, err)
        }
        return map[string]any{"ok": true, "playerId": p.ID, "name": p.Name}
    })

    io.OnEvent("/", "room-state", func(s socketio.Conn) map[string]any {
        room, _, err := srv.seated(s)
        if err != nil {
            return srv.reply(s, err)
        }
        return map[string]any{"ok": true, "state": room.State()}
    })

    // game actions
    srv.action(io, "start-game", (*game.Room).StartGame)
    srv.action(io, "end-turn", (*game.Room).EndTurn)
    srv.action(io, "toggle-debug", (*game.Room).ToggleDebug)
    actionWith(srv, io, "move-player", func(r *game.Room, id string, p pathPayload) error { return r.Move(id, p.Path) })
    actionWith(srv, io, "toggle-door", func(r *game.Room, id string, p tilePayload) error { return r.ToggleDoor(id, p.Position) })
    actionWith(srv, io, "teleport", func(r *game.Room, id string, p tilePayload) error { return r.Teleport(id, p.Position) })
    actionWith(srv, io, "drop-item", func(r *game.Room, id string, p itemPayload) error { return r.DropItem(id, p.ItemID) })
    actionWith(srv, io, "start-combat", func(r *game.Room, id string, p combatPayload) error { return r.StartCombat(id, p.TargetID) })
    actionWith(srv, io, "combat-move", func(r *game.Room, id string, p combatPayload) error { return r.CombatMove(id, p.Move) })

    io.OnError("/", func(s socketio.Conn, e error) {
        log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
    })
    io.OnDisconnect("/", func(s socketio.Conn, reason string) {
        if ctx, ok := s.Context().(*ConnCtx); ok {
            if code, id := ctx.seat(); code != "" {
                ctx.release(nil)
                if err := srv.RM.Leave(code, id); err != nil {
                    log.Debug().Err(err).Str("code", code).Str("player", id).Msg("leave on disconnect")
                }
            }
        }
        log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
    })

    go io.Serve()

    // Mount to router
    r.GET("/socket.io/*any", gin.WrapH(io))
    r.POST("/socket.io/*any", gin.WrapH(io))

    // Basic CORS preflight for Socket.IO POST
    r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
        c.Header("Access-Control-Allow-Origin", "*")
        c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
        c.Header("Access-Control-Allow-Headers", "Content-Type")
        c.Status(http.StatusNoContent)
    })

    return io
}

// action registers a payload-less, rate limited room action.
func (srv *Server) action(io *socketio.Server, event string, fn func(*game.Room, string) error) {
    io.OnEvent("/", event, func(s socketio.Conn) map[string]any {
        return srv.dispatch(s, event, fn)
    })
}

// actionWith registers a rate limited room action carrying a payload of type T.
func actionWith[T any](srv *Server, io *socketio.Server, event string, fn func(*game.Room, string, T) error) {
    io.OnEvent("/", event, func(s socketio.Conn, payload T) map[string]any {
        return srv.dispatch(s, event, func(r *game.Room, id string) error { return fn(r, id, payload) })
    })
}

func (srv *Server) dispatch(s socketio.Conn, event string, fn func(*game.Room, string) error) map[string]any {
    room, id, err := srv.seated(s)
    if err != nil {
        return srv.reply(s, err)
    }
    if !connCtx(s).limiter.Allow() {
        return srv.err(s, "rate_limited", "too many requests")
    }
    if err := fn(room, id); err != nil {
        log.Debug().Str("sid", s.ID()).Str("code", room.Code).Str("player", id).Str("event", event).Err(err).Msg("rejected")
        return srv.reply(s, err)
    }
    return srv.reply(s, nil)
}

func (srv *Server) seated(s socketio.Conn) (*game.Room, string, error) {
    code, id := connCtx(s).seat()
    if code == "" {
        return nil, "", game.ErrNotInRoom
    }
    room, err := srv.RM.Get(code)
    if err != nil {
        return nil, "", err
    }
    return room, id, nil
}

func (srv *Server) limiter() *rate.Limiter {
    if srv.config.ActionRate <= 0 {
        return rate.NewLimiter(rate.Inf, 0)
    }
    return rate.NewLimiter(rate.Limit(srv.config.ActionRate), srv.config.ActionBurst)
}

func connCtx(s socketio.Conn) *ConnCtx {
    if ctx, ok := s.Context().(*ConnCtx); ok {
        return ctx
    }
    ctx := &ConnCtx{limiter: rate.NewLimiter(rate.Inf, 0)}
    s.SetContext(ctx)
    return ctx
}

// reply turns a room result into an ack, emitting "error" on rejection.
func (srv *Server) reply(s socketio.Conn, err error) map[string]any {
    if err == nil {
        return map[string]any{"ok": true}
    }
    var rej *game.Rejection
    if errors.As(err, &rej) {
        return srv.err(s, rej.Reason, rej.Message)
    }
    if errors.Is(err, grid.ErrInvalidMap) {
        return srv.err(s, "invalid_map", err.Error())
    }
    log.Error().Str("sid", s.ID()).Err(err).Msg("request failed")
    return srv.err(s, "internal", "internal error")
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
    s.Emit("error", map[string]any{"code": code, "message": message})
    return map[string]any{"error": message, "reason": code}
}
