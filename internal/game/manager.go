package game

import (
    "fmt"
    "regexp"
    "strconv"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/kiliankoe/gridclash/internal/grid"
    "github.com/rs/zerolog/log"
)

var codePattern = regexp.MustCompile(`^[0-9]{4}$`)

const (
    minCode   = 1000
    maxCode   = 9999
    codeDraws = 32
)

// BotFactory builds the actor that drives a virtual player. It must return
// without touching the room lock.
type BotFactory func(room *Room, playerID string, aggressive bool) Actor

type RoomManager struct {
    mu      sync.RWMutex
    rooms   map[string]*Room
    rules   Rules
    dice    Dice
    ticker  TickerFunc
    bots    BotFactory
    win     WinCondition
    results func(GameResult)
}

type Option func(*RoomManager)

func WithRules(r Rules) Option           { return func(rm *RoomManager) { rm.rules = r } }
func WithDice(d Dice) Option             { return func(rm *RoomManager) { rm.dice = d } }
func WithTicker(t TickerFunc) Option     { return func(rm *RoomManager) { rm.ticker = t } }
func WithBots(f BotFactory) Option       { return func(rm *RoomManager) { rm.bots = f } }
func WithWinCondition(w WinCondition) Option { return func(rm *RoomManager) { rm.win = w } }

// WithResults registers a callback receiving every finished game.
func WithResults(fn func(GameResult)) Option { return func(rm *RoomManager) { rm.results = fn } }

func NewRoomManager(opts ...Option) *RoomManager {
    rm := &RoomManager{
        rooms:  make(map[string]*Room),
        rules:  DefaultRules(),
        dice:   RandomDice(),
        ticker: realTicker,
    }
    for _, o := range opts {
        o(rm)
    }
    return rm
}

// ValidCode reports whether code has the access code shape.
func ValidCode(code string) bool { return codePattern.MatchString(code) }

// newCode draws a free access code. After codeDraws collisions it scans the
// code range from a random offset. Callers hold rm.mu.
func (rm *RoomManager) newCode() (string, error) {
    span := maxCode - minCode + 1
    if len(rm.rooms) >= span {
        return "", ErrNoCodeLeft
    }
    for n := 0; n < codeDraws; n++ {
        if code := strconv.Itoa(minCode + rm.dice.Intn(span)); rm.rooms[code] == nil {
            return code, nil
        }
    }
    start := rm.dice.Intn(span)
    for i := 0; i < span; i++ {
        if code := strconv.Itoa(minCode + (start+i)%span); rm.rooms[code] == nil {
            return code, nil
        }
    }
    return "", ErrNoCodeLeft
}

func newPlayer(p Profile, host bool) (*Player, error) {
    attrs, err := p.Attributes()
    if err != nil {
        return nil, err
    }
    return &Player{
        ID:         uuid.NewString(),
        Name:       p.Name,
        Character:  p.Character,
        IsHost:     host,
        Attributes: attrs,
        Inventory:  []*grid.Item{},
        JoinedAt:   time.Now().UTC(),
    }, nil
}

// CreateRoom opens a room on m with the caller as its host.
func (rm *RoomManager) CreateRoom(host Profile, m *grid.Map, actor Actor) (*Room, *Player, error) {
    host, err := host.normalized()
    if err != nil {
        return nil, nil, err
    }
    if m == nil {
        return nil, nil, fmt.Errorf("create room: %w", grid.ErrInvalidMap)
    }
    if err := m.Validate(); err != nil {
        return nil, nil, fmt.Errorf("create room: %w", err)
    }
    p, err := newPlayer(host, true)
    if err != nil {
        return nil, nil, err
    }

    rm.mu.Lock()
    defer rm.mu.Unlock()
    code, err := rm.newCode()
    if err != nil {
        log.Warn().Int("rooms", len(rm.rooms)).Msg("no access code left")
        return nil, nil, err
    }
    r := &Room{
        Code:       code,
        CreatedAt:  time.Now().UTC(),
        Players:    []*Player{p},
        MaxPlayers: grid.MaxPlayers(m.Size),
        Map:        m.Clone(),
        actors:     map[string]Actor{},
        rules:      rm.rules,
        dice:       rm.dice,
        ticker:     rm.ticker,
        win:        rm.win,
        onOver:     rm.results,
    }
    if actor != nil {
        r.actors[p.ID] = actor
    }
    rm.rooms[r.Code] = r
    log.Info().Str("code", r.Code).Str("player", p.ID).Str("map", m.Name).Msg("room created")
    return r, p, nil
}

func (rm *RoomManager) Get(code string) (*Room, error) {
    if !ValidCode(code) {
        return nil, ErrMalformedCode
    }
    rm.mu.RLock()
    defer rm.mu.RUnlock()
    r := rm.rooms[code]
    if r == nil {
        return nil, ErrRoomNotFound
    }
    return r, nil
}

func (rm *RoomManager) Rooms() int {
    rm.mu.RLock()
    defer rm.mu.RUnlock()
    return len(rm.rooms)
}

func (rm *RoomManager) forget(code string) {
    rm.mu.Lock()
    defer rm.mu.Unlock()
    delete(rm.rooms, code)
}

func (r *Room) admissible() error {
    switch {
    case r.destroyed:
        return ErrRoomNotFound
    case r.session != nil:
        return ErrGameStarted
    case r.IsLocked:
        return ErrRoomLocked
    case len(r.Players) >= r.MaxPlayers:
        return ErrRoomFull
    }
    return nil
}

// ValidateCode checks that a room accepts new players without joining it.
func (rm *RoomManager) ValidateCode(code string) (*Room, error) {
    r, err := rm.Get(code)
    if err != nil {
        return nil, err
    }
    r.mu.Lock()
    defer r.mu.Unlock()
    if err := r.admissible(); err != nil {
        return nil, err
    }
    return r, nil
}

func (r *Room) uniqueName(name string) string {
    taken := map[string]bool{}
    for _, p := range r.Players {
        taken[p.Name] = true
    }
    if !taken[name] {
        return name
    }
    for i := 2; ; i++ {
        n := fmt.Sprintf("%s-%d", name, i)
        if !taken[n] {
            return n
        }
    }
}

func (r *Room) characterTaken(id string) bool {
    for _, p := range r.Players {
        if p.Character == id {
            return true
        }
    }
    return false
}

// join adds p under the room lock. The room locks itself once it is full.
func (r *Room) join(p *Player, actor Actor) error {
    if err := r.admissible(); err != nil {
        return err
    }
    if r.characterTaken(p.Character) {
        return ErrCharacterTaken
    }
    p.Name = r.uniqueName(p.Name)
    r.Players = append(r.Players, p)
    if actor != nil {
        r.actors[p.ID] = actor
    }
    if len(r.Players) >= r.MaxPlayers {
        r.IsLocked = true
        r.broadcast(EvRoomLockToggled, map[string]any{"isLocked": true})
    }
    r.broadcastRoster()
    return nil
}

// Join adds a human player to the room behind code.
func (rm *RoomManager) Join(code string, profile Profile, actor Actor) (*Room, *Player, error) {
    r, err := rm.Get(code)
    if err != nil {
        return nil, nil, err
    }
    profile, err = profile.normalized()
    if err != nil {
        return nil, nil, err
    }
    p, err := newPlayer(profile, false)
    if err != nil {
        return nil, nil, err
    }
    r.mu.Lock()
    defer r.mu.Unlock()
    if err := r.join(p, actor); err != nil {
        return nil, nil, err
    }
    log.Info().Str("code", code).Str("player", p.ID).Str("name", p.Name).Msg("player joined")
    return r, p, nil
}

// AddVirtualPlayer inserts a bot through the same join path as a human. Host only.
func (rm *RoomManager) AddVirtualPlayer(code, hostID string, aggressive bool) (*Player, error) {
    r, err := rm.Get(code)
    if err != nil {
        return nil, err
    }
    r.mu.Lock()
    defer r.mu.Unlock()
    if !r.isHost(hostID) {
        return nil, ErrNotHost
    }
    if err := r.admissible(); err != nil {
        return nil, err
    }
    var free []string
    for _, c := range Characters {
        if !r.characterTaken(c) {
            free = append(free, c)
        }
    }
    if len(free) == 0 {
        return nil, ErrNoCharacterLeft
    }
    profile := Profile{
        Name:      botNames[rm.dice.Intn(len(botNames))],
        Character: free[rm.dice.Intn(len(free))],
        Bonus:     []string{"life", "speed"}[rm.dice.Intn(2)],
        Dice:      []DiceChoice{DiceAttack, DiceDefense}[rm.dice.Intn(2)],
    }
    p, err := newPlayer(profile, false)
    if err != nil {
        return nil, err
    }
    p.IsVirtual = true
    p.IsAggressive = aggressive
    var actor Actor
    if rm.bots != nil {
        actor = rm.bots(r, p.ID, aggressive)
    }
    if err := r.join(p, actor); err != nil {
        if actor != nil {
            closeActor(actor)
        }
        return nil, err
    }
    log.Info().Str("code", code).Str("player", p.ID).Bool("aggressive", aggressive).Msg("virtual player added")
    return p, nil
}

// remove takes the player out of the roster and runs the forfeiture path when a
// game is running. It reports whether the room should be destroyed.
func (r *Room) remove(id, reason string) (destroy bool) {
    p, idx := r.player(id)
    if p == nil {
        return false
    }
    if p.IsHost {
        r.teardown(reason)
        return true
    }
    r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
    if a := r.actors[id]; a != nil {
        closeActor(a)
        delete(r.actors, id)
    }
    if r.session != nil {
        r.session.departed(p, idx)
    }
    if r.humans() == 0 || (r.session != nil && r.session.ended()) {
        r.teardown("no players left")
        return true
    }
    r.broadcastRoster()
    return false
}

// Leave removes a player. The host leaving ends the room for everyone.
func (rm *RoomManager) Leave(code, playerID string) error {
    r, err := rm.Get(code)
    if err != nil {
        return err
    }
    r.mu.Lock()
    p, _ := r.player(playerID)
    if p == nil {
        r.mu.Unlock()
        return ErrNotInRoom
    }
    reason := "host left"
    if !p.IsHost {
        reason = "player left"
    }
    destroy := r.remove(playerID, reason)
    r.mu.Unlock()
    log.Info().Str("code", code).Str("player", playerID).Bool("destroyed", destroy).Msg("player left")
    if destroy {
        rm.forget(code)
    }
    return nil
}

// RemovePlayer evicts target. Requests from anyone but the host are ignored.
func (rm *RoomManager) RemovePlayer(code, hostID, targetID string) error {
    r, err := rm.Get(code)
    if err != nil {
        return err
    }
    r.mu.Lock()
    if !r.isHost(hostID) || hostID == targetID {
        r.mu.Unlock()
        return nil
    }
    r.sendTo(targetID, EvKicked, map[string]any{"accessCode": code})
    destroy := r.remove(targetID, "player removed")
    r.mu.Unlock()
    if destroy {
        rm.forget(code)
    }
    return nil
}

// ToggleLock flips the lock. Host only, lobby only; a full room stays locked.
func (rm *RoomManager) ToggleLock(code, hostID string) (bool, error) {
    r, err := rm.Get(code)
    if err != nil {
        return false, err
    }
    r.mu.Lock()
    defer r.mu.Unlock()
    if !r.isHost(hostID) {
        return r.IsLocked, ErrNotHost
    }
    if r.session != nil {
        return r.IsLocked, ErrGameStarted
    }
    if r.IsLocked && len(r.Players) >= r.MaxPlayers {
        return true, ErrRoomFullLocked
    }
    r.IsLocked = !r.IsLocked
    r.broadcast(EvRoomLockToggled, map[string]any{"isLocked": r.IsLocked})
    r.syncState()
    return r.IsLocked, nil
}

// Destroy tears the room down regardless of state.
func (rm *RoomManager) Destroy(code, reason string) {
    r, err := rm.Get(code)
    if err != nil {
        return
    }
    r.mu.Lock()
    r.teardown(reason)
    r.mu.Unlock()
    rm.forget(code)
}
