package main

import (
    "context"
    "errors"
    "flag"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "strings"
    "syscall"
    "time"

    "github.com/gin-gonic/gin"
    "github.com/kiliankoe/gridclash/internal/bot"
    "github.com/kiliankoe/gridclash/internal/catalog"
    "github.com/kiliankoe/gridclash/internal/config"
    "github.com/kiliankoe/gridclash/internal/game"
    "github.com/kiliankoe/gridclash/internal/ws"
    "github.com/rs/zerolog"
    zerologlog "github.com/rs/zerolog/log"
    "golang.org/x/sync/errgroup"
)

const version = "v1.0.0-dev"

func main() {
    var (
        showHelp    = flag.Bool("help", false, "Show help message")
        showVersion = flag.Bool("version", false, "Show version information")
        portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
    )
    flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
    flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
    flag.Parse()

    if *showHelp {
        fmt.Printf(`gridclash - turn-based tactical grid game server

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                     Port to listen on (default: 8080)
  LOG_LEVEL                zerolog level (default: info)
  CATALOG_PATH             SQLite map catalog (default: ./gridclash.db)
  SEED_CATALOG             Add the default maps to an empty catalog (default: true)
  TICK_INTERVAL            Length of one clock tick (default: 1s)
  TURN_DURATION            Ticks per turn (default: 30)
  COMBAT_TURN_DURATION     Ticks per combat exchange (default: 5, 3 once escapes are spent)
  SLIP_CHANCE              Chance to slip on each ice step (default: 0.1)
  ESCAPE_CHANCE            Chance a run succeeds (default: 0.3)
  WINS_TO_VICTORY          Combat wins that end a classic game (default: 3)
  BOT_THINK_TIME           Delay before a virtual player acts (default: 1200ms)
  ACTION_RATE              Game actions per second per socket (default: 10)
  EXPORT_ENABLED           Export game results to file (default: true)
  EXPORT_FILE              Path to export game results (default: ./gridclash-results.txt)

Examples:
  %s                  Start server with default settings
  %s --port 3000      Start server on port 3000
`, os.Args[0], os.Args[0], os.Args[0])
        return
    }

    if *showVersion {
        fmt.Printf("gridclash %s\n", version)
        return
    }

    // zerolog setup (human-friendly console)
    zerolog.TimeFieldFormat = time.RFC3339
    cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
    zerologlog.Logger = zerologlog.Output(cw)

    cfg, err := config.FromEnv()
    if err != nil {
        zerologlog.Fatal().Err(err).Msg("config")
    }
    if *portFlag != "" {
        cfg.Port = *portFlag
    }
    zerolog.SetGlobalLevel(cfg.Level())

    store, err := catalog.Open(cfg.CatalogPath)
    if err != nil {
        zerologlog.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("open catalog")
    }
    defer store.Close()
    if cfg.SeedCatalog {
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        n, err := catalog.Seed(ctx, store)
        cancel()
        if err != nil {
            zerologlog.Fatal().Err(err).Msg("seed catalog")
        }
        if n > 0 {
            zerologlog.Info().Int("maps", n).Msg("catalog seeded")
        }
    }

    // Gin setup with custom logger (skip /socket.io noise)
    gin.SetMode(gin.ReleaseMode)
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(func(c *gin.Context) {
        start := time.Now()
        c.Next()
        path := c.Request.URL.Path
        if strings.HasPrefix(path, "/socket.io") {
            return
        }
        status := c.Writer.Status()
        dur := time.Since(start)
        zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
    })

    // Socket server + room manager
    opts := []game.Option{
        game.WithRules(cfg.Rules()),
        game.WithBots(bot.Factory(cfg.BotThinkTime)),
    }
    if cfg.ExportEnabled {
        file := cfg.ExportFile
        opts = append(opts, game.WithResults(func(res game.GameResult) {
            if err := game.ExportResult(res, file); err != nil {
                zerologlog.Error().Err(err).Str("code", res.Code).Msg("export results")
            }
        }))
    }
    rm := game.NewRoomManager(opts...)

    r.GET("/health", func(c *gin.Context) {
        c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC(), "rooms": rm.Rooms()})
    })

    catalog.Mount(r, store)
    sock := ws.New(rm, store, cfg)
    io := sock.Mount(r)
    defer io.Close()

    srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    eg, ctx := errgroup.WithContext(ctx)
    eg.Go(func() error {
        zerologlog.Info().Str("port", cfg.Port).Msg("listening")
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            return err
        }
        return nil
    })
    eg.Go(func() error {
        <-ctx.Done()
        shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        return srv.Shutdown(shutdown)
    })
    if err := eg.Wait(); err != nil {
        zerologlog.Error().Err(err).Msg("server stopped")
    }
}
