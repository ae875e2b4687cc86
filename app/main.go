package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"statusboard/app/internal/apiclient"
	"statusboard/app/internal/auth"
	"statusboard/app/internal/board"
	"statusboard/app/internal/chart"
	"statusboard/app/internal/config"
	"statusboard/app/internal/database"
	"statusboard/app/internal/handlers"
	"statusboard/app/internal/models"
	"statusboard/app/internal/monitor"
	"statusboard/app/internal/refresh"
	"statusboard/app/internal/seed"
	"statusboard/app/internal/uptimerobot"
)

// keep the last N persisted log lines
const maxLogRows = 10000

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			log.Printf("Warning: Failed to initialize sentry: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	if err := database.Init(cfg.DBPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	upstream := uptimerobot.NewClient(cfg.APIKey, cfg.UpstreamBaseURL, cfg.CacheTTL())
	upstream.Location = cfg.Location
	defer upstream.Close()

	b := board.New(board.Options{
		Window:    cfg.WindowDays,
		Renderer:  chart.NewRenderer(cfg.Classifier(), cfg.Palette),
		Anonymize: cfg.Anonymize,
		Location:  cfg.Location,
	})

	hub := handlers.NewHub(b)
	b.Subscribe(hub.BroadcastBoard)
	b.Subscribe(monitor.NewTracker().Subscriber(recordTransition))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// until a seed succeeds the board has no cards; the first successful poll seeds it
	seeder := seed.New(upstream, b, seed.Config{
		Window:    cfg.WindowDays,
		Location:  cfg.Location,
		Incidents: database.IncidentValues,
	})
	if err := seeder.Seed(ctx); err != nil {
		log.Printf("Warning: Failed to seed board: %v", err)
	}

	loop := refresh.NewLoop(apiclient.New(cfg.APIBaseURL), seeder, refresh.Config{
		Interval: cfg.PollInterval(),
		OnTick:   hub.BroadcastCountdown,
		OnError: func(err error) {
			_ = database.InsertLog(database.LogLevelError, database.LogCategoryPoll, "", "Poll failed", err.Error())
			_ = database.PruneLogs(maxLogRows)
		},
	})

	pages, err := handlers.NewPages(cfg.Title, cfg.PollSeconds, b, upstream)
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}

	handler := handlers.SetupRoutes(handlers.Deps{
		Source:           upstream,
		Board:            b,
		Hub:              hub,
		Pages:            pages,
		Auth:             auth.NewAuth(cfg.AdminUser, cfg.AdminHash),
		OnIncidentChange: seeder.Rebuild,
		LoopStatus:       loop.Status,
		CORSOrigins:      cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if err := database.InsertLog(database.LogLevelInfo, database.LogCategorySystem, "", "Server started", "port="+cfg.Port); err != nil {
		log.Printf("Warning: Failed to record startup: %v", err)
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	go func() {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Refresh loop stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
}

// recordTransition persists a status change seen on a fetch
func recordTransition(c board.Card, t monitor.Transition) {
	level := database.LogLevelWarn
	if t.To == models.StatusUp {
		level = database.LogLevelInfo
	}
	details := fmt.Sprintf("from=%s to=%s", t.From, t.To)
	if t.Streak > 0 {
		details += fmt.Sprintf(" fetches_not_up=%d", t.Streak)
	}
	log.Printf("Monitor %s (%s) changed status: %s", c.Key, c.Name, details)
	_ = database.InsertLog(level, database.LogCategoryUpstream, c.Key, "Monitor status changed", details)
}
