package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"

	zlog "github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/mfperdi/parishliturgyplanner/internal/activity"
	"github.com/mfperdi/parishliturgyplanner/internal/approval"
	"github.com/mfperdi/parishliturgyplanner/internal/automation"
	"github.com/mfperdi/parishliturgyplanner/internal/config"
	"github.com/mfperdi/parishliturgyplanner/internal/eventbus"
	"github.com/mfperdi/parishliturgyplanner/internal/handler"
	"github.com/mfperdi/parishliturgyplanner/internal/logging"
	"github.com/mfperdi/parishliturgyplanner/internal/metrics"
	"github.com/mfperdi/parishliturgyplanner/internal/record"
	"github.com/mfperdi/parishliturgyplanner/internal/schema"
	"github.com/mfperdi/parishliturgyplanner/internal/server"
	"github.com/mfperdi/parishliturgyplanner/internal/session"
	"github.com/mfperdi/parishliturgyplanner/internal/workflow"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file (default: planner.yaml if present)")
	flag.Parse()

	path, explicit := *configPath, *configPath != ""
	if !explicit {
		path = "planner.yaml"
	}
	cfg, err := config.Load(path, explicit)
	if err != nil {
		bootLog := logging.New(os.Stderr, "info", false)
		bootLog.Fatal().Err(err).Msg("loading config")
	}

	log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Pretty)
	zlog.Logger = log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, err := loadSchema(cfg.SchemaFile)
	if err != nil {
		log.Fatal().Err(err).Msg("loading entity schema")
	}

	db, err := sql.Open("sqlite", cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("opening database")
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	// The activity log always lives in the local database.
	acts := activity.NewSQLStore(db)
	if err := acts.CreateTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("creating activity table")
	}

	var (
		store   record.Store
		backend approval.Backend
		actions workflow.Actions
	)
	if cfg.Automation.URL != "" {
		client := automation.NewClient(cfg.Automation.URL, automation.ClientOptions{
			Timeout: cfg.Automation.Timeout,
			RPS:     cfg.Automation.RPS,
			Burst:   cfg.Automation.Burst,
		}, log.With().Str("component", "automation").Logger())
		store, backend, actions = client, client, client
		log.Info().Str("url", cfg.Automation.URL).Msg("using remote automation endpoint")
	} else {
		sqlStore := record.NewSQLStore(db)
		if err := sqlStore.CreateTable(ctx); err != nil {
			log.Fatal().Err(err).Msg("creating records table")
		}
		local := automation.NewLocal(sqlStore, reg, log.With().Str("component", "automation").Logger())
		store, backend, actions = sqlStore, local, local
		log.Info().Msg("using local automation over the SQLite store")
	}

	bus := eventbus.New(512, log)
	hub := eventbus.NewHub()
	bus.Subscribe("log", eventbus.NewLogConsumer(log))
	bus.Subscribe("metrics", metrics.NewConsumer())
	bus.Subscribe("activity", activity.NewIndexer(acts))
	bus.Subscribe("websocket", hub)
	bus.OnDrop(metrics.EventDropped)
	bus.Start(ctx)
	defer bus.Stop()

	sessions := session.NewManager(session.Deps{
		Registry:  reg,
		Store:     store,
		Backend:   backend,
		Actions:   actions,
		Publisher: bus,
		Log:       log,
	}, cfg.Sessions.MaxAge, cfg.Sessions.IdleTimeout)
	go func() {
		sessions.Run(ctx, cfg.Sessions.CleanupInterval)
	}()

	if err := server.Run(ctx, server.Config{
		Port:    cfg.Port,
		Handler: handler.New(reg, sessions, acts, hub, log),
		Log:     log,
		Ready:   db.PingContext,
	}); err != nil {
		log.Error().Err(err).Msg("server error")
		stop()
		bus.Stop()
		os.Exit(1)
	}
}

func loadSchema(path string) (*schema.Registry, error) {
	if path != "" {
		return schema.LoadFile(path)
	}
	return schema.Default()
}
