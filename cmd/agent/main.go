package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"timerhub/internal/broadcast"
	"timerhub/internal/client"
	"timerhub/internal/config"
	"timerhub/internal/db"
	"timerhub/internal/logging"
	"timerhub/internal/store"
)

// The agent is the device half: it keeps the local mirror open, binds a
// user so server pushes trigger refreshes, and drains pending uploads
// before exiting.

var mainRunner = realMain
var exitFn = os.Exit

func main() {
	exitFn(mainRunner())
}

func realMain() int {
	cfg := config.Load()
	log := logging.New(os.Stderr, cfg.LogLevel)

	local, err := db.OpenLocal(cfg.LocalDBPath)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.LocalDBPath).Msg("open local database failed")
		return 1
	}
	defer local.Close()

	var syncer store.Syncer
	if cfg.SyncBaseURL != "" && cfg.SyncToken != "" {
		syncer = client.New(cfg.SyncBaseURL, cfg.SyncToken, log)
	}

	st := store.NewLocal(local, broadcast.NewHub(), syncer, log)

	ctx := context.Background()
	if cfg.SyncUserID != "" && syncer != nil {
		if err := st.SetUserID(ctx, cfg.SyncUserID); err != nil {
			log.Warn().Err(err).Msg("user bind failed, continuing offline")
		}
		if err := st.SyncFromServer(ctx, cfg.SyncUserID); err != nil {
			log.Warn().Err(err).Msg("initial pull failed, continuing offline")
		}
	}

	log.Info().Str("db", cfg.LocalDBPath).Msg("agent running")

	signals := make(chan os.Signal, 1)
	notifyFn(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	st.ClearSync()
	if err := st.SyncToServer(ctx); err != nil {
		log.Warn().Err(err).Msg("final flush failed")
	}
	return 0
}

var notifyFn = signal.Notify
