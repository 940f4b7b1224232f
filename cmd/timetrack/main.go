package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/strainix/timetrack/internal/client"
	"github.com/strainix/timetrack/internal/config"
	"github.com/strainix/timetrack/internal/engine"
	"github.com/strainix/timetrack/internal/localdb"
	"github.com/strainix/timetrack/internal/logging"
	"github.com/strainix/timetrack/internal/models"
	"github.com/strainix/timetrack/internal/store"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "timetrack",
		Short:   "Offline-first time tracker with cross-device sync",
		Version: Version,
	}

	rootCmd.AddCommand(codeCmd())
	rootCmd.AddCommand(useCmd())
	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(stopCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(statusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles the wired client-side components for one CLI invocation.
type app struct {
	cfg      config.ClientConfig
	db       *localdb.DB
	store    *store.Store
	engine   *engine.Engine
	deviceID string
}

func newApp() (*app, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.LogLevel)

	db, err := localdb.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open local database: %w", err)
	}
	deviceID, err := db.DeviceID()
	if err != nil {
		return nil, fmt.Errorf("device id: %w", err)
	}
	st, err := store.New(db)
	if err != nil {
		return nil, fmt.Errorf("load session store: %w", err)
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second}
	cl := client.New(httpClient, cfg.APIURL, deviceID)
	eng, err := engine.New(log, cl, db, engine.Options{
		Interval:       time.Duration(cfg.SyncIntervalSeconds) * time.Second,
		RequestTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		AutoSync:       cfg.AutoSync,
	})
	if err != nil {
		return nil, fmt.Errorf("init sync engine: %w", err)
	}

	// Remote sessions flow into the local store through the merge rule.
	eng.On(engine.EventSessionsReceived, func(payload any) {
		if sessions, ok := payload.([]models.Session); ok {
			if _, err := st.Merge(sessions); err != nil {
				log.Errorf("merge remote sessions: %v", err)
			}
		}
	})
	eng.On(engine.EventOperationDropped, func(payload any) {
		if op, ok := payload.(models.Operation); ok {
			fmt.Fprintf(os.Stderr, "warning: gave up syncing %s for session %s\n", op.Type, op.SessionID)
		}
	})

	return &app{cfg: cfg, db: db, store: st, engine: eng, deviceID: deviceID}, nil
}

func (a *app) close() {
	a.engine.Stop()
	_ = a.db.Close()
}
