package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/strainix/timetrack/internal/config"
	"github.com/strainix/timetrack/internal/handlers"
	httpapi "github.com/strainix/timetrack/internal/http"
	"github.com/strainix/timetrack/internal/logging"
	"github.com/strainix/timetrack/internal/repos"
	"github.com/strainix/timetrack/internal/services"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	db, err := sql.Open("sqlite", cfg.DatabaseURL)
	if err != nil {
		log.Errorf("open database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := runMigrations(db, cfg.MigrationsDir); err != nil {
		log.Errorf("migrations: %v", err)
		os.Exit(1)
	}

	repo := repos.NewSessionRepo(db)
	svc := services.NewSessionService(repo)
	h := handlers.NewSessionHandler(svc)
	r := httpapi.NewRouter(log, h)

	addr := ":" + cfg.Port
	log.Infof("timetrackd listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Errorf("server: %v", err)
		os.Exit(1)
	}
}

func runMigrations(db *sql.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := db.Exec(string(b)); err != nil {
			return fmt.Errorf("apply migration %s: %w", f, err)
		}
	}
	return nil
}
