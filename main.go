package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/argus-protocol/argus/internal/api"
	"github.com/argus-protocol/argus/internal/config"
	"github.com/argus-protocol/argus/internal/db"
	"github.com/argus-protocol/argus/internal/engine/pipeline"
	"github.com/argus-protocol/argus/internal/hub"
	"github.com/argus-protocol/argus/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "Listen address")
	dbFile        = flag.String("db", "argus.db", "Path to the sqlite database")
	configPath    = flag.String("config", "", "Path to a tuning config JSON file (defaults apply when omitted)")
	migrationsDir = flag.String("migrations", "migrations", "Path to the schema migrations directory")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	log.Printf("argus %s (commit %s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	// The ARGUS_DEBUG_LOG fallback routes all pipeline streams to one file.
	if path := os.Getenv("ARGUS_DEBUG_LOG"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("failed to open debug log %s: %v", path, err)
		}
		defer f.Close()
		pipeline.SetLegacyLogger(f)
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := hub.New("argus")
	go h.Run()

	pipe := pipeline.New(cfg)
	pipe.AddSink(db.NewRecorder(database))
	pipe.AddSink(h)

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(cfg, pipe, database, h).ServeMux()

		server := &http.Server{
			Addr:    *listen,
			Handler: mux,
		}

		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Println("shutdown complete")
}
