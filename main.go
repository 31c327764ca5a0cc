package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"streamvault/api"
	"streamvault/config"
	"streamvault/handlers"
	"streamvault/internal/bulkload"
	"streamvault/internal/database"
	"streamvault/services/evasion"
	"streamvault/services/fetch"
	"streamvault/services/normalize"
	"streamvault/services/scheduler"
	"streamvault/services/scraper"
	"streamvault/services/sources"
	"streamvault/services/streaminfo"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	bulkDir := flag.String("bulk-load", "", "import batch files from this directory and exit")
	flag.Parse()

	fmt.Println("streamvault starting...")

	configPath := os.Getenv("STREAMVAULT_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			log.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	db, err := database.Open(settings.Database.Path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	normalizer := normalize.New()

	// One-shot bulk import mode
	if *bulkDir != "" {
		loader := bulkload.NewLoader(afero.NewOsFs(), db, normalizer)
		summary, err := loader.Load(context.Background(), *bulkDir)
		if err != nil {
			log.Fatalf("bulk load failed: %v", err)
		}
		fmt.Printf("Bulk load done: %d files, %d imported, %d skipped, %d failed\n",
			summary.Files, summary.Imported, summary.Skipped, summary.Failed)
		return
	}

	// Fetch paths: local always, relay and browser when configured
	local := fetch.NewExecutor(nil)
	var relay *fetch.RelayClient
	if settings.Relay.URL != "" {
		relayClient := &http.Client{Timeout: time.Duration(settings.Relay.TimeoutSeconds) * time.Second}
		relay = fetch.NewRelayClient(settings.Relay.URL, settings.Relay.Token, relayClient)
		fmt.Printf("Relay fetch path enabled: %s\n", settings.Relay.URL)
	}
	var browser fetch.Fetcher
	if settings.Browser.Enabled {
		browser = fetch.NewBrowserFetcher(settings.Browser.ChromePath, settings.Browser.Headless, settings.Browser.UserAgent)
		fmt.Println("Headless browser fetch path enabled")
	}
	dispatcher := fetch.NewDispatcher(local, relay, browser)

	registry := sources.NewRegistry(settings.Sources)

	scraperService := scraper.NewService(
		registry,
		dispatcher,
		normalizer,
		db,
		evasion.HumanDelay{},
		afero.NewOsFs(),
		settings.Scraper,
	)

	streamService := streaminfo.NewService(db, registry, dispatcher, settings.Streaming, settings.Images)

	schedulerService := scheduler.NewService(cfgManager, scraperService)
	if settings.ScheduledTasks.Enabled {
		if err := schedulerService.Start(context.Background()); err != nil {
			log.Printf("scheduler start: %v", err)
		}
	}

	r := mux.NewRouter()
	api.Register(r, api.Handlers{
		Scrape: handlers.NewScrapeHandler(scraperService, db),
		Stream: handlers.NewStreamHandler(streamService),
		Image:  handlers.NewImageHandler(streamService, settings.Images),
		Health: handlers.NewHealthHandler(db),
	})

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := schedulerService.Stop(shutdownCtx); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
}
