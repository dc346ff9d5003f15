// skyconv Web Server
// Serves the coordinate conversion REST API and the drift WebSocket
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/unklstewy/skyconv/internal/api"
	"github.com/unklstewy/skyconv/internal/db"
	"github.com/unklstewy/skyconv/pkg/config"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file")
	port       = flag.String("port", "", "HTTP server port (overrides config)")
)

// healthInterval is how often the site database is checked.
const healthInterval = 30 * time.Second

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	log.Println("🚀 Starting skyconv Web Server...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	log.Println("✓ Server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	var (
		database *db.DB
		sites    api.SiteStore
	)
	if cfg.Database.Enabled {
		var err error
		database, err = db.ReconnectWithRetry(ctx, cfg.Database, 5, 2*time.Second)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()

		if err := database.InitSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		sites = db.NewSiteRepository(database)
	} else {
		log.Println("Site registry disabled; using the configured observer")
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewServer(cfg, sites),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		// Drift streams outlive Shutdown once hijacked, so they watch ctx.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("📡 Server listening on %s", httpServer.Addr)
		var err error
		if cfg.Server.TLSEnabled {
			err = httpServer.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("🛑 Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	})

	if database != nil {
		g.Go(func() error {
			monitorDatabase(gctx, database)
			return nil
		})
	}

	return g.Wait()
}

// monitorDatabase logs when the site database becomes unhealthy or recovers.
func monitorDatabase(ctx context.Context, database *db.DB) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok := db.HealthCheck(ctx, database)
			if ok == healthy {
				continue
			}
			healthy = ok
			if !ok {
				log.Println("⚠️  Database unhealthy; site lookups will fail until it recovers")
				continue
			}
			log.Println("✓ Database healthy again")
			if stats, err := database.GetStats(ctx); err == nil {
				log.Printf("Database stats: %v", stats)
			}
		}
	}
}
