package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"droproom/internal/db"
	"droproom/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("service=backend msg=%q", "no .env file, using environment")
	}

	addr := getenvDefault("DR_ADDR", ":8080")

	build := server.BuildInfo{
		Version: getenvDefault("DR_VERSION", "dev"),
		Commit:  getenvDefault("DR_COMMIT", "unknown"),
	}

	session := server.SessionConfig{
		Secret:     os.Getenv("DR_SESSION_SECRET"),
		CookieName: "dr_room",
	}

	// Safety: refuse to start if the signing secret is missing.
	if session.Secret == "" {
		log.Printf("service=backend msg=%q", "missing DR_SESSION_SECRET")
		os.Exit(1)
	}

	roomTTL := getenvDuration("DR_ROOM_TTL", 30*time.Minute)
	sweepInterval := getenvDuration("DR_SWEEP_INTERVAL", 60*time.Second)

	// Blob store: MinIO in production, in-memory for local development.
	var store server.BlobStore
	switch getenvDefault("DR_STORE", "minio") {
	case "memory":
		log.Printf("service=backend msg=%q", "using in-memory blob store")
		store = server.NewMemStore()
	default:
		var err error
		store, err = server.NewMinioStore()
		if err != nil {
			log.Printf("service=backend msg=%q err=%v", "minio_setup_failed", err)
			os.Exit(1)
		}
	}

	// Audit trail is optional: no DATABASE_URL means no audit, not a failure.
	var audit *server.AuditLog
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		log.Printf("service=backend msg=%q", "running_migrations")
		if err := db.RunMigrations(dsn); err != nil {
			log.Printf("service=backend msg=%q err=%v", "migration_failed", err)
			os.Exit(1)
		}
		dbConn, err := db.Open(dsn)
		if err != nil {
			log.Printf("service=backend msg=%q err=%v", "db_connect_failed", err)
			os.Exit(1)
		}
		defer func() { _ = dbConn.Close() }()
		audit = server.NewAuditLog(dbConn)
		log.Printf("service=backend msg=%q", "audit_trail_enabled")
	}

	registry := server.NewRegistry(store)
	service := server.NewRoomService(registry, store, roomTTL)

	// The sweeper gets its own cancellation so shutdown can stop it cleanly.
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go server.StartSweeper(sweepCtx, server.SweeperConfig{
		Interval: sweepInterval,
		Registry: registry,
		Store:    store,
		Audit:    audit,
	})

	srv := server.New(server.Config{
		Addr:     addr,
		Build:    build,
		Session:  session,
		Service:  service,
		Registry: registry,
		Store:    store,
		Audit:    audit,
	})

	// Start the HTTP server in a background goroutine so we can listen for
	// OS signals while it runs.
	errCh := make(chan error, 1)
	go func() {
		log.Printf("service=backend msg=%q addr=%s version=%s commit=%s room_ttl=%s sweep_interval=%s",
			"starting", addr, build.Version, build.Commit, roomTTL, sweepInterval)
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("service=backend msg=%q signal=%s", "shutting_down", sig.String())
		stopSweeper()
		// Give the server 5 seconds to finish in-flight requests.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("service=backend msg=%q err=%v", "shutdown_error", err)
			os.Exit(1)
		}
		log.Printf("service=backend msg=%q", "shutdown_complete")
	case err := <-errCh:
		if err != nil {
			log.Printf("service=backend msg=%q err=%v", "server_error", err)
			os.Exit(1)
		}
	}
}

// getenvDefault reads an environment variable and returns a default value if not set.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// getenvDuration reads a duration-valued environment variable, falling back
// to the default on absence or parse failure.
func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("service=backend msg=%q key=%s value=%q", "invalid_duration_using_default", key, v)
		return def
	}
	return d
}
