/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the booking engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize SQLite store
  3. Load refund schedule and engine config (optional JSON files)
  4. Connect the Kafka notifier (optional)
  5. Create API handler and router
  6. Register the nightly completion sweep
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (default: 8080)
  -db        SQLite database path (default: booking.db)
             Use ":memory:" for in-memory database
  -env       Path to a .env file (default: .env, ignored when absent)
  -refunds   Path to a refund schedule JSON file (default tiers when empty)
  -config    Path to an engine config JSON file (defaults when empty)

ENVIRONMENT:
  KAFKA_BROKERS   Comma-separated broker list; notifier disabled if empty
  KAFKA_TOPIC     Cancellation topic (default booking.cancellations)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler, close the notifier and the database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/booking.db"

  # Run with custom refund tiers
  ./server -refunds="./config/refunds.json"

SEE ALSO:
  - api/server.go: Router configuration
  - jobs/cron.go: Completion sweep schedule
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/booking-engine/api"
	"github.com/warp/booking-engine/broker/kafka"
	"github.com/warp/booking-engine/factory"
	"github.com/warp/booking-engine/inventory"
	"github.com/warp/booking-engine/jobs"
	"github.com/warp/booking-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "booking.db", "SQLite database path")
	envPath := flag.String("env", ".env", "path to .env file")
	refundsPath := flag.String("refunds", "", "refund schedule JSON file")
	configPath := flag.String("config", "", "engine config JSON file")
	flag.Parse()

	// Missing .env is fine; flags and real env still apply.
	if err := godotenv.Load(*envPath); err == nil {
		log.Printf("Loaded environment from %s", *envPath)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	f := factory.New()
	cfg := loadConfig(f, *configPath)
	schedule := loadSchedule(f, *refundsPath)

	// Notifier: Kafka when brokers are configured, process log otherwise.
	var notifier inventory.Notifier = inventory.LogNotifier{}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kn, err := kafka.NewNotifier(strings.Split(brokers, ","), os.Getenv("KAFKA_TOPIC"), nil)
		if err != nil {
			log.Fatalf("Failed to connect Kafka notifier: %v", err)
		}
		defer kn.Close()
		notifier = kn
		log.Printf("Kafka notifier connected: %s", brokers)
	}

	// Initialize handler and router
	handler := api.NewHandler(store, cfg, schedule, notifier)
	router := api.NewRouter(handler)

	// Nightly completion sweep
	scheduler, err := jobs.NewScheduler(handler.Bookings)
	if err != nil {
		log.Fatalf("Failed to register scheduler: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	scheduler.RunNow() // Catch up on demand that elapsed while the server was down

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func loadConfig(f *factory.Factory, path string) inventory.Config {
	if path == "" {
		return inventory.DefaultConfig()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}
	cfg, err := f.ParseConfig(string(raw))
	if err != nil {
		log.Fatalf("Invalid config file: %v", err)
	}
	return cfg
}

func loadSchedule(f *factory.Factory, path string) inventory.RefundSchedule {
	if path == "" {
		return inventory.DefaultRefundSchedule()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read refund schedule: %v", err)
	}
	sched, err := f.ParseRefundSchedule(string(raw))
	if err != nil {
		log.Fatalf("Invalid refund schedule: %v", err)
	}
	return sched
}
