/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the lending engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Wire the loan engine and seed the default plan
  4. Configure HTTP router and background sweep scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port            HTTP server port (default: 8080)
  -db              SQLite database path (default: loans.db)
                   Use ":memory:" for in-memory database
  -sweep-interval  How often the background sweeps run (default: 1h)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the sweep scheduler (waits for an in-flight pass)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/loans.db"

  # Run with in-memory database, sweeps every minute
  ./server -db=":memory:" -sweep-interval=1m

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Background sweeps
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
	"syscall"
	"time"

	"github.com/warp/lending-engine/api"
	"github.com/warp/lending-engine/loan"
	"github.com/warp/lending-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "loans.db", "SQLite database path")
	sweepInterval := flag.Duration("sweep-interval", 1*time.Hour, "background sweep interval")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire the engine
	engine := loan.NewEngine(store, nil, nil)

	// Seed the default plan so operators can set up loans immediately
	if err := seedDefaultPlan(context.Background(), store); err != nil {
		log.Printf("Warning: Failed to seed default plan: %v", err)
	}

	// Initialize handler and router
	handler := api.NewHandler(engine)
	router := api.NewRouter(handler)

	// Background sweeps
	scheduler := api.NewSweepScheduler(engine, *sweepInterval)
	scheduler.Start()
	defer scheduler.Stop()

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

// seedDefaultPlan inserts the standard plan on first boot. A plan with the
// same name already present means a prior boot seeded it.
func seedDefaultPlan(ctx context.Context, store loan.Store) error {
	const defaultPlanName = "Standard 12-Month"

	plans, err := store.ListPlans(ctx)
	if err != nil {
		return err
	}
	for _, p := range plans {
		if p.Name == defaultPlanName {
			return nil
		}
	}

	return store.CreatePlan(ctx, loan.LoanPlan{
		ID:                   loan.NewPlanID(),
		Name:                 defaultPlanName,
		InterestRate:         loan.MustDecimal("12"),
		MinTenureMonths:      3,
		MaxTenureMonths:      36,
		ProcessingFeePercent: loan.MustDecimal("1"),
		LateFeePercent:       loan.MustDecimal("2"),
		Description:          "Default installment plan: 12% annual reducing balance, 1% processing fee",
		Active:               true,
		CreatedAt:            time.Now().UTC(),
	})
}
