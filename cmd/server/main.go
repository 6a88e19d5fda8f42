package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/vaultleap/bridgesync/internal/api"
	"github.com/vaultleap/bridgesync/internal/bridge"
	"github.com/vaultleap/bridgesync/internal/config"
	"github.com/vaultleap/bridgesync/internal/domain"
	"github.com/vaultleap/bridgesync/internal/repository"
	"github.com/vaultleap/bridgesync/internal/scheduler"
	syncsvc "github.com/vaultleap/bridgesync/internal/sync"
)

func main() {
	cfgPath := flag.String("config", "configs/bridgesync.yaml", "Path to YAML config")
	flag.Parse()

	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := loader.Config()
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	log.Printf("Initializing database at %s", cfg.DB.Path)
	db, err := repository.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalf("Failed to init DB: %v", err)
	}
	defer db.Close()

	// Create repositories.
	recordRepo := repository.NewRecordRepo(db)
	cursorRepo := repository.NewCursorRepo(db)
	directoryRepo := repository.NewDirectoryRepo(db)
	schedulerRepo := repository.NewSchedulerRepo(db)
	skippedRepo := repository.NewSkippedRepo(db, cfg.Sync.MaxSkipped)
	leaseRepo := repository.NewLeaseRepo(db)

	// Seed the directory if it is empty.
	count, err := directoryRepo.CountCustomers()
	if err != nil {
		log.Fatalf("Failed to count customers: %v", err)
	}
	if count == 0 {
		log.Println("Directory is empty, seeding from testdata...")
		if err := seedDirectory(directoryRepo); err != nil {
			log.Printf("WARNING: Failed to seed directory: %v", err)
		}
	} else {
		log.Printf("Directory already has %d customers, skipping seed", count)
	}

	// Create services.
	client := bridge.NewClient(cfg.Bridge.BaseURL, cfg.Bridge.APIKey,
		cfg.Bridge.Timeout, cfg.Bridge.PageLimit)
	syncService := syncsvc.NewService(client, recordRepo, cursorRepo,
		directoryRepo, skippedRepo)

	sched := scheduler.New(syncService, schedulerRepo, leaseRepo,
		cfg.Sync.JobName, cfg.Sync.LeaseTTL, cfg.Sync.RetryInterval)
	if err := sched.EnsureRegistered(cfg.Sync.Interval); err != nil {
		// Registration failure is not fatal; the local ticker still runs.
		log.Printf("WARNING: scheduler registration failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx, cfg.Sync.Interval)

	// Re-register and reset the ticker when the configured interval changes.
	loader.OnChange(func(newCfg *config.Config) {
		sched.SetInterval(newCfg.Sync.Interval)
	})
	if stop, err := loader.Watch(); err != nil {
		log.Printf("WARNING: config watch disabled: %v", err)
	} else {
		defer stop()
	}

	router := api.NewRouter(recordRepo, directoryRepo, syncService, sched)
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	log.Printf("Bridge Activity Sync Service")
	log.Printf("Listening on %s, sync interval %s", cfg.HTTP.Addr, cfg.Sync.Interval)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARNING: server shutdown: %v", err)
	}
}

type directorySeed struct {
	Customers []struct {
		ID         string `json:"id"`
		ExternalID string `json:"external_id"`
		Name       string `json:"name"`
	} `json:"customers"`
	Accounts []struct {
		ID         string `json:"id"`
		CustomerID string `json:"customer_id"`
		ExternalID string `json:"external_id"`
		Label      string `json:"label"`
	} `json:"accounts"`
}

func seedDirectory(repo *repository.DirectoryRepo) error {
	// Try multiple possible locations for testdata.
	candidates := []string{
		"testdata/directory.json",
		filepath.Join(".", "testdata", "directory.json"),
	}

	// Also try to find relative to the executable.
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(dir, "testdata", "directory.json"),
			filepath.Join(dir, "..", "..", "testdata", "directory.json"),
		)
	}

	var data []byte
	var loadErr error
	for _, path := range candidates {
		data, loadErr = os.ReadFile(path)
		if loadErr == nil {
			log.Printf("Loaded directory seed from %s", path)
			break
		}
	}
	if loadErr != nil {
		return fmt.Errorf("could not find directory.json in any candidate path: %w", loadErr)
	}

	var seed directorySeed
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("unmarshal directory seed: %w", err)
	}

	for _, c := range seed.Customers {
		if err := repo.UpsertCustomer(&domain.Customer{
			ID: c.ID, ExternalID: c.ExternalID, Name: c.Name,
		}); err != nil {
			return fmt.Errorf("seed customer %s: %w", c.ID, err)
		}
	}
	for _, a := range seed.Accounts {
		if err := repo.UpsertSubAccount(&domain.SubAccount{
			ID: a.ID, CustomerID: a.CustomerID, ExternalID: a.ExternalID, Label: a.Label,
		}); err != nil {
			return fmt.Errorf("seed account %s: %w", a.ID, err)
		}
	}

	log.Printf("Seeded %d customers and %d accounts", len(seed.Customers), len(seed.Accounts))
	return nil
}
