package main

import (
	"context"
	"log"
	"os"

	"github.com/NikoToRA/koereq-sync/internal/api"
	sessionstore "github.com/NikoToRA/koereq-sync/internal/stores/session"
	"github.com/NikoToRA/koereq-sync/pkg/blob"
	"github.com/NikoToRA/koereq-sync/pkg/session"
	syncpkg "github.com/NikoToRA/koereq-sync/pkg/sync"
	"github.com/NikoToRA/koereq-sync/pkg/utils"
)

// Start the operational API server
func main() {
	// Find env file
	envFile := ".env"
	if os.Getenv("ENV_FILE") != "" {
		envFile = os.Getenv("ENV_FILE")
	}

	// Load global config
	cfg := utils.NewConfigFromEnv(envFile)

	// Initialize the durable session store
	store, err := sessionstore.NewStore(cfg.Get("DATABASE_URL"))
	if err != nil {
		log.Fatalf("Failed to initialize session store: %v", err)
	}
	defer store.Close()

	// Initialize the blob store client
	client, err := blob.NewClient(blob.ClientConfig{
		Account:   cfg.Get("BLOB_ACCOUNT"),
		Container: cfg.Get("BLOB_CONTAINER"),
		SharedKey: cfg.Get("BLOB_KEY"),
		Endpoint:  cfg.Get("BLOB_ENDPOINT"),
	})
	if err != nil {
		log.Fatalf("Failed to initialize blob client: %v", err)
	}

	// Initialize the upload coordinator
	coordinator, err := syncpkg.NewCoordinator(&syncpkg.CoordinatorOptions{
		Store:         store,
		Uploader:      client,
		FacilityID:    cfg.GetWithDefault("FACILITY_ID", "default"),
		FacilityName:  cfg.Get("FACILITY_NAME"),
		RecordingsDir: cfg.Get("RECORDINGS_DIR"),
	})
	if err != nil {
		log.Fatalf("Failed to initialize upload coordinator: %v", err)
	}

	// Initialize the session cache with the fire-and-forget sync trigger
	cache, err := session.NewCache(&session.CacheOptions{
		Store:         store,
		RecordingsDir: cfg.Get("RECORDINGS_DIR"),
		OnSessionEnd: func(record *session.Record) {
			if err := coordinator.SyncSession(context.Background(), record); err != nil {
				log.Printf("[API-MAIN]: Background sync failed for session %s: %v", record.ID, err)
			}
		},
	})
	if err != nil {
		log.Fatalf("Failed to initialize session cache: %v", err)
	}
	defer cache.Stop()

	// Start
	api.Start(cfg, &api.Dependencies{
		Cache:       cache,
		Coordinator: coordinator,
		BlobClient:  client,
	})
}
