package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	sessionstore "github.com/NikoToRA/koereq-sync/internal/stores/session"
	"github.com/NikoToRA/koereq-sync/pkg/blob"
	"github.com/NikoToRA/koereq-sync/pkg/completion"
	"github.com/NikoToRA/koereq-sync/pkg/session"
	syncpkg "github.com/NikoToRA/koereq-sync/pkg/sync"
	"github.com/NikoToRA/koereq-sync/pkg/transcribe"
	"github.com/NikoToRA/koereq-sync/pkg/utils"

	"github.com/google/uuid"
)

// Dictation holds the wired services for the interactive loop
type Dictation struct {
	cache       *session.Cache
	coordinator *syncpkg.Coordinator
	completer   completion.Completer
	transcriber transcribe.Transcriber
	kinds       *completion.Registry
}

func main() {
	// Load global configuration
	cfg := utils.NewConfigFromEnv(".env")

	// Initialize the durable store, degrading to in-memory when no database
	// is configured
	var store session.StoreInterface
	if databaseURL := cfg.Get("DATABASE_URL"); databaseURL != "" {
		gormStore, err := sessionstore.NewStore(databaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize session store: %v", err)
		}
		defer gormStore.Close()
		store = gormStore
	} else {
		log.Println("[MAIN]: DATABASE_URL not set, sessions will not survive restarts")
		store = sessionstore.NewInMemoryStore()
	}

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
				log.Printf("[MAIN]: Background sync failed for session %s: %v", record.ID, err)
			}
		},
	})
	if err != nil {
		log.Fatalf("Failed to initialize session cache: %v", err)
	}
	defer cache.Stop()

	// Initialize prompt kinds and the completion collaborator
	kinds := completion.NewRegistry()
	if path := cfg.Get("PROMPT_KINDS_FILE"); path != "" {
		if err := kinds.LoadCustomKinds(path); err != nil {
			log.Printf("[MAIN]: Could not load custom prompt kinds: %v", err)
		}
	}

	dictation := &Dictation{
		cache:       cache,
		coordinator: coordinator,
		completer:   completion.NewOpenAICompleter(cfg.Get("OPENAI_API_KEY"), cfg.Get("OPENAI_MODEL")),
		transcriber: transcribe.NewWhisperTranscriber(cfg.Get("OPENAI_API_KEY")),
		kinds:       kinds,
	}

	if err := dictation.run(context.Background()); err != nil {
		log.Fatalf("Dictation loop failed: %v", err)
	}
}

func (d *Dictation) run(ctx context.Context) error {
	fmt.Println("Dictation started. Plain lines append transcript text.")
	fmt.Println("Commands: /start, /rec <file>, /ai <kind>, /end, /kinds, /sync <id>, exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" {
			break
		}

		if err := d.handle(ctx, input); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
	return scanner.Err()
}

func (d *Dictation) handle(ctx context.Context, input string) error {
	switch {
	case input == "/start":
		record, err := d.cache.CreateSession(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Session %s started\n", record.ID)

	case input == "/end":
		record, err := d.cache.EndSession(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Session ended: %s\n", record.Summary)

	case input == "/kinds":
		for _, kind := range d.kinds.Kinds() {
			fmt.Printf("  %s\n", kind.Name)
		}

	case strings.HasPrefix(input, "/rec "):
		path := strings.TrimSpace(strings.TrimPrefix(input, "/rec "))
		text, err := d.transcriber.Transcribe(ctx, path)
		if err != nil {
			return err
		}
		chunk, err := d.cache.AppendTranscript(ctx, text)
		if err != nil {
			return err
		}
		fmt.Printf("Transcript #%d recorded: %s\n", chunk.Sequence, text)

	case strings.HasPrefix(input, "/sync "):
		id, err := uuid.Parse(strings.TrimSpace(strings.TrimPrefix(input, "/sync ")))
		if err != nil {
			return fmt.Errorf("invalid session id: %w", err)
		}
		record, ok := d.cache.GetSession(id)
		if !ok {
			return fmt.Errorf("session %s is not cached", id)
		}
		if err := d.coordinator.ForceSync(ctx, record); err != nil {
			return err
		}
		fmt.Printf("Session %s uploaded\n", id)

	case strings.HasPrefix(input, "/ai "):
		name := strings.TrimSpace(strings.TrimPrefix(input, "/ai "))
		kind, ok := d.kinds.Get(name)
		if !ok {
			return fmt.Errorf("unknown prompt kind '%s'", name)
		}

		active := d.cache.ActiveSession()
		if active == nil {
			return session.ErrNoActiveSession
		}
		texts := make([]string, 0, len(active.Transcripts))
		for _, chunk := range active.Transcripts {
			texts = append(texts, chunk.Text)
		}

		content, err := d.completer.Complete(ctx, texts, kind)
		if err != nil {
			return err
		}
		if _, err := d.cache.AppendAIResponse(ctx, content, kind); err != nil {
			return err
		}
		fmt.Printf("AI (%s): %s\n", kind.Name, content)

	default:
		chunk, err := d.cache.AppendTranscript(ctx, input)
		if err != nil {
			return err
		}
		fmt.Printf("Transcript #%d recorded\n", chunk.Sequence)
	}
	return nil
}
