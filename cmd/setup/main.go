package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/flexprice/staffdesk/internal/backend"
	"github.com/flexprice/staffdesk/internal/backend/cloud"
	"github.com/flexprice/staffdesk/internal/backend/docstore"
	"github.com/flexprice/staffdesk/internal/backend/relational"
	"github.com/flexprice/staffdesk/internal/backend/sheet"
	"github.com/flexprice/staffdesk/internal/cache"
	"github.com/flexprice/staffdesk/internal/config"
	"github.com/flexprice/staffdesk/internal/domain/employee"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/types"
)

func main() {
	kind := flag.String("backend", "", "Backend to set up: sheet, relational, docstore or cloud (defaults to backend.default)")
	dryRun := flag.Bool("dry-run", false, "Print what would be created without touching the backend")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	target := cfg.Backend.Default
	if *kind != "" {
		target = types.BackendKind(strings.ToLower(*kind))
	}
	if err := target.Validate(); err != nil {
		logger.Fatalw("Invalid backend", "backend", target, "error", err)
	}

	if *dryRun {
		logger.Infow("Dry run mode - printing storage definition without creating it", "backend", target)
		if err := printStorage(cfg, target); err != nil {
			logger.Fatalw("Failed to render storage definition", "error", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	factory := backend.NewFactory(cfg, cache.Initialize(cfg, logger), logger)
	repo, err := factory.Get(ctx, target)
	if err != nil {
		logger.Fatalw("Failed to initialize backend", "backend", target, "error", err)
	}

	initializer, ok := repo.(employee.StorageInitializer)
	if !ok {
		logger.Fatalw("Backend cannot create its own storage", "backend", target)
	}

	logger.Infow("Creating backend storage", "backend", target)
	if err := initializer.EnsureStorage(ctx); err != nil {
		logger.Fatalw("Failed to create backend storage", "backend", target, "error", err)
	}

	fmt.Printf("Storage for %s backend is ready\n", target)
}

func printStorage(cfg *config.Configuration, kind types.BackendKind) error {
	switch kind {
	case types.BackendSheet:
		fmt.Println(strings.Join(sheet.Header, ","))
	case types.BackendRelational:
		if err := relational.ValidateTableName(cfg.Relational.Table); err != nil {
			return err
		}
		for _, stmt := range relational.DDL(cfg.Relational.Table) {
			fmt.Printf("%s;\n", stmt)
		}
	case types.BackendDocStore:
		return printJSON(docstore.CreateTableInput(cfg.DocStore.Table))
	case types.BackendCloud:
		return printJSON(cloud.CreateBucketInput(cfg.Cloud.Bucket, cfg.Cloud.Region))
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
