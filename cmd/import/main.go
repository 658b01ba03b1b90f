// Command import converts an exported cut list into a work order from the command line.
//
//	import -file export.xlsx -name "Kitchen 42"
//	import -file export.json -name "Kitchen 42" -dry-run
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/eckcutgo/internal/config"
	"github.com/xelth-com/eckcutgo/internal/database"
	"github.com/xelth-com/eckcutgo/internal/importer"
	"github.com/xelth-com/eckcutgo/internal/logging"
	"github.com/xelth-com/eckcutgo/internal/services/imports"
	"github.com/xelth-com/eckcutgo/internal/store"
)

func main() {
	file := flag.String("file", "", "export workbook (.xlsx) or JSON bundle")
	name := flag.String("name", "", "work order name (defaults to the export's work order name)")
	id := flag.String("id", "", "work order ID (defaults to the export's work order ID)")
	allowDuplicates := flag.Bool("allow-duplicates", false, "import under a suggested ID and name when the work order exists")
	dryRun := flag.Bool("dry-run", false, "convert into an in-memory store instead of the database")
	labels := flag.String("labels", "", "write nest sheet labels PDF to this path after converting")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.MustNew(cfg.Log, cfg.IsDevelopment())
	defer logger.Sync()

	var st store.Store
	if *dryRun {
		st = store.NewMemoryStore()
	} else {
		db, err := database.Connect(cfg.Database, logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		if err := db.AutoMigrate(); err != nil {
			logger.Warn("Migration warning", zap.Error(err))
		}
		st = store.NewGormStore(db)
	}

	svc, err := imports.NewService(st, cfg, importer.StandardCategorizer, logger)
	if err != nil {
		logger.Fatal("Failed to create import service", zap.Error(err))
	}

	bundle, err := readBundle(*file)
	if err != nil {
		logger.Fatal("Failed to read export", zap.String("file", *file), zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	data := svc.Build(bundle)
	woName := *name
	if woName == "" {
		woName = data.WorkOrderName
	}
	if *id != "" {
		data.WorkOrderID = *id
	}

	result := svc.ConvertAll(ctx, data, woName, *allowDuplicates)
	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	_ = out.Encode(result)
	if !result.Success {
		os.Exit(1)
	}

	if *labels != "" {
		pdf, err := svc.Labels(ctx, result.WorkOrderID)
		if err != nil {
			logger.Fatal("Failed to generate labels", zap.Error(err))
		}
		if err := os.WriteFile(*labels, pdf, 0o644); err != nil {
			logger.Fatal("Failed to write labels", zap.String("path", *labels), zap.Error(err))
		}
		logger.Info("Labels written", zap.String("path", *labels), zap.Int("bytes", len(pdf)))
	}
}

func readBundle(path string) (*importer.Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return importer.DecodeBundle(f)
	}
	return importer.LoadWorkbook(f)
}
