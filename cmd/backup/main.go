package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"learnpath/internal/config"
	"learnpath/internal/database"
	"learnpath/internal/repository"
	"learnpath/internal/service"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	catalogExportCmd := flag.NewFlagSet("catalog-export", flag.ExitOnError)
	catalogImportCmd := flag.NewFlagSet("catalog-import", flag.ExitOnError)

	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing data before import (WARNING: destructive)")

	catalogOutput := catalogExportCmd.String("output", "catalog.yaml", "Output file path (.yaml, .yml or .json)")
	catalogInput := catalogImportCmd.String("input", "", "Input file path (required)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cfg := config.Load()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	contentService := service.NewContentService(db, repository.NewContentRepository(db), repository.NewPracticeRepository(db))
	backupService := service.NewBackupService(db, contentService, repository.NewUserRepository(db), repository.NewProgressRepository(db))

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(ctx, backupService, *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(ctx, backupService, db, *importInput, *importClear)

	case "catalog-export":
		catalogExportCmd.Parse(os.Args[2:])
		cat, err := contentService.ExportCatalog(ctx)
		if err != nil {
			log.Fatalf("Catalog export failed: %v", err)
		}
		if err := service.WriteCatalogFile(*catalogOutput, cat); err != nil {
			log.Fatalf("Catalog export failed: %v", err)
		}
		log.Printf("Catalog written to %s (%d routes)", *catalogOutput, len(cat.Routes))

	case "catalog-import":
		catalogImportCmd.Parse(os.Args[2:])
		if *catalogInput == "" {
			fmt.Println("Error: -input flag is required")
			catalogImportCmd.PrintDefaults()
			os.Exit(1)
		}
		cat, err := service.LoadCatalogFile(*catalogInput)
		if err != nil {
			log.Fatalf("Failed to read catalog: %v", err)
		}
		if _, err := contentService.ImportCatalog(ctx, cat); err != nil {
			log.Fatalf("Catalog import failed: %v", err)
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(ctx context.Context, backupService *service.BackupService, outputPath string) {
	// Generate default filename if not provided
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("backup_%s.json", timestamp)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	log.Printf("Exporting database to: %s", outputPath)
	if err := backupService.Export(ctx, outputPath); err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	fileInfo, err := os.Stat(outputPath)
	if err == nil {
		log.Printf("Export complete! File size: %.2f KB", float64(fileInfo.Size())/1024)
	}
}

func handleImport(ctx context.Context, backupService *service.BackupService, db *database.DB, inputPath string, clearData bool) {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		log.Fatalf("Input file does not exist: %s", inputPath)
	}

	if clearData {
		fmt.Print("WARNING: This will delete all existing data. Type 'yes' to confirm: ")
		var confirmation string
		fmt.Scanln(&confirmation)
		if confirmation != "yes" {
			log.Println("Import cancelled")
			return
		}

		log.Println("Clearing existing data...")
		if err := clearDatabase(ctx, db); err != nil {
			log.Fatalf("Failed to clear database: %v", err)
		}
	}

	log.Printf("Importing database from: %s", inputPath)
	if err := backupService.Import(ctx, inputPath); err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	log.Println("Import complete!")
}

func clearDatabase(ctx context.Context, db *database.DB) error {
	// Delete in reverse order of dependencies
	tables := []string{
		"lesson_progress",
		"practice_progress",
		"practice_code_specs",
		"practice_blocks",
		"practice_options",
		"practices",
		"lessons",
		"courses",
		"routes",
		"password_reset_tokens",
		"users",
	}

	for _, table := range tables {
		query := fmt.Sprintf("DELETE FROM %s", table)
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
		log.Printf("Cleared table: %s", table)
	}

	return nil
}

func printUsage() {
	fmt.Println("learnpath backup tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]           Export users, content and progress")
	fmt.Println("  backup import [options]           Import a full backup into an empty database")
	fmt.Println("  backup catalog-export [options]   Export the content tree only")
	fmt.Println("  backup catalog-import [options]   Import a content tree")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -output <file>    Output file path, YAML for .yaml/.yml and JSON otherwise")
	fmt.Println("  -input <file>     Input file path (required for imports)")
	fmt.Println("  -clear            Clear existing data before import (WARNING: destructive)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  backup export -output backups/nightly.json")
	fmt.Println("  backup import -input backups/nightly.json -clear")
	fmt.Println("  backup catalog-export -output contenido.yaml")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_TYPE    Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DATABASE_PATH    SQLite database path (default: ./learnpath.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
