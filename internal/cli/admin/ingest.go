package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourcingworks/rfqsmith/internal/config"
	"github.com/sourcingworks/rfqsmith/internal/database"
	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/service"
	"github.com/spf13/cobra"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Bulk-ingest documents from a directory",
		Long:  "Walks a directory and ingests every PDF and DOCX file directly, without going through the HTTP API.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(args[0], category)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Category applied to every ingested document")

	return cmd
}

func runIngest(dir, category string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	deps, err := buildDependencies(ctx, cfg, pool)
	if err != nil {
		return err
	}

	ingested, skipped := 0, 0
	err = filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".pdf" && ext != ".docx" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		doc, err := deps.ingestionSvc.IngestDocument(ctx, service.IngestInput{
			Filename: filepath.Base(path),
			Category: category,
			Data:     data,
		})
		if err != nil {
			if errors.Is(err, domain.ErrDocumentAlreadyExists) {
				log.Printf("skipping %s: already ingested", entry.Name())
				skipped++
				return nil
			}
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}

		log.Printf("ingested %s (id: %s)", doc.Filename, doc.ID)
		ingested++
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("done: %d ingested, %d skipped", ingested, skipped)
	return nil
}
