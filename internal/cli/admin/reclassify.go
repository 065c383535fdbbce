package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/sourcingworks/rfqsmith/internal/config"
	"github.com/sourcingworks/rfqsmith/internal/database"
	"github.com/spf13/cobra"
)

// ReclassifyCmd returns the reclassify command
func ReclassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reclassify",
		Short: "Enqueue image reclassification jobs",
		Long:  "Queues a reclassification job for every image whose label came from an older classifier model. The running server's worker drains the queue.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReclassify()
		},
	}
}

func runReclassify() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasMultimodal() {
		return fmt.Errorf("MULTIMODAL_URL is required: the target model comes from the multimodal provider")
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

	enqueued, err := deps.imageSvc.EnqueueReclassification(ctx)
	if err != nil {
		return fmt.Errorf("failed to enqueue reclassification: %w", err)
	}

	log.Printf("enqueued %d reclassification jobs", enqueued)
	return nil
}
