package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zzenonn/gluepart/internal/domain"
	"github.com/zzenonn/gluepart/internal/repository/catalog"
	"github.com/zzenonn/gluepart/internal/repository/db"
	"github.com/zzenonn/gluepart/internal/service"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register every partition found under the configured prefix",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireCatalog(); err != nil {
			return err
		}
		ctx := context.Background()

		objects, err := objectRepository(ctx)
		if err != nil {
			return err
		}

		var reports service.ReportRepository
		if cfg.ReportTable != "" {
			dynamoDb, err := db.NewDatabase(cfg.AwsConfig)
			if err != nil {
				return fmt.Errorf("failed to connect to the database: %w", err)
			}
			reportRepository := db.NewReportRepository(dynamoDb.Client, cfg.ReportTable)
			reports = &reportRepository
		}

		glueCatalog := catalog.NewGlueCatalog(cfg.AwsConfig)
		batchService := service.NewBatchService(glueCatalog.Client, objects, reports, service.OptionsFromConfig(cfg, quiet))

		report, err := batchService.Run(ctx, listPrefix())
		for _, c := range report.Chunks {
			fmt.Printf("chunk %d: %d created, %d already existed, %d failed\n", c.Index, c.Created, c.AlreadyExists, c.Failed)
			for _, e := range c.Errors {
				fmt.Printf("  %s\n", e)
			}
		}
		if err != nil {
			return fmt.Errorf("run %s failed: %w", report.RunID, err)
		}

		fmt.Printf("Run %s registered %d partitions from %d objects\n", report.RunID, report.Candidates, report.Objects)
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add [s3://bucket/key | key]",
	Short: "Register the partition holding a single object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireCatalog(); err != nil {
			return err
		}

		bucket, key, err := splitObjectURL(args[0], cfg.Bucket)
		if err != nil {
			return err
		}

		glueCatalog := catalog.NewGlueCatalog(cfg.AwsConfig)
		eventService := service.NewEventService(glueCatalog.Client, service.OptionsFromConfig(cfg, quiet))

		candidate, outcome, err := eventService.RegisterObject(context.Background(), bucket, key)
		if err != nil {
			return err
		}

		if outcome == domain.OutcomeSkipped {
			fmt.Printf("s3://%s/%s holds no partition data: %s\n", bucket, key, outcome)
			return nil
		}
		fmt.Printf("Partition %v at %s: %s\n", candidate.Values, candidate.Location, outcome)
		return nil
	},
}

// splitObjectURL accepts s3://bucket/key or a bare key in the default bucket
func splitObjectURL(arg, defaultBucket string) (string, string, error) {
	if rest, ok := strings.CutPrefix(arg, "s3://"); ok {
		bucket, key, found := strings.Cut(rest, "/")
		if !found || bucket == "" || key == "" {
			return "", "", fmt.Errorf("invalid object URL: %s", arg)
		}
		return bucket, key, nil
	}

	bucket := strings.TrimPrefix(defaultBucket, "s3://")
	if bucket == "" {
		return "", "", fmt.Errorf("bucket is not configured and %s is not an s3:// URL", arg)
	}
	return strings.TrimSuffix(bucket, "/"), arg, nil
}

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(addCmd)
}
