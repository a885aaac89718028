package main

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/storage"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zzenonn/gluepart/internal/config"
	"github.com/zzenonn/gluepart/internal/logging"
	"github.com/zzenonn/gluepart/internal/repository/db"
	"github.com/zzenonn/gluepart/internal/repository/migrate"
	"github.com/zzenonn/gluepart/internal/repository/objectstore"
)

var (
	cfg        *config.Config
	configPath string
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:          "gluepart",
	Short:        "Register object storage partitions in the Glue Data Catalog",
	Long:         "A CLI that derives partitions from object keys and registers them in the AWS Glue Data Catalog",
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to config file (default ./config.yaml)")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Suppress progress bars")
	flags.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	flags.String("region", "", "AWS region")
	flags.String("catalog-id", "", "Glue catalog id (default: caller's account)")
	flags.String("database", "", "Glue database name")
	flags.String("table", "", "Glue table name")
	flags.String("bucket", "", "Bucket holding the table data: s3://name, gs://name or name")
	flags.String("prefix", "", "Key prefix of the table data")
	flags.Int("prefix-segments", 1, "Number of leading key segments that are not partition values")
	flags.StringSlice("partition-keys", nil, "Partition key names in catalog order")
	flags.Int("batch-size", 100, "Partitions per batch create call (max 100)")
	flags.Int("concurrency", 4, "Batch calls in flight")
	flags.Duration("call-timeout", 0, "Timeout for each catalog call (default 30s)")
	flags.String("report-table", "", "DynamoDB table for run reports")
	flags.String("ssm-path", "", "SSM parameter path to read configuration from")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the run report table",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.ReportTable == "" {
			return fmt.Errorf("report_table is not configured")
		}

		dynamoDb, err := db.NewDatabase(cfg.AwsConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to the database: %w", err)
		}

		if err := migrate.Up(context.Background(), dynamoDb.Client, &migrate.CreateRunReportTable{Table: cfg.ReportTable}); err != nil {
			return fmt.Errorf("failed to migrate the database: %w", err)
		}

		fmt.Println("Report table initialized successfully")
		return nil
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Drop the run report table",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.ReportTable == "" {
			return fmt.Errorf("report_table is not configured")
		}

		dynamoDb, err := db.NewDatabase(cfg.AwsConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to the database: %w", err)
		}

		if err := migrate.Down(context.Background(), dynamoDb.Client, &migrate.CreateRunReportTable{Table: cfg.ReportTable}); err != nil {
			return fmt.Errorf("failed to roll back migrations: %w", err)
		}

		fmt.Println("Report table dropped successfully")
		return nil
	},
}

func initConfig() {
	var err error
	cfg, err = config.LoadConfig(configPath, rootCmd.PersistentFlags())
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logging.InitLogger(cfg)
}

// objectRepository builds the repository for the configured bucket
func objectRepository(ctx context.Context) (objectstore.ObjectRepository, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is not configured")
	}

	bucketCfg, err := objectstore.ParseBucketConfig(cfg.Bucket)
	if err != nil {
		return nil, err
	}

	var gcsClient *storage.Client
	if bucketCfg.Type == objectstore.GCSType {
		if gcsClient, err = config.NewGCSClient(ctx); err != nil {
			return nil, err
		}
	}

	return objectstore.NewObjectRepositoryFactory(cfg.AwsConfig, gcsClient).CreateRepository(bucketCfg)
}

// listPrefix is the configured prefix as a directory
func listPrefix() string {
	if cfg.Prefix == "" {
		return ""
	}
	return cfg.Prefix + "/"
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(downCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
