package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zzenonn/gluepart/internal/service"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic dataset partitioned by year and month under the configured prefix",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		objects, err := objectRepository(ctx)
		if err != nil {
			return err
		}

		opts := service.DatasetOptions{Prefix: cfg.Prefix, Quiet: quiet}
		opts.Start, _ = cmd.Flags().GetInt("start")
		opts.Count, _ = cmd.Flags().GetInt("count")
		opts.Increment, _ = cmd.Flags().GetInt("increment")
		opts.Seed, _ = cmd.Flags().GetUint64("seed")
		opts.HiveStyle, _ = cmd.Flags().GetBool("hive-style")
		opts.Overwrite, _ = cmd.Flags().GetBool("overwrite")

		keys, err := service.NewDatasetService(objects).Generate(ctx, opts)
		if err != nil {
			return err
		}

		for _, k := range keys {
			fmt.Println(k)
		}
		fmt.Printf("Wrote %d records in %d files\n", opts.Count, len(keys))
		return nil
	},
}

func init() {
	generateCmd.Flags().Int("start", 0, "First record id")
	generateCmd.Flags().Int("count", 1000, "Number of records")
	generateCmd.Flags().Int("increment", 0, "Offset added to the id to form the sort key")
	generateCmd.Flags().Uint64("seed", 1, "Random seed for month assignment")
	generateCmd.Flags().Bool("hive-style", true, "Write year=Y/month=M directories instead of Y/M")
	generateCmd.Flags().Bool("overwrite", false, "Delete existing objects under the prefix first")
	rootCmd.AddCommand(generateCmd)
}
