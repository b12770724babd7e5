package main

import (
	"fmt"

	"github.com/spf13/cobra"
	tclient "go.temporal.io/sdk/client"

	"assignhelper/internal/catalog"
	"assignhelper/internal/workflows"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Embed catalog sources stored without an embedding",
	RunE: func(cmd *cobra.Command, args []string) error {
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		maxBatches, _ := cmd.Flags().GetInt("max-batches")
		viaTemporal, _ := cmd.Flags().GetBool("via-temporal")
		cfg := loadConfig()

		if viaTemporal {
			c, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
			if err != nil {
				return err
			}
			defer c.Close()
			started, err := workflows.NewStarter(c, cfg.TemporalTaskQueue).StartBackfill(cmd.Context(), workflows.BackfillEmbeddingsInput{
				BatchSize:  batchSize,
				MaxBatches: maxBatches,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "started %s (run %s)\n", started.WorkflowID, started.RunID)
			return nil
		}

		rt, err := openRuntime(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		var total catalog.BackfillResult
		for i := 0; i < maxBatches; i++ {
			res, err := rt.ingester.Backfill(cmd.Context(), batchSize)
			if err != nil {
				return err
			}
			total.Scanned += res.Scanned
			total.Updated += res.Updated
			total.Failed += res.Failed
			total.Errors = append(total.Errors, res.Errors...)
			if res.Scanned == 0 || res.Updated == 0 {
				break
			}
		}
		return printJSON(cmd, total)
	},
}

func init() {
	backfillCmd.Flags().Int("batch-size", 100, "sources per batch")
	backfillCmd.Flags().Int("max-batches", 50, "stop after this many batches")
	backfillCmd.Flags().Bool("via-temporal", false, "run the backfill as a durable workflow on the worker")
	rootCmd.AddCommand(backfillCmd)
}
