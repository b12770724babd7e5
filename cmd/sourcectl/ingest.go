package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	tclient "go.temporal.io/sdk/client"
	"gopkg.in/yaml.v3"

	"assignhelper/internal/catalog"
	"assignhelper/internal/workflows"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest academic sources from a YAML or JSON file",
	Long: `Ingest reads a list of sources (title, authors, publication_year, abstract,
full_text, source_type) from a YAML or JSON file. The file may hold a bare list
or a mapping with a "sources" key. Each source is embedded from its title,
authors and abstract and inserted into the catalog.

With --defer-embedding, sources whose embedding fails are stored without a
vector and picked up later by "sourcectl backfill".`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read sources: %w", err)
	}
	sources, err := parseSources(raw)
	if err != nil {
		return err
	}
	deferEmbedding, _ := cmd.Flags().GetBool("defer-embedding")
	viaTemporal, _ := cmd.Flags().GetBool("via-temporal")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	cfg := loadConfig()

	if viaTemporal {
		c, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
		if err != nil {
			return err
		}
		defer c.Close()
		started, err := workflows.NewStarter(c, cfg.TemporalTaskQueue).StartIngest(cmd.Context(), workflows.SourceIngestInput{
			Sources:        sources,
			BatchSize:      batchSize,
			DeferEmbedding: deferEmbedding,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "started %s (run %s) for %d sources\n", started.WorkflowID, started.RunID, len(sources))
		return nil
	}

	rt, err := openRuntime(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer rt.Close()
	rt.ingester.DeferEmbedding = deferEmbedding

	res := rt.ingester.IngestBatch(cmd.Context(), sources)
	if err := printJSON(cmd, res); err != nil {
		return err
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d of %d source(s) failed", res.Failed, res.Total)
	}
	return nil
}

// parseSources accepts a YAML/JSON list or a {sources: [...]} document.
func parseSources(raw []byte) ([]catalog.SourceInput, error) {
	var list []catalog.SourceInput
	if err := yaml.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return nil, fmt.Errorf("parse sources: no sources found")
		}
		return list, nil
	}
	var doc struct {
		Sources []catalog.SourceInput `yaml:"sources"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse sources: %w", err)
	}
	if len(doc.Sources) == 0 {
		return nil, fmt.Errorf("parse sources: no sources found")
	}
	return doc.Sources, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	ingestCmd.Flags().Bool("defer-embedding", false, "store sources without a vector when embedding fails")
	ingestCmd.Flags().Bool("via-temporal", false, "run the ingestion as a durable workflow on the worker")
	ingestCmd.Flags().Int("batch-size", 25, "sources per activity when --via-temporal is set")
	rootCmd.AddCommand(ingestCmd)
}
