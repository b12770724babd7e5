package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"assignhelper/internal/util"
	"assignhelper/internal/vector"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Rank catalog sources by similarity to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return fmt.Errorf("query is required")
		}
		topK, _ := cmd.Flags().GetInt("top-k")
		sourceType, _ := cmd.Flags().GetString("source-type")
		minYear, _ := cmd.Flags().GetInt("min-year")
		maxYear, _ := cmd.Flags().GetInt("max-year")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		rt, err := openRuntime(cmd.Context(), loadConfig())
		if err != nil {
			return err
		}
		defer rt.Close()

		out := rt.pipeline.SearchSources(cmd.Context(), query, topK, vector.Filters{SourceType: sourceType, MinYear: minYear, MaxYear: maxYear})
		for i := range out.Sources {
			out.Sources[i].Snippet = util.DisplayEvidenceSnippet(out.Sources[i].Abstract, query, 200)
		}
		if jsonOutput {
			return printJSON(cmd, map[string]any{
				"query":         query,
				"sources_found": len(out.Sources),
				"sources":       out.Sources,
				"status":        out.Status,
			})
		}

		w := cmd.OutOrStdout()
		if out.Err != nil {
			fmt.Fprintf(w, "status: %s (%v)\n", out.Status, out.Err)
		}
		if len(out.Sources) == 0 {
			fmt.Fprintln(w, "No sources found.")
			return nil
		}
		fmt.Fprintf(w, "%-4s  %-6s  %-50s  %s\n", "Rank", "Sim", "Title", "Year")
		fmt.Fprintln(w, strings.Repeat("-", 70))
		for i, s := range out.Sources {
			year := "n.d."
			if s.PublicationYear != nil {
				year = fmt.Sprint(*s.PublicationYear)
			}
			fmt.Fprintf(w, "%-4d  %.3f  %-50s  %s\n", i+1, s.Similarity, util.DisplaySnippet(s.Title, 47), year)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("top-k", 0, "number of results (default from config)")
	searchCmd.Flags().String("source-type", "", "only sources of this type")
	searchCmd.Flags().Int("min-year", 0, "earliest publication year")
	searchCmd.Flags().Int("max-year", 0, "latest publication year")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}
