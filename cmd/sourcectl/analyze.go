package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"assignhelper/internal/extract"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Run the analysis pipeline on a local assignment file",
	Long: `Analyze extracts text from a PDF, DOCX or TXT file and runs embedding,
source search, plagiarism scoring and analysis synthesis without storing
anything. The result is printed as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !extract.Supported(args[0]) {
			return fmt.Errorf("%w: %s", extract.ErrUnsupportedType, args[0])
		}
		text, err := extract.File(args[0])
		if err != nil {
			return err
		}

		rt, err := openRuntime(cmd.Context(), loadConfig())
		if err != nil {
			return err
		}
		defer rt.Close()

		res := rt.pipeline.Run(cmd.Context(), text)
		issues := make([]string, 0, len(res.Issues))
		for _, is := range res.Issues {
			issues = append(issues, is.String())
		}
		return printJSON(cmd, map[string]any{
			"word_count":        extract.WordCount(text),
			"suggested_sources": res.Sources,
			"plagiarism_score":  res.Plagiarism.Score,
			"flagged_sections":  res.Plagiarism.FlaggedSections,
			"analysis":          res.Analysis,
			"issues":            issues,
			"trace":             res.Trace,
		})
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
