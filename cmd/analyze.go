package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/autostat/internal/pipeline"
	"github.com/KaramelBytes/autostat/internal/table"
	"github.com/spf13/cobra"
)

var (
	anaObjective string
	anaReport    bool
	anaOutDir    string
	anaFormat    string
	anaID        string
	anaTable     tableFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a CSV/TSV/XLSX file for a research objective and render a chart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		opt, err := anaTable.options()
		if err != nil {
			return err
		}
		c, err := currentConfig()
		if err != nil {
			return err
		}
		withReport := c.WithReport
		if cmd.Flags().Changed("report") {
			withReport = anaReport
		}
		st, err := openStore(anaOutDir)
		if err != nil {
			return err
		}
		tbl, err := table.LoadFile(path, opt)
		if err != nil {
			return err
		}
		res, err := newRunner().Run(cmd.Context(), pipeline.Request{
			ID:         anaID,
			Table:      tbl,
			Objective:  c.Objective(anaObjective),
			WithReport: withReport,
		})
		if err != nil {
			return err
		}
		if err := st.SaveResult(res); err != nil {
			return err
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(os.Stderr, "⚠ Warning: %s\n", w)
		}
		return writeOutput(cmd.OutOrStdout(), anaFormat, newRunOutput(path, res, st))
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaObjective, "objective", "o", "", "research objective (default from config: \"relationship analysis\")")
	analyzeCmd.Flags().BoolVar(&anaReport, "report", false, "also compose a PDF report")
	analyzeCmd.Flags().StringVar(&anaOutDir, "out-dir", "", "directory for chart and report (default: configured chart/report dirs)")
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "json", "output format: json|yaml")
	analyzeCmd.Flags().StringVar(&anaID, "id", "", "artifact id (random UUID if omitted)")
	anaTable.register(analyzeCmd)
}
