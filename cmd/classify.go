package cmd

import (
	"github.com/KaramelBytes/autostat/internal/analysis"
	"github.com/KaramelBytes/autostat/internal/table"
	"github.com/spf13/cobra"
)

var (
	clsObjective string
	clsFormat    string
	clsTable     tableFlags
)

// classification is the dry-run output of the classify command.
type classification struct {
	File           string             `json:"file"`
	Objective      string             `json:"objective"`
	AnalysisType   analysis.Kind      `json:"analysis_type"`
	ColumnsUsed    analysis.Selection `json:"columns_used"`
	NumericColumns []string           `json:"numeric_columns"`
	Rows           int                `json:"rows"`
}

var classifyCmd = &cobra.Command{
	Use:   "classify <file>",
	Short: "Show which analysis and columns an objective selects, without rendering",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := clsTable.options()
		if err != nil {
			return err
		}
		c, err := currentConfig()
		if err != nil {
			return err
		}
		tbl, err := table.LoadFile(args[0], opt)
		if err != nil {
			return err
		}
		objective := c.Objective(clsObjective)
		numeric := tbl.NumericColumns()
		kind, cols := analysis.Classify(objective, numeric)
		return writeOutput(cmd.OutOrStdout(), clsFormat, classification{
			File:           args[0],
			Objective:      objective,
			AnalysisType:   kind,
			ColumnsUsed:    cols,
			NumericColumns: numeric,
			Rows:           tbl.RowCount(),
		})
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().StringVarP(&clsObjective, "objective", "o", "", "research objective (default from config)")
	classifyCmd.Flags().StringVar(&clsFormat, "format", "json", "output format: json|yaml")
	clsTable.register(classifyCmd)
}
