package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/autostat/internal/chart"
	"github.com/KaramelBytes/autostat/internal/pipeline"
	"github.com/KaramelBytes/autostat/internal/store"
	"github.com/KaramelBytes/autostat/internal/table"
	"github.com/KaramelBytes/autostat/internal/utils"
	"github.com/spf13/cobra"
)

// tableFlags are the dataset parsing flags shared by every command that loads a file.
type tableFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	maxRows    int
	sheetName  string
	sheetIndex int
}

func (tf *tableFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&tf.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	c.Flags().StringVar(&tf.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	c.Flags().StringVar(&tf.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	c.Flags().IntVar(&tf.maxRows, "max-rows", 0, "maximum rows to load (0 = default limit)")
	c.Flags().StringVar(&tf.sheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	c.Flags().IntVar(&tf.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

func (tf *tableFlags) options() (table.Options, error) {
	opt := table.DefaultOptions()
	if tf.maxRows > 0 {
		opt.MaxRows = tf.maxRows
	}
	switch tf.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", tf.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(tf.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", tf.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(tf.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", tf.thousands)
	}
	if opt.DecimalSeparator != 0 && opt.DecimalSeparator == opt.ThousandsSeparator {
		return opt, fmt.Errorf("--decimal and --thousands must differ")
	}
	opt.SheetName = tf.sheetName
	if tf.sheetIndex > 0 {
		opt.SheetIndex = tf.sheetIndex
	}
	return opt, nil
}

// openStore returns a store rooted at outDir, or at the configured
// directories when outDir is empty.
func openStore(outDir string) (*store.Store, error) {
	if outDir != "" {
		return store.New(store.Dirs{
			Upload: filepath.Join(outDir, "uploads"),
			Chart:  outDir,
			Report: outDir,
		})
	}
	c, err := currentConfig()
	if err != nil {
		return nil, err
	}
	return store.New(store.Dirs{Upload: c.UploadDir, Chart: c.ChartDir, Report: c.ReportDir})
}

func newRunner() *pipeline.Runner {
	return pipeline.New(chart.New(), pipeline.WithLogger(logger))
}

// runOutput is what analyze and analyze-batch print per file.
type runOutput struct {
	File string `json:"file"`
	*pipeline.Result
	ChartPath  string `json:"chart_path"`
	ReportPath string `json:"report_path,omitempty"`
}

func newRunOutput(file string, res *pipeline.Result, st *store.Store) runOutput {
	out := runOutput{File: file, Result: res}
	out.ChartPath, _ = st.Path(store.Chart, res.ChartName)
	if res.ReportName != "" {
		out.ReportPath, _ = st.Path(store.Report, res.ReportName)
	}
	return out
}

func writeOutput(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "", "json":
		b, err := utils.PrettyJSON(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml", "yml":
		b, err := utils.YAML(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, string(b))
		return err
	}
	return fmt.Errorf("unsupported --format: %s (use json|yaml)", format)
}
