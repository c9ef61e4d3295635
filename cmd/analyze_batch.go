package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/KaramelBytes/autostat/internal/pipeline"
	"github.com/KaramelBytes/autostat/internal/store"
	"github.com/KaramelBytes/autostat/internal/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	abObjective   string
	abReport      bool
	abOutDir      string
	abFormat      string
	abConcurrency int
	abKeepGoing   bool
	abQuiet       bool
	abTable       tableFlags
)

// batchItem is one file's outcome in an analyze-batch run.
type batchItem struct {
	runOutput
	Error string `json:"error,omitempty"`
}

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX files concurrently with the same objective",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		opt, err := abTable.options()
		if err != nil {
			return err
		}
		c, err := currentConfig()
		if err != nil {
			return err
		}
		withReport := c.WithReport
		if cmd.Flags().Changed("report") {
			withReport = abReport
		}
		limit := abConcurrency
		if !cmd.Flags().Changed("concurrency") && c.BatchConcurrency > 0 {
			limit = c.BatchConcurrency
		}
		if limit < 1 {
			return fmt.Errorf("--concurrency must be at least 1")
		}
		st, err := openStore(abOutDir)
		if err != nil {
			return err
		}
		runner := newRunner()
		objective := c.Objective(abObjective)

		g, gCtx := errgroup.WithContext(cmd.Context())
		g.SetLimit(limit)

		items := make([]batchItem, len(files))
		var (
			mu   sync.Mutex
			done int
		)
		total := len(files)
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				out, err := analyzeOne(gCtx, runner, path, opt, objective, withReport, st)
				items[i] = batchItem{runOutput: out}
				if err != nil {
					items[i].File = path
					items[i].Error = err.Error()
					logger.Warn("batch item failed", zap.String("file", path), zap.Error(err))
				}
				mu.Lock()
				done++
				if !abQuiet {
					status := "✓"
					if err != nil {
						status = "✗"
					}
					fmt.Fprintf(os.Stderr, "[%d/%d] %s %s\n", done, total, status, filepath.Base(path))
				}
				mu.Unlock()
				if err != nil && !abKeepGoing {
					return fmt.Errorf("%s: %w", path, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), abFormat, items)
	},
}

func analyzeOne(ctx context.Context, runner *pipeline.Runner, path string, opt table.Options, objective string, withReport bool, st *store.Store) (runOutput, error) {
	tbl, err := table.LoadFile(path, opt)
	if err != nil {
		return runOutput{}, err
	}
	res, err := runner.Run(ctx, pipeline.Request{Table: tbl, Objective: objective, WithReport: withReport})
	if err != nil {
		return runOutput{}, err
	}
	if err := st.SaveResult(res); err != nil {
		return runOutput{}, err
	}
	return newRunOutput(path, res, st), nil
}

// expandInputs resolves globs and literal paths into a sorted, de-duplicated file list.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVarP(&abObjective, "objective", "o", "", "research objective applied to every file")
	analyzeBatchCmd.Flags().BoolVar(&abReport, "report", false, "also compose a PDF report per file")
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory for charts and reports (default: configured dirs)")
	analyzeBatchCmd.Flags().StringVar(&abFormat, "format", "json", "output format: json|yaml")
	analyzeBatchCmd.Flags().IntVar(&abConcurrency, "concurrency", 4, "maximum files analyzed at once (default from config)")
	analyzeBatchCmd.Flags().BoolVar(&abKeepGoing, "keep-going", false, "record per-file errors instead of stopping at the first")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress output")
	abTable.register(analyzeBatchCmd)
}
