package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/autostat/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set autostat configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, k := range cfgpkg.Keys {
			fmt.Fprintf(out, "%s: %s\n", k, configValue(c, k))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := currentConfig()
		if err != nil {
			return err
		}
		switch key {
		case "data_dir":
			c.DataDir = val
		case "upload_dir":
			c.UploadDir = val
		case "chart_dir":
			c.ChartDir = val
		case "report_dir":
			c.ReportDir = val
		case "default_objective":
			c.DefaultObjective = val
		case "with_report":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for with_report: %v", val)
			}
			c.WithReport = b
		case "listen_addr":
			c.ListenAddr = val
		case "max_upload_mb":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for max_upload_mb: %v", val)
			}
			c.MaxUploadMB = i
		case "cors_origins":
			var origins []string
			for _, o := range strings.Split(val, ",") {
				if o = strings.TrimSpace(o); o != "" {
					origins = append(origins, o)
				}
			}
			c.CORSOrigins = origins
		case "log_level":
			switch val {
			case "debug", "info", "warn", "error":
				c.LogLevel = val
			default:
				return fmt.Errorf("invalid log_level: %s (use debug|info|warn|error)", val)
			}
		case "log_format":
			switch val {
			case "console", "json":
				c.LogFormat = val
			default:
				return fmt.Errorf("invalid log_format: %s (use console|json)", val)
			}
		case "log_file":
			c.LogFile = val
		case "batch_concurrency":
			i, err := strconv.Atoi(val)
			if err != nil || i < 1 {
				return fmt.Errorf("invalid int for batch_concurrency: %v", val)
			}
			c.BatchConcurrency = i
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func configValue(c *cfgpkg.Global, key string) string {
	switch key {
	case "data_dir":
		return c.DataDir
	case "upload_dir":
		return c.UploadDir
	case "chart_dir":
		return c.ChartDir
	case "report_dir":
		return c.ReportDir
	case "default_objective":
		return c.DefaultObjective
	case "with_report":
		return strconv.FormatBool(c.WithReport)
	case "listen_addr":
		return c.ListenAddr
	case "max_upload_mb":
		return strconv.Itoa(c.MaxUploadMB)
	case "cors_origins":
		return strings.Join(c.CORSOrigins, ",")
	case "log_level":
		return c.LogLevel
	case "log_format":
		return c.LogFormat
	case "log_file":
		return c.LogFile
	case "batch_concurrency":
		return strconv.Itoa(c.BatchConcurrency)
	}
	return ""
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
