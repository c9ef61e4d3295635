package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/autostat/internal/server"
	"github.com/KaramelBytes/autostat/internal/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP analysis service",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		addr := c.ListenAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		st, err := openStore("")
		if err != nil {
			return err
		}
		srv, err := server.New(server.Options{
			Runner:           newRunner(),
			Store:            st,
			Logger:           logger,
			DefaultObjective: c.Objective(""),
			WithReport:       c.WithReport,
			MaxUploadBytes:   int64(c.MaxUploadMB) << 20,
			CORSOrigins:      c.CORSOrigins,
			TableOptions:     table.DefaultOptions(),
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(addr) }()
		fmt.Printf("✓ Serving on %s (charts: %s)\n", addr, st.Dirs().Chart)

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
			return err
		}
		_ = logger.Sync()
		return <-errCh
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
}
