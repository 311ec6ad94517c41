package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arman/vod-catalog/internal/api"
	"github.com/arman/vod-catalog/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only catalog API",
	Long: `Serve the resolved catalog over HTTP.

Endpoints:
  GET /api/v1/movies         list movies (?year=, ?limit=, ?offset=)
  GET /api/v1/series         list series (?year=, ?limit=, ?offset=)
  GET /api/v1/entities/{id}  entity detail with listings, genres, credits
  GET /api/v1/stats          catalog-wide counts
  GET /healthz               liveness check`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (e.g. :8080)")
	viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	applyLogLevel()

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	server := api.NewServer(api.Config{
		Store: db,
		Addr:  viper.GetString("serve.addr"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		util.ErrorLog("Shutdown error: %v", err)
		return err
	}
	return nil
}
