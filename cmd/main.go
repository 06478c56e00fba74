package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	_ "power_windows/docs"
	"power_windows/internal/config"
	"power_windows/internal/logger"
	"power_windows/internal/repository/db"
	"power_windows/internal/server"
	"power_windows/internal/service"
	"power_windows/internal/telemetry"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var configFile string

var rootCmd = &cobra.Command{
	Use:   "power-windows",
	Short: "Power window controller",
	Long: `Power window controller for a two-door vehicle.

The hub samples the door buttons and relays commands to the door nodes over
HTTP. Each door node drives its motor relays and stops them on overload or
when the operator releases the button.

  power-windows hub  [--config configs/hub.yml]
  power-windows door [--config configs/door.yml]`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default configs/<role>.yml)")
}

// @title                       Power Windows API
// @version                     1.0
// @description                 Door node command endpoints and hub operator API.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// openDB initializes the SQLite database at path.
func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	conn, err := db.InitDB(path)
	if err != nil {
		return nil, fmt.Errorf("init sqlite %s: %w", path, err)
	}
	log.Infow("sqlite_ready", "path", path)
	return conn, nil
}

// eventSinks builds the optional Kafka sink. The returned close func is never nil.
func eventSinks(cfg config.Kafka, log *logger.Logger) ([]service.EventSink, func(), error) {
	if !cfg.Enabled() {
		return nil, func() {}, nil
	}
	sink, err := telemetry.NewKafkaSink(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	log.Infow("kafka_sink_enabled", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return []service.EventSink{sink}, func() { _ = sink.Close() }, nil
}

// serve runs the HTTP server in g and shuts it down once ctx ends.
func serve(ctx context.Context, g *errgroup.Group, port string, handler http.Handler, log *logger.Logger) {
	srv := &server.Server{}
	g.Go(func() error {
		log.Infow("http_listening", "port", port)
		if err := srv.Run(port, handler); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Infow("shutting down server...")

		// allow in-flight requests to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
