package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nimbus/internal/runner"
	"github.com/ajitpratap0/nimbus/pkg/config"
	"github.com/ajitpratap0/nimbus/pkg/connector/registry"
	"github.com/ajitpratap0/nimbus/pkg/logger"
	"github.com/ajitpratap0/nimbus/pkg/observability"

	// Import all available connectors to register them
	_ "github.com/ajitpratap0/nimbus/pkg/connector/sources/s3events"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	viper.SetEnvPrefix("NIMBUS")
	viper.AutomaticEnv()

	root := &cobra.Command{
		Use:   "nimbus",
		Short: "Nimbus - Incremental object-store event ingestion",
		Long: `Nimbus consumes object-store notification events from a versioned
change-log table and loads the referenced files as resumable, checkpointed
batches.`,
	}

	// Version command
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Nimbus v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	// List command to show available connectors
	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available source connectors",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available Source Connectors:")
			for _, source := range registry.ListSources() {
				fmt.Printf("  - %s\n", source)
			}
		},
	})

	var configFile, stateFile string
	var interval time.Duration

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch one batch and exit",
		Long: `Fetch one batch from the configured source, persisting the returned
checkpoint to the state file so the next invocation resumes after it.

Example:
  nimbus fetch --config source.yaml --state state.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configFile)
			if err != nil {
				return err
			}
			r, err := runner.New(cfg, stateFile, interval)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			rows, err := r.RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Loaded %d rows\n", rows)
			return nil
		},
	}
	fetchCmd.Flags().StringVarP(&configFile, "config", "c", viper.GetString("CONFIG"), "Source configuration file (YAML)")
	fetchCmd.Flags().StringVarP(&stateFile, "state", "s", viper.GetString("STATE"), "Checkpoint state file (JSON)")
	_ = fetchCmd.MarkFlagRequired("config")
	root.AddCommand(fetchCmd)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch batches on an interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configFile)
			if err != nil {
				return err
			}
			r, err := runner.New(cfg, stateFile, interval)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			if err := r.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
	runCmd.Flags().StringVarP(&configFile, "config", "c", viper.GetString("CONFIG"), "Source configuration file (YAML)")
	runCmd.Flags().StringVarP(&stateFile, "state", "s", viper.GetString("STATE"), "Checkpoint state file (JSON)")
	runCmd.Flags().DurationVarP(&interval, "interval", "i", 0, "Poll interval (defaults to the configured poll_interval)")
	_ = runCmd.MarkFlagRequired("config")
	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and initializes logging and tracing
func setup(configFile string) (*config.BaseConfig, error) {
	cfg := config.NewBaseConfig("", "")
	if err := config.Load(configFile, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:    cfg.Observability.LogLevel,
		Encoding: "json",
	}); err != nil {
		return nil, err
	}

	if cfg.Observability.EnableTracing {
		if err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    "nimbus",
			ServiceVersion: version,
		}); err != nil {
			logger.Warn("failed to initialize tracing", zap.Error(err))
		}
	}

	return cfg, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
