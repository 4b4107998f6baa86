package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/2beens/gymlog/internal/aggregation"
	"github.com/2beens/gymlog/internal/backend"
	"github.com/2beens/gymlog/internal/config"
	"github.com/2beens/gymlog/internal/logbook"
	"github.com/2beens/gymlog/internal/logging"
	"github.com/2beens/gymlog/internal/telemetry/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath  string
	env         string
	storeURL    string
	logLevel    string
	parallelism int
	strict      bool
	cacheMB     int
	metrics     bool
}

// app is what every command works with, built once the flags are parsed.
type app struct {
	cfg    *config.Config
	client *backend.CachedClient
	clock  *logbook.MonotonicClock

	metricsRegistry *prometheus.Registry
	metricsManager  *metrics.ClientManager
}

func (a *app) newEngine() *aggregation.Engine {
	opts := []aggregation.Option{
		aggregation.WithParallelism(a.cfg.ProbeParallelism),
		aggregation.WithMetrics(a.metricsManager),
	}
	if a.cfg.StrictProbing {
		opts = append(opts, aggregation.WithStrictProbing())
	}
	return aggregation.NewEngine(a.client, opts...)
}

func (a *app) newBook() *logbook.Book {
	return logbook.NewBook(a.client, a.clock, a.metricsManager)
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	a := &app{}

	root := &cobra.Command{
		Use:           "gymlog",
		Short:         "Log lifts and runs, query the workout history",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			log.SetOutput(cmd.ErrOrStderr())
			log.SetLevel(logging.GetLevel(cfg.LogLevel))

			a.cfg = cfg
			a.client = backend.NewCachedClient(backend.NewClient(cfg.StoreURL, nil), cfg.ProbeCacheSizeMB)
			a.clock = logbook.NewMonotonicClock()
			a.metricsRegistry = prometheus.NewRegistry()
			a.metricsManager = metrics.NewClientManager("gymlog", "cli", a.metricsRegistry)
			log.Debugf("using records store: %s", cfg.StoreURL)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if !flags.metrics {
				return nil
			}
			return metrics.WriteSummary(cmd.ErrOrStderr(), a.metricsRegistry)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path for the TOML config file (optional)")
	pf.StringVar(&flags.env, "env", "development", "config environment [dev | development | prod | production]")
	pf.StringVar(&flags.storeURL, "store-url", "", "records store base URL")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "log level [trace | debug | info | warn | error]")
	pf.IntVar(&flags.parallelism, "parallelism", 0, "max concurrent probes when reconstructing the history")
	pf.BoolVar(&flags.strict, "strict", false, "probe both kinds for every timestamp")
	pf.IntVar(&flags.cacheMB, "cache-mb", 0, "probe cache size in MB")
	pf.BoolVar(&flags.metrics, "metrics", false, "print the collected metrics to stderr when done")

	root.AddCommand(newLogCmd(a))
	root.AddCommand(newSessionCmd(a))
	root.AddCommand(newQueryCmd(a))
	root.AddCommand(newStatsCmd(a))
	root.AddCommand(newDeleteCmd(a))
	return root
}

// loadConfig reads the config file when one is given and lets explicitly
// set flags override it.
func loadConfig(cmd *cobra.Command, flags rootFlags) (*config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.env, flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("store-url") {
		cfg.StoreURL = flags.storeURL
	}
	if changed("log-level") || flags.configPath == "" {
		cfg.LogLevel = flags.logLevel
	}
	if changed("parallelism") {
		cfg.ProbeParallelism = flags.parallelism
	}
	if changed("strict") {
		cfg.StrictProbing = flags.strict
	}
	if changed("cache-mb") {
		cfg.ProbeCacheSizeMB = flags.cacheMB
	}

	if cfg.StoreURL == "" {
		return nil, fmt.Errorf("--store-url is required")
	}
	if cfg.ProbeParallelism <= 0 {
		return nil, fmt.Errorf("invalid --parallelism: %d", cfg.ProbeParallelism)
	}
	return cfg, nil
}
