package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/infrastructure"
	"storefront/internal/supervisor"
)

type rootOptions struct {
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront application server",
		Long:          `storefront serves the storefront GraphQL application, answering health checks and warming up each worker before it accepts traffic.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: $STOREFRONT_CONFIG_FILE, config.yaml or configs/config.yaml)")

	root.AddCommand(
		newServeCmd(opts),
		newWorkerCmd(opts),
		newWarmupCmd(opts),
		newEnvCmd(opts),
	)
	return root
}

func (o *rootOptions) load() error {
	var (
		cfg *config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.LoadFrom(o.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	o.cfg = cfg
	o.logger = logger
	return nil
}

// newSupervisor is shared by serve and worker so both run the same hooks
func (o *rootOptions) newSupervisor() *supervisor.Supervisor {
	s := supervisor.New(o.cfg, o.logger)
	s.OnWorkerStart(app.WorkerHooks)
	return s
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		mode    string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve HTTP traffic",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("mode") {
				opts.cfg.Supervisor.Mode = mode
			}
			if cmd.Flags().Changed("workers") {
				opts.cfg.Supervisor.Workers = workers
			}
			if opts.cfg.Supervisor.Mode != config.ModeSingle && opts.cfg.Supervisor.Mode != config.ModePrefork {
				return fmt.Errorf("unknown mode %q", opts.cfg.Supervisor.Mode)
			}

			ctx, stop := signalContext()
			defer stop()

			opts.logger.InfoContext(ctx, "storefront starting",
				slog.String("version", app.Version),
				slog.String("addr", opts.cfg.Addr()))
			return opts.newSupervisor().Run(ctx)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", config.ModeSingle, "supervisor mode: single or prefork")
	cmd.Flags().IntVar(&workers, "workers", 1, "number of worker processes in prefork mode")
	return cmd
}

func newWorkerCmd(opts *rootOptions) *cobra.Command {
	var id int
	cmd := &cobra.Command{
		Use:    "worker",
		Short:  "Run one pre-forked worker on the inherited listener",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("id") {
				if raw := os.Getenv(config.WorkerIDEnv); raw != "" {
					parsed, err := strconv.Atoi(raw)
					if err != nil {
						return fmt.Errorf("invalid %s: %w", config.WorkerIDEnv, err)
					}
					id = parsed
				}
			}

			ctx, stop := signalContext()
			defer stop()
			return opts.newSupervisor().RunInheritedWorker(ctx, id)
		},
	}
	cmd.Flags().IntVar(&id, "id", 0, "worker index")
	return cmd
}

func newWarmupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "warmup",
		Short: "Build the application, send the warm-up request and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.cfg.Bootstrap.WarmupEnabled = true
			a, err := app.NewApplication(cmd.Context(), app.Options{Config: opts.cfg, Logger: opts.logger})
			if err != nil {
				return err
			}
			return printYAML(cmd.OutOrStdout(), map[string]interface{}{
				"settings_module": a.Settings.Module,
				"host":            a.Warmup.Host,
				"path":            opts.cfg.Bootstrap.WarmupPath,
				"status":          a.Warmup.Status,
				"bytes":           a.Warmup.Bytes,
				"duration":        a.Warmup.Duration.String(),
				"schema_loaded":   a.Base.SchemaLoaded(),
			})
		},
	}
}

// envReport is what the env command prints
type envReport struct {
	SettingsModule   string   `yaml:"settings_module"`
	AllowedHosts     []string `yaml:"allowed_hosts"`
	HealthPath       string   `yaml:"health_path"`
	WarmupPath       string   `yaml:"warmup_path"`
	CollectorHost    string   `yaml:"collector_host"`
	CollectorPort    string   `yaml:"collector_port"`
	SpanLogging      bool     `yaml:"span_logging"`
	StartupSpanDelay string   `yaml:"startup_span_delay"`
	Mode             string   `yaml:"mode"`
	Workers          int      `yaml:"workers"`
}

func newEnvCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the resolved bootstrap and tracing environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			tracing, err := infrastructure.TracingConfigFromEnv(config.JaegerLoggingEnv, false)
			if err != nil {
				return err
			}
			delay, err := config.DurationFromEnv(config.StartupSpanDelayEnv, config.DefaultStartupSpanDelay)
			if err != nil {
				return err
			}

			module := config.StringFromEnv(config.SettingsModuleEnv, opts.cfg.Settings.Module)
			return printYAML(cmd.OutOrStdout(), envReport{
				SettingsModule:   module,
				AllowedHosts:     opts.cfg.Settings.AllowedHosts,
				HealthPath:       opts.cfg.Bootstrap.HealthPath,
				WarmupPath:       opts.cfg.Bootstrap.WarmupPath,
				CollectorHost:    tracing.AgentHost,
				CollectorPort:    tracing.AgentPort,
				SpanLogging:      tracing.Logging,
				StartupSpanDelay: delay.String(),
				Mode:             opts.cfg.Supervisor.Mode,
				Workers:          opts.cfg.Supervisor.Workers,
			})
		},
	}
}

func printYAML(w io.Writer, v interface{}) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
