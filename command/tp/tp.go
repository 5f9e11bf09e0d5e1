// Package tp is the command line of the simplewallet transaction
// processor.
package tp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/blockberries/simplewallet/command"
	tpgrpc "github.com/blockberries/simplewallet/grpc"
	"github.com/blockberries/simplewallet/processor"
	"github.com/blockberries/simplewallet/wallet"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const workersFlag = "workers"

var errValidatorClosed = errors.New("validator closed the connection")

// Config is the transaction processor configuration. It can be read
// from a config file; explicitly set flags take precedence.
type Config struct {
	Endpoint    string `hcl:"connect" json:"connect"`
	Verbosity   int    `hcl:"verbosity" json:"verbosity"`
	MetricsAddr string `hcl:"metrics" json:"metrics"`
	Workers     int    `hcl:"workers" json:"workers"`
	LogFilePath string `hcl:"log_to" json:"log_to"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Endpoint: tpgrpc.DefaultEndpoint,
		Workers:  16,
	}
}

type tpParams struct {
	configPath string
	flags      Config
}

// GetCommand returns the root command of simplewallet-tp.
func GetCommand() *cobra.Command {
	return newCommand(&tpParams{})
}

func newCommand(params *tpParams) *cobra.Command {
	defaults := DefaultConfig()

	cmd := &cobra.Command{
		Use:   "simplewallet-tp [flags] [connect_string]",
		Short: "Transaction processor for the simplewallet family",
		Long: "Connects to a validator and applies simplewallet deposit and withdraw transactions.\n" +
			"connect_string defaults to " + tpgrpc.DefaultEndpoint + ".",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := params.resolve(cmd, args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return Run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(
		&params.configPath,
		command.ConfigFlag,
		"",
		"the path to the config file. Supports .json and .hcl",
	)

	cmd.Flags().CountVarP(
		&params.flags.Verbosity,
		command.VerboseFlag,
		"v",
		"increase output verbosity (-v info, -vv debug)",
	)

	cmd.Flags().StringVar(
		&params.flags.MetricsAddr,
		command.MetricsFlag,
		"",
		"the address and port for the prometheus instrumentation service (address:port)",
	)

	cmd.Flags().IntVar(
		&params.flags.Workers,
		workersFlag,
		defaults.Workers,
		"the maximum number of transactions applied concurrently",
	)

	cmd.Flags().StringVar(
		&params.flags.LogFilePath,
		command.LogFileFlag,
		"",
		"write all logs to the file at specified location instead of writing them to console",
	)

	return cmd
}

// resolve merges defaults, the config file, flags and the positional
// endpoint, in increasing order of precedence.
func (p *tpParams) resolve(cmd *cobra.Command, args []string) (*Config, error) {
	cfg := DefaultConfig()

	if command.IsConfigFileSpecified(cmd) {
		if err := command.ReadConfigFile(p.configPath, cfg); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed(command.VerboseFlag) {
		cfg.Verbosity = p.flags.Verbosity
	}

	if flags.Changed(command.MetricsFlag) {
		cfg.MetricsAddr = p.flags.MetricsAddr
	}

	if flags.Changed(workersFlag) {
		cfg.Workers = p.flags.Workers
	}

	if flags.Changed(command.LogFileFlag) {
		cfg.LogFilePath = p.flags.LogFilePath
	}

	if len(args) == 1 {
		cfg.Endpoint = args[0]
	}

	if _, err := tpgrpc.ParseEndpoint(cfg.Endpoint); err != nil {
		return nil, err
	}

	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}

	return cfg, nil
}

// Run starts the processor and, if configured, the metrics endpoint,
// and blocks until ctx is cancelled or either of them fails.
func Run(ctx context.Context, cfg *Config) (err error) {
	logger, closeLog, err := command.NewLogger("simplewallet-tp", command.LogLevel(cfg.Verbosity), cfg.LogFilePath)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := closeLog(); cerr != nil {
			err = multierror.Append(err, fmt.Errorf("close log file: %w", cerr))
		}
	}()

	metrics := processor.NilMetrics()
	if cfg.MetricsAddr != "" {
		metrics = processor.GetPrometheusMetrics("simplewallet")
		metrics.Register(prometheus.DefaultRegisterer)
	}

	proc := processor.New(logger.Named("processor"), metrics)
	if err := proc.AddHandler(wallet.NewHandler()); err != nil {
		return err
	}

	if err := proc.Start(); err != nil {
		return err
	}
	defer proc.Stop()

	conn, err := tpgrpc.Dial(ctx, cfg.Endpoint)
	if err != nil {
		return err
	}
	defer conn.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := tpgrpc.Serve(gctx, conn, proc,
			tpgrpc.WithLogger(logger),
			tpgrpc.WithWorkers(cfg.Workers),
		)
		if err == nil && gctx.Err() == nil {
			return errValidatorClosed
		}

		return err
	})

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return command.ServeMetrics(gctx, cfg.MetricsAddr,
				prometheus.DefaultRegisterer, prometheus.DefaultGatherer, logger)
		})
	}

	logger.Info("connecting", "endpoint", cfg.Endpoint)

	return g.Wait()
}
