// Package walletd is the command line of the development validator
// host.
package walletd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/blockberries/simplewallet/command"
	tpgrpc "github.com/blockberries/simplewallet/grpc"
	"github.com/blockberries/simplewallet/state"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const (
	listenFlag  = "listen"
	dataDirFlag = "data-dir"
)

// Config is the host configuration.
type Config struct {
	ListenAddr  string `hcl:"listen" json:"listen"`
	DataDir     string `hcl:"data_dir" json:"data_dir"`
	Verbosity   int    `hcl:"verbosity" json:"verbosity"`
	MetricsAddr string `hcl:"metrics" json:"metrics"`
	LogFilePath string `hcl:"log_to" json:"log_to"`
}

// DefaultConfig returns the configuration used when nothing is set.
// An empty DataDir keeps state in memory.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr: "127.0.0.1:4004",
	}
}

type hostParams struct {
	configPath string
	flags      Config
}

// GetCommand returns the root command of walletd.
func GetCommand() *cobra.Command {
	return newCommand(&hostParams{})
}

func newCommand(params *hostParams) *cobra.Command {
	defaults := DefaultConfig()

	cmd := &cobra.Command{
		Use:           "walletd",
		Short:         "Development validator host for simplewallet transaction processors",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := params.resolve(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return Run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&params.configPath, command.ConfigFlag, "",
		"the path to the config file. Supports .json and .hcl")
	cmd.Flags().StringVar(&params.flags.ListenAddr, listenFlag, defaults.ListenAddr,
		"the address and port processors and clients connect to")
	cmd.Flags().StringVar(&params.flags.DataDir, dataDirFlag, "",
		"the leveldb directory for state; state is kept in memory if omitted")
	cmd.Flags().CountVarP(&params.flags.Verbosity, command.VerboseFlag, "v",
		"increase output verbosity (-v info, -vv debug)")
	cmd.Flags().StringVar(&params.flags.MetricsAddr, command.MetricsFlag, "",
		"the address and port for the prometheus instrumentation service (address:port)")
	cmd.Flags().StringVar(&params.flags.LogFilePath, command.LogFileFlag, "",
		"write all logs to the file at specified location instead of writing them to console")

	return cmd
}

func (p *hostParams) resolve(cmd *cobra.Command) (*Config, error) {
	cfg := DefaultConfig()

	if command.IsConfigFileSpecified(cmd) {
		if err := command.ReadConfigFile(p.configPath, cfg); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed(listenFlag) {
		cfg.ListenAddr = p.flags.ListenAddr
	}

	if flags.Changed(dataDirFlag) {
		cfg.DataDir = p.flags.DataDir
	}

	if flags.Changed(command.VerboseFlag) {
		cfg.Verbosity = p.flags.Verbosity
	}

	if flags.Changed(command.MetricsFlag) {
		cfg.MetricsAddr = p.flags.MetricsAddr
	}

	if flags.Changed(command.LogFileFlag) {
		cfg.LogFilePath = p.flags.LogFilePath
	}

	return cfg, nil
}

func openStore(dataDir string, logger hclog.Logger) (state.Store, error) {
	if dataDir == "" {
		logger.Warn("no data directory set, state is kept in memory")

		return state.NewMemStore(), nil
	}

	return state.OpenLevelStore(dataDir)
}

// Run serves the validator until ctx is cancelled.
func Run(ctx context.Context, cfg *Config) (err error) {
	logger, closeLog, err := command.NewLogger("walletd", command.LogLevel(cfg.Verbosity), cfg.LogFilePath)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := closeLog(); cerr != nil {
			err = multierror.Append(err, fmt.Errorf("close log file: %w", cerr))
		}
	}()

	store, err := openStore(cfg.DataDir, logger)
	if err != nil {
		return err
	}

	host := tpgrpc.NewValidatorServer(store, logger)

	defer func() {
		if cerr := host.Validator().Close(); cerr != nil {
			err = multierror.Append(err, fmt.Errorf("close state: %w", cerr))
		}
	}()

	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
	}

	gs := grpc.NewServer()
	host.Register(gs)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("validator listening", "addr", lis.Addr().String(), "version", store.Version())

		if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		gs.Stop()

		return nil
	})

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return command.ServeMetrics(gctx, cfg.MetricsAddr,
				prometheus.DefaultRegisterer, prometheus.DefaultGatherer, logger)
		})
	}

	return g.Wait()
}
