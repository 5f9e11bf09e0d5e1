// Package command holds the pieces shared by the simplewallet
// binaries: config file loading, logger construction and the
// prometheus endpoint.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/hcl"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const (
	ConfigFlag  = "config"
	VerboseFlag = "verbose"
	MetricsFlag = "metrics"
	LogFileFlag = "log-to"
)

var errUnknownConfigFormat = errors.New("config file must have a .hcl or .json suffix")

// ReadConfigFile decodes the .hcl or .json file at path into out.
// Fields absent from the file keep their current values.
func ReadConfigFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var unmarshal func([]byte, interface{}) error

	switch {
	case strings.HasSuffix(path, ".hcl"):
		unmarshal = hcl.Unmarshal
	case strings.HasSuffix(path, ".json"):
		unmarshal = json.Unmarshal
	default:
		return fmt.Errorf("%s: %w", path, errUnknownConfigFormat)
	}

	if err := unmarshal(data, out); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	return nil
}

// IsConfigFileSpecified reports whether --config was given.
func IsConfigFileSpecified(cmd *cobra.Command) bool {
	return cmd.Flags().Changed(ConfigFlag)
}

// LogLevel maps the -v count onto a log level: warnings by default,
// info with -v and debug with -vv or more.
func LogLevel(verbosity int) hclog.Level {
	switch {
	case verbosity <= 0:
		return hclog.Warn
	case verbosity == 1:
		return hclog.Info
	default:
		return hclog.Debug
	}
}

// NewLogger returns a logger writing to path, or to standard error if
// path is empty. The returned close function releases the log file and
// must be called once the logger is no longer used.
func NewLogger(name string, level hclog.Level, path string) (hclog.Logger, func() error, error) {
	opts := &hclog.LoggerOptions{
		Name:  name,
		Level: level,
	}

	if path == "" {
		return hclog.New(opts), func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create log file, %w", err)
	}

	opts.Output = f

	return hclog.New(opts), f.Close, nil
}

// ServeMetrics exposes gatherer on addr at /metrics until ctx is done.
func ServeMetrics(ctx context.Context, addr string, reg prometheus.Registerer,
	gatherer prometheus.Gatherer, logger hclog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.InstrumentMetricHandler(
		reg, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: time.Minute,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("prometheus server started", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("prometheus server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	}
}
