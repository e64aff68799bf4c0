// Command camctl drives lookup tables from the command line: synthetic
// benchmarks with a Prometheus endpoint, and one-shot lookups against a
// table loaded from YAML.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	logLevel string
	log      *zap.Logger
}

func newRootCmd() *cobra.Command {
	ro := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "camctl",
		Short:        "Associative lookup table toolbox",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			log, err := newLogger(ro.logLevel)
			if err != nil {
				return err
			}
			ro.log = log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if ro.log != nil {
				_ = ro.log.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&ro.logLevel, "log-level", "info", "log level: debug | info | warn | error")

	cmd.AddCommand(newBenchCmd(ro), newLookupCmd(ro))
	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
