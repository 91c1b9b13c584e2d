package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	miniracer "github.com/bpcreech/go-mini-racer"
)

type cliOptions struct {
	configPath string
	verbose    bool

	maxHeap   uint64
	softLimit uint64
	hardLimit uint64
	timeout   time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:           "miniracer",
		Short:         "Run JavaScript in an embedded V8 isolate",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "TOML engine config file")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	pf.Uint64Var(&opts.maxHeap, "max-heap", 0, "isolate heap cap in bytes (0 = engine default)")
	pf.Uint64Var(&opts.softLimit, "soft-limit", 0, "soft memory limit in bytes")
	pf.Uint64Var(&opts.hardLimit, "hard-limit", 0, "hard memory limit in bytes")
	pf.DurationVar(&opts.timeout, "timeout", 0, "per-eval timeout (0 = none)")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newReplCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// engineConfig merges the TOML file (if given) with flag overrides. Flags
// win.
func (o *cliOptions) engineConfig() (miniracer.EngineConfig, error) {
	var cfg miniracer.EngineConfig
	if o.configPath != "" {
		loaded, err := miniracer.LoadEngineConfig(o.configPath)
		if err != nil {
			return miniracer.EngineConfig{}, err
		}
		cfg = loaded
	}
	if o.maxHeap > 0 {
		cfg.MaxHeapBytes = o.maxHeap
	}
	if o.softLimit > 0 {
		cfg.SoftMemoryLimit = o.softLimit
	}
	if o.hardLimit > 0 {
		cfg.HardMemoryLimit = o.hardLimit
	}
	return cfg, nil
}

func (o *cliOptions) logger() (*zap.Logger, error) {
	if !o.verbose {
		return zap.NewNop(), nil
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return log, nil
}

// newEngineContext builds a context from the CLI options and returns its id.
func (o *cliOptions) newEngineContext() (uint64, error) {
	cfg, err := o.engineConfig()
	if err != nil {
		return 0, err
	}
	log, err := o.logger()
	if err != nil {
		return 0, err
	}
	return miniracer.NewContextWithConfig(cfg, nil, log)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the embedded engine version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), miniracer.Version())
		},
	}
}
