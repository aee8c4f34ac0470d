// Command convoca simulates binary cellular automata built from convolution
// filters and measures the entropy of their neighbourhood statistics.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/htapia/convoca/config"
	"github.com/htapia/convoca/internal/logging"
)

// app carries state shared by every subcommand.
type app struct {
	cfgFile  string
	verbose  bool
	logLevel string

	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out, logger: zap.NewNop(), cfg: config.Default()}

	root := &cobra.Command{
		Use:   "convoca",
		Short: "Convolutional cellular automata and entropy measurements",
		Long: `convoca builds binary cellular automata as fixed convolution filter banks,
steps batches of images through them and measures the Shannon entropy of the
3x3 neighbourhood words each image contains.

Settings come from convoca.yaml (in . or configs/), CONVOCA_* environment
variables and command flags, in increasing order of precedence.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default convoca.yaml in . or configs/)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newLifeCmd(a),
		newRunCmd(a),
		newEntropyCmd(a),
		newWalkCmd(a),
		newGliderCmd(a),
		newRunsCmd(a),
		newPerfCmd(a),
	)
	return root
}

// init loads configuration and builds the logger.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	a.logger.Debug("configuration loaded",
		zap.String("command", cmd.Name()),
		zap.Any("config", cfg))
	return nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
