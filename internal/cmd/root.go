// Package cmd wires the assigner command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yacchi/assigner/config"
	"github.com/yacchi/assigner/internal/logging"
)

// App holds the process streams and global flag values shared by every
// command.
type App struct {
	In      io.Reader
	Out     io.Writer
	Err     io.Writer
	Now     func() time.Time
	Version string

	configPath string
	verbosity  string
	logFormat  string

	logger     *zap.Logger
	restoreLog func()
}

// NewApp returns an App bound to the standard streams.
func NewApp(version string) *App {
	return &App{
		In:      os.Stdin,
		Out:     os.Stdout,
		Err:     os.Stderr,
		Now:     time.Now,
		Version: version,
		logger:  zap.NewNop(),
	}
}

// Command builds the root command.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:           "assigner",
		Short:         "Distribute and collect course homework repositories",
		Version:       a.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, restore, err := logging.Install(a.verbosity, a.logFormat, a.Err)
			if err != nil {
				return err
			}
			a.logger, a.restoreLog = logger, restore
			return nil
		},
	}
	root.SetIn(a.In)
	root.SetOut(a.Out)
	root.SetErr(a.Err)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", config.DefaultPath, "path or s3:// URL of the configuration")
	flags.StringVar(&a.verbosity, "verbosity", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", string(logging.FormatConsole), "log format (console, json)")

	root.AddCommand(
		a.initCommand(),
		a.setCommand(),
		a.getCommand(),
		a.configCommand(),
		a.rosterCommand(),
		a.importCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func (a *App) Execute(ctx context.Context, args []string) int {
	root := a.Command()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if a.restoreLog != nil {
		_ = a.logger.Sync()
		a.restoreLog()
	}
	if err == nil {
		return 0
	}

	fmt.Fprintf(a.Err, "error: %v\n", err)
	var upgradeErr *config.UpgradeError
	if errors.As(err, &upgradeErr) {
		fmt.Fprintln(a.Err, "This is a bug in assigner's configuration upgrade, not in your configuration. Please report it.")
	}
	return 1
}

// useConfig runs fn inside config.UseFile for the --config location.
func (a *App) useConfig(cmd *cobra.Command, fn func(*config.Config) error) error {
	return config.UseFile(cmd.Context(), a.configPath, fn, config.WithLogger(a.logger))
}
