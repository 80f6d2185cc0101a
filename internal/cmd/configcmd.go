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
	"github.com/yacchi/assigner/document"
	"github.com/yacchi/assigner/format"
	"github.com/yacchi/assigner/schema"
	"github.com/yacchi/assigner/source"
	"github.com/yacchi/assigner/source/bytes"
	"github.com/yacchi/assigner/watcher"
)

const stdinPath = "-"

func (a *App) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration and its schema",
	}
	cmd.AddCommand(
		a.configShowCommand(),
		a.configVersionCommand(),
		a.configSchemaCommand(),
		a.configCheckCommand(),
	)
	return cmd
}

func (a *App) configShowCommand() *cobra.Command {
	var showSecrets bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the configuration after upgrading it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.useConfig(cmd, func(c *config.Config) error {
				data := c.Data()
				if !showSecrets {
					data = c.MaskSecrets()
				}
				out, err := c.Document().Marshal(data)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print access tokens instead of masking them")
	return cmd
}

func (a *App) configVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the schema version of the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.useConfig(cmd, func(c *config.Config) error {
				fmt.Fprintf(cmd.OutOrStdout(), "configuration version %d (latest %d)\n", c.Version(), c.Migrator().Latest())
				return nil
			})
		},
	}
}

func (a *App) configSchemaCommand() *cobra.Command {
	var version int
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of a configuration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := config.NewMigrator(config.WithLogger(a.logger))
			if !cmd.Flags().Changed("version") {
				version = m.Latest()
			}
			s, err := m.Schema(version)
			if err != nil {
				return err
			}
			out, err := s.JSON()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "schema version (default latest)")
	return cmd
}

func (a *App) configCheckCommand() *cobra.Command {
	var (
		watch      bool
		interval   time.Duration
		schemaPath string
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration without modifying it",
		Long: `Validate the configuration without modifying it.

The document is upgraded in memory and checked against the latest schema.
With --watch the check is repeated every time the document changes. Use
--config - to check a YAML document read from standard input. --schema adds
the constraints of a JSON Schema file, such as one derived from the output
of "config schema", on top of the built-in schema.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, doc, err := a.resolveForCheck(cmd, watch)
			if err != nil {
				return err
			}
			ck := &checker{doc: doc, migrator: config.NewMigrator(config.WithLogger(a.logger))}
			if schemaPath != "" {
				if ck.extra, err = loadSchema(schemaPath); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()

			if !watch {
				data, err := src.Load(cmd.Context())
				if err != nil {
					return err
				}
				return reportCheck(out, src.Location(), ck.check(data))
			}

			w := watcher.New(src, watcher.WithPollInterval(interval))
			return a.watchChecks(cmd.Context(), w, out, src.Location(), ck)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "re-check whenever the configuration changes")
	cmd.Flags().DurationVar(&interval, "interval", watcher.DefaultPollInterval, "poll interval for sources without change notifications")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "JSON Schema file with additional constraints")
	return cmd
}

// resolveForCheck is config.Resolve, except that "-" reads the document
// from standard input.
func (a *App) resolveForCheck(cmd *cobra.Command, watch bool) (source.Source, document.Document, error) {
	if a.configPath != stdinPath {
		return config.Resolve(a.configPath)
	}
	if watch {
		return nil, nil, errors.New("standard input cannot be watched")
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read standard input: %w", err)
	}
	return bytes.New(data, stdinPath), format.ForLocation(stdinPath), nil
}

// checker validates raw documents the way Open would, without saving.
type checker struct {
	doc      document.Document
	migrator *config.Migrator
	extra    *schema.Validator
}

// check parses data and validates its upgraded form against the built-in
// schema and then the extra one, if any.
func (ck *checker) check(data []byte) error {
	tree, err := ck.doc.Get(data)
	if err != nil {
		return err
	}
	upgraded, err := ck.migrator.Upgrade(tree)
	if err != nil {
		return err
	}
	if err := ck.migrator.Validate(upgraded); err != nil {
		return err
	}
	if ck.extra != nil {
		return ck.extra.Validate(upgraded)
	}
	return nil
}

func loadSchema(path string) (*schema.Validator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	s, err := schema.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return schema.NewValidator(s), nil
}

func reportCheck(out io.Writer, location string, err error) error {
	if err != nil {
		fmt.Fprintf(out, "%s: invalid: %v\n", location, err)
		return fmt.Errorf("%s is not valid", location)
	}
	fmt.Fprintf(out, "%s: valid\n", location)
	return nil
}

func (a *App) watchChecks(ctx context.Context, w watcher.Watcher, out io.Writer, location string, ck *checker) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	a.logger.Info("watching configuration", zap.String("config", location), zap.String("mode", string(w.Type())))
	for r := range w.Results() {
		if r.Err != nil {
			if errors.Is(r.Err, context.Canceled) {
				break
			}
			a.logger.Warn("failed to read configuration", zap.Error(r.Err))
			continue
		}
		_ = reportCheck(out, location, ck.check(r.Data))
	}
	return nil
}
