package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yacchi/assigner/config"
)

// parseValue reads a command-line value as YAML so that numbers and lists
// keep their types. Values YAML cannot read, and blank ones, stay strings.
func parseValue(raw string) any {
	if strings.TrimSpace(raw) == "" {
		return raw
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func (a *App) setCommand() *cobra.Command {
	var asString bool
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

Keys name top-level fields ("_" may be used for "-") or, when they start
with "/", a JSON Pointer into the document such as /backend/token.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value any = args[1]
			if !asString {
				value = parseValue(args[1])
			}
			return a.useConfig(cmd, func(c *config.Config) error {
				return c.Set(args[0], value)
			})
		},
	}
	cmd.Flags().BoolVar(&asString, "string", false, "store the value as a string without interpreting it")
	return cmd
}

func (a *App) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.useConfig(cmd, func(c *config.Config) error {
				v, ok := c.Get(args[0])
				if !ok {
					return fmt.Errorf("%s is not set", args[0])
				}
				return printValue(cmd, v)
			})
		},
	}
}

func printValue(cmd *cobra.Command, v any) error {
	switch v.(type) {
	case map[string]any, []any:
		out, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	case nil:
		fmt.Fprintln(cmd.OutOrStdout(), "null")
	default:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	}
	return nil
}
