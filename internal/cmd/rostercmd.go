package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yacchi/assigner/config"
	"github.com/yacchi/assigner/roster"
)

func (a *App) rosterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage the class roster",
	}
	cmd.AddCommand(a.rosterListCommand(), a.rosterAddCommand(), a.rosterRemoveCommand())
	return cmd
}

func printRoster(w io.Writer, students []roster.Student) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tName\tUsername\tSection")
	for i, s := range students {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, s.Name, s.Username, s.Section)
	}
	return tw.Flush()
}

func (a *App) rosterListCommand() *cobra.Command {
	var section string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.useConfig(cmd, func(c *config.Config) error {
				students, err := c.Students()
				if err != nil {
					return err
				}
				filtered, err := roster.Filter(students, section, "")
				if errors.Is(err, roster.ErrNoMatch) && section != "" {
					a.logger.Warn("No students in section", zap.String("section", section),
						zap.Strings("sections", roster.Sections(students)))
				} else if err != nil && !errors.Is(err, roster.ErrNoMatch) {
					return err
				}
				return printRoster(cmd.OutOrStdout(), filtered)
			})
		},
	}
	cmd.Flags().StringVar(&section, "section", "", "only list this section")
	return cmd
}

func (a *App) rosterAddCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "add <name> <username> <section>",
		Short: "Add a student to the roster",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := roster.Student{Name: args[0], Username: args[1], Section: args[2]}
			return a.useConfig(cmd, func(c *config.Config) error {
				err := c.AddStudent(s, force)
				var dup *config.DuplicateUserError
				if errors.As(err, &dup) {
					a.logger.Error("Student already exists in roster!", zap.String("username", dup.Username))
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "add the student even if the username is taken")
	return cmd
}

func (a *App) rosterRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <username>",
		Short: "Remove a student from the roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.useConfig(cmd, func(c *config.Config) error {
				n, err := c.RemoveStudent(args[0])
				if err != nil {
					return err
				}
				a.logger.Info(fmt.Sprintf("Removed %d entries from the roster", n), zap.String("username", args[0]))
				return nil
			})
		},
	}
}

func (a *App) importCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "import <file> <section>",
		Short: "Import students from a PeopleSoft CSV export",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			students, err := roster.ReadCSV(f, args[1])
			if err != nil {
				return fmt.Errorf("failed to import %s: %w", args[0], err)
			}

			return a.useConfig(cmd, func(c *config.Config) error {
				imported := 0
				for _, s := range students {
					err := c.AddStudent(s, force)
					var dup *config.DuplicateUserError
					if errors.As(err, &dup) {
						a.logger.Warn(fmt.Sprintf("User %s is already in the roster, skipping", dup.Username))
						continue
					}
					if err != nil {
						return err
					}
					imported++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d students.\n", imported)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "import students whose username is already taken")
	return cmd
}
