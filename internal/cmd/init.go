package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yacchi/assigner/config"
	"github.com/yacchi/assigner/decoder"
)

// guessSemester names the term containing now: spring before May, summer
// before August, fall otherwise.
func guessSemester(now time.Time) string {
	term := "FS"
	switch {
	case now.Month() < time.May:
		term = "SP"
	case now.Month() < time.August:
		term = "SS"
	}
	return fmt.Sprintf("%d-%s", now.Year(), term)
}

type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) line() (string, error) {
	s, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// ask repeats the question until it gets an answer. An empty answer takes
// def when there is one.
func (p *prompter) ask(explanation, def string) (string, error) {
	for {
		if def != "" {
			fmt.Fprintf(p.out, "%s (default: %s): ", explanation, def)
		} else {
			fmt.Fprintf(p.out, "%s: ", explanation)
		}

		answer, err := p.line()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", fmt.Errorf("no answer for %q", explanation)
			}
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
		if def != "" {
			return def, nil
		}
	}
}

func (p *prompter) confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	answer, err := p.line()
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return strings.EqualFold(answer, "y"), nil
}

func withScheme(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return "https://" + host
}

func (a *App) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactively initialize a new configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			return a.useConfig(cmd, func(c *config.Config) error {
				host, err := p.ask("GitLab server to use", "gitlab.com")
				if err != nil {
					return err
				}
				host = withScheme(host)

				token, err := p.ask(fmt.Sprintf("GitLab access token (from %s/profile/personal_access_tokens)", host), "")
				if err != nil {
					return err
				}
				backend, err := decoder.Encode(config.Backend{Name: config.BackendGitLab, Token: token, Host: host})
				if err != nil {
					return err
				}
				if err := c.Set("backend", backend); err != nil {
					return err
				}

				semester, err := p.ask("Year and semester, in the format YYYY-(FS|SP|SS)", guessSemester(a.Now()))
				if err != nil {
					return err
				}
				if err := c.Set("semester", semester); err != nil {
					return err
				}

				namespace, err := p.ask("GitLab group to create repositories under", semester+"-CS1001")
				if err != nil {
					return err
				}
				if err := c.Set("namespace", namespace); err != nil {
					return err
				}

				canvas, err := p.confirm("Do you want to configure Canvas integration?")
				if err != nil {
					return err
				}
				if canvas {
					canvasHost, err := p.ask("Canvas server to use (???.instructure.com)", "")
					if err != nil {
						return err
					}
					canvasHost = withScheme(canvasHost)
					canvasToken, err := p.ask(fmt.Sprintf("Canvas access token (from %s/profile/settings)", canvasHost), "")
					if err != nil {
						return err
					}
					if err := c.Set("canvas_host", canvasHost); err != nil {
						return err
					}
					if err := c.Set("canvas_token", canvasToken); err != nil {
						return err
					}
				}

				c.Roster()
				fmt.Fprintln(cmd.OutOrStdout(), "Congratulations, you're ready to go!")
				return nil
			})
		},
	}
}
