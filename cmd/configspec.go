package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/ccbuild-go/internal/configspec"
)

// ConfigSpecCmd returns the configspec command.
func ConfigSpecCmd() *cli.Command {
	return &cli.Command{
		Name:    "configspec",
		Aliases: []string{"cs"},
		Usage:   "Inspect and rewrite config spec files (\"-\" reads stdin)",
		Subcommands: []*cli.Command{
			{
				Name:      "load-rules",
				Usage:     "Print the load rules of a config spec",
				ArgsUsage: "FILE",
				Action:    loadRulesAction,
			},
			{
				Name:      "set-load-rules",
				Usage:     "Replace the load rules of a config spec",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "rule",
						Aliases:  []string{"r"},
						Usage:    "Load rule (can be specified multiple times)",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "windows",
						Usage: "Write CRLF line endings and backslash separators",
					},
				},
				Action: setLoadRulesAction,
			},
			{
				Name:      "freeze",
				Usage:     "Pin LATEST rules to a point in time",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "time",
						Usage: "Time to freeze at (default: now)",
					},
				},
				Action: freezeAction,
			},
			{
				Name:      "diff",
				Usage:     "Show a unified diff of two config specs; exit 1 when they differ",
				ArgsUsage: "OLD NEW",
				Action:    diffAction,
			},
		},
	}
}

func loadRulesAction(c *cli.Context) error {
	spec, err := readSpecArg(c, 0)
	if err != nil {
		return err
	}
	for _, rule := range spec.ExtractLoadRules() {
		fmt.Fprintln(c.App.Writer, rule)
	}
	return nil
}

func setLoadRulesAction(c *cli.Context) error {
	spec, err := readSpecArg(c, 0)
	if err != nil {
		return err
	}
	_, err = io.WriteString(c.App.Writer, spec.ReplaceLoadRules(c.StringSlice("rule"), c.Bool("windows")).String())
	return err
}

func freezeAction(c *cli.Context) error {
	spec, err := readSpecArg(c, 0)
	if err != nil {
		return err
	}
	at := time.Now()
	if s := c.String("time"); s != "" {
		t, err := parseSinceFlag(s)
		if err != nil {
			return err
		}
		at = *t
	}
	_, err = io.WriteString(c.App.Writer, spec.AddTimeFreeze(at).String())
	return err
}

func diffAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("diff needs two config spec files")
	}
	old, err := readSpecArg(c, 0)
	if err != nil {
		return err
	}
	updated, err := readSpecArg(c, 1)
	if err != nil {
		return err
	}

	diff := configspec.Diff(old, updated, c.Args().Get(0), c.Args().Get(1))
	if diff == "" {
		fmt.Fprintln(c.App.Writer, "Config specs are equal.")
		return nil
	}
	if _, err := io.WriteString(c.App.Writer, diff); err != nil {
		return err
	}
	return cli.Exit("", 1)
}

func readSpecArg(c *cli.Context, i int) (configspec.ConfigSpec, error) {
	path := c.Args().Get(i)
	if path == "" {
		return configspec.ConfigSpec{}, errors.New("missing config spec file argument")
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(c.App.Reader)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return configspec.ConfigSpec{}, fmt.Errorf("failed to read config spec: %w", err)
	}
	return configspec.New(string(data)), nil
}
