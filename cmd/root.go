package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/ccbuild-go/config"
	"github.com/masmgr/ccbuild-go/internal/output"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "ccbuild",
		Usage:   "Prepare ClearCase views for builds and report what changed",
		Version: "1.0.0",
		Commands: []*cli.Command{
			CheckoutCmd(),
			ReconcileCmd(),
			ChangesCmd(),
			PollCmd(),
			ConfigSpecCmd(),
			SpecCmd(),
			InitCmd(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (.json, .yaml)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log every external command",
			},
		},
		Before: func(c *cli.Context) error {
			setupLogging(c.App.ErrWriter, c.Bool("verbose"))
			return nil
		},
	}
}

func setupLogging(w io.Writer, verbose bool) {
	if w == nil {
		w = os.Stderr
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
}

// Flags describing the view, shared by the commands that touch one.
func viewFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "tag",
			Aliases: []string{"t"},
			Usage:   "View tag",
		},
		&cli.StringFlag{
			Name:  "view-path",
			Usage: "Local path of a snapshot view",
		},
		&cli.StringFlag{
			Name:  "stream",
			Usage: "Stream selector for stream-tracking views (stream:name@/vobs/pvob)",
		},
		&cli.BoolFlag{
			Name:  "live",
			Usage: "Use a dynamic view instead of a snapshot view",
		},
		&cli.StringSliceFlag{
			Name:  "load-rule",
			Usage: "Load rule (can be specified multiple times)",
		},
	}
}

// Flags selecting and reporting history.
func historyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "since",
			Usage: "Report changes since this time (YYYY-MM-DD, YYYY-MM-DDTHH:MM:SS or RFC 3339; default: last recorded build)",
		},
		&cli.StringSliceFlag{
			Name:    "branch",
			Aliases: []string{"b"},
			Usage:   "Branch type to query (can be specified multiple times)",
		},
		&cli.StringSliceFlag{
			Name:  "path",
			Usage: "Path to query below the view root (can be specified multiple times)",
		},
		&cli.StringSliceFlag{
			Name:  "include",
			Usage: "Glob patterns to include (can be specified multiple times)",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Glob patterns to exclude (can be specified multiple times)",
		},
		&cli.IntFlag{
			Name:  "window",
			Usage: "Seconds between checkins merged into one changeset",
		},
	}
}

func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (console, json, xml, csv, markdown, ci)",
			Value:   "console",
		},
		&cli.IntFlag{
			Name:    "top",
			Aliases: []string{"n"},
			Usage:   "Number of changesets to show (0: all)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file path (default: stdout)",
		},
		&cli.BoolFlag{
			Name:  "files",
			Usage: "List the files of every changeset",
		},
	}
}

var sinceLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// parseSinceFlag parses a time flag in local time.
func parseSinceFlag(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range sinceLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid time format: %s (expected YYYY-MM-DD, YYYY-MM-DDTHH:MM:SS or RFC 3339)", s)
}

// getOutputFormat parses the output format flag.
func getOutputFormat(s string) output.OutputFormat {
	switch s {
	case "json":
		return output.FormatJSON
	case "xml":
		return output.FormatXML
	case "csv":
		return output.FormatCSV
	case "markdown", "md":
		return output.FormatMarkdown
	case "ci", "ndjson":
		return output.FormatCI
	default:
		return output.FormatConsole
	}
}

// loadConfig loads configuration from file or defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Apply overrides from CLI
	if c.IsSet("tag") {
		cfg.View.Tag = c.String("tag")
	}
	if c.IsSet("view-path") {
		cfg.View.Path = c.String("view-path")
	}
	if c.IsSet("stream") {
		cfg.View.Stream = c.String("stream")
	}
	if c.IsSet("live") {
		cfg.View.Live = c.Bool("live")
	}
	if rules := c.StringSlice("load-rule"); len(rules) > 0 {
		cfg.View.LoadRules = rules
	}
	if branches := c.StringSlice("branch"); len(branches) > 0 {
		cfg.History.Branches = branches
	}
	if paths := c.StringSlice("path"); len(paths) > 0 {
		cfg.History.Paths = paths
	}
	if includes := c.StringSlice("include"); len(includes) > 0 {
		cfg.History.Include = includes
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.History.Exclude = excludes
	}
	if c.IsSet("window") {
		cfg.History.WindowSeconds = c.Int("window")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Run executes the CLI application.
func Run() {
	if err := App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
