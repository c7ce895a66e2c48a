package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/DeusData/starscope/internal/config"
	"github.com/DeusData/starscope/internal/db"
	"github.com/DeusData/starscope/internal/shell"
	"github.com/DeusData/starscope/internal/tools"

	"github.com/urfave/cli/v2"
)

const usageText = `starscope [options] [PATHS]

If you don't pass any of -n, -r, -w or PATHS the default behaviour is to
recurse in the current directory and build or update the database.

Query scopes must be specified with '::', for example -q calls,File::mtime.`

// databaseFlags are accepted both globally and by the serve command.
func databaseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "no-auto",
			Aliases: []string{"n"},
			Usage:   "Don't automatically update/create the database",
		},
		&cli.StringFlag{
			Name:    "read-db",
			Aliases: []string{"r"},
			Usage:   "Reads the DB from `PATH` instead of the default",
		},
		&cli.StringFlag{
			Name:    "write-db",
			Aliases: []string{"w"},
			Usage:   "Writes the DB to `PATH` instead of the default",
		},
	}
}

func newApp() *cli.App {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "dump",
			Aliases: []string{"d"},
			Usage:   "Dumps `TABLE` to stdout",
		},
		&cli.BoolFlag{
			Name:  "dump-all",
			Usage: "Dumps every table to stdout",
		},
		&cli.BoolFlag{
			Name:    "line-mode",
			Aliases: []string{"l"},
			Usage:   "Starts line-oriented interface",
		},
		&cli.StringFlag{
			Name:    "query",
			Aliases: []string{"q"},
			Usage:   "Looks up QUERY in TABLE",
		},
		&cli.BoolFlag{
			Name:    "summary",
			Aliases: []string{"s"},
			Usage:   "Print a database summary to stdout",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file path",
			Value:   config.FileName,
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Log progress to stderr",
		},
	}
	flags = append(flags, databaseFlags()...)

	return &cli.App{
		Name:                   "starscope",
		Usage:                  "Smart code indexing and lookup",
		UsageText:              usageText,
		Version:                tools.Version,
		UseShortOptionHandling: true,
		Flags:                  flags,
		Before: func(c *cli.Context) error {
			setupLogging(c.App.ErrWriter, c.Bool("verbose"))
			return nil
		},
		Action: runMain,
		Commands: []*cli.Command{
			{
				Name:      "serve",
				Usage:     "Serve the database to MCP clients over stdio",
				ArgsUsage: "[PATHS]",
				Flags:     databaseFlags(),
				Action:    runServe,
			},
		},
	}
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func loadConfig(c *cli.Context) *config.Config {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		slog.Warn("config.err", "err", err)
	}
	return cfg
}

// openDB applies the default database rules: with auto on and no write
// path the default database is written; an existing default database is
// read unless another one was named. A database read from disk gets
// PATHS as extra roots, otherwise PATHS (or ".") are the roots. It returns
// the database and the path it was saved to, if any.
func openDB(ctx context.Context, c *cli.Context, cfg *config.Config) (*db.DB, string, error) {
	auto := !c.Bool("no-auto")
	readPath := c.String("read-db")
	writePath := c.String("write-db")
	defaultPath := cfg.EffectiveDatabase()

	if auto && writePath == "" {
		writePath = defaultPath
	}
	if readPath == "" {
		if _, err := os.Stat(defaultPath); err == nil {
			readPath = defaultPath
		}
	}

	d, err := cfg.NewDB()
	if err != nil {
		return nil, "", err
	}

	switch {
	case readPath != "":
		if err := d.Load(readPath); err != nil {
			return nil, "", err
		}
		d.AddDirs(c.Args().Slice()...)
	case c.NArg() == 0:
		d.AddDirs(".")
	default:
		d.AddDirs(c.Args().Slice()...)
	}

	if readPath == "" || auto {
		if _, err := d.Update(ctx); err != nil {
			return nil, "", err
		}
	}

	if writePath != "" {
		if err := d.Save(writePath); err != nil {
			return nil, "", err
		}
	}
	return d, writePath, nil
}

func runMain(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, writePath, err := openDB(ctx, c, loadConfig(c))
	if err != nil {
		return err
	}

	out, errw := c.App.Writer, c.App.ErrWriter
	if q := c.String("query"); q != "" {
		shell.RunQuery(out, errw, d, q, ",")
	}
	if c.Bool("summary") {
		shell.PrintSummary(out, d.Summary())
	}
	if table := c.String("dump"); table != "" {
		entries, err := d.DumpTable(table)
		if errors.Is(err, db.ErrUnknownTable) {
			fmt.Fprintf(errw, "Table '%s' doesn't exist.\n", table)
		} else {
			shell.PrintTable(out, table, entries)
		}
	}
	if c.Bool("dump-all") {
		dumpAll(out, d)
	}
	if c.Bool("line-mode") {
		sh := &shell.Shell{DB: d, WritePath: writePath, Out: out, Err: errw}
		return sh.Run(ctx, historyFile())
	}
	return nil
}

func dumpAll(w io.Writer, d *db.DB) {
	all := d.DumpAll()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		shell.PrintTable(w, name, all[name])
	}
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".starscope_history")
}

func runServe(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, writePath, err := openDB(ctx, c, loadConfig(c))
	if err != nil {
		return err
	}
	slog.Info("serve.start", "roots", len(d.Roots()), "files", len(d.Files()), "write", writePath)
	return tools.NewServer(d, writePath).Run(ctx)
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
