package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/countrycache/internal/errors"
	"github.com/hpungsan/countrycache/internal/mcp"
	"github.com/hpungsan/countrycache/internal/ops"
	"github.com/hpungsan/countrycache/internal/schedule"
	"github.com/hpungsan/countrycache/internal/web"
)

// newCLIApp creates the CLI application with all commands. Dependencies are
// wired lazily from --data-dir unless env is already populated.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "countrycache",
		Usage:   "Cached country and currency data with GDP estimates",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Value:   "./data",
				EnvVars: []string{"COUNTRYCACHE_DATA_DIR"},
				Usage:   "Directory holding the database, config.json and cache",
			},
		},
		Before: func(c *cli.Context) error {
			if env.ready() || c.NArg() == 0 || c.Args().First() == "help" {
				return nil
			}
			if err := env.open(c.String("data-dir")); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(env),
			refreshCmd(env),
			listCmd(env),
			showCmd(env),
			deleteCmd(env),
			statusCmd(env),
			imageCmd(env),
			mcpCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API (and the refresh schedule, if configured)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Bind address (overrides config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			cfg := *env.cfg
			if c.IsSet("bind") {
				cfg.Bind = c.String("bind")
			}
			if c.IsSet("port") {
				cfg.Port = c.Int("port")
			}

			if cfg.RefreshSchedule != "" {
				sched, err := schedule.New(cfg.RefreshSchedule, env.refresher, cfg.RequestTimeout()*3, env.logger.Named("schedule"))
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				sched.Start()
				defer sched.Stop()
			}

			srv := web.NewServer(env.store, env.refresher, env.renderer, &cfg, env.logger.Named("http"))
			if err := web.Run(srv, env.logger); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// refreshCmd creates the refresh command.
func refreshCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Fetch both upstreams and update the cache",
		Action: func(c *cli.Context) error {
			output, err := env.refresher.Refresh(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List cached countries",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "region", Aliases: []string{"r"}, Usage: "Filter by region"},
			&cli.StringFlag{Name: "currency", Aliases: []string{"c"}, Usage: "Filter by currency code"},
			&cli.StringFlag{Name: "sort", Aliases: []string{"s"}, Usage: "Sort order: gdp_desc"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, env.store, ops.ListInput{
				Region:   c.String("region"),
				Currency: c.String("currency"),
				Sort:     c.String("sort"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one country by name",
		ArgsUsage: "NAME",
		Action: func(c *cli.Context) error {
			output, err := ops.Fetch(c.Context, env.store, ops.FetchInput{Name: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete one country by name",
		ArgsUsage: "NAME",
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(c.Context, env.store, ops.DeleteInput{Name: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// statusCmd creates the status command.
func statusCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the cached country count and last refresh time",
		Action: func(c *cli.Context) error {
			output, err := ops.Status(c.Context, env.store)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// imageCmd creates the image command.
func imageCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "image",
		Usage: "Print the path of the summary image",
		Action: func(_ *cli.Context) error {
			path, err := ops.SummaryImage(env.renderer)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]string{"path": path})
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the country tools over MCP stdio",
		Action: func(_ *cli.Context) error {
			if unknown := mcp.ValidateDisabledTools(env.cfg.DisabledTools); len(unknown) > 0 {
				env.logger.Warn("unknown tools in disabled_tools", zap.Strings("tools", unknown))
			}
			s := mcp.NewServer(env.store, env.refresher, env.renderer, env.cfg, Version)
			if err := mcp.Run(s); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// outputJSON writes v as indented JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	appErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", appErr.Code, appErr.Message), 1)
}
