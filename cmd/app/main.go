package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/tagvault/internal"
	"github.com/starford/tagvault/internal/batch"
	pkgconfig "github.com/starford/tagvault/pkg/config"
)

// loadConfig reads the config file named by --config and applies the
// --vault override. A missing file falls back to defaults.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

// tagAction builds the action of "tags add" and "tags remove".
func tagAction(op batch.Operation) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := &batch.Options{
			Location:         cmd.String("location"),
			Position:         cmd.String("position"),
			PreserveChildren: cmd.Bool("preserve-children"),
			Patterns:         cmd.StringSlice("pattern"),
		}
		if cmd.IsSet("normalize") {
			n := cmd.Bool("normalize")
			opts.Normalize = &n
		}

		req := batch.Request{
			Files:     cmd.Args().Slice(),
			Operation: string(op),
			Tags:      cmd.StringSlice("tag"),
			Options:   opts,
		}
		return internal.RunTags(ctx, req, internal.WithConfig(cfg), internal.WithOutput(os.Stdout))
	}
}

func tagFlags(remove bool) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:     "tag",
			Aliases:  []string{"t"},
			Usage:    "Tag to apply (repeatable)",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "location",
			Usage: "frontmatter, content or both (default from config)",
		},
		&cli.BoolFlag{
			Name:  "normalize",
			Usage: "Normalize tags to lowercase kebab-case (default from config)",
		},
	}
	if remove {
		return append(flags,
			&cli.BoolFlag{
				Name:  "preserve-children",
				Usage: "Keep tags nested below the removed tags",
			},
			&cli.StringSliceFlag{
				Name:    "pattern",
				Aliases: []string{"p"},
				Usage:   "Wildcard pattern selecting extra tags, e.g. archive/* (repeatable)",
			},
		)
	}
	return append(flags, &cli.StringFlag{
		Name:  "position",
		Usage: "start or end: where inline tags are inserted (default from config)",
	})
}

func main() {
	cmd := &cli.Command{
		Name:   "tagvault",
		Usage:  "Tag management for a Markdown vault over HTTP, MCP and the command line",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "Vault directory (overrides config)",
				Sources: cli.EnvVars("TAGVAULT_VAULT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, SSE stream and vault watcher (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the tag tools over MCP on stdio",
				Action: serveMCP,
			},
			{
				Name:  "tags",
				Usage: "Add or remove tags in the given notes and print a summary",
				Commands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Add tags to notes",
						ArgsUsage: "FILE...",
						Flags:     tagFlags(false),
						Action:    tagAction(batch.OperationAdd),
					},
					{
						Name:      "remove",
						Usage:     "Remove tags from notes",
						ArgsUsage: "FILE...",
						Flags:     tagFlags(true),
						Action:    tagAction(batch.OperationRemove),
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, internal.ErrFilesFailed) {
			os.Exit(2)
		}
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
