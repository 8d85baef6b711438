package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/protokoll/minutes/internal"
	pkgconfig "github.com/protokoll/minutes/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// cliOptions keeps stdout for command output.
func cliOptions(cfg *internal.Config) []internal.Option {
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	}
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

func parse(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return fmt.Errorf("parse: expected at least one <series>/<YYYY-MM-DD>.txt path")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	var failed int
	for _, rel := range cmd.Args().Slice() {
		if err := internal.ParseSource(ctx, rel, os.Stdout, cliOptions(cfg)...); err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("parse: %d of %d protocols failed", failed, cmd.Args().Len())
	}
	return nil
}

func renderCmd(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("render: expected one <series>/<YYYY-MM-DD>.txt path")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RenderSource(ctx, cmd.Args().First(), cmd.String("format"), cmd.Bool("internal"), os.Stdout, cliOptions(cfg)...)
}

func importLegacy(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("import-legacy: expected one manifest path")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ImportLegacy(ctx, cmd.Args().First(), os.Stdout, cliOptions(cfg)...)
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, cliOptions(cfg)...)
}

func main() {
	cmd := &cli.Command{
		Name:   "minutes",
		Usage:  "Meeting protocol compiler with action-item tracking, decision search and multi-format rendering",
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
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, the event stream and the vault watcher",
				Action: serve,
			},
			{
				Name:      "parse",
				Usage:     "Parse protocol sources from the vault and store the results",
				ArgsUsage: "<series>/<YYYY-MM-DD>.txt...",
				Action:    parse,
			},
			{
				Name:      "render",
				Usage:     "Print the stored render of a parsed protocol",
				ArgsUsage: "<series>/<YYYY-MM-DD>.txt",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "typeset, hypertext, wiki, dokuwiki or plaintext",
						Value:   "plaintext",
					},
					&cli.BoolFlag{
						Name:  "internal",
						Usage: "Include internal sections and todos",
					},
				},
				Action: renderCmd,
			},
			{
				Name:      "import-legacy",
				Usage:     "Load pre-numbering action items from a YAML manifest",
				ArgsUsage: "<manifest.yaml>",
				Action:    importLegacy,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
