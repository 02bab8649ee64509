// Command orgctl manages an organization graph database from the shell.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/orggraph"
	"github.com/brunobiangulo/orggraph/parser"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	dbPath     string
	logLevel   string
	page       int
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "orgctl",
		Short:        "Manage an organization hierarchy stored in SQLite",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (JSON or YAML)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Database path (overrides config)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	relations := &cobra.Command{
		Use:   "relations <name>",
		Short: "List parents, sisters and daughters of an organization",
		Args:  cobra.ExactArgs(1),
		RunE: withEngine(opts, func(ctx context.Context, eng orggraph.Engine, cmd *cobra.Command, args []string) error {
			if opts.page > 0 {
				p, err := eng.RelationsPage(ctx, args[0], opts.page)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), p)
			}
			rels, err := eng.Relations(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rels)
		}),
	}
	relations.Flags().IntVar(&opts.page, "page", 0, "Page number (0 prints every relation)")

	root.AddCommand(
		&cobra.Command{
			Use:   "import <file>",
			Short: "Import a hierarchy file (xlsx, json, yaml)",
			Args:  cobra.ExactArgs(1),
			RunE: withEngine(opts, func(ctx context.Context, eng orggraph.Engine, cmd *cobra.Command, args []string) error {
				res, err := eng.ImportFile(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			}),
		},
		&cobra.Command{
			Use:   "ingest <json-file|->",
			Short: "Ingest one organization or an array of them from JSON",
			Args:  cobra.ExactArgs(1),
			RunE: withEngine(opts, func(ctx context.Context, eng orggraph.Engine, cmd *cobra.Command, args []string) error {
				data, err := readInput(cmd, args[0])
				if err != nil {
					return err
				}
				roots, err := parser.DecodeJSON(data)
				if err != nil {
					return err
				}
				total := &orggraph.IngestResult{Format: "json"}
				for _, n := range roots {
					res, err := eng.Ingest(ctx, n)
					if err != nil {
						return err
					}
					total.Roots = append(total.Roots, res.Roots...)
					total.Stats.Add(res.Stats)
				}
				return printJSON(cmd.OutOrStdout(), total)
			}),
		},
		&cobra.Command{
			Use:   "tree",
			Short: "Print every root organization with its daughters",
			Args:  cobra.NoArgs,
			RunE: withEngine(opts, func(ctx context.Context, eng orggraph.Engine, cmd *cobra.Command, args []string) error {
				forest, err := eng.Forest(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), forest)
			}),
		},
		relations,
		&cobra.Command{
			Use:   "stats",
			Short: "Print organization, relationship and root counts",
			Args:  cobra.NoArgs,
			RunE: withEngine(opts, func(ctx context.Context, eng orggraph.Engine, cmd *cobra.Command, args []string) error {
				stats, err := eng.Stats(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stats)
			}),
		},
		&cobra.Command{
			Use:   "export <file.xlsx>",
			Short: "Write the forest to a spreadsheet in outline layout",
			Args:  cobra.ExactArgs(1),
			RunE: withEngine(opts, func(ctx context.Context, eng orggraph.Engine, cmd *cobra.Command, args []string) error {
				if !strings.HasSuffix(strings.ToLower(args[0]), ".xlsx") {
					return fmt.Errorf("export target must end in .xlsx: %s", args[0])
				}
				forest, err := eng.Forest(ctx)
				if err != nil {
					return err
				}
				if err := parser.WriteXLSX(args[0], forest); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d root organizations to %s\n", len(forest), args[0])
				return nil
			}),
		},
	)
	return root
}

type engineFunc func(ctx context.Context, eng orggraph.Engine, cmd *cobra.Command, args []string) error

// withEngine opens the engine from the persistent flags, runs fn and closes it.
func withEngine(opts *options, fn engineFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := opts.config()
		if err != nil {
			return err
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: parseLevel(cfg.LogLevel),
		})))

		eng, err := orggraph.New(cfg)
		if err != nil {
			return fmt.Errorf("creating engine: %w", err)
		}
		defer eng.Close()

		return fn(cmd.Context(), eng, cmd, args)
	}
}

func (o *options) config() (orggraph.Config, error) {
	cfg := orggraph.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = orggraph.LoadConfig(o.configPath); err != nil {
			return cfg, err
		}
	}
	if v := os.Getenv("ORGGRAPH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	} else if cfg.LogLevel == "info" {
		// Keep stderr quiet unless asked.
		cfg.LogLevel = "warn"
	}
	return cfg, cfg.Validate()
}

func readInput(cmd *cobra.Command, arg string) ([]byte, error) {
	if arg == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", arg, err)
	}
	return data, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
