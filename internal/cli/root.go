// Package cli wires the schemadrift commands. It uses cobra for the command
// tree and viper, through internal/config, for settings.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"schemadrift/internal/config"
	"schemadrift/internal/dialect"
	_ "schemadrift/internal/dialect/mysql"
	"schemadrift/internal/logging"
	"schemadrift/internal/snapshot"
)

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"dump-dir":            "dump_dir",
	"updates-dir":         "updates_dir",
	"format":              "format",
	"parser":              "parser",
	"quote":               "render.quote",
	"placement":           "render.placement",
	"include-destructive": "render.include_destructive",
	"log-level":           "log.level",
	"log-format":          "log.format",
}

// app is the state shared by the commands of one invocation.
type app struct {
	configFile string
	cfg        *config.Config
	log        *zap.Logger
}

// NewRootCommand returns the schemadrift command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "schemadrift",
		Short:         "Detect schema drift between MySQL snapshots and generate migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "Config file (default ./schemadrift.yaml)")
	flags.String("dump-dir", "dumps", "Root folder of connection descriptors and snapshots")
	flags.String("updates-dir", "updates", "Root folder of generated update scripts")
	flags.StringP("format", "f", "sql", "Output format: sql, json, summary or human")
	flags.String("parser", config.ParserScan, "SQL parser engine: scan or tidb")
	flags.String("quote", config.QuoteAsNeeded, "Identifier quoting: as-needed or always")
	flags.Bool("placement", false, "Add FIRST/AFTER clauses to added columns")
	flags.Bool("include-destructive", true, "Keep DROP statements in the plan")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("log-format", "console", "Log format: console or json")

	rootCmd.AddCommand(a.snapshotCmd())
	rootCmd.AddCommand(a.diffCmd())
	rootCmd.AddCommand(a.planCmd())
	rootCmd.AddCommand(a.latestCmd())
	rootCmd.AddCommand(a.showCmd())
	return rootCmd
}

// Execute runs the command tree with args and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func (a *app) init(cmd *cobra.Command) error {
	v := config.New(a.configFile)
	if err := config.BindFlags(v, cmd.Flags(), flagKeys); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	return nil
}

func (a *app) dialect() (dialect.Dialect, error) {
	return dialect.New(dialect.MySQL, dialect.RenderOptions{
		Quote:     dialect.QuoteMode(strings.ToLower(a.cfg.Render.Quote)),
		Placement: a.cfg.Render.Placement,
	})
}

func (a *app) store() (*snapshot.Store, error) {
	d, err := a.dialect()
	if err != nil {
		return nil, err
	}
	return &snapshot.Store{Root: a.cfg.DumpDir, Renderer: d, Logger: a.log}, nil
}

// printInfo writes progress messages to stderr so stdout stays parseable.
func printInfo(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}
