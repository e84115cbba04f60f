package cli

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"schemadrift/internal/config"
	"schemadrift/internal/core"
	"schemadrift/internal/diff"
	introspectmysql "schemadrift/internal/introspect/mysql"
	"schemadrift/internal/migration"
	"schemadrift/internal/output"
	"schemadrift/internal/parser"
	"schemadrift/internal/snapshot"
)

type compareFlags struct {
	source         string
	target         string
	timestamp      string
	targetHost     string
	targetDatabase string
}

func (f *compareFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.source, "source", "", "Schema file or snapshot folder to use instead of the stored snapshot")
	cmd.Flags().StringVar(&f.target, "target", "", "Schema file or snapshot folder to use instead of the live database")
	cmd.Flags().StringVar(&f.timestamp, "timestamp", "", "Source snapshot to compare (YYYY-MM-DD-HH, default latest)")
	cmd.Flags().StringVar(&f.targetHost, "target-host", "", "Host folder of the target database (default <host>)")
	cmd.Flags().StringVar(&f.targetDatabase, "target-database", "", "Target database (default <database>)")
}

// comparison is one resolved source/target pair and its outcome.
type comparison struct {
	report         *output.Report
	targetHost     string
	targetDatabase string
	// timestamp is the source snapshot's folder name, empty for plain files.
	timestamp string
}

func (a *app) diffCmd() *cobra.Command {
	var flags compareFlags
	var outFile string

	cmd := &cobra.Command{
		Use:   "diff <host> <database>",
		Short: "Show how a database drifted from its latest snapshot",
		Long: `Diff compares a stored snapshot of <host>/<database> (the source, latest
unless --timestamp is given) with a live database (the target) and lists what
must change in the target to match the source. The target is <host>/<database>
itself unless --target-host or --target-database name another one; its
connection descriptor is read from <dump-dir>/<target-host>/<target-database>/.
Either side can be replaced by a .sql, .toml or .json file, or a snapshot
folder.

The sql format is shown as a summary; use plan to get the statements.

Examples:
  schemadrift diff db1 shop
  schemadrift diff db1 shop --timestamp 2025-06-01-14 --target-host db2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.compare(cmd.Context(), args[0], args[1], flags)
			if err != nil {
				return err
			}

			format := a.cfg.Format
			if strings.EqualFold(format, string(output.FormatSQL)) {
				format = string(output.FormatSummary)
			}
			return a.emit(cmd, format, outFile, c.report)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "Output file for the diff")
	return cmd
}

func (a *app) planCmd() *cobra.Command {
	var flags compareFlags
	var outFile string
	var rollbackFile string
	var write bool

	cmd := &cobra.Command{
		Use:   "plan <host> <database>",
		Short: "Generate the migration that brings a database back to its snapshot",
		Long: `Plan compares like diff and renders the ordered ALTER/CREATE/DROP statements
with rollback SQL and a review of every statement.

With --write the statements are also stored under
<updates-dir>/<target-host>/<target-database>/<timestamp>/ as one
<table>-structure.sql per table and update-schema.sql. <timestamp> is the
source snapshot's; a source file without one uses --timestamp or the current
hour.

Examples:
  schemadrift plan db1 shop --target-host db2 --target-database shop_staging --write
  schemadrift plan db1 shop --source schema.sql --timestamp 2025-06-01-14 --write`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.compare(cmd.Context(), args[0], args[1], flags)
			if err != nil {
				return err
			}
			r := c.report
			if err := a.emit(cmd, a.cfg.Format, outFile, r); err != nil {
				return err
			}

			if rollbackFile != "" {
				rollback := strings.Join(r.Plan.RollbackStatements(), "\n")
				if rollback != "" {
					rollback += "\n"
				}
				if err := os.WriteFile(rollbackFile, []byte(rollback), 0o644); err != nil {
					return fmt.Errorf("failed to write rollback output: %w", err)
				}
				printInfo(cmd, "Rollback saved to %s", rollbackFile)
			}

			if write {
				ts := c.timestamp
				if ts == "" {
					ts = time.Now().Format(snapshot.TimestampLayout)
				}
				dir, err := output.WriteUpdates(a.cfg.UpdatesDir, c.targetHost, c.targetDatabase, ts, r)
				if err != nil {
					return fmt.Errorf("failed to write updates: %w", err)
				}
				if dir == "" {
					printInfo(cmd, "No changes; nothing written")
				} else {
					printInfo(cmd, "Updates saved to %s", dir)
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "Output file for the generated migration")
	cmd.Flags().StringVarP(&rollbackFile, "rollback-output", "r", "", "Output file for rollback SQL (run separately)")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write per-table update files under the updates dir")
	return cmd
}

// compare loads both sides, diffs them and plans the migration.
func (a *app) compare(ctx context.Context, host, database string, flags compareFlags) (*comparison, error) {
	if flags.timestamp != "" {
		if _, err := time.Parse(snapshot.TimestampLayout, flags.timestamp); err != nil {
			return nil, fmt.Errorf("timestamp %q does not match %s", flags.timestamp, snapshot.TimestampLayout)
		}
	}
	c := &comparison{
		targetHost:     cmp.Or(flags.targetHost, host),
		targetDatabase: cmp.Or(flags.targetDatabase, database),
	}

	source, sourceLabel, err := a.loadSource(host, database, flags)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}
	c.timestamp = cmp.Or(source.Timestamp, flags.timestamp)

	target, targetLabel, err := a.loadTarget(ctx, c.targetHost, c.targetDatabase, flags.target)
	if err != nil {
		return nil, fmt.Errorf("load target: %w", err)
	}

	res, err := diff.Diff(source, target, diff.Options{
		Policy:        a.cfg.Compare,
		DetectRenames: true,
		Logger:        a.log,
	})
	if err != nil {
		return nil, fmt.Errorf("compare schemas: %w", err)
	}
	a.logWarnings(res.Warnings)

	d, err := a.dialect()
	if err != nil {
		return nil, err
	}
	plan, err := migration.Build(res, d, migration.Options{
		IncludeDestructive: a.cfg.Render.IncludeDestructive,
		Logger:             a.log,
	})
	if err != nil {
		return nil, fmt.Errorf("build migration: %w", err)
	}

	a.log.Info("schemas compared",
		zap.String("source", sourceLabel),
		zap.String("target", targetLabel),
		zap.Int("changes", len(res.Changes)),
		zap.Int("statements", len(plan.SQLStatements())))
	c.report = output.NewReport(sourceLabel, targetLabel, res, plan)
	return c, nil
}

func (a *app) loadSource(host, database string, flags compareFlags) (*core.Database, string, error) {
	if flags.source != "" {
		db, err := a.parseFile(flags.source)
		return db, flags.source, err
	}
	store, err := a.store()
	if err != nil {
		return nil, "", err
	}
	ts := flags.timestamp
	if ts == "" {
		if ts, err = store.Latest(host, database); err != nil {
			return nil, "", err
		}
	} else {
		stored, err := store.Timestamps(host, database)
		if err != nil {
			return nil, "", err
		}
		if !slices.Contains(stored, ts) {
			return nil, "", fmt.Errorf("%w at %s for %s/%s under %s", snapshot.ErrNoSnapshot, ts, host, database, store.Root)
		}
	}
	db, err := a.parseFile(store.Dir(host, database, ts))
	if err != nil {
		return nil, "", err
	}
	db.Timestamp = ts
	return db, fmt.Sprintf("%s/%s@%s", host, database, ts), nil
}

func (a *app) loadTarget(ctx context.Context, host, database, path string) (*core.Database, string, error) {
	if path != "" {
		db, err := a.parseFile(path)
		return db, path, err
	}
	db, err := a.capture(ctx, host, database)
	if err != nil {
		return nil, "", err
	}
	return db, fmt.Sprintf("%s/%s (live)", host, database), nil
}

// parseFile fails on any table that could not be parsed; comparing a partial
// schema would report the missing tables as dropped.
func (a *app) parseFile(path string) (*core.Database, error) {
	db, warnings, err := parser.ParseFile(path, parser.Engine(strings.ToLower(a.cfg.Parser)))
	if err != nil {
		return nil, err
	}
	a.logWarnings(warnings)
	return db, nil
}

// capture reads the live schema through the descriptor stored in the dump dir.
func (a *app) capture(ctx context.Context, host, database string) (*core.Database, error) {
	conn, err := config.LoadConnection(config.ConnectionDir(a.cfg.DumpDir, host, database))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Introspect.Timeout)
	defer cancel()

	a.log.Debug("capturing live schema", zap.String("addr", conn.Addr()), zap.String("database", conn.Database))
	db, warnings, err := introspectmysql.Capture(ctx, *conn, a.log)
	if err != nil {
		return nil, err
	}
	// the folder name identifies the snapshot, not the server address
	db.Host = host
	db.Name = database
	a.logWarnings(warnings)
	return db, nil
}

// emit renders r in format to outFile, or to stdout when outFile is empty.
func (a *app) emit(cmd *cobra.Command, format, outFile string, r *output.Report) error {
	formatter, err := output.NewFormatter(format)
	if err != nil {
		return err
	}
	formatted, err := formatter.Format(r)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	if outFile == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), formatted)
		return err
	}
	if err := os.WriteFile(outFile, []byte(formatted), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	printInfo(cmd, "Output saved to %s", outFile)
	return nil
}

func (a *app) logWarnings(warnings []core.Warning) {
	for _, w := range warnings {
		a.log.Warn(w.Message,
			zap.String("kind", string(w.Kind)),
			zap.String("table", w.Table),
			zap.String("column", w.Column))
	}
}
