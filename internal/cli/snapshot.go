package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"schemadrift/internal/core"
	"schemadrift/internal/parser"
)

func (a *app) snapshotCmd() *cobra.Command {
	var timestamp string

	cmd := &cobra.Command{
		Use:   "snapshot <host> <database>",
		Short: "Capture the live schema into a timestamped snapshot",
		Long: `Snapshot connects with the descriptor in <dump-dir>/<host>/<database>/
(connection.json or connection.yaml) and stores the schema under
<dump-dir>/<host>/<database>/<timestamp>/.

Examples:
  schemadrift snapshot db1 shop
  schemadrift snapshot db1 shop --timestamp 2025-06-01-14`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, database := args[0], args[1]
			db, err := a.capture(cmd.Context(), host, database)
			if err != nil {
				return fmt.Errorf("capture %s/%s: %w", host, database, err)
			}
			db.Timestamp = timestamp

			store, err := a.store()
			if err != nil {
				return err
			}
			dir, err := store.Save(db)
			if err != nil {
				return fmt.Errorf("save snapshot: %w", err)
			}
			printInfo(cmd, "Snapshot of %d tables saved to %s", len(db.Tables), dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "Snapshot folder name (YYYY-MM-DD-HH, default now)")
	return cmd
}

func (a *app) latestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "latest <host> <database>",
		Short: "Print the timestamp of the newest snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			ts, err := store.Latest(args[0], args[1])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), ts)
			return err
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <schema>",
		Short: "Parse and display a schema file or snapshot folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, warnings, err := parser.ParseFile(args[0], parser.Engine(strings.ToLower(a.cfg.Parser)))
			if db == nil {
				return fmt.Errorf("parse error: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, describe(db))
			for _, w := range warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			// tables that failed to parse are listed after the ones that did
			for _, e := range multierr.Errors(err) {
				fmt.Fprintf(out, "error: %v\n", e)
			}
			if err != nil {
				return fmt.Errorf("%d table(s) could not be parsed", len(multierr.Errors(err)))
			}
			return nil
		},
	}
}

func describe(db *core.Database) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tables found: %d\n", len(db.Tables))
	for _, t := range db.Tables {
		fmt.Fprintf(&sb, "- %s (%d columns)\n", t.Name, len(t.Columns))
		for _, c := range t.Columns {
			null := "NOT NULL"
			if c.Nullable {
				null = "NULL"
			}
			fmt.Fprintf(&sb, "  - %s: %s %s", c.Name, c.TypeRaw, null)
			if c.Default != nil {
				fmt.Fprintf(&sb, " DEFAULT %s", *c.Default)
			}
			if len(c.Flags) > 0 {
				fmt.Fprintf(&sb, " [%s]", strings.Join(c.Flags, ", "))
			}
			sb.WriteString("\n")
		}
		for _, idx := range t.Indexes {
			fmt.Fprintf(&sb, "  * %s\n", idx.Definition)
		}
	}
	return sb.String()
}
