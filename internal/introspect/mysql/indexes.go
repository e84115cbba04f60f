package mysql

import (
	"database/sql"
	"fmt"
	"strings"

	"schemadrift/internal/core"
)

// statRow is one row of information_schema.statistics.
type statRow struct {
	table     string
	index     string
	nonUnique bool
	indexType string
	column    string
	subPart   sql.NullInt64
}

func introspectIndexes(ic *introspectCtx) (map[string][]*core.Index, error) {
	rows, err := ic.db.QueryContext(ic.ctx, `
		SELECT table_name, index_name, non_unique, index_type, column_name, sub_part
		FROM information_schema.statistics
		WHERE table_schema = ?
		ORDER BY table_name, index_name = 'PRIMARY' DESC, index_name, seq_in_index
	`, ic.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []statRow
	for rows.Next() {
		var r statRow
		var column sql.NullString
		if err := rows.Scan(&r.table, &r.index, &r.nonUnique, &r.indexType, &column, &r.subPart); err != nil {
			return nil, err
		}
		// functional key parts have no column name
		r.column = column.String
		stats = append(stats, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return indexesFromStats(stats), nil
}

// indexesFromStats groups consecutive statistics rows into indexes whose
// Definition reads like the key line of SHOW CREATE TABLE.
func indexesFromStats(stats []statRow) map[string][]*core.Index {
	out := make(map[string][]*core.Index)
	var cur *core.Index
	var parts []string
	var curTable, curIndex string

	flush := func() {
		if cur == nil {
			return
		}
		cols := "(" + strings.Join(parts, ",") + ")"
		if cur.Kind == "PRIMARY KEY" {
			cur.Definition = "PRIMARY KEY " + cols
			cur.Name = ""
		} else {
			cur.Definition = fmt.Sprintf("%s `%s` %s", cur.Kind, cur.Name, cols)
		}
		out[curTable] = append(out[curTable], cur)
		cur, parts = nil, nil
	}

	for _, r := range stats {
		if cur == nil || r.table != curTable || r.index != curIndex {
			flush()
			curTable, curIndex = r.table, r.index
			cur = &core.Index{Name: r.index, Kind: indexKind(r)}
		}
		cur.Columns = append(cur.Columns, r.column)
		part := "`" + r.column + "`"
		if r.subPart.Valid {
			part += fmt.Sprintf("(%d)", r.subPart.Int64)
		}
		parts = append(parts, part)
	}
	flush()
	return out
}

func indexKind(r statRow) string {
	switch {
	case r.index == "PRIMARY":
		return "PRIMARY KEY"
	case strings.EqualFold(r.indexType, "FULLTEXT"):
		return "FULLTEXT KEY"
	case strings.EqualFold(r.indexType, "SPATIAL"):
		return "SPATIAL KEY"
	case !r.nonUnique:
		return "UNIQUE KEY"
	}
	return "KEY"
}
