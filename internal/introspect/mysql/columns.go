package mysql

import (
	"database/sql"

	"schemadrift/internal/introspect"
)

// introspectColumns reads the columns of every table in the schema with a
// single query, keyed by table name.
func introspectColumns(ic *introspectCtx) (map[string][]introspect.Row, error) {
	rows, err := ic.db.QueryContext(ic.ctx, `
		SELECT
			c.table_name,
			c.column_name,
			c.column_type,
			c.is_nullable,
			c.column_default,
			c.extra,
			c.column_key,
			c.ordinal_position,
			c.column_comment,
			c.character_set_name,
			c.collation_name
		FROM information_schema.columns c
		WHERE c.table_schema = ?
		ORDER BY c.table_name, c.ordinal_position
	`, ic.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]introspect.Row)
	for rows.Next() {
		var table, name, colType, nullable string
		var defaultVal, extra, colKey, comment, charset, collation sql.NullString
		var position int
		if err := rows.Scan(&table, &name, &colType, &nullable, &defaultVal, &extra, &colKey, &position, &comment, &charset, &collation); err != nil {
			return nil, err
		}

		r := introspect.Row{
			Name:     name,
			Type:     colType,
			Nullable: nullable == "YES",
			Extra:    extra.String,
			Key:      colKey.String,
			Position: position,
			Comment:  comment.String,
			Charset:  charset.String,
			Collate:  collation.String,
		}
		if defaultVal.Valid {
			r.Default = &defaultVal.String
		}
		out[table] = append(out[table], r)
	}
	return out, rows.Err()
}
