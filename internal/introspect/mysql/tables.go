package mysql

type tableInfo struct {
	name    string
	comment string
}

func introspectTables(ic *introspectCtx) ([]tableInfo, error) {
	rows, err := ic.db.QueryContext(ic.ctx, `
		SELECT table_name, table_comment
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, ic.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tableInfo
	for rows.Next() {
		var t tableInfo
		if err := rows.Scan(&t.name, &t.comment); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
