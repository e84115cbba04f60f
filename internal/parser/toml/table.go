package toml

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"schemadrift/internal/core"
)

// tomlTable maps [[tables]].
type tomlTable struct {
	Name        string           `toml:"name"`
	Comment     string           `toml:"comment"`
	Columns     []tomlColumn     `toml:"columns"`
	Constraints []tomlConstraint `toml:"constraints"`
	Indexes     []tomlIndex      `toml:"indexes"`
	Timestamps  *tomlTimestamps  `toml:"timestamps"`
}

// tomlTimestamps maps [tables.timestamps].
type tomlTimestamps struct {
	Enabled       bool   `toml:"enabled"`
	CreatedColumn string `toml:"created_column"`
	UpdatedColumn string `toml:"updated_column"`
}

// tomlColumn maps [[tables.columns]].
type tomlColumn struct {
	Name          string `toml:"name"`
	Type          string `toml:"type"`
	PrimaryKey    bool   `toml:"primary_key"`
	AutoIncrement bool   `toml:"auto_increment"`
	Nullable      bool   `toml:"nullable"`
	Unique        bool   `toml:"unique"`
	Comment       string `toml:"comment"`
	Charset       string `toml:"charset"`
	Collate       string `toml:"collate"`
	OnUpdate      string `toml:"on_update"`

	// Default accepts string, bool, or number. The string "NULL" means an
	// explicit NULL default, which the model stores as no default.
	Default any `toml:"default"`

	// Values are the members of an enum or set column when Type is bare.
	Values []string `toml:"values"`
}

// tomlIndex maps [[tables.indexes]].
type tomlIndex struct {
	Name    string   `toml:"name"`
	Columns []string `toml:"columns"`
	Unique  bool     `toml:"unique"`
	Type    string   `toml:"type"`
}

// tomlConstraint maps [[tables.constraints]].
type tomlConstraint struct {
	Name              string   `toml:"name"`
	Type              string   `toml:"type"`
	Columns           []string `toml:"columns"`
	ReferencedTable   string   `toml:"referenced_table"`
	ReferencedColumns []string `toml:"referenced_columns"`
	OnDelete          string   `toml:"on_delete"`
	OnUpdate          string   `toml:"on_update"`
	CheckExpression   string   `toml:"check_expression"`
}

func convertTable(tt *tomlTable) (*core.Table, error) {
	t := &core.Table{Name: tt.Name, Comment: tt.Comment}

	for i := range tt.Columns {
		col, err := convertColumn(&tt.Columns[i])
		if err != nil {
			return nil, fmt.Errorf("column #%d: %w", i+1, err)
		}
		t.Columns = append(t.Columns, col)
	}
	if tt.Timestamps != nil && tt.Timestamps.Enabled {
		injectTimestampColumns(t, tt.Timestamps)
	}
	if len(t.Columns) == 0 {
		return nil, errors.New("table has no columns")
	}

	pkColumns := t.PrimaryKeyColumns()
	for i := range tt.Constraints {
		idx, err := convertConstraint(&tt.Constraints[i])
		if err != nil {
			return nil, fmt.Errorf("constraint #%d: %w", i+1, err)
		}
		if idx.Kind == "PRIMARY KEY" {
			if len(pkColumns) > 0 {
				return nil, errors.New("primary key declared on both column(s) and in constraints section")
			}
			pkColumns = idx.Columns
		}
		t.Indexes = append(t.Indexes, idx)
	}
	for i := range tt.Indexes {
		idx, err := convertIndex(&tt.Indexes[i])
		if err != nil {
			return nil, err
		}
		t.Indexes = append(t.Indexes, idx)
	}

	for _, idx := range t.Indexes {
		if err := checkColumns(t, idx); err != nil {
			return nil, err
		}
		switch {
		case idx.Kind == "PRIMARY KEY":
			for _, name := range idx.Columns {
				c := t.FindColumn(name)
				c.AddFlag(core.FlagPrimaryKey)
				c.Nullable = false
			}
		case idx.Kind == "UNIQUE KEY" && len(idx.Columns) == 1:
			t.FindColumn(idx.Columns[0]).AddFlag(core.FlagUnique)
		}
	}

	t.Renumber()
	return t, nil
}

func convertColumn(tc *tomlColumn) (*core.Column, error) {
	if strings.TrimSpace(tc.Name) == "" {
		return nil, errors.New("column name is empty")
	}
	raw := strings.TrimSpace(tc.Type)
	if raw == "" {
		return nil, fmt.Errorf("column %q: %w", tc.Name, core.ErrMissingType)
	}
	if len(tc.Values) > 0 && !strings.Contains(raw, "(") {
		quoted := make([]string, len(tc.Values))
		for i, v := range tc.Values {
			quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
		}
		raw += "(" + strings.Join(quoted, ",") + ")"
	}

	col := core.NewColumn(tc.Name, raw)
	col.Nullable = tc.Nullable
	col.Comment = tc.Comment
	col.Charset = strings.ToLower(tc.Charset)
	col.Collate = strings.ToLower(tc.Collate)

	if tc.PrimaryKey {
		col.AddFlag(core.FlagPrimaryKey)
		col.Nullable = false
	}
	if tc.AutoIncrement {
		col.AddFlag(core.FlagAutoIncrement)
	}
	if tc.Unique {
		col.AddFlag(core.FlagUnique)
	}
	if tc.OnUpdate != "" {
		col.AddFlag(core.OnUpdateFlag(tc.OnUpdate))
	}
	if tc.Default != nil {
		col.Default = normalizeDefault(tc.Default)
		// "(expr)" is an expression default, as in DDL; literals that look
		// like one are written quoted: "'(none)'".
		if v, ok := tc.Default.(string); ok && strings.HasPrefix(strings.TrimSpace(v), "(") {
			col.MarkDefaultExpression()
		}
	}
	return col, nil
}

// normalizeDefault converts a TOML value into the stored default form.
func normalizeDefault(v any) *string {
	var s string
	switch val := v.(type) {
	case bool:
		s = "FALSE"
		if val {
			s = "TRUE"
		}
	case string:
		s = core.NormalizeDefault(val)
		if s == "NULL" && !strings.HasPrefix(strings.TrimSpace(val), "'") {
			return nil
		}
	case int64:
		s = strconv.FormatInt(val, 10)
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	default:
		s = fmt.Sprintf("%v", val)
	}
	return &s
}

// injectTimestampColumns appends the created/updated columns unless the table
// already declares them.
func injectTimestampColumns(t *core.Table, ts *tomlTimestamps) {
	created := "created_at"
	updated := "updated_at"
	if ts.CreatedColumn != "" {
		created = ts.CreatedColumn
	}
	if ts.UpdatedColumn != "" {
		updated = ts.UpdatedColumn
	}

	now := "CURRENT_TIMESTAMP"
	if t.FindColumn(created) == nil {
		c := core.NewColumn(created, "timestamp")
		c.Nullable = false
		c.Default = &now
		t.Columns = append(t.Columns, c)
	}
	if t.FindColumn(updated) == nil {
		c := core.NewColumn(updated, "timestamp")
		c.Nullable = false
		c.Default = &now
		c.AddFlag(core.OnUpdateFlag(now))
		t.Columns = append(t.Columns, c)
	}
}

func convertIndex(ti *tomlIndex) (*core.Index, error) {
	if len(ti.Columns) == 0 {
		name := ti.Name
		if name == "" {
			name = "(unnamed)"
		}
		return nil, fmt.Errorf("index %s has no columns", name)
	}

	kind := "KEY"
	switch strings.ToUpper(ti.Type) {
	case "", "BTREE", "HASH":
		if ti.Unique {
			kind = "UNIQUE KEY"
		}
	case "FULLTEXT":
		kind = "FULLTEXT KEY"
	case "SPATIAL":
		kind = "SPATIAL KEY"
	default:
		return nil, fmt.Errorf("index %s: unsupported type %q", ti.Name, ti.Type)
	}

	idx := &core.Index{Name: ti.Name, Kind: kind, Columns: ti.Columns}
	idx.Definition = keyDefinition(kind, ti.Name, ti.Columns)
	return idx, nil
}

func convertConstraint(tc *tomlConstraint) (*core.Index, error) {
	idx := &core.Index{Name: tc.Name, Columns: tc.Columns}

	switch strings.ToUpper(strings.TrimSpace(tc.Type)) {
	case "PRIMARY KEY":
		idx.Kind = "PRIMARY KEY"
		idx.Name = ""
		idx.Definition = keyDefinition(idx.Kind, "", tc.Columns)
	case "UNIQUE", "UNIQUE KEY":
		idx.Kind = "UNIQUE KEY"
		idx.Definition = keyDefinition(idx.Kind, tc.Name, tc.Columns)
	case "FOREIGN KEY":
		if tc.ReferencedTable == "" || len(tc.ReferencedColumns) != len(tc.Columns) {
			return nil, fmt.Errorf("foreign key %s: referenced table and matching referenced columns are required", tc.Name)
		}
		idx.Kind = "FOREIGN KEY"
		idx.Definition = foreignKeyDefinition(tc)
	case "CHECK":
		if strings.TrimSpace(tc.CheckExpression) == "" {
			return nil, fmt.Errorf("check %s: check_expression is required", tc.Name)
		}
		idx.Kind = "CHECK"
		idx.Columns = nil
		idx.Definition = "CHECK (" + strings.TrimSpace(tc.CheckExpression) + ")"
		if tc.Name != "" {
			idx.Definition = "CONSTRAINT " + backtick(tc.Name) + " " + idx.Definition
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported constraint type %q", tc.Type)
	}

	if len(idx.Columns) == 0 {
		return nil, fmt.Errorf("%s constraint has no columns", idx.Kind)
	}
	return idx, nil
}

// keyDefinition renders a key line the way SHOW CREATE TABLE prints it.
func keyDefinition(kind, name string, columns []string) string {
	cols := backtickList(columns)
	if name == "" {
		return kind + " " + cols
	}
	return kind + " " + backtick(name) + " " + cols
}

func foreignKeyDefinition(tc *tomlConstraint) string {
	var sb strings.Builder
	if tc.Name != "" {
		sb.WriteString("CONSTRAINT " + backtick(tc.Name) + " ")
	}
	sb.WriteString("FOREIGN KEY " + backtickList(tc.Columns))
	sb.WriteString(" REFERENCES " + backtick(tc.ReferencedTable) + " " + backtickList(tc.ReferencedColumns))
	if tc.OnDelete != "" {
		sb.WriteString(" ON DELETE " + strings.ToUpper(tc.OnDelete))
	}
	if tc.OnUpdate != "" {
		sb.WriteString(" ON UPDATE " + strings.ToUpper(tc.OnUpdate))
	}
	return sb.String()
}

func checkColumns(t *core.Table, idx *core.Index) error {
	for _, name := range idx.Columns {
		if t.FindColumn(name) == nil {
			return fmt.Errorf("%s %s references unknown column %q", idx.Kind, idx.Name, name)
		}
	}
	return nil
}

func backtick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func backtickList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = backtick(n)
	}
	return "(" + strings.Join(quoted, ",") + ")"
}
