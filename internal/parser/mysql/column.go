package mysql

import (
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"

	"schemadrift/internal/core"
)

func (p *Parser) parseColumns(cols []*ast.ColumnDef, table *core.Table) {
	for _, colDef := range cols {
		col := newColumnFromDef(colDef)
		for _, opt := range colDef.Options {
			p.applyColumnOption(table, col, opt)
		}
		table.Columns = append(table.Columns, col)
	}
}

func newColumnFromDef(colDef *ast.ColumnDef) *core.Column {
	col := core.NewColumn(colDef.Name.Name.O, colDef.Tp.String())
	col.Charset = strings.ToLower(colDef.Tp.GetCharset())
	col.Collate = strings.ToLower(colDef.Tp.GetCollate())
	return col
}

func (p *Parser) applyColumnOption(table *core.Table, col *core.Column, opt *ast.ColumnOption) {
	if opt == nil {
		return
	}

	switch opt.Tp {
	case ast.ColumnOptionNotNull:
		col.Nullable = false
	case ast.ColumnOptionNull:
		col.Nullable = true
	case ast.ColumnOptionPrimaryKey:
		col.AddFlag(core.FlagPrimaryKey)
		col.Nullable = false
	case ast.ColumnOptionAutoIncrement:
		col.AddFlag(core.FlagAutoIncrement)
	case ast.ColumnOptionDefaultValue:
		var quoted bool
		col.Default, quoted = defaultValue(opt.Expr)
		if !quoted {
			col.MarkDefaultExpression()
		}
	case ast.ColumnOptionOnUpdate:
		if s, _, ok := exprToString(opt.Expr); ok {
			col.AddFlag(core.OnUpdateFlag(s))
		}
	case ast.ColumnOptionUniqKey:
		col.AddFlag(core.FlagUnique)
	case ast.ColumnOptionComment:
		if s, _, ok := exprToString(opt.Expr); ok {
			col.Comment = s
		}
	case ast.ColumnOptionCollate:
		if opt.StrValue != "" {
			col.Collate = strings.ToLower(opt.StrValue)
		}
	case ast.ColumnOptionReference:
		p.addInlineForeignKey(table, col.Name, opt.Refer)
	case ast.ColumnOptionCheck:
		if s, ok := restore(opt.Expr); ok {
			table.Indexes = append(table.Indexes, &core.Index{Kind: "CHECK", Definition: "CHECK (" + s + ")"})
		}
	}
}

// defaultValue converts a DEFAULT expression to the stored form and reports
// whether it was a string literal. An unquoted NULL is the same as no default.
func defaultValue(expr ast.ExprNode) (*string, bool) {
	s, quoted, ok := exprToString(expr)
	if !ok {
		return nil, false
	}
	if quoted {
		return &s, true
	}
	v := core.NormalizeDefault(s)
	if v == "NULL" {
		return nil, false
	}
	return &v, false
}

func (p *Parser) addInlineForeignKey(table *core.Table, colName string, refer *ast.ReferenceDef) {
	if refer == nil {
		return
	}
	ref, ok := restore(refer)
	if !ok {
		return
	}
	table.Indexes = append(table.Indexes, &core.Index{
		Kind:       "FOREIGN KEY",
		Columns:    []string{colName},
		Definition: "FOREIGN KEY (`" + colName + "`) " + ref,
	})
}

func (p *Parser) parseConstraints(constraints []*ast.Constraint, table *core.Table) {
	for _, constraint := range constraints {
		if constraint == nil {
			continue
		}
		idx := &core.Index{
			Name:    constraint.Name,
			Kind:    constraintKind(constraint.Tp),
			Columns: constraintColumns(constraint),
		}
		if idx.Kind == "" {
			continue
		}
		if def, ok := restore(constraint); ok {
			idx.Definition = def
		}
		if idx.Kind == "CHECK" {
			idx.Columns = nil
		}
		table.Indexes = append(table.Indexes, idx)

		switch {
		case idx.Kind == "PRIMARY KEY":
			idx.Name = ""
			for _, name := range idx.Columns {
				if c := table.FindColumn(name); c != nil {
					c.AddFlag(core.FlagPrimaryKey)
					c.Nullable = false
				}
			}
		case idx.Kind == "UNIQUE KEY" && len(idx.Columns) == 1:
			if c := table.FindColumn(idx.Columns[0]); c != nil {
				c.AddFlag(core.FlagUnique)
			}
		}
	}
}

func constraintKind(tp ast.ConstraintType) string {
	switch tp {
	case ast.ConstraintPrimaryKey:
		return "PRIMARY KEY"
	case ast.ConstraintUniq, ast.ConstraintUniqKey, ast.ConstraintUniqIndex:
		return "UNIQUE KEY"
	case ast.ConstraintForeignKey:
		return "FOREIGN KEY"
	case ast.ConstraintIndex, ast.ConstraintKey, ast.ConstraintVector, ast.ConstraintColumnar:
		return "KEY"
	case ast.ConstraintFulltext:
		return "FULLTEXT KEY"
	case ast.ConstraintCheck:
		return "CHECK"
	}
	return ""
}

// constraintColumns lists the key columns. Functional key parts have no
// column and are left out.
func constraintColumns(constraint *ast.Constraint) []string {
	columns := make([]string, 0, len(constraint.Keys))
	for _, key := range constraint.Keys {
		if key == nil || key.Column == nil {
			continue
		}
		columns = append(columns, key.Column.Name.O)
	}
	return columns
}

// exprToString restores expr and strips string literal quoting. quoted reports
// whether the expression was a string literal.
func exprToString(expr ast.ExprNode) (s string, quoted, ok bool) {
	if expr == nil {
		return "", false, false
	}
	s, ok = restore(expr)
	if !ok {
		return "", false, false
	}
	if unquoted, isLiteral := tryUnquoteSQLStringLiteral(s); isLiteral {
		return unquoted, true, true
	}
	return s, false, true
}

// tryUnquoteSQLStringLiteral unquotes 'text', N'text' and _charset'text'.
func tryUnquoteSQLStringLiteral(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[len(s)-1] != '\'' {
		return "", false
	}

	q := strings.IndexByte(s, '\'')
	if q == len(s)-1 {
		return "", false
	}
	if q > 0 && !isSQLStringIntroducer(strings.TrimSpace(s[:q])) {
		return "", false
	}
	inner := s[q+1 : len(s)-1]
	if strings.Contains(strings.ReplaceAll(inner, "''", ""), "'") {
		// two literals, as in 'a' 'b', or an expression ending in a literal
		return "", false
	}
	return strings.ReplaceAll(inner, "''", "'"), true
}

func isSQLStringIntroducer(prefix string) bool {
	if strings.EqualFold(prefix, "N") {
		return true
	}
	if !strings.HasPrefix(prefix, "_") || len(prefix) == 1 {
		return false
	}
	for _, r := range prefix[1:] {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}
