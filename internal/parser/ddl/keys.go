package ddl

import (
	"strings"

	"schemadrift/internal/core"
	"schemadrift/internal/sqlscan"
)

// keyStarts are the leading words of clauses that declare keys or constraints
// rather than columns.
var keyStarts = map[string]struct{}{
	"PRIMARY":    {},
	"KEY":        {},
	"INDEX":      {},
	"UNIQUE":     {},
	"FULLTEXT":   {},
	"SPATIAL":    {},
	"CONSTRAINT": {},
	"FOREIGN":    {},
	"CHECK":      {},
}

func isKeyClause(clause string) bool {
	first, _, _ := strings.Cut(clause, " ")
	first, _, _ = strings.Cut(first, "(")
	_, ok := keyStarts[strings.ToUpper(first)]
	return ok
}

// parseKeyClause records a key or constraint line as a core.Index.
func parseKeyClause(t *core.Table, clause string) error {
	tokens, err := sqlscan.Tokens(clause)
	if err != nil {
		return scanErr(err)
	}
	tokens = splitKeywordGroups(tokens)

	idx := &core.Index{Definition: strings.Join(strings.Fields(clause), " ")}
	i := 0
	if strings.EqualFold(tokens[0], "CONSTRAINT") {
		i++
		if i < len(tokens) && !isKeyWord(tokens[i]) {
			idx.Name = core.UnquoteIdentifier(tokens[i])
			i++
		}
	}

	var kind []string
	for ; i < len(tokens); i++ {
		upper := strings.ToUpper(tokens[i])
		if upper == "KEY" || upper == "INDEX" {
			if len(kind) == 0 || kind[len(kind)-1] != "KEY" {
				kind = append(kind, "KEY")
			}
			continue
		}
		if !isKeyWord(tokens[i]) {
			break
		}
		kind = append(kind, upper)
	}
	idx.Kind = strings.Join(kind, " ")
	switch idx.Kind {
	case "UNIQUE", "FULLTEXT", "SPATIAL":
		idx.Kind += " KEY"
	}

	for ; i < len(tokens); i++ {
		tok := tokens[i]
		if strings.HasPrefix(tok, "(") {
			idx.Columns = keyColumns(tok)
			break
		}
		if open := strings.IndexByte(tok, '('); open > 0 && idx.Name == "" && idx.Kind != "CHECK" {
			idx.Name = core.UnquoteIdentifier(tok[:open])
			idx.Columns = keyColumns(tok[open:])
			break
		}
		if idx.Name == "" && !strings.EqualFold(tok, "USING") && idx.Kind != "CHECK" {
			idx.Name = core.UnquoteIdentifier(tok)
		}
	}
	if idx.Kind == "CHECK" {
		idx.Columns = nil
	}
	if idx.Kind == "" {
		return core.ErrMissingType
	}

	t.Indexes = append(t.Indexes, idx)
	return nil
}

// splitKeywordGroups separates "KEY(id)" into "KEY" and "(id)".
func splitKeywordGroups(tokens []string) []string {
	out := make([]string, 0, len(tokens)+1)
	for _, tok := range tokens {
		if open := strings.IndexByte(tok, '('); open > 0 && isKeyWord(tok[:open]) {
			out = append(out, tok[:open], tok[open:])
			continue
		}
		out = append(out, tok)
	}
	return out
}

func isKeyWord(tok string) bool {
	switch strings.ToUpper(tok) {
	case "PRIMARY", "KEY", "INDEX", "UNIQUE", "FULLTEXT", "SPATIAL", "FOREIGN", "CHECK":
		return true
	}
	return false
}

// keyColumns extracts column names from "(`a`, b(10) DESC)".
func keyColumns(group string) []string {
	group = strings.TrimSpace(group)
	closeIdx := sqlscan.MatchParen(group, 0)
	if closeIdx < 0 {
		return nil
	}
	parts, _ := sqlscan.Split(group[1:closeIdx], ',')
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		fields, _ := sqlscan.Tokens(strings.TrimSpace(p))
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		if open := sqlscan.IndexTopLevel(name, '('); open > 0 {
			name = name[:open]
		}
		cols = append(cols, core.UnquoteIdentifier(name))
	}
	return cols
}

// applyKeys tags columns named by PRIMARY KEY and single-column UNIQUE keys.
func applyKeys(t *core.Table) {
	for _, idx := range t.Indexes {
		switch {
		case idx.Kind == "PRIMARY KEY":
			for _, name := range idx.Columns {
				if c := t.FindColumn(name); c != nil {
					c.AddFlag(core.FlagPrimaryKey)
					c.Nullable = false
				}
			}
		case idx.Kind == "UNIQUE KEY" && len(idx.Columns) == 1:
			if c := t.FindColumn(idx.Columns[0]); c != nil {
				c.AddFlag(core.FlagUnique)
			}
		}
	}
}
