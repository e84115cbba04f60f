package ddl

import (
	"strings"

	"schemadrift/internal/core"
	"schemadrift/internal/sqlscan"
)

// typeWords may follow the first type token as part of the type itself, as in
// "double precision", "character varying" or "national varchar(10)".
var typeWords = map[string]struct{}{
	"precision": {},
	"varying":   {},
	"varchar":   {},
	"char":      {},
	"character": {},
	"varbinary": {},
}

var typeModifiers = map[string]struct{}{
	"unsigned": {},
	"signed":   {},
	"zerofill": {},
}

// parseColumn splits a column clause into identifier, type and modifiers.
func parseColumn(clause string) (*core.Column, error) {
	tokens, err := sqlscan.Tokens(clause)
	if err != nil {
		return nil, scanErr(err)
	}
	if len(tokens) < 2 {
		return nil, core.ErrMissingType
	}

	name := core.UnquoteIdentifier(tokens[0])
	typ, rest := columnType(tokens[1:])
	col := core.NewColumn(name, typ)
	applyModifiers(col, rest)
	return col, nil
}

// columnType collects the type tokens and returns the remaining modifiers.
func columnType(tokens []string) (string, []string) {
	parts := []string{tokens[0]}
	hasParams := strings.Contains(tokens[0], "(")
	i := 1
	for ; i < len(tokens); i++ {
		tok := tokens[i]
		lower := strings.ToLower(tok)
		if strings.HasPrefix(tok, "(") && !hasParams {
			parts[len(parts)-1] += tok
			hasParams = true
			continue
		}
		if _, ok := typeModifiers[lower]; ok {
			parts = append(parts, tok)
			continue
		}
		word, _, _ := strings.Cut(lower, "(")
		if _, ok := typeWords[word]; ok && !hasParams {
			if word == "character" && i+1 < len(tokens) && strings.EqualFold(tokens[i+1], "set") {
				break
			}
			parts = append(parts, tok)
			hasParams = strings.Contains(tok, "(")
			continue
		}
		break
	}
	return strings.Join(parts, " "), tokens[i:]
}

// applyModifiers interprets the column attributes that follow the type.
// Unknown attributes (COLUMN_FORMAT, STORAGE, VISIBLE, ...) are skipped.
func applyModifiers(col *core.Column, tokens []string) {
	for i := 0; i < len(tokens); i++ {
		switch strings.ToUpper(tokens[i]) {
		case "NOT":
			if strings.EqualFold(peek(tokens, i+1), "NULL") {
				i++
				col.Nullable = false
			}
		case "NULL":
			col.Nullable = true
		case "DEFAULT":
			tok := take(tokens, &i)
			col.Default = defaultValue(tok)
			if !isQuoted(tok) {
				col.MarkDefaultExpression()
			}
		case "AUTO_INCREMENT":
			col.AddFlag(core.FlagAutoIncrement)
		case "ON":
			if strings.EqualFold(peek(tokens, i+1), "UPDATE") {
				i++
				col.AddFlag(core.OnUpdateFlag(take(tokens, &i)))
			}
		case "PRIMARY":
			if strings.EqualFold(peek(tokens, i+1), "KEY") {
				i++
			}
			col.AddFlag(core.FlagPrimaryKey)
			col.Nullable = false
		case "UNIQUE":
			if strings.EqualFold(peek(tokens, i+1), "KEY") {
				i++
			}
			col.AddFlag(core.FlagUnique)
		case "COMMENT":
			col.Comment = core.NormalizeDefault(take(tokens, &i))
		case "CHARSET":
			col.Charset = strings.ToLower(core.UnquoteIdentifier(take(tokens, &i)))
		case "CHARACTER":
			if strings.EqualFold(peek(tokens, i+1), "SET") {
				i++
				col.Charset = strings.ToLower(core.UnquoteIdentifier(take(tokens, &i)))
			}
		case "COLLATE":
			col.Collate = strings.ToLower(core.UnquoteIdentifier(take(tokens, &i)))
		case "REFERENCES", "CHECK", "GENERATED", "AS":
			// inline references, checks and generation clauses run to the end
			return
		}
	}
}

// take advances *i and returns the token there, or "" at the end.
func take(tokens []string, i *int) string {
	if *i+1 < len(tokens) {
		*i++
		return tokens[*i]
	}
	return ""
}

func peek(tokens []string, i int) string {
	if i < len(tokens) {
		return tokens[i]
	}
	return ""
}

// defaultValue normalizes a DEFAULT literal; DEFAULT NULL is the same as no default.
func defaultValue(tok string) *string {
	if tok == "" {
		return nil
	}
	v := core.NormalizeDefault(tok)
	if isQuoted(tok) {
		return &v
	}
	if v == "NULL" {
		return nil
	}
	return &v
}

func isQuoted(tok string) bool {
	return strings.HasPrefix(tok, "'") || strings.HasPrefix(tok, `"`)
}
