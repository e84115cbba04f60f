package mysql

import (
	"regexp"
	"strconv"
	"strings"

	"schemadrift/internal/core"
	"schemadrift/internal/dialect"
)

var plainIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// bitLiteral matches b'0101' and 0x1F style literals, which must not be quoted.
var bitLiteral = regexp.MustCompile(`^(?i:b'[01]*'|x'[0-9a-f]*'|0x[0-9a-f]+)$`)

// reservedWords is the subset of MySQL 8 reserved words that plausibly show up
// as table or column names.
var reservedWords = map[string]struct{}{
	"accessible": {}, "add": {}, "all": {}, "alter": {}, "analyze": {}, "and": {}, "as": {}, "asc": {},
	"before": {}, "between": {}, "bigint": {}, "binary": {}, "blob": {}, "both": {}, "by": {},
	"call": {}, "cascade": {}, "case": {}, "change": {}, "char": {}, "character": {}, "check": {},
	"collate": {}, "column": {}, "condition": {}, "constraint": {}, "continue": {}, "convert": {},
	"create": {}, "cross": {}, "cube": {}, "current_date": {}, "current_time": {}, "current_timestamp": {},
	"current_user": {}, "cursor": {}, "database": {}, "databases": {}, "decimal": {}, "declare": {},
	"default": {}, "delete": {}, "desc": {}, "describe": {}, "distinct": {}, "div": {}, "double": {},
	"drop": {}, "dual": {}, "each": {}, "else": {}, "elseif": {}, "empty": {}, "enclosed": {},
	"escaped": {}, "except": {}, "exists": {}, "exit": {}, "explain": {}, "false": {}, "fetch": {},
	"float": {}, "for": {}, "force": {}, "foreign": {}, "from": {}, "fulltext": {}, "function": {},
	"generated": {}, "get": {}, "grant": {}, "group": {}, "groups": {}, "having": {}, "if": {},
	"ignore": {}, "in": {}, "index": {}, "inner": {}, "inout": {}, "insert": {}, "int": {},
	"integer": {}, "interval": {}, "into": {}, "is": {}, "iterate": {}, "join": {}, "key": {},
	"keys": {}, "kill": {}, "lag": {}, "lead": {}, "leading": {}, "leave": {}, "left": {}, "like": {},
	"limit": {}, "lines": {}, "load": {}, "localtime": {}, "localtimestamp": {}, "lock": {}, "long": {},
	"loop": {}, "match": {}, "mod": {}, "modifies": {}, "natural": {}, "not": {}, "null": {},
	"numeric": {}, "of": {}, "on": {}, "optimize": {}, "option": {}, "or": {}, "order": {}, "out": {},
	"outer": {}, "over": {}, "partition": {}, "precision": {}, "primary": {}, "procedure": {},
	"purge": {}, "range": {}, "rank": {}, "read": {}, "real": {}, "recursive": {}, "references": {},
	"regexp": {}, "release": {}, "rename": {}, "repeat": {}, "replace": {}, "require": {},
	"restrict": {}, "return": {}, "revoke": {}, "right": {}, "rlike": {}, "row": {}, "rows": {},
	"schema": {}, "schemas": {}, "select": {}, "separator": {}, "set": {}, "show": {}, "signal": {},
	"smallint": {}, "spatial": {}, "sql": {}, "ssl": {}, "starting": {}, "stored": {}, "straight_join": {},
	"system": {}, "table": {}, "terminated": {}, "then": {}, "tinyint": {}, "to": {}, "trailing": {},
	"trigger": {}, "true": {}, "undo": {}, "union": {}, "unique": {}, "unlock": {}, "unsigned": {},
	"update": {}, "usage": {}, "use": {}, "using": {}, "utc_date": {}, "utc_time": {},
	"utc_timestamp": {}, "values": {}, "varbinary": {}, "varchar": {}, "varying": {}, "virtual": {},
	"when": {}, "where": {}, "while": {}, "window": {}, "with": {}, "write": {}, "xor": {},
	"year_month": {}, "zerofill": {},
}

// IsReserved reports whether name is a MySQL reserved word.
func IsReserved(name string) bool {
	_, ok := reservedWords[strings.ToLower(name)]
	return ok
}

// QuoteIdentifier wraps name in backticks, doubling embedded backticks. In
// as-needed mode plain identifiers that are not reserved stay bare.
func (d *Dialect) QuoteIdentifier(name string) string {
	name = strings.TrimSpace(name)
	if d.opts.Quote != dialect.QuoteAlways && plainIdentifier.MatchString(name) && !IsReserved(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteString returns value as a single-quoted MySQL string literal.
func (d *Dialect) QuoteString(value string) string {
	var b strings.Builder
	b.Grow(len(value) + len(value)/10 + 2)

	b.WriteByte('\'')
	for _, char := range value {
		switch char {
		case '\'':
			b.WriteString("''")
		case '\\':
			b.WriteString(`\\`)
		case '\x00':
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\x1A':
			b.WriteString(`\Z`)
		default:
			b.WriteRune(char)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// formatDefault renders the stored default of c. Literals are stored without
// quotes; expressions carry core.FlagDefaultExpression and are kept in
// parentheses, so only the flag makes a value render unquoted as an expression.
func (d *Dialect) formatDefault(c *core.Column) string {
	v := *c.Default
	if c.HasFlag(core.FlagDefaultExpression) {
		return v
	}

	switch c.Type.Kind {
	case core.KindInteger, core.KindDecimal:
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			return v
		}
		switch v {
		case "TRUE", "FALSE":
			return v
		}
	case core.KindDatetime:
		if core.IsTemporalDefault(v) {
			return v
		}
	case core.KindBinary:
		if bitLiteral.MatchString(v) {
			return v
		}
	}
	return d.QuoteString(v)
}
