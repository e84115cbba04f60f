package core

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"schemadrift/internal/sqlscan"
)

// TypeKind is the closed set of canonical type families.
type TypeKind string

const (
	KindString   TypeKind = "string"
	KindInteger  TypeKind = "integer"
	KindDecimal  TypeKind = "decimal"
	KindDatetime TypeKind = "datetime"
	KindEnum     TypeKind = "enum"
	KindText     TypeKind = "text"
	KindBinary   TypeKind = "binary"
	KindOpaque   TypeKind = "opaque"
)

// CanonicalType is the vendor-independent description of a column type.
// Two types are equal when kind, base keyword and parameters agree.
type CanonicalType struct {
	Kind TypeKind
	// Base is the canonical lower-case keyword ("varchar", "int", "decimal").
	Base string
	// Length holds character/byte length for strings and binaries, and the
	// fractional seconds precision for temporal types.
	Length    int
	Precision int
	Scale     int
	// Width is the display width of integers and YEAR, e.g. 11 in int(11)
	// or 4 in year(4).
	Width  int
	Values []string
	// Params keeps the raw parameters of opaque types.
	Params []string

	known bool
}

type typeEntry struct {
	kind TypeKind
	base string
}

// typeKeywords maps type-family keywords to canonical kinds. Synonyms collapse
// onto the keyword MySQL reports through information_schema.
var typeKeywords = map[string]typeEntry{
	"char":               {KindString, "char"},
	"character":          {KindString, "char"},
	"nchar":              {KindString, "char"},
	"national char":      {KindString, "char"},
	"national character": {KindString, "char"},
	"varchar":            {KindString, "varchar"},
	"character varying":  {KindString, "varchar"},
	"nvarchar":           {KindString, "varchar"},
	"national varchar":   {KindString, "varchar"},

	"tinyint":   {KindInteger, "tinyint"},
	"smallint":  {KindInteger, "smallint"},
	"mediumint": {KindInteger, "mediumint"},
	"int":       {KindInteger, "int"},
	"integer":   {KindInteger, "int"},
	"bigint":    {KindInteger, "bigint"},
	"bool":      {KindInteger, "tinyint"},
	"boolean":   {KindInteger, "tinyint"},

	"decimal":          {KindDecimal, "decimal"},
	"dec":              {KindDecimal, "decimal"},
	"numeric":          {KindDecimal, "decimal"},
	"fixed":            {KindDecimal, "decimal"},
	"float":            {KindDecimal, "float"},
	"double":           {KindDecimal, "double"},
	"double precision": {KindDecimal, "double"},
	"real":             {KindDecimal, "double"},

	"date":      {KindDatetime, "date"},
	"datetime":  {KindDatetime, "datetime"},
	"timestamp": {KindDatetime, "timestamp"},
	"time":      {KindDatetime, "time"},
	"year":      {KindDatetime, "year"},

	"enum": {KindEnum, "enum"},
	"set":  {KindEnum, "set"},

	"tinytext":     {KindText, "tinytext"},
	"text":         {KindText, "text"},
	"mediumtext":   {KindText, "mediumtext"},
	"long varchar": {KindText, "mediumtext"},
	"longtext":     {KindText, "longtext"},
	"json":         {KindText, "json"},

	"binary":         {KindBinary, "binary"},
	"varbinary":      {KindBinary, "varbinary"},
	"bit":            {KindBinary, "bit"},
	"tinyblob":       {KindBinary, "tinyblob"},
	"blob":           {KindBinary, "blob"},
	"mediumblob":     {KindBinary, "mediumblob"},
	"long varbinary": {KindBinary, "mediumblob"},
	"longblob":       {KindBinary, "longblob"},

	"geometry":           {KindOpaque, "geometry"},
	"point":              {KindOpaque, "point"},
	"linestring":         {KindOpaque, "linestring"},
	"polygon":            {KindOpaque, "polygon"},
	"multipoint":         {KindOpaque, "multipoint"},
	"multilinestring":    {KindOpaque, "multilinestring"},
	"multipolygon":       {KindOpaque, "multipolygon"},
	"geometrycollection": {KindOpaque, "geometrycollection"},
	"vector":             {KindOpaque, "vector"},
}

// implicitWidth records synonyms that imply a display width.
var implicitWidth = map[string]int{
	"bool":    1,
	"boolean": 1,
}

// NormalizeType maps a vendor type string to its canonical type. It never fails:
// unrecognized keywords produce a KindOpaque type (see Unknown). Type modifiers
// UNSIGNED and ZEROFILL are returned as flags instead of being part of the type.
func NormalizeType(raw string) (CanonicalType, []string) {
	s := strings.TrimSpace(raw)
	head, params, tail := splitTypeParams(s)

	var flags []string
	name := typeKeyword(strings.Fields(strings.ToLower(head)), &flags)
	typeKeyword(strings.Fields(strings.ToLower(tail)), &flags)

	entry, ok := typeKeywords[name]
	if !ok {
		return CanonicalType{Kind: KindOpaque, Base: name, Params: trimAll(params)}, flags
	}

	ct := CanonicalType{Kind: entry.kind, Base: entry.base, known: true}
	if w, ok := implicitWidth[name]; ok {
		ct.Width = w
	}
	if err := ct.applyParams(params); err != nil {
		return CanonicalType{Kind: KindOpaque, Base: name, Params: trimAll(params)}, flags
	}
	ct.applyDefaults()
	return ct, flags
}

// typeKeyword collects the type keyword from words, moving modifiers into flags.
// Collection stops at the first column attribute (CHARACTER SET, COLLATE, ...)
// that some sources append to the type string.
func typeKeyword(words []string, flags *[]string) string {
	var keyword []string
	stopped := false
	for i, w := range words {
		switch w {
		case "unsigned":
			*flags = append(*flags, FlagUnsigned)
			continue
		case "zerofill":
			*flags = append(*flags, FlagZerofill, FlagUnsigned)
			continue
		case "signed":
			continue
		}
		if stopped {
			continue
		}
		if len(keyword) > 0 && isAttributeStart(words, i) {
			stopped = true
			continue
		}
		keyword = append(keyword, w)
	}
	return strings.Join(keyword, " ")
}

func isAttributeStart(words []string, i int) bool {
	switch words[i] {
	case "character":
		return i+1 < len(words) && words[i+1] == "set"
	case "charset", "collate", "binary", "ascii", "unicode":
		return true
	}
	return false
}

// Unknown reports whether the type keyword was not recognized.
func (t CanonicalType) Unknown() bool {
	return !t.known && t.Kind == KindOpaque
}

func (t *CanonicalType) applyParams(params []string) error {
	if len(params) == 0 {
		return nil
	}
	switch t.Kind {
	case KindEnum:
		for _, p := range params {
			p = strings.TrimSpace(p)
			if len(p) >= 2 && (p[0] == '\'' || p[0] == '"') {
				p = unquoteLiteral(p)
			}
			t.Values = append(t.Values, p)
		}
		return nil
	case KindDecimal:
		if len(params) > 2 {
			return fmt.Errorf("too many parameters for %s", t.Base)
		}
		p, err := atoiParam(params[0])
		if err != nil {
			return err
		}
		t.Precision = p
		if len(params) == 2 {
			s, err := atoiParam(params[1])
			if err != nil {
				return err
			}
			t.Scale = s
		}
		return nil
	case KindInteger:
		if len(params) != 1 {
			return fmt.Errorf("too many parameters for %s", t.Base)
		}
		w, err := atoiParam(params[0])
		if err != nil {
			return err
		}
		t.Width = w
		return nil
	case KindOpaque:
		t.Params = trimAll(params)
		return nil
	default:
		if len(params) != 1 {
			return fmt.Errorf("too many parameters for %s", t.Base)
		}
		n, err := atoiParam(params[0])
		if err != nil {
			return err
		}
		if t.hasDisplayWidth() {
			t.Width = n
		} else {
			t.Length = n
		}
		return nil
	}
}

// hasDisplayWidth reports whether the type's parameter is a display width.
func (t CanonicalType) hasDisplayWidth() bool {
	return t.Kind == KindInteger || t.Base == "year"
}

// applyDefaults fills in the parameters the server assumes when none are given.
func (t *CanonicalType) applyDefaults() {
	switch t.Base {
	case "decimal":
		if t.Precision == 0 {
			t.Precision = 10
		}
	case "char", "binary", "bit":
		if t.Length == 0 {
			t.Length = 1
		}
	}
}

// Equal reports whether two canonical types are the same under the policy.
func (t CanonicalType) Equal(o CanonicalType, policy ComparePolicy) bool {
	if t.Kind != o.Kind || t.Base != o.Base {
		return false
	}
	if t.Length != o.Length || t.Precision != o.Precision || t.Scale != o.Scale {
		return false
	}
	if t.hasDisplayWidth() && !policy.IgnoreIntegerDisplayWidth && t.Width != o.Width {
		return false
	}
	return slices.Equal(t.Values, o.Values) && slices.EqualFunc(t.Params, o.Params, strings.EqualFold)
}

// SQL renders the type in upper-case canonical form, e.g. VARCHAR(100) or
// DECIMAL(10,2). Modifiers are not included.
func (t CanonicalType) SQL() string {
	base := strings.ToUpper(t.Base)
	switch t.Kind {
	case KindEnum:
		quoted := make([]string, 0, len(t.Values))
		for _, v := range t.Values {
			quoted = append(quoted, "'"+strings.ReplaceAll(v, "'", "''")+"'")
		}
		return base + "(" + strings.Join(quoted, ",") + ")"
	case KindDecimal:
		switch {
		case t.Precision > 0 && (t.Scale > 0 || t.Base == "decimal"):
			return fmt.Sprintf("%s(%d,%d)", base, t.Precision, t.Scale)
		case t.Precision > 0:
			return fmt.Sprintf("%s(%d)", base, t.Precision)
		}
		return base
	case KindInteger:
		if t.Width > 0 {
			return fmt.Sprintf("%s(%d)", base, t.Width)
		}
		return base
	case KindOpaque:
		if len(t.Params) > 0 {
			return base + "(" + strings.Join(t.Params, ",") + ")"
		}
		return base
	default:
		switch {
		case t.Length > 0:
			return fmt.Sprintf("%s(%d)", base, t.Length)
		case t.Width > 0:
			return fmt.Sprintf("%s(%d)", base, t.Width)
		}
		return base
	}
}

// String returns the canonical tag with parameters, e.g. string(varchar,100).
func (t CanonicalType) String() string {
	return string(t.Kind) + ":" + strings.ToLower(t.SQL())
}

// splitTypeParams splits "decimal(10,2) unsigned" into the head before the
// parenthesized group, the top-level parameters and the tail after it.
func splitTypeParams(s string) (head string, params []string, tail string) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return s, nil, ""
	}
	closeIdx := sqlscan.MatchParen(s, open)
	if closeIdx < 0 {
		params, _ = sqlscan.Split(s[open+1:], ',')
		return s[:open], params, ""
	}
	inner := s[open+1 : closeIdx]
	if strings.TrimSpace(inner) != "" {
		params, _ = sqlscan.Split(inner, ',')
	}
	return s[:open], params, s[closeIdx+1:]
}

func atoiParam(p string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(p))
	if err != nil {
		return 0, fmt.Errorf("invalid type parameter %q", strings.TrimSpace(p))
	}
	return n, nil
}

func trimAll(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, strings.TrimSpace(it))
	}
	return out
}
