package mysql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemadrift/internal/core"
	"schemadrift/internal/dialect"
	"schemadrift/internal/diff"
	"schemadrift/internal/parser/ddl"
)

func diffSQL(t *testing.T, source, target string) *diff.Result {
	t.Helper()
	src, _, err := ddl.ParseSchema(source)
	require.NoError(t, err)
	tgt, _, err := ddl.ParseSchema(target)
	require.NoError(t, err)
	res, err := diff.Diff(src, tgt, diff.DefaultOptions())
	require.NoError(t, err)
	return res
}

func TestRenderAddColumn(t *testing.T) {
	res := diffSQL(t,
		"CREATE TABLE users (id int NOT NULL AUTO_INCREMENT PRIMARY KEY, email varchar(100) NOT NULL)",
		"CREATE TABLE users (id int NOT NULL AUTO_INCREMENT PRIMARY KEY)")
	require.Len(t, res.Changes, 1)

	stmt, err := New(dialect.DefaultRenderOptions()).Render(res.Changes[0])
	require.NoError(t, err)
	assert.Equal(t, "ALTER TABLE users ADD COLUMN email VARCHAR(100) NOT NULL;", stmt)
}

func TestRenderChanges(t *testing.T) {
	res := diffSQL(t, `
CREATE TABLE users (
  id int(10) unsigned NOT NULL AUTO_INCREMENT,
  Name varchar(50) NOT NULL DEFAULT '',
  email varchar(100) NOT NULL,
  PRIMARY KEY (id),
  UNIQUE KEY uniq_email (email)
);
CREATE TABLE audit (id bigint NOT NULL, at datetime DEFAULT CURRENT_TIMESTAMP, PRIMARY KEY (id));`, `
CREATE TABLE users (
  id int(10) unsigned NOT NULL AUTO_INCREMENT,
  name varchar(20),
  legacy text,
  PRIMARY KEY (id)
);
CREATE TABLE logs (id int);`)

	d := New(dialect.DefaultRenderOptions())
	stmts, err := dialect.RenderAll(d, res.Changes)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE TABLE audit (\n" +
			"  id BIGINT NOT NULL,\n" +
			"  at DATETIME DEFAULT CURRENT_TIMESTAMP,\n" +
			"  PRIMARY KEY (id)\n" +
			");",
		"ALTER TABLE users ADD COLUMN email VARCHAR(100) NOT NULL;",
		"ALTER TABLE users CHANGE COLUMN name Name VARCHAR(50) NOT NULL DEFAULT '';",
		"ALTER TABLE users DROP COLUMN legacy;",
		"DROP TABLE logs;",
	}, stmts)
}

func TestRenderPlacement(t *testing.T) {
	res := diffSQL(t,
		"CREATE TABLE t (first_col int, a int, b int)",
		"CREATE TABLE t (a int)")
	require.Len(t, res.Changes, 2)

	d := New(dialect.RenderOptions{Quote: dialect.QuoteAsNeeded, Placement: true})
	stmts, err := dialect.RenderAll(d, res.Changes)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ALTER TABLE t ADD COLUMN first_col INT FIRST;",
		"ALTER TABLE t ADD COLUMN b INT AFTER a;",
	}, stmts)
}

func TestColumnDefinition(t *testing.T) {
	tbl, err := ddl.ParseTable(`CREATE TABLE t (
		id int(10) unsigned NOT NULL AUTO_INCREMENT,
		updated_at timestamp NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		status enum('new','it''s') DEFAULT 'new',
		price decimal(10,2) NOT NULL DEFAULT 0.00,
		code varchar(10) DEFAULT '123',
		note varchar(20) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin COMMENT 'free text',
		` + "`order`" + ` int zerofill,
		active bool DEFAULT TRUE,
		doc json
	)`)
	require.NoError(t, err)

	d := New(dialect.DefaultRenderOptions())
	want := []string{
		"id INT(10) UNSIGNED NOT NULL AUTO_INCREMENT",
		"updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP",
		"status ENUM('new','it''s') DEFAULT 'new'",
		"price DECIMAL(10,2) NOT NULL DEFAULT 0.00",
		"code VARCHAR(10) DEFAULT '123'",
		"note VARCHAR(20) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin COMMENT 'free text'",
		"`order` INT UNSIGNED ZEROFILL",
		"active TINYINT(1) DEFAULT TRUE",
		"doc JSON",
	}
	require.Len(t, tbl.Columns, len(want))
	for i, c := range tbl.Columns {
		assert.Equal(t, want[i], d.columnDefinition(c), c.Name)
	}
}

func TestFormatDefault(t *testing.T) {
	tests := []struct {
		name string
		typ  string
		def  string
		expr bool
		want string
	}{
		{"bit literal", "bit(1)", "b'0'", false, "b'0'"},
		{"hex literal", "varbinary(4)", "0x1F", false, "0x1F"},
		{"binary text", "varbinary(4)", "abc", false, "'abc'"},
		{"expression", "varchar(36)", "(uuid())", true, "(uuid())"},
		{"parenthesized literal", "varchar(20)", "(none)", false, "'(none)'"},
		{"non-numeric integer", "int", "abc", false, "'abc'"},
		{"negative", "int", "-1", false, "-1"},
		{"datetime literal", "datetime", "2020-01-01 00:00:00", false, "'2020-01-01 00:00:00'"},
		{"fsp now", "datetime(3)", "CURRENT_TIMESTAMP(3)", false, "CURRENT_TIMESTAMP(3)"},
		{"string keyword", "varchar(20)", "CURRENT_TIMESTAMP", false, "'CURRENT_TIMESTAMP'"},
		{"backslash", "varchar(20)", `a\b`, false, `'a\\b'`},
	}
	d := New(dialect.DefaultRenderOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := core.NewColumn("c", tt.typ)
			c.Default = &tt.def
			if tt.expr {
				c.AddFlag(core.FlagDefaultExpression)
			}
			assert.Equal(t, tt.want, d.formatDefault(c))
		})
	}
}

func TestRenderDefaultLiteralVsExpression(t *testing.T) {
	res := diffSQL(t,
		"CREATE TABLE t (id int, paren varchar(20) NOT NULL DEFAULT '(none)', uid varchar(36) DEFAULT (uuid()))",
		"CREATE TABLE t (id int)")
	require.Len(t, res.Changes, 2)

	d := New(dialect.DefaultRenderOptions())
	stmt, err := d.Render(res.Changes[0])
	require.NoError(t, err)
	assert.Equal(t, "ALTER TABLE t ADD COLUMN paren VARCHAR(20) NOT NULL DEFAULT '(none)';", stmt)

	stmt, err = d.Render(res.Changes[1])
	require.NoError(t, err)
	assert.Equal(t, "ALTER TABLE t ADD COLUMN uid VARCHAR(36) DEFAULT (uuid());", stmt)
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		needed string
		always string
	}{
		{"simple", "users", "users", "`users`"},
		{"underscore", "user_data", "user_data", "`user_data`"},
		{"reserved", "select", "`select`", "`select`"},
		{"reserved mixed case", "Order", "`Order`", "`Order`"},
		{"hyphen", "user-data", "`user-data`", "`user-data`"},
		{"space", "user table", "`user table`", "`user table`"},
		{"backtick", "a`b", "`a``b`", "`a``b`"},
		{"leading digit", "1st", "`1st`", "`1st`"},
		{"trimmed", "  users  ", "users", "`users`"},
		{"unicode", "用户表", "`用户表`", "`用户表`"},
	}
	needed := New(dialect.RenderOptions{Quote: dialect.QuoteAsNeeded})
	always := New(dialect.RenderOptions{Quote: dialect.QuoteAlways})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.needed, needed.QuoteIdentifier(tt.input))
			assert.Equal(t, tt.always, always.QuoteIdentifier(tt.input))
		})
	}
}

func TestQuoteString(t *testing.T) {
	d := New(dialect.DefaultRenderOptions())
	assert.Equal(t, "'it''s'", d.QuoteString("it's"))
	assert.Equal(t, `'a\nb\\c\0'`, d.QuoteString("a\nb\\c\x00"))
	assert.Equal(t, "''", d.QuoteString(""))
}

func TestCreateTable(t *testing.T) {
	tbl, err := ddl.ParseTable(`CREATE TABLE orders (
		id int NOT NULL,
		user_id int NOT NULL,
		sku varchar(20) UNIQUE,
		total decimal(10,2),
		PRIMARY KEY (user_id, id),
		KEY idx_total (total),
		CONSTRAINT fk_user FOREIGN KEY (user_id) REFERENCES users (id)
	) ENGINE=InnoDB COMMENT='customer orders'`)
	require.NoError(t, err)

	d := New(dialect.RenderOptions{Quote: dialect.QuoteAlways})
	stmt, err := d.CreateTable(tbl)
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE `orders` (\n"+
		"  `id` INT NOT NULL,\n"+
		"  `user_id` INT NOT NULL,\n"+
		"  `sku` VARCHAR(20),\n"+
		"  `total` DECIMAL(10,2),\n"+
		"  PRIMARY KEY (`user_id`, `id`),\n"+
		"  UNIQUE KEY (`sku`),\n"+
		"  KEY idx_total (total)\n"+
		") COMMENT='customer orders';", stmt)

	fk := tbl.Indexes[len(tbl.Indexes)-1]
	require.Equal(t, "FOREIGN KEY", fk.Kind)
	assert.Equal(t, "ALTER TABLE `orders` ADD CONSTRAINT fk_user FOREIGN KEY (user_id) REFERENCES users (id);", d.AddKey(tbl.Name, fk))

	_, err = d.CreateTable(&core.Table{Name: "empty"})
	assert.Error(t, err)
	_, err = d.CreateTable(nil)
	assert.Error(t, err)
}

func TestRenderRollback(t *testing.T) {
	res := diffSQL(t,
		"CREATE TABLE t (id int, a varchar(10) NOT NULL)",
		"CREATE TABLE t (id int, a varchar(5), b int); CREATE TABLE gone (x int)")
	require.Len(t, res.Changes, 3)

	d := New(dialect.DefaultRenderOptions())
	var rollbacks []string
	for _, ch := range res.Changes {
		rb, err := dialect.Rollback(d, ch)
		require.NoError(t, err)
		rollbacks = append(rollbacks, rb)
	}
	assert.Equal(t, []string{
		"ALTER TABLE t MODIFY COLUMN a VARCHAR(5);",
		"ALTER TABLE t ADD COLUMN b INT;",
		"CREATE TABLE gone (\n  x INT\n);",
	}, rollbacks)
}

func TestRenderInvalidChange(t *testing.T) {
	d := New(dialect.DefaultRenderOptions())
	tests := []struct {
		name string
		ch   *diff.Change
	}{
		{"nil", nil},
		{"no table", &diff.Change{Kind: diff.DropTable}},
		{"add table without definition", &diff.Change{Kind: diff.AddTable, Table: "t"}},
		{"add column without column", &diff.Change{Kind: diff.AddColumn, Table: "t", Column: "c"}},
		{"modify without before", &diff.Change{Kind: diff.ModifyColumn, Table: "t", After: core.NewColumn("c", "int")}},
		{"unknown kind", &diff.Change{Kind: "rename_table", Table: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Render(tt.ch)
			require.Error(t, err)
			assert.True(t, errors.Is(err, dialect.ErrInvalidChange))
		})
	}
}

func TestRegistered(t *testing.T) {
	d, err := dialect.New(dialect.MySQL, dialect.RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, dialect.MySQL, d.Name())
	assert.Equal(t, "users", d.QuoteIdentifier("users"))
	assert.Contains(t, dialect.Types(), dialect.MySQL)

	_, err = dialect.New("oracle", dialect.RenderOptions{})
	assert.Error(t, err)
	_, err = dialect.New(dialect.MySQL, dialect.RenderOptions{Quote: "sometimes"})
	assert.Error(t, err)
}
