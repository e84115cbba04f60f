package diff

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemadrift/internal/core"
	"schemadrift/internal/fakeschema"
	"schemadrift/internal/parser/ddl"
)

func mustParse(t *testing.T, sql string) *core.Database {
	t.Helper()
	db, _, err := ddl.ParseSchema(sql)
	require.NoError(t, err)
	return db
}

func kinds(changes []*Change) []string {
	var out []string
	for _, c := range changes {
		out = append(out, c.String())
	}
	return out
}

func TestDiffIdenticalIsEmpty(t *testing.T) {
	db := mustParse(t, `
CREATE TABLE users (id int NOT NULL AUTO_INCREMENT PRIMARY KEY, email varchar(100) NOT NULL);
CREATE TABLE logs (id bigint, msg text);`)

	res, err := Diff(db, db.Clone(), DefaultOptions())
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "No differences detected.", res.String())
}

func TestDiffCategoriesAndOrder(t *testing.T) {
	source := mustParse(t, `
CREATE TABLE zebra (id int);
CREATE TABLE users (id int NOT NULL, name varchar(50) NOT NULL, email varchar(100) NOT NULL, age int);
CREATE TABLE accounts (id int);`)
	target := mustParse(t, `
CREATE TABLE users (id int NOT NULL, name varchar(20), legacy text, old_flag tinyint);
CREATE TABLE logs (id int);
CREATE TABLE archive (id int);`)

	res, err := Diff(source, target, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"add_table accounts",
		"add_table zebra",
		"add_column users.email",
		"add_column users.age",
		"modify_column users.name",
		"drop_column users.legacy [destructive]",
		"drop_column users.old_flag [destructive]",
		"drop_table archive [destructive]",
		"drop_table logs [destructive]",
	}, kinds(res.Changes))

	assert.Len(t, res.Destructive(), 4)
	assert.Len(t, res.Additive(), 4)
	assert.Equal(t, map[Kind]int{AddTable: 2, AddColumn: 2, ModifyColumn: 1, DropColumn: 2, DropTable: 2}, res.Counts())
	assert.Equal(t, []string{"accounts", "zebra", "users", "archive", "logs"}, res.Tables())

	email := res.ByKind(AddColumn)[0]
	assert.Equal(t, "name", email.Previous)
	assert.Equal(t, 3, email.After.Position)
}

func TestDiffDropTableIsDestructive(t *testing.T) {
	source := mustParse(t, "CREATE TABLE users (id int);")
	target := mustParse(t, "CREATE TABLE users (id int); CREATE TABLE logs (id int, msg text);")

	res, err := Diff(source, target, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)

	ch := res.Changes[0]
	assert.Equal(t, DropTable, ch.Kind)
	assert.Equal(t, "logs", ch.Table)
	assert.True(t, ch.Destructive())
	assert.Len(t, ch.TableDef.Columns, 2)
}

func TestDiffModifyFields(t *testing.T) {
	source := mustParse(t, "CREATE TABLE t (a varchar(100) NOT NULL DEFAULT 'x', b int unsigned, c timestamp ON UPDATE CURRENT_TIMESTAMP)")
	target := mustParse(t, "CREATE TABLE t (a varchar(50), b int, c timestamp)")

	res, err := Diff(source, target, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Changes, 3)

	a := res.Changes[0]
	assert.Equal(t, []*FieldChange{
		{Field: "type", Old: "VARCHAR(50)", New: "VARCHAR(100)"},
		{Field: "nullable", Old: "true", New: "false"},
		{Field: "default", Old: "(none)", New: "x"},
	}, a.Changes)
	assert.Equal(t, "a", a.Before.Name)
	assert.Equal(t, 50, a.Before.Type.Length)
	assert.Equal(t, 100, a.After.Type.Length)

	assert.Equal(t, []*FieldChange{{Field: "flags", Old: "", New: "unsigned"}}, res.Changes[1].Changes)
	assert.Equal(t, []*FieldChange{{Field: "flags", Old: "", New: "on_update:CURRENT_TIMESTAMP"}}, res.Changes[2].Changes)
}

func TestDiffDefaultLiteralVsExpression(t *testing.T) {
	source := mustParse(t, "CREATE TABLE t (a varchar(20) DEFAULT (upper('x')), b varchar(36) DEFAULT (uuid()))")
	target := mustParse(t, "CREATE TABLE t (a varchar(20) DEFAULT '(upper(''x''))', b varchar(36) DEFAULT (uuid()))")

	res, err := Diff(source, target, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, "a", res.Changes[0].Column)
	assert.Equal(t, []*FieldChange{
		{Field: "default", Old: "literal '(upper('x'))'", New: "expression (upper('x'))"},
	}, res.Changes[0].Changes)
}

func TestDiffPolicy(t *testing.T) {
	source := mustParse(t, "CREATE TABLE t (a INT(11) UNSIGNED, b VARCHAR(50), c int(11), id int PRIMARY KEY)")
	target := mustParse(t, "CREATE TABLE t (a int, b varchar(50), c int, id int NOT NULL)")

	t.Run("default", func(t *testing.T) {
		res, err := Diff(source, target, DefaultOptions())
		require.NoError(t, err)
		require.Len(t, res.Changes, 1)
		assert.Equal(t, "a", res.Changes[0].Column)
		assert.Equal(t, []*FieldChange{{Field: "flags", Old: "", New: "unsigned"}}, res.Changes[0].Changes)
	})

	t.Run("flags ignored", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Policy.CompareFlags = false
		res, err := Diff(source, target, opts)
		require.NoError(t, err)
		assert.True(t, res.Empty())
	})

	t.Run("display width significant", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Policy.IgnoreIntegerDisplayWidth = false
		res, err := Diff(source, target, opts)
		require.NoError(t, err)
		assert.Equal(t, []string{"modify_column t.a", "modify_column t.c"}, kinds(res.Changes))
		assert.Equal(t, &FieldChange{Field: "type", Old: "INT", New: "INT(11)"}, res.Changes[1].Changes[0])
	})
}

func TestDiffCaseDifferences(t *testing.T) {
	source := mustParse(t, "CREATE TABLE Users (Email varchar(100))")
	target := mustParse(t, "CREATE TABLE users (email varchar(100))")

	t.Run("folded", func(t *testing.T) {
		res, err := Diff(source, target, DefaultOptions())
		require.NoError(t, err)
		require.Len(t, res.Changes, 1)

		ch := res.Changes[0]
		assert.Equal(t, ModifyColumn, ch.Kind)
		assert.Equal(t, "users", ch.Table)
		assert.Equal(t, "email", ch.Column)
		assert.True(t, ch.Renamed())
		assert.Equal(t, []*FieldChange{{Field: "name", Old: "email", New: "Email"}}, ch.Changes)

		require.Len(t, res.Warnings, 2)
		for _, w := range res.Warnings {
			assert.Equal(t, core.WarningDiffAmbiguity, w.Kind)
		}
	})

	t.Run("case sensitive", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Policy.Folding = core.FoldNone
		res, err := Diff(source, target, opts)
		require.NoError(t, err)
		assert.Equal(t, []string{"add_table Users", "drop_table users [destructive]"}, kinds(res.Changes))
	})
}

func TestDiffRejectsInconsistentSnapshot(t *testing.T) {
	good := mustParse(t, "CREATE TABLE t (a int)")
	bad := mustParse(t, "CREATE TABLE t (a int, A text)")

	_, err := Diff(good, bad, DefaultOptions())
	var inconsistent *core.SchemaInconsistencyError
	require.True(t, errors.As(err, &inconsistent))
	assert.Len(t, inconsistent.Problems, 1)

	_, err = Diff(bad, good, DefaultOptions())
	assert.True(t, errors.As(err, &inconsistent))

	opts := DefaultOptions()
	opts.Policy.Folding = "upper"
	_, err = Diff(good, good, opts)
	assert.Error(t, err)
}

func TestDiffRenameHints(t *testing.T) {
	source := mustParse(t, "CREATE TABLE t (id int, user_email varchar(100) NOT NULL, note text)")
	target := mustParse(t, "CREATE TABLE t (id int, email varchar(100) NOT NULL, remark int)")

	res, err := Diff(source, target, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"add_column t.user_email",
		"add_column t.note",
		"drop_column t.email [destructive]",
		"drop_column t.remark [destructive]",
	}, kinds(res.Changes))

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, core.WarningRenameHint, res.Warnings[0].Kind)
	assert.Equal(t, "email", res.Warnings[0].Column)

	opts := DefaultOptions()
	opts.DetectRenames = false
	res, err = Diff(source, target, opts)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
}

func TestChangeInverse(t *testing.T) {
	source := mustParse(t, "CREATE TABLE t (id int, a varchar(10) NOT NULL)")
	target := mustParse(t, "CREATE TABLE t (id int, a varchar(5), b int)")

	res, err := Diff(source, target, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Changes, 2)

	mod := res.Changes[0].Inverse()
	assert.Equal(t, ModifyColumn, mod.Kind)
	assert.Equal(t, 10, mod.Before.Type.Length)
	assert.Equal(t, 5, mod.After.Type.Length)
	assert.Equal(t, "VARCHAR(5)", mod.Changes[0].New)

	add := res.Changes[1].Inverse()
	assert.Equal(t, AddColumn, add.Kind)
	assert.Equal(t, "b", add.Column)
	assert.Equal(t, "a", add.Previous)
	assert.Equal(t, res.Changes[1], add.Inverse())
}

func TestResultString(t *testing.T) {
	source := mustParse(t, "CREATE TABLE t (a int NOT NULL)")
	target := mustParse(t, "CREATE TABLE t (a int, b text)")

	res, err := Diff(source, target, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "Schema differences:\n"+
		"\nModified columns:\n"+
		"  - t.a:\n"+
		"      - nullable: \"true\" -> \"false\"\n"+
		"\nDropped columns (destructive):\n"+
		"  - t.b: text\n", res.String())
}

func shuffled(f *gofakeit.Faker, db *core.Database) *core.Database {
	out := db.Clone()
	r := rand.New(rand.NewSource(int64(f.Number(0, 1<<30))))
	r.Shuffle(len(out.Tables), func(i, j int) { out.Tables[i], out.Tables[j] = out.Tables[j], out.Tables[i] })
	return out
}

func TestDiffProperties(t *testing.T) {
	for seed := int64(1); seed <= 100; seed++ {
		f := gofakeit.New(seed)
		target := fakeschema.Database(f, fakeschema.Options{})
		source := fakeschema.Mutate(f, target)
		sourceBefore, targetBefore := source.Clone(), target.Clone()

		res, err := Diff(source, target, DefaultOptions())
		require.NoError(t, err, "seed %d", seed)

		// inputs are untouched
		require.Equal(t, sourceBefore, source.Clone(), "seed %d", seed)
		require.Equal(t, targetBefore, target.Clone(), "seed %d", seed)

		// idempotence
		self, err := Diff(source, source, DefaultOptions())
		require.NoError(t, err)
		require.True(t, self.Empty(), "seed %d", seed)

		// applying the changes converges on the source
		applied, err := res.Apply(target)
		require.NoError(t, err, "seed %d", seed)
		again, err := Diff(source, applied, DefaultOptions())
		require.NoError(t, err)
		require.True(t, again.Empty(), "seed %d: %s", seed, again)

		// undoing them in reverse order restores the target
		undo := &Result{Policy: res.Policy}
		for i := len(res.Changes) - 1; i >= 0; i-- {
			undo.Changes = append(undo.Changes, res.Changes[i].Inverse())
		}
		restored, err := undo.Apply(applied)
		require.NoError(t, err, "seed %d", seed)
		back, err := Diff(target, restored, DefaultOptions())
		require.NoError(t, err)
		require.True(t, back.Empty(), "seed %d: %s", seed, back)

		// order does not depend on input order
		reordered, err := Diff(shuffled(f, source), shuffled(f, target), DefaultOptions())
		require.NoError(t, err)
		require.Equal(t, kinds(res.Changes), kinds(reordered.Changes), "seed %d", seed)

		for i := 1; i < len(res.Changes); i++ {
			require.LessOrEqual(t, kindOrder[res.Changes[i-1].Kind], kindOrder[res.Changes[i].Kind], "seed %d", seed)
		}
	}
}
