package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestColumnFlags(t *testing.T) {
	c := NewColumn("id", "int")
	c.AddFlag("AUTO_INCREMENT", FlagPrimaryKey, FlagAutoIncrement, "")

	assert.Equal(t, []string{FlagAutoIncrement, FlagPrimaryKey}, c.Flags)
	assert.True(t, c.HasFlag(FlagAutoIncrement))
	assert.False(t, c.HasFlag(FlagUnsigned))
	assert.Equal(t, []string{FlagAutoIncrement}, c.DefinitionFlags())

	c.RemoveFlag(FlagPrimaryKey)
	assert.Equal(t, []string{FlagAutoIncrement}, c.Flags)
}

func TestColumnOnUpdate(t *testing.T) {
	c := NewColumn("updated_at", "timestamp")
	assert.Empty(t, c.OnUpdate())

	c.AddFlag(OnUpdateFlag("current_timestamp"))
	assert.Equal(t, "CURRENT_TIMESTAMP", c.OnUpdate())
	assert.Equal(t, []string{"on_update:CURRENT_TIMESTAMP"}, c.Flags)

	other := NewColumn("updated_at", "timestamp")
	other.AddFlag("on_update:CURRENT_TIMESTAMP")
	assert.Equal(t, c.Flags, other.Flags)
}

func TestNormalizeDefault(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"'abc'", "abc"},
		{"'a,b'", "a,b"},
		{"'it''s'", "it's"},
		{`'a\'b'`, "a'b"},
		{`"dq"`, "dq"},
		{"0", "0"},
		{"null", "NULL"},
		{"current_timestamp", "CURRENT_TIMESTAMP"},
		{"current_timestamp(3)", "CURRENT_TIMESTAMP(3)"},
		{"now()", "NOW()"},
		{"current_timestamp()", "CURRENT_TIMESTAMP"},
		{" 1.5 ", "1.5"},
		{"''", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDefault(tt.in))
		})
	}
}

func TestUnquoteIdentifier(t *testing.T) {
	assert.Equal(t, "users", UnquoteIdentifier("`users`"))
	assert.Equal(t, "a`b", UnquoteIdentifier("`a``b`"))
	assert.Equal(t, "users", UnquoteIdentifier(`"users"`))
	assert.Equal(t, "users", UnquoteIdentifier(" users "))
}

func TestTableLookups(t *testing.T) {
	id := NewColumn("id", "int")
	id.AddFlag(FlagPrimaryKey)
	tbl := &Table{Name: "Users", Columns: []*Column{id, NewColumn("Email", "varchar(100)")}}
	tbl.Renumber()
	db := &Database{Name: "app", Tables: []*Table{tbl}}

	require.NotNil(t, db.FindTable("users"))
	assert.Nil(t, db.FindTable("orders"))
	assert.Equal(t, 2, tbl.FindColumn("email").Position)
	assert.Equal(t, []string{"id"}, tbl.PrimaryKeyColumns())
	assert.Equal(t, []string{"Users"}, db.TableNames())
}

func TestDatabaseCloneIsDeep(t *testing.T) {
	col := NewColumn("status", "enum('a','b')")
	col.Default = strPtr("a")
	col.AddFlag(FlagUnsigned)
	db := &Database{Host: "h", Name: "d", Timestamp: "2024-01-02-03", Tables: []*Table{{
		Name:    "t",
		Columns: []*Column{col},
		Indexes: []*Index{{Kind: "KEY", Name: "k", Columns: []string{"status"}, Definition: "KEY `k` (`status`)"}},
	}}}

	cp := db.Clone()
	require.Equal(t, db, cp)

	cp.Tables[0].Columns[0].Flags[0] = "changed"
	*cp.Tables[0].Columns[0].Default = "b"
	cp.Tables[0].Columns[0].Type.Values[0] = "z"
	cp.Tables[0].Indexes[0].Columns[0] = "other"

	assert.Equal(t, FlagUnsigned, col.Flags[0])
	assert.Equal(t, "a", *col.Default)
	assert.Equal(t, "a", col.Type.Values[0])
	assert.Equal(t, "status", db.Tables[0].Indexes[0].Columns[0])
}
