package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseValidate(t *testing.T) {
	policy := DefaultComparePolicy()

	tests := []struct {
		name     string
		db       *Database
		problems int
		contains string
	}{
		{
			name: "valid",
			db: &Database{Name: "app", Tables: []*Table{
				{Name: "users", Columns: []*Column{NewColumn("id", "int"), NewColumn("name", "varchar(50)")}},
			}},
		},
		{
			name: "duplicate tables differing in case",
			db: &Database{Name: "app", Tables: []*Table{
				{Name: "users", Columns: []*Column{NewColumn("id", "int")}},
				{Name: "Users", Columns: []*Column{NewColumn("id", "int")}},
			}},
			problems: 1,
			contains: `duplicate table name "Users"`,
		},
		{
			name: "duplicate columns",
			db: &Database{Name: "app", Tables: []*Table{
				{Name: "users", Columns: []*Column{NewColumn("id", "int"), NewColumn("ID", "bigint")}},
			}},
			problems: 1,
			contains: `duplicate column name "ID"`,
		},
		{
			name: "problems are collected",
			db: &Database{Name: "app", Tables: []*Table{
				{Name: "a", Columns: []*Column{NewColumn("x", "int"), NewColumn("x", "int")}},
				{Name: "b", Columns: []*Column{{Name: "y"}, nil}},
			}},
			problems: 3,
			contains: "type is empty",
		},
		{
			name:     "nil table",
			db:       &Database{Name: "app", Tables: []*Table{nil}},
			problems: 1,
			contains: "table at index 0 is nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.db.Validate(policy)
			if tt.problems == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			var inconsistency *SchemaInconsistencyError
			require.True(t, errors.As(err, &inconsistency))
			assert.Len(t, inconsistency.Problems, tt.problems)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestValidateCaseSensitiveFolding(t *testing.T) {
	db := &Database{Name: "app", Tables: []*Table{
		{Name: "users", Columns: []*Column{NewColumn("id", "int")}},
		{Name: "Users", Columns: []*Column{NewColumn("id", "int")}},
	}}
	policy := DefaultComparePolicy()
	policy.Folding = FoldNone
	assert.NoError(t, db.Validate(policy))
	assert.Error(t, db.Validate(DefaultComparePolicy()))
}

func TestValidateNilDatabase(t *testing.T) {
	var db *Database
	err := db.Validate(DefaultComparePolicy())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is nil")
}

func TestComparePolicy(t *testing.T) {
	p := DefaultComparePolicy()
	assert.NoError(t, p.Validate())
	assert.Equal(t, "users", p.Fold("Users"))
	assert.Contains(t, p.Describe()[0], "cosmetic")

	p.Folding = FoldNone
	assert.Equal(t, "Users", p.Fold("Users"))
	assert.Contains(t, p.Describe()[2], "case-sensitive")

	p.Folding = "upper"
	assert.Error(t, p.Validate())
}

func TestParseErrorMessage(t *testing.T) {
	err := &ParseError{Table: "users", Fragment: "id int,\n   name varchar(", Err: ErrUnbalancedParens}
	assert.Equal(t, `parse table "users": unbalanced parentheses near "id int, name varchar("`, err.Error())
	assert.True(t, errors.Is(err, ErrUnbalancedParens))
}

func TestUnknownTypeWarnings(t *testing.T) {
	tbl := &Table{Name: "t", Columns: []*Column{NewColumn("a", "int"), NewColumn("b", "frobnicate")}}
	ws := tbl.UnknownTypeWarnings()
	require.Len(t, ws, 1)
	assert.Equal(t, WarningUnknownType, ws[0].Kind)
	assert.Equal(t, "b", ws[0].Column)
	assert.Equal(t, `[unknown_type] t.b: unrecognized type "frobnicate" compared as opaque`, ws[0].String())
}
