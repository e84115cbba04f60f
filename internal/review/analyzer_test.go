package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name        string
		sql         string
		typ         string
		destructive bool
		blocking    bool
	}{
		{"create table", "CREATE TABLE orders (\n  id INT NOT NULL,\n  PRIMARY KEY (id)\n);", "CREATE TABLE", false, false},
		{"drop table", "DROP TABLE logs;", "DROP TABLE", true, false},
		{"add column", "ALTER TABLE users ADD COLUMN email VARCHAR(100) NOT NULL;", "ALTER TABLE", false, true},
		{"add column first", "ALTER TABLE t ADD COLUMN a INT FIRST;", "ALTER TABLE", false, true},
		{"drop column", "ALTER TABLE users DROP COLUMN legacy;", "ALTER TABLE", true, true},
		{"modify column", "ALTER TABLE users MODIFY COLUMN name VARCHAR(50) NOT NULL DEFAULT '';", "ALTER TABLE", false, true},
		{"change column", "ALTER TABLE users CHANGE COLUMN name Name VARCHAR(50);", "ALTER TABLE", false, true},
		{"add foreign key", "ALTER TABLE orders ADD CONSTRAINT fk_user FOREIGN KEY (user_id) REFERENCES users (id);", "ALTER TABLE", false, true},
		{"truncate", "TRUNCATE TABLE logs;", "TRUNCATE TABLE", true, false},
		{"select", "SELECT 1;", "OTHER", false, false},
	}
	a := NewAnalyzer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Analyze(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, got.Type)
			assert.Equal(t, tt.destructive, got.Destructive)
			assert.Equal(t, tt.blocking, got.Blocking)
			if tt.destructive {
				assert.NotEmpty(t, got.DestructiveReason)
			}
		})
	}
}

func TestAnalyzeRejects(t *testing.T) {
	a := NewAnalyzer()
	_, err := a.Analyze("ALTER TABLE users ADD COLUMN")
	assert.Error(t, err)

	_, err = a.Analyze("DROP TABLE a; DROP TABLE b;")
	assert.ErrorContains(t, err, "exactly one statement")
}

func TestReview(t *testing.T) {
	r := NewAnalyzer().Review([]string{
		"CREATE TABLE t (id INT);",
		"ALTER TABLE t ADD COLUMN a INT;",
		"  ",
		"ALTER TABLE t DROP COLUMN b;",
		"ALTER TABLE t MODIFY COLUMN",
	})

	assert.Equal(t, 4, r.Statements)
	assert.Equal(t, 1, r.Unparseable)
	assert.Equal(t, 1, r.Destructive)
	assert.False(t, r.OK())

	levels := map[Level]int{}
	for _, f := range r.Findings {
		levels[f.Level]++
	}
	assert.Equal(t, map[Level]int{LevelCaution: 2, LevelDanger: 1, LevelError: 1}, levels)
	assert.Equal(t, "[CAUTION] Potentially blocking DDL: ADD COLUMN may require a table rebuild depending on MySQL version and column position", r.Findings[0].String())
}
