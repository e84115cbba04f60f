package mysql

import (
	"context"
	"database/sql"
	"strings"
)

// server identifies the MySQL-compatible engine behind a connection.
type server struct {
	flavor  string
	version string
}

func detectServer(ctx context.Context, db *sql.DB) (server, error) {
	var version, comment sql.NullString
	if err := db.QueryRowContext(ctx, "SELECT VERSION(), @@version_comment").Scan(&version, &comment); err != nil {
		return server{}, err
	}
	return parseServer(version.String, comment.String), nil
}

// parseServer reads the flavor from the version string or its comment, and
// strips build suffixes such as "-log" or "-MariaDB" from the version.
func parseServer(version, comment string) server {
	s := server{flavor: "mysql", version: version}
	both := strings.ToLower(version + " " + comment)
	switch {
	case strings.Contains(both, "mariadb"):
		s.flavor = "mariadb"
	case strings.Contains(both, "tidb"):
		s.flavor = "tidb"
	}
	if i := strings.IndexByte(s.version, '-'); i > 0 {
		s.version = s.version[:i]
	}
	return s
}
