package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ConnectionFiles are the descriptor names looked up in a host/database folder,
// in order.
var ConnectionFiles = []string{"connection.json", "connection.yaml", "connection.yml"}

// ErrNoConnection is returned when a folder holds no connection descriptor.
var ErrNoConnection = errors.New("no connection descriptor found")

// Connection describes how to reach one database.
type Connection struct {
	Host     string `json:"host" yaml:"host" mapstructure:"host"`
	Port     int    `json:"port" yaml:"port" mapstructure:"port"`
	User     string `json:"user" yaml:"user" mapstructure:"user"`
	Password string `json:"password" yaml:"password" mapstructure:"password"`
	Database string `json:"database" yaml:"database" mapstructure:"database"`
}

// Addr returns host:port, defaulting the port to 3306.
func (c Connection) Addr() string {
	port := c.Port
	if port == 0 {
		port = 3306
	}
	return c.Host + ":" + strconv.Itoa(port)
}

// Validate reports missing required fields.
func (c Connection) Validate() error {
	switch {
	case c.Host == "":
		return errors.New("connection host is required")
	case c.User == "":
		return errors.New("connection user is required")
	case c.Database == "":
		return errors.New("connection database is required")
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("connection port %d out of range", c.Port)
	}
	return nil
}

// ConnectionDir returns <root>/<host>/<database>.
func ConnectionDir(root, host, database string) string {
	return filepath.Join(root, host, database)
}

// LoadConnection reads the first descriptor found in dir. Host and database
// default to the folder names when the descriptor leaves them empty.
func LoadConnection(dir string) (*Connection, error) {
	for _, name := range ConnectionFiles {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		conn := &Connection{}
		if filepath.Ext(name) == ".json" {
			err = json.Unmarshal(data, conn)
		} else {
			err = yaml.Unmarshal(data, conn)
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		if conn.Database == "" {
			conn.Database = filepath.Base(dir)
		}
		if conn.Host == "" {
			conn.Host = filepath.Base(filepath.Dir(dir))
		}
		if err := conn.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return conn, nil
	}
	return nil, fmt.Errorf("%w in %s", ErrNoConnection, dir)
}
