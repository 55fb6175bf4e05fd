// Package dbconfig is the CLI/config surface: it resolves a database
// name to a filesystem path. Grounded on
// mattkeenan-dircachefilehash/pkg/config.go's github.com/go-ini/ini-backed
// Config type.
package dbconfig

import (
	"os"
	"path/filepath"

	"github.com/go-ini/ini"
)

const (
	defaultDatabaseDir     = "."
	defaultLostAndFoundDir = "lost+found"
	couchSuffix            = ".couch"
)

// Config resolves database names to paths on disk.
type Config struct {
	databaseDir     string
	lostAndFoundDir string
}

// Load reads path as an INI file and returns the resolved Config.
// A missing file is not an error: every key falls back to its
// default, database_dir defaulting to ".".
func Load(path string) (*Config, error) {
	cfg := &Config{
		databaseDir:     defaultDatabaseDir,
		lostAndFoundDir: defaultLostAndFoundDir,
	}
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	section := file.Section("")
	if key := section.Key("database_dir"); key.String() != "" {
		cfg.databaseDir = key.String()
	}
	if key := section.Key("lost_and_found_dir"); key.String() != "" {
		cfg.lostAndFoundDir = key.String()
	}
	return cfg, nil
}

// Default returns a Config with every key at its built-in default.
func Default() *Config {
	return &Config{databaseDir: defaultDatabaseDir, lostAndFoundDir: defaultLostAndFoundDir}
}

// DatabasePath resolves db_name to <database_dir>/<db_name>.couch.
func (c *Config) DatabasePath(dbName string) string {
	return filepath.Join(c.databaseDir, dbName+couchSuffix)
}

// LostAndFoundPath resolves db_name to the lost-and-found target path,
// lost+found/<db_name>.couch under database_dir.
func (c *Config) LostAndFoundPath(dbName string) string {
	return filepath.Join(c.databaseDir, c.lostAndFoundDir, dbName+couchSuffix)
}

// LostAndFoundName returns the byte-string target database name,
// lost+found/<db_name>.
func (c *Config) LostAndFoundName(dbName string) []byte {
	return []byte(filepath.Join(c.lostAndFoundDir, dbName))
}
