/*
Package dbconfig is a micropackage that contains storage DB configuration options.
*/
package dbconfig

import (
	"errors"
	"fmt"
)

// Supported DB types.
const (
	// BoltDB is a single-file bbolt database, see [BoltDBOptions].
	BoltDB = "boltdb"
	// InMemoryDB keeps everything in memory, nothing survives a restart.
	InMemoryDB = "inmemory"
	// LevelDB is a goleveldb database directory, see [LevelDBOptions].
	LevelDB = "leveldb"
)

type (
	// DBConfiguration describes configuration for DB. Supported types:
	// [LevelDB], [BoltDB] or [InMemoryDB] (not recommended for production usage).
	DBConfiguration struct {
		Type           string         `yaml:"Type"`
		LevelDBOptions LevelDBOptions `yaml:"LevelDBOptions"`
		BoltDBOptions  BoltDBOptions  `yaml:"BoltDBOptions"`
	}
	// LevelDBOptions configuration for LevelDB.
	LevelDBOptions struct {
		DataDirectoryPath string `yaml:"DataDirectoryPath"`
		ReadOnly          bool   `yaml:"ReadOnly"`
	}
	// BoltDBOptions configuration for BoltDB.
	BoltDBOptions struct {
		FilePath string `yaml:"FilePath"`
		ReadOnly bool   `yaml:"ReadOnly"`
	}
)

// Validate checks that the DB type is known and that the options of the
// selected type are set. Options of other types are ignored.
func (c DBConfiguration) Validate() error {
	switch c.Type {
	case InMemoryDB:
	case LevelDB:
		if c.LevelDBOptions.DataDirectoryPath == "" {
			return errors.New("LevelDB: empty DataDirectoryPath")
		}
	case BoltDB:
		if c.BoltDBOptions.FilePath == "" {
			return errors.New("BoltDB: empty FilePath")
		}
	default:
		return fmt.Errorf("unknown DB type: %q", c.Type)
	}
	return nil
}
