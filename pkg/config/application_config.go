package config

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/ethmpt/pkg/core/storage/dbconfig"
	"go.uber.org/zap/zapcore"
)

// ApplicationConfiguration config specific to the tool.
type ApplicationConfiguration struct {
	DBConfiguration dbconfig.DBConfiguration `yaml:"DBConfiguration"`
	LogLevel        string                   `yaml:"LogLevel"`
	LogPath         string                   `yaml:"LogPath"`
	Prometheus      BasicService             `yaml:"Prometheus"`
	Trie            TrieConfiguration        `yaml:"Trie"`
}

// TrieConfiguration contains trie node storage settings.
type TrieConfiguration struct {
	// NodeCacheSize is the number of decoded nodes kept in memory, zero
	// means the default.
	NodeCacheSize int `yaml:"NodeCacheSize"`
}

// Validate checks ApplicationConfiguration for internal consistency and
// returns an error if any invalid settings are found.
func (a *ApplicationConfiguration) Validate() error {
	if err := a.DBConfiguration.Validate(); err != nil {
		return err
	}
	if len(a.LogLevel) > 0 {
		if _, err := zapcore.ParseLevel(a.LogLevel); err != nil {
			return fmt.Errorf("invalid LogLevel: %w", err)
		}
	}
	if a.Trie.NodeCacheSize < 0 {
		return fmt.Errorf("negative Trie.NodeCacheSize: %d", a.Trie.NodeCacheSize)
	}
	if a.Prometheus.Enabled && len(a.Prometheus.Addresses) == 0 {
		return errors.New("Prometheus: no Addresses")
	}
	return nil
}
