package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kyuwon-dev/kisengine/internal/core"
)

// Store owns the configuration file for the engine. It re-reads the file at
// every cycle boundary, retains the last good configuration when a reload
// fails, and performs the engine's only write-back: clearing
// forced_trade.enabled after a command completes.
//
// Writes use a temp-file-plus-rename replace so a concurrent reader (e.g. a
// settings UI) never observes a partially written document.
type Store struct {
	path string

	mu      sync.Mutex
	current *Config
}

// NewStore creates a store for the given config path. The initial load must
// succeed; later reload failures fall back to the cached config.
func NewStore(path string) (*Store, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{path: path, current: cfg}, nil
}

// Path returns the config file path.
func (s *Store) Path() string {
	return s.path
}

// Current returns the most recently loaded good configuration.
func (s *Store) Current() *Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Reload re-reads the config file. On parse or validation failure the cached
// configuration is returned together with the error, so the caller can log
// the failure and carry on with the previous good config.
func (s *Store) Reload() (*Config, error) {
	cfg, err := Load(s.path)
	if err == nil {
		err = cfg.Validate()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		return s.current, err
	}
	s.current = cfg
	return cfg, nil
}

// DisableForcedTrade sets forced_trade.enabled to false in both the cached
// config and the file on disk. Unknown fields in the document are preserved;
// key order and formatting are normalized by the re-marshal.
func (s *Store) DisableForcedTrade() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("reading config for write-back: %w", err))
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("parsing config for write-back: %w", err))
	}

	ft, ok := doc["forced_trade"].(map[string]any)
	if !ok {
		return core.Wrapf(core.ErrConfigMissing, "forced_trade section not found in %s", s.path)
	}
	ft["enabled"] = false

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	out = append(out, '\n')

	if err := atomicWrite(s.path, out); err != nil {
		return err
	}

	if s.current != nil && s.current.ForcedTrade != nil {
		s.current.ForcedTrade.Enabled = false
	}
	return nil
}

// atomicWrite replaces path with data via a temp file and rename.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
