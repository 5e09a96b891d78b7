package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// PanelConfig is the editor-global configuration persisted across sessions:
// provider id, model id and base URL. API keys are never stored here — the
// secret store is their only home. Persistence is last-write-wins.
type PanelConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
}

// ConfigStore loads and saves PanelConfig from a YAML file via viper.
type ConfigStore struct {
	path string
}

// NewConfigStore constructs a store backed by the file at path. The file may
// not exist yet; Load tolerates that.
func NewConfigStore(path string) *ConfigStore {
	return &ConfigStore{path: path}
}

// Load reads the persisted configuration. A missing file yields the zero
// config without error.
func (s *ConfigStore) Load() (PanelConfig, error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return PanelConfig{}, nil
		}
		return PanelConfig{}, fmt.Errorf("read config %q: %w", s.path, err)
	}

	var cfg PanelConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return PanelConfig{}, fmt.Errorf("decode config %q: %w", s.path, err)
	}
	return cfg, nil
}

// Save persists the configuration, creating the parent directory as needed.
func (s *ConfigStore) Save(cfg PanelConfig) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")
	v.Set("provider", cfg.Provider)
	v.Set("model", cfg.Model)
	v.Set("base_url", cfg.BaseURL)

	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write config %q: %w", s.path, err)
	}
	return nil
}
