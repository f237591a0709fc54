package signdesk

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all signdesk configuration.
type Config struct {
	// DataDir is the directory for the signature and observability databases.
	DataDir string `yaml:"data_dir"`

	// FontsDir holds the TTF files used for typed signatures and textual
	// elements.
	FontsDir string `yaml:"fonts_dir"`

	// TextFont is the font file used when baking textual elements.
	TextFont string `yaml:"text_font"`

	// HistoryLimit caps the number of retained undo snapshots per session.
	HistoryLimit int `yaml:"history_limit"`

	// Retention in days for observability tables. Zero disables cleanup.
	EventLogsDays int `yaml:"event_logs_days"`
	HTTPLogsDays  int `yaml:"http_logs_days"`
}

func (c *Config) defaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.FontsDir == "" {
		c.FontsDir = "fonts"
	}
	if c.TextFont == "" {
		c.TextFont = "DejaVuSans.ttf"
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 50
	}
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.defaults()
	return cfg
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
