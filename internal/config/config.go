package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ServerConfig holds listener settings
type ServerConfig struct {
	Host string `json:"host"`
	Port string `json:"port"`
}

// TLSConfig holds HTTPS settings
type TLSConfig struct {
	Enabled    bool   `json:"enabled"`
	CertFile   string `json:"certFile"`
	KeyFile    string `json:"keyFile"`
	MinVersion string `json:"minVersion"`
}

// DataConfig locates show descriptors, tapes and the device database
type DataConfig struct {
	Dir      string `json:"dir"`
	ShowsDir string `json:"showsDir"`
	TapesDir string `json:"tapesDir"`
	DBPath   string `json:"dbPath"`
}

// LogConfig controls file logging with rotation
type LogConfig struct {
	File       string `json:"file"`
	MaxSize    int    `json:"maxSize"`    // megabytes
	MaxBackups int    `json:"maxBackups"` // rotated files kept
	MaxAge     int    `json:"maxAge"`     // days
	Compress   bool   `json:"compress"`
}

// PresentationConfig tunes the session runners
type PresentationConfig struct {
	TickIntervalMs   int `json:"tickIntervalMs"`
	TapeFetchWorkers int `json:"tapeFetchWorkers"`
}

// ControlConfig configures the outbound external control bridge
type ControlConfig struct {
	BridgeURL      string   `json:"bridgeUrl"`
	ShowID         string   `json:"showId"`
	ReconnectMinMs int      `json:"reconnectMinMs"`
	ReconnectMaxMs int      `json:"reconnectMaxMs"`
	AllowedOrigins []string `json:"allowedOrigins"`
}

// Config is the root configuration
type Config struct {
	Server       ServerConfig       `json:"server"`
	TLS          TLSConfig          `json:"tls"`
	Data         DataConfig         `json:"data"`
	Log          LogConfig          `json:"log"`
	Presentation PresentationConfig `json:"presentation"`
	Control      ControlConfig      `json:"control"`
}

// Default returns the configuration used for a fresh install
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: "8080"},
		TLS:    TLSConfig{MinVersion: "1.2"},
		Data: DataConfig{
			Dir:    "./data",
			DBPath: "./data/show.db",
		},
		Log: LogConfig{
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
		Presentation: PresentationConfig{TickIntervalMs: 100, TapeFetchWorkers: 8},
		Control:      ControlConfig{ReconnectMinMs: 500, ReconnectMaxMs: 30000},
	}
}

// Load reads path over the defaults. A missing file is created with defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path atomically (temp file → rename)
func Save(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// ApplyEnv overrides cfg from environment variables
func (c *Config) ApplyEnv(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("HOST", &c.Server.Host)
	str("PORT", &c.Server.Port)
	str("DATA_DIR", &c.Data.Dir)
	str("DB_PATH", &c.Data.DBPath)
	str("LOG_FILE", &c.Log.File)
	str("CONTROL_BRIDGE_URL", &c.Control.BridgeURL)
	str("CONTROL_SHOW_ID", &c.Control.ShowID)
	str("TLS_CERT_FILE", &c.TLS.CertFile)
	str("TLS_KEY_FILE", &c.TLS.KeyFile)
	str("TLS_MIN_VERSION", &c.TLS.MinVersion)
	if v := getenv("TLS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.TLS.Enabled = b
		}
	}
}

// Normalize fills derived paths and clamps invalid values
func (c *Config) Normalize() {
	if c.Data.Dir == "" {
		c.Data.Dir = "./data"
	}
	if c.Data.ShowsDir == "" {
		c.Data.ShowsDir = filepath.Join(c.Data.Dir, "shows")
	}
	if c.Data.TapesDir == "" {
		c.Data.TapesDir = filepath.Join(c.Data.Dir, "tapes")
	}
	if c.Data.DBPath == "" {
		c.Data.DBPath = filepath.Join(c.Data.Dir, "show.db")
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Presentation.TickIntervalMs <= 0 {
		c.Presentation.TickIntervalMs = 100
	}
	if c.Presentation.TapeFetchWorkers <= 0 {
		c.Presentation.TapeFetchWorkers = 8
	}
	if c.Control.ReconnectMinMs <= 0 {
		c.Control.ReconnectMinMs = 500
	}
	if c.Control.ReconnectMaxMs < c.Control.ReconnectMinMs {
		c.Control.ReconnectMaxMs = c.Control.ReconnectMinMs
	}
}

// LoadConfig loads the file named by CONFIG_PATH (default ./data/config.json),
// applies environment overrides and normalizes the result. Unreadable files
// fall back to defaults.
func LoadConfig() *Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./data/config.json"
	}
	cfg, err := Load(path)
	if err != nil {
		log.Printf("Failed to load config, using defaults: %v", err)
		cfg = Default()
	}
	cfg.ApplyEnv(os.Getenv)
	cfg.Normalize()
	return cfg
}
