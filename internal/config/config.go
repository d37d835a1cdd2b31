package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// TokenizerConfig controls how rows and questions are split into terms.
type TokenizerConfig struct {
	Pattern        string   `yaml:"pattern" toml:"pattern"`
	MinLength      int      `yaml:"min_length" toml:"min_length"`
	Stopwords      string   `yaml:"stopwords" toml:"stopwords"`
	ExtraStopwords []string `yaml:"extra_stopwords,omitempty" toml:"extra_stopwords,omitempty"`
}

// RetrievalConfig controls ranking.
type RetrievalConfig struct {
	TopK int `yaml:"top_k" toml:"top_k"`
}

// IngestConfig controls how table files are parsed.
type IngestConfig struct {
	Delimiter   string `yaml:"delimiter" toml:"delimiter"`
	ExcelHeader bool   `yaml:"excel_header" toml:"excel_header"`
	MaxUploadMB int    `yaml:"max_upload_mb" toml:"max_upload_mb"`
}

// ServerConfig configures the HTTP host.
type ServerConfig struct {
	Addr             string  `yaml:"addr" toml:"addr"`
	RateLimitRPS     float64 `yaml:"rate_limit_rps" toml:"rate_limit_rps"`
	RateLimitBurst   int     `yaml:"rate_limit_burst" toml:"rate_limit_burst"`
	ReadTimeoutSecs  int     `yaml:"read_timeout_secs" toml:"read_timeout_secs"`
	WriteTimeoutSecs int     `yaml:"write_timeout_secs" toml:"write_timeout_secs"`
}

// WatchConfig configures reloading the corpus when its file changes.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled" toml:"enabled"`
	DebounceMS int  `yaml:"debounce_ms" toml:"debounce_ms"`
}

// LoggingConfig configures logrus.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	File   string `yaml:"file,omitempty" toml:"file,omitempty"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Tokenizer TokenizerConfig `yaml:"tokenizer" toml:"tokenizer"`
	Retrieval RetrievalConfig `yaml:"retrieval" toml:"retrieval"`
	Ingest    IngestConfig    `yaml:"ingest" toml:"ingest"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Watch     WatchConfig     `yaml:"watch" toml:"watch"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// CSVQA_* environment variables override file values.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		if err := unmarshal(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/csvqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/csvqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	if err := Save(userPath, defaultConfig()); err != nil {
		return nil, "", err
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func unmarshal(path string, data []byte, cfg *AppConfig) error {
	if isTOML(path) {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "csvqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Tokenizer: TokenizerConfig{MinLength: 2, Stopwords: "none"},
		Retrieval: RetrievalConfig{TopK: 3},
		Ingest:    IngestConfig{Delimiter: ",", MaxUploadMB: 32},
		Server: ServerConfig{
			Addr:             ":7860",
			RateLimitRPS:     20,
			RateLimitBurst:   40,
			ReadTimeoutSecs:  30,
			WriteTimeoutSecs: 30,
		},
		Watch:   WatchConfig{DebounceMS: 250},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Tokenizer.MinLength <= 0 {
		cfg.Tokenizer.MinLength = 2
	}
	if cfg.Tokenizer.Stopwords == "" {
		cfg.Tokenizer.Stopwords = "none"
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Ingest.Delimiter == "" {
		cfg.Ingest.Delimiter = ","
	}
	if cfg.Ingest.MaxUploadMB <= 0 {
		cfg.Ingest.MaxUploadMB = 32
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":7860"
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 1
	}
	if cfg.Watch.DebounceMS <= 0 {
		cfg.Watch.DebounceMS = 250
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// applyEnvOverrides reads CSVQA_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("CSVQA_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.TopK = k
		}
	}
	if v := os.Getenv("CSVQA_STOPWORDS"); v != "" {
		cfg.Tokenizer.Stopwords = v
	}
	if v := os.Getenv("CSVQA_TOKEN_PATTERN"); v != "" {
		cfg.Tokenizer.Pattern = v
	}
	if v := os.Getenv("CSVQA_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CSVQA_RATE_LIMIT_RPS"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimitRPS = rps
		}
	}
	if v := os.Getenv("CSVQA_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Watch.Enabled = b
		}
	}
	if v := os.Getenv("CSVQA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CSVQA_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("CSVQA_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}
