package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the root configuration, stored in ~/.assistant/config.json.
// The file supports single-line // comments for documentation purposes.
type Config struct {
	HTTP    HTTPConfig    `json:"http"`
	Storage StorageConfig `json:"storage"`
	LLM     LLMConfig     `json:"llm"`
	Log     LogConfig     `json:"log"`
}

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// StaticDir, when set, is served at / next to the API.
	StaticDir        string `json:"static_dir"`
	RequestTimeoutMS int    `json:"request_timeout_ms"`
}

// StorageConfig selects where collections live.
type StorageConfig struct {
	// Backend is "file" (one JSON file per collection) or "sqlite".
	Backend string `json:"backend"`
	DataDir string `json:"data_dir"`
}

// LLMConfig configures the OpenAI-compatible chat endpoint. With neither an
// API key nor OAuth credentials the assistant answers offline.
type LLMConfig struct {
	APIKey            string      `json:"api_key"`
	BaseURL           string      `json:"base_url"`
	Model             string      `json:"model"`
	TimeoutMS         int         `json:"timeout_ms"`
	Temperature       float32     `json:"temperature"`
	ContextTokenLimit int         `json:"context_token_limit"`
	OAuth             OAuthConfig `json:"oauth"`
}

// OAuthConfig enables the client credentials flow for gateways that issue
// short-lived bearer tokens instead of static keys.
type OAuthConfig struct {
	TokenURL     string   `json:"token_url"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
}

// Enabled reports whether enough is set to request tokens.
func (o OAuthConfig) Enabled() bool {
	return o.TokenURL != "" && o.ClientID != ""
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

const (
	DefaultAddr              = ":8000"
	DefaultBackend           = "file"
	DefaultBaseURL           = "https://api.openai.com/v1"
	DefaultModel             = "gpt-4o-mini"
	DefaultTimeoutMS         = 60000
	DefaultRequestTimeoutMS  = 60000
	DefaultTemperature       = 0.7
	DefaultContextTokenLimit = 8000
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// Default returns a Config pre-filled with sensible defaults. DataDir is
// left empty and resolved by Load.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:             DefaultAddr,
			RequestTimeoutMS: DefaultRequestTimeoutMS,
		},
		Storage: StorageConfig{
			Backend: DefaultBackend,
		},
		LLM: LLMConfig{
			BaseURL:           DefaultBaseURL,
			Model:             DefaultModel,
			TimeoutMS:         DefaultTimeoutMS,
			Temperature:       DefaultTemperature,
			ContextTokenLimit: DefaultContextTokenLimit,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// assistant configuration – ~/.assistant/config.json
//
// All settings are optional. Environment variables (or a .env file in the
// working directory) override values from this file:
//   OPENAI_API_KEY, OPENAI_API_BASE, OPENAI_MODEL,
//   ASSISTANT_ADDR, ASSISTANT_DATA_DIR, ASSISTANT_STORAGE_BACKEND,
//   ASSISTANT_LOG_LEVEL
{
  // ── HTTP API ──────────────────────────────────────────────────────────────
  "http": {
    "addr": ":8000",
    // Directory with the web UI; leave empty to serve only /api.
    "static_dir": "",
    "request_timeout_ms": 60000
  },

  // ── Persistence ───────────────────────────────────────────────────────────
  "storage": {
    // "file" keeps todos.json, reminders.json and notifications.json;
    // "sqlite" keeps the same documents in assistant.db.
    "backend": "file",
    // Defaults to ~/.assistant/data
    "data_dir": ""
  },

  // ── Chat model ────────────────────────────────────────────────────────────
  "llm": {
    // Without a key (or oauth credentials) replies come from the offline helper.
    "api_key": "",
    "base_url": "https://api.openai.com/v1",
    "model": "gpt-4o-mini",
    "timeout_ms": 60000,
    "temperature": 0.7,
    // Older history is dropped to keep the prompt under this many tokens.
    "context_token_limit": 8000,
    "oauth": {
      "token_url": "",
      "client_id": "",
      "client_secret": "",
      "scopes": []
    }
  },

  // ── Logging ───────────────────────────────────────────────────────────────
  "log": {
    // debug, info, warn, error
    "level": "info",
    // text or json
    "format": "text"
  }
}
`

// BaseDir returns the root directory (~/.assistant).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".assistant"), nil
}

// DefaultPath returns the path to ~/.assistant/config.json.
func DefaultPath() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads the config file at path (DefaultPath when empty), creating it
// with annotated defaults on first run, then applies environment overrides.
func Load(path string) (Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return finish(Default())
		}
		path = p
	}

	cfg, err := loadFile(path)
	if err != nil {
		return Default(), err
	}

	// Missing .env is the normal case.
	_ = godotenv.Load()
	applyEnv(&cfg, os.Getenv)
	return finish(cfg)
}

func loadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(stripLineComments(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}
	return cfg, nil
}

// applyEnv overrides cfg with any non-empty environment value.
func applyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	set(&cfg.LLM.BaseURL, "OPENAI_API_BASE")
	set(&cfg.LLM.Model, "OPENAI_MODEL")
	set(&cfg.HTTP.Addr, "ASSISTANT_ADDR")
	set(&cfg.Storage.DataDir, "ASSISTANT_DATA_DIR")
	set(&cfg.Storage.Backend, "ASSISTANT_STORAGE_BACKEND")
	set(&cfg.Log.Level, "ASSISTANT_LOG_LEVEL")

	if v := getenv("ASSISTANT_REQUEST_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.HTTP.RequestTimeoutMS = ms
		} else {
			fmt.Fprintf(os.Stderr, "Warning: ASSISTANT_REQUEST_TIMEOUT_MS must be a positive integer, got %q\n", v)
		}
	}
}

// finish fills zero-value fields with built-in defaults so callers always get
// a usable Config even if the user only partially fills in the file.
func finish(cfg Config) (Config, error) {
	def := Default()
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = def.HTTP.Addr
	}
	if cfg.HTTP.RequestTimeoutMS <= 0 {
		cfg.HTTP.RequestTimeoutMS = def.HTTP.RequestTimeoutMS
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = def.Storage.Backend
	}
	if cfg.Storage.DataDir == "" {
		base, err := BaseDir()
		if err != nil {
			return cfg, err
		}
		cfg.Storage.DataDir = filepath.Join(base, "data")
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = def.LLM.BaseURL
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = def.LLM.Model
	}
	if cfg.LLM.TimeoutMS <= 0 {
		cfg.LLM.TimeoutMS = def.LLM.TimeoutMS
	}
	if cfg.LLM.ContextTokenLimit <= 0 {
		cfg.LLM.ContextTokenLimit = def.LLM.ContextTokenLimit
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
	return cfg, nil
}

// RequestTimeout returns the per-request deadline for the HTTP API.
func (c HTTPConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Timeout returns the chat completion deadline.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
