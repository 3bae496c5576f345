// Package config loads murmur's settings from defaults, an optional YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	appName   = "murmur"
	envPrefix = "MURMUR"
	fileName  = "config.yaml"
)

type Config struct {
	Provider     string        `mapstructure:"provider" yaml:"provider"`
	Model        string        `mapstructure:"model" yaml:"model,omitempty"`
	Language     string        `mapstructure:"language" yaml:"language,omitempty"`
	UploadFormat string        `mapstructure:"upload_format" yaml:"upload_format"`
	Endpoint     string        `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Device       string        `mapstructure:"device" yaml:"device,omitempty"`
	Beep         bool          `mapstructure:"beep" yaml:"beep"`
	HistoryFile  string        `mapstructure:"history_file" yaml:"history_file,omitempty"`

	Recorder RecorderConfig `mapstructure:"recorder" yaml:"recorder"`
	Overlay  OverlayConfig  `mapstructure:"overlay" yaml:"overlay"`
	Paste    PasteConfig    `mapstructure:"paste" yaml:"paste"`

	// Keys are only read from the environment and never written to disk.
	OpenAIKey string `mapstructure:"openai_api_key" yaml:"-"`
	GroqKey   string `mapstructure:"groq_api_key" yaml:"-"`

	path string
}

type RecorderConfig struct {
	MinDuration   time.Duration `mapstructure:"min_duration" yaml:"min_duration"`
	MinBytes      int64         `mapstructure:"min_bytes" yaml:"min_bytes"`
	StartTimeout  time.Duration `mapstructure:"start_timeout" yaml:"start_timeout"`
	RetryInterval time.Duration `mapstructure:"retry_interval" yaml:"retry_interval"`
	TempDir       string        `mapstructure:"temp_dir" yaml:"temp_dir,omitempty"`
}

type OverlayConfig struct {
	Appear    time.Duration `mapstructure:"appear" yaml:"appear"`
	Disappear time.Duration `mapstructure:"disappear" yaml:"disappear"`
	FrameRate int           `mapstructure:"frame_rate" yaml:"frame_rate"`
	HideDelay time.Duration `mapstructure:"hide_delay" yaml:"hide_delay"`
}

type PasteConfig struct {
	Auto         bool          `mapstructure:"auto" yaml:"auto"`
	Restore      bool          `mapstructure:"restore" yaml:"restore"`
	Delay        time.Duration `mapstructure:"delay" yaml:"delay"`
	RestoreDelay time.Duration `mapstructure:"restore_delay" yaml:"restore_delay"`
}

var defaults = map[string]any{
	"provider":                "openai",
	"model":                   "",
	"language":                "",
	"upload_format":           "flac",
	"endpoint":                "",
	"timeout":                 60 * time.Second,
	"device":                  "",
	"beep":                    true,
	"history_file":            "",
	"recorder.min_duration":   500 * time.Millisecond,
	"recorder.min_bytes":      16000,
	"recorder.start_timeout":  2 * time.Second,
	"recorder.retry_interval": 100 * time.Millisecond,
	"recorder.temp_dir":       "",
	"overlay.appear":          700 * time.Millisecond,
	"overlay.disappear":       300 * time.Millisecond,
	"overlay.frame_rate":      60,
	"overlay.hide_delay":      300 * time.Millisecond,
	"paste.auto":              true,
	"paste.restore":           true,
	"paste.delay":             150 * time.Millisecond,
	"paste.restore_delay":     600 * time.Millisecond,
}

// Dir is the per-user configuration directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(base, appName), nil
}

// DefaultPath is where Load looks when no file is given.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("openai_api_key", "OPENAI_API_KEY", envPrefix+"_OPENAI_API_KEY")
	v.BindEnv("groq_api_key", "GROQ_API_KEY", envPrefix+"_GROQ_API_KEY")
	return v
}

// Defaults returns the built-in settings plus environment overrides,
// without reading any file.
func Defaults() (*Config, error) {
	cfg := &Config{}
	if err := newViper().Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding defaults: %w", err)
	}
	return cfg, nil
}

// Load reads the configuration. An empty path means the default location,
// where a missing file is not an error; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if explicit || !missing {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{path: path}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.UploadFormat = strings.ToLower(strings.TrimSpace(cfg.UploadFormat))

	if cfg.HistoryFile == "" {
		cfg.HistoryFile = filepath.Join(filepath.Dir(path), "history.json")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path is the file this configuration was loaded from (it may not exist).
func (c *Config) Path() string { return c.path }

func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case "openai", "groq":
	default:
		errs = append(errs, fmt.Errorf("provider must be 'openai' or 'groq', got %q", c.Provider))
	}
	switch c.UploadFormat {
	case "wav", "flac":
	default:
		errs = append(errs, fmt.Errorf("upload_format must be 'wav' or 'flac', got %q", c.UploadFormat))
	}
	positive := []struct {
		name string
		d    time.Duration
	}{
		{"timeout", c.Timeout},
		{"recorder.start_timeout", c.Recorder.StartTimeout},
		{"recorder.retry_interval", c.Recorder.RetryInterval},
		{"overlay.appear", c.Overlay.Appear},
		{"overlay.disappear", c.Overlay.Disappear},
	}
	for _, p := range positive {
		if p.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %s", p.name, p.d))
		}
	}
	if c.Recorder.MinDuration < 0 {
		errs = append(errs, fmt.Errorf("recorder.min_duration must be >= 0, got %s", c.Recorder.MinDuration))
	}
	if c.Recorder.MinBytes < 0 {
		errs = append(errs, fmt.Errorf("recorder.min_bytes must be >= 0, got %d", c.Recorder.MinBytes))
	}
	if c.Overlay.FrameRate <= 0 || c.Overlay.FrameRate > 240 {
		errs = append(errs, fmt.Errorf("overlay.frame_rate must be in 1..240, got %d", c.Overlay.FrameRate))
	}
	if c.Overlay.HideDelay < 0 || c.Paste.Delay < 0 || c.Paste.RestoreDelay < 0 {
		errs = append(errs, errors.New("overlay.hide_delay, paste.delay and paste.restore_delay must be >= 0"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// APIKey returns the key for the configured provider.
func (c *Config) APIKey() string {
	if c.Provider == "groq" {
		return c.GroqKey
	}
	return c.OpenAIKey
}

// WriteFile writes cfg as YAML, creating the directory if needed.
func WriteFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return writeAtomic(path, data)
}

// SetDevice records the capture device in the file at path, keeping every
// other key the user wrote.
func SetDevice(path, device string) error {
	doc := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if device == "" {
		delete(doc, "device")
	} else {
		doc["device"] = device
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return writeAtomic(path, out)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
