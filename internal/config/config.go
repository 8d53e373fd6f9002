// Package config loads narrate's settings from defaults, an optional YAML
// file and NARRATE_* environment variables, and reloads them when the file
// changes.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Speech backends understood by the host.
const (
	BackendSimulated = "simulated"
	BackendCommand   = "command"
	BackendNone      = "none"
)

// Config is the effective configuration.
type Config struct {
	Speech      SpeechConfig      `mapstructure:"speech" yaml:"speech"`
	Interaction InteractionConfig `mapstructure:"interaction" yaml:"interaction"`
	Links       LinksConfig       `mapstructure:"links" yaml:"links"`
	Keys        map[string]string `mapstructure:"keys" yaml:"keys,omitempty"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

type SpeechConfig struct {
	Backend string  `mapstructure:"backend" yaml:"backend"`
	Rate    float64 `mapstructure:"rate" yaml:"rate"`
	WPM     int     `mapstructure:"wpm" yaml:"wpm"`
	Command string  `mapstructure:"command" yaml:"command"`
}

type InteractionConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// LinksConfig names the program followed links are handed to. Empty means
// links are only logged.
type LinksConfig struct {
	Open string `mapstructure:"open" yaml:"open,omitempty"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file,omitempty"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Speech: SpeechConfig{
			Backend: BackendSimulated,
			Rate:    1.0,
			WPM:     180,
			Command: "espeak-ng",
		},
		Interaction: InteractionConfig{Timeout: 1500 * time.Millisecond},
		Log:         LogConfig{Level: "info"},
	}
}

// Validate reports settings the host cannot run with.
func (c *Config) Validate() error {
	switch c.Speech.Backend {
	case BackendSimulated, BackendCommand, BackendNone:
	default:
		return fmt.Errorf("speech.backend: unknown backend %q", c.Speech.Backend)
	}
	if c.Speech.WPM <= 0 {
		return fmt.Errorf("speech.wpm: must be positive, got %d", c.Speech.WPM)
	}
	if c.Interaction.Timeout <= 0 {
		return fmt.Errorf("interaction.timeout: must be positive, got %v", c.Interaction.Timeout)
	}
	if c.Speech.Backend == BackendCommand && c.Speech.Command == "" {
		return errors.New("speech.command: required by the command backend")
	}
	return nil
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v         *viper.Viper
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
// cfgFile may be empty, in which case narrate.yaml is looked up in the
// working directory and then in $HOME/.config/narrate.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{v: viper.New()}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

func (cm *Manager) initViper(cfgFile string) error {
	v := cm.v
	d := DefaultConfig()
	v.SetDefault("speech.backend", d.Speech.Backend)
	v.SetDefault("speech.rate", d.Speech.Rate)
	v.SetDefault("speech.wpm", d.Speech.WPM)
	v.SetDefault("speech.command", d.Speech.Command)
	v.SetDefault("interaction.timeout", d.Interaction.Timeout)
	v.SetDefault("links.open", "")
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", "")

	// NARRATE_SPEECH_RATE and friends
	v.SetEnvPrefix("NARRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("narrate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "narrate"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// File returns the config file in use, or "" when running on defaults.
func (cm *Manager) File() string {
	return cm.v.ConfigFileUsed()
}

// Set overrides a key for this run, as command-line flags do.
func (cm *Manager) Set(key string, value any) error {
	cm.v.Set(key, value)
	cfg, err := cm.load()
	if err != nil {
		return err
	}
	cm.mu.Lock()
	cm.config = cfg
	cm.mu.Unlock()
	return nil
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. It does nothing when
// no config file is in use. A file that fails to load or validate keeps the
// previous configuration.
func (cm *Manager) WatchConfig() {
	if cm.File() == "" {
		return
	}
	cm.v.OnConfigChange(func(fsnotify.Event) {
		cm.reload()
	})
	cm.v.WatchConfig()
}

func (cm *Manager) reload() {
	cfg, err := cm.load()
	if err != nil {
		return
	}

	cm.mu.Lock()
	cm.config = cfg
	callbacks := make([]func(*Config), len(cm.callbacks))
	copy(callbacks, cm.callbacks)
	cm.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
}

// WriteYAML writes cfg as YAML.
func WriteYAML(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlConfig(cfg)); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return enc.Close()
}

// yamlConfig renders durations in their string form so the output can be
// read back by NewManager.
func yamlConfig(cfg *Config) map[string]any {
	out := map[string]any{
		"speech": cfg.Speech,
		"interaction": map[string]string{
			"timeout": cfg.Interaction.Timeout.String(),
		},
		"links": cfg.Links,
		"log":   cfg.Log,
	}
	if len(cfg.Keys) > 0 {
		out["keys"] = cfg.Keys
	}
	return out
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(f, "# narrate configuration\n# Every key can also be set as NARRATE_<SECTION>_<KEY>.\n\n"); err != nil {
		f.Close()
		return err
	}
	if err := WriteYAML(f, DefaultConfig()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
