// Package config provides configuration file support for treeclone.
//
// Configuration is layered: built-in defaults, then the YAML file, then
// TREECLONE_<SECTION>_<KEY> environment variables. Command-line flags are
// applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jvs-project/treeclone/pkg/errclass"
	"github.com/jvs-project/treeclone/pkg/fsutil"
	"github.com/jvs-project/treeclone/pkg/logging"
	"github.com/jvs-project/treeclone/pkg/model"
	"github.com/jvs-project/treeclone/pkg/pathutil"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "TREECLONE"

// DefaultFileName is looked up in the working directory when no --config is given.
const DefaultFileName = "treeclone.yaml"

// Config represents the treeclone configuration.
type Config struct {
	Clone   model.Options `yaml:"clone" mapstructure:"clone" json:"clone"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics" json:"metrics"`
	Lock    LockConfig    `yaml:"lock" mapstructure:"lock" json:"lock"`
	Journal JournalConfig `yaml:"journal" mapstructure:"journal" json:"journal"`
	Jobs    []Job         `yaml:"jobs,omitempty" mapstructure:"jobs" json:"jobs,omitempty"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level" json:"level"`
	Format string `yaml:"format" mapstructure:"format" json:"format"` // json, text
}

// MetricsConfig configures the metrics textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty" mapstructure:"textfile" json:"textfile,omitempty"` // empty disables export
}

// LockConfig configures the destination lock.
type LockConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	Dir     string        `yaml:"dir,omitempty" mapstructure:"dir" json:"dir,omitempty"` // empty uses the system temp dir
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl" json:"ttl"`
}

// JournalConfig configures the run journal.
type JournalConfig struct {
	Path string `yaml:"path,omitempty" mapstructure:"path" json:"path,omitempty"` // empty disables the journal
}

// Job is one clone the batch command runs.
type Job struct {
	Name        string         `yaml:"name" mapstructure:"name" json:"name"`
	Source      string         `yaml:"source" mapstructure:"source" json:"source"`
	Destination string         `yaml:"destination" mapstructure:"destination" json:"destination"`
	Verify      bool           `yaml:"verify,omitempty" mapstructure:"verify" json:"verify,omitempty"`
	Options     *model.Options `yaml:"options,omitempty" mapstructure:"options" json:"options,omitempty"` // nil inherits Config.Clone
}

// EffectiveOptions returns the job's own options or, when unset, def.
func (j Job) EffectiveOptions(def model.Options) model.Options {
	if j.Options != nil {
		return *j.Options
	}
	return def
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Clone: model.DefaultOptions(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Lock: LockConfig{
			Enabled: true,
			TTL:     10 * time.Minute,
		},
	}
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("clone.overwrite_existing_files", cfg.Clone.OverwriteExistingFiles)
	v.SetDefault("clone.continue_on_error", cfg.Clone.ContinueOnError)
	v.SetDefault("clone.max_depth", cfg.Clone.MaxDepth)
	v.SetDefault("clone.exclude", cfg.Clone.Exclude)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("metrics.textfile", cfg.Metrics.Textfile)
	v.SetDefault("lock.enabled", cfg.Lock.Enabled)
	v.SetDefault("lock.dir", cfg.Lock.Dir)
	v.SetDefault("lock.ttl", cfg.Lock.TTL)
	v.SetDefault("journal.path", cfg.Journal.Path)
}

// Load reads configuration from path. A missing file is not an error: the
// defaults and environment overrides are returned.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, replacing any previous file atomically.
func Save(path string, cfg *Config) error {
	fs := afero.NewOsFs()
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err := fsutil.AtomicWrite(fs, path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// Validate reports the first setting no run could honor.
func (c *Config) Validate() error {
	if err := c.Clone.Validate(); err != nil {
		return invalid("clone", err)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return invalid("logging.level", err)
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		return invalid("logging.format", err)
	}
	if c.Lock.Enabled && c.Lock.TTL <= 0 {
		return invalid("lock.ttl", fmt.Errorf("must be positive, got %s", c.Lock.TTL))
	}

	seen := make(map[string]bool, len(c.Jobs))
	for i, j := range c.Jobs {
		field := fmt.Sprintf("jobs[%d]", i)
		if err := pathutil.ValidateName(j.Name); err != nil {
			return invalid(field+".name", err)
		}
		if seen[j.Name] {
			return invalid(field+".name", fmt.Errorf("duplicate job %q", j.Name))
		}
		seen[j.Name] = true
		if j.Source == "" || j.Destination == "" {
			return invalid(field, fmt.Errorf("job %q needs a source and a destination", j.Name))
		}
		if j.Options != nil {
			if err := j.Options.Validate(); err != nil {
				return invalid(field+".options", err)
			}
		}
	}
	return nil
}

func invalid(field string, err error) error {
	return &errclass.Error{Code: errclass.ErrConfigInvalid.Code, Message: field, Err: err}
}
