// Package config loads ontogen project settings from ontogen.yaml and the
// environment.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the config file base name searched for in the project root.
const FileName = "ontogen"

// EnvPrefix prefixes every environment override, e.g.
// ONTOGEN_COMPATIBILITY_STRICT_ENUMS=false.
const EnvPrefix = "ONTOGEN"

// Config represents the ontogen configuration
type Config struct {
	Project       ProjectConfig       `mapstructure:"project"`
	Compatibility CompatibilityConfig `mapstructure:"compatibility"`
	Validation    ValidationConfig    `mapstructure:"validation"`

	// File is the config file that was read, empty when only defaults and
	// the environment applied.
	File string `mapstructure:"-"`
}

// ProjectConfig locates the ontology source and generated output.
type ProjectConfig struct {
	OntologyFile string `mapstructure:"ontology_file"`
	OutDir       string `mapstructure:"out_dir"`
}

// CompatibilityConfig controls baseline comparison.
type CompatibilityConfig struct {
	StrictEnums bool   `mapstructure:"strict_enums"`
	BaselineIR  string `mapstructure:"baseline_ir"`
	HistoryDB   string `mapstructure:"history_db"`
}

// ValidationConfig controls the semantic validator.
type ValidationConfig struct {
	Strict bool `mapstructure:"strict"`
}

var defaults = map[string]any{
	"project.ontology_file":      "ontology.onto",
	"project.out_dir":            "gen",
	"compatibility.strict_enums": true,
	"compatibility.baseline_ir":  ".ontogen/baseline.ir.json",
	"compatibility.history_db":   ".ontogen/history.db",
	"validation.strict":          false,
}

// Load reads configuration. An explicit file must exist; otherwise
// ontogen.yaml (or .yml) is looked up in dir and a missing file means
// defaults. Environment variables override both.
//
// Relative paths in the result are resolved against the directory of the
// config file, or dir when there is none.
func Load(dir, file string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	root := dir
	if cfg.File != "" {
		root = filepath.Dir(cfg.File)
	}
	cfg.resolve(root)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolve(root string) {
	for _, p := range []*string{
		&c.Project.OntologyFile,
		&c.Project.OutDir,
		&c.Compatibility.BaselineIR,
		&c.Compatibility.HistoryDB,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(root, *p)
		}
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Project.OntologyFile == "" {
		return fmt.Errorf("project.ontology_file must not be empty")
	}
	if cfg.Compatibility.BaselineIR == "" {
		return fmt.Errorf("compatibility.baseline_ir must not be empty")
	}
	if cfg.Compatibility.BaselineIR == cfg.Project.OntologyFile {
		return fmt.Errorf("compatibility.baseline_ir must differ from project.ontology_file, got: %s", cfg.Compatibility.BaselineIR)
	}
	return nil
}
