package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hurttlocker/dyntopics/internal/bundle"
	"github.com/hurttlocker/dyntopics/internal/logging"
	"github.com/hurttlocker/dyntopics/internal/selector"
)

type ValueSource string

const (
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// DefaultTop is the number of terms shown per ranking when unset.
const DefaultTop = 10

// DefaultOutput is where merged partitions go when no output is given.
const DefaultOutput = "dynamic-combined.pkl"

type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries the values given on the command line. Empty
// strings mean "not given".
type ResolveOptions struct {
	ConfigPath   string
	CLIModel     string
	CLIOutput    string
	CLIFormat    string
	CLITop       string
	CLILogFile   string
	CLILogLevel  string
	CLIManifest  string
	CLIPattern   string
	CLIBasePath  string
	CLIExtension string
}

type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DynamicModel ResolvedValue `json:"dynamic_model"`
	Output       ResolvedValue `json:"output"`
	Format       ResolvedValue `json:"format"`
	Top          ResolvedValue `json:"top"`

	LogFile  ResolvedValue `json:"log_file"`
	LogLevel ResolvedValue `json:"log_level"`
	LogMode  ResolvedValue `json:"log_mode"`

	Manifest  ResolvedValue `json:"manifest"`
	Pattern   ResolvedValue `json:"pattern"`
	BasePath  ResolvedValue `json:"base_path"`
	Extension ResolvedValue `json:"extension"`
}

type fileConfig struct {
	DynamicModel string `yaml:"dynamic_model"`
	Output       string `yaml:"output"`
	Format       string `yaml:"format"`
	Top          int    `yaml:"top"`
	Log          struct {
		File  string `yaml:"file"`
		Level string `yaml:"level"`
		Mode  string `yaml:"mode"`
	} `yaml:"log"`
	Selection struct {
		Manifest  string `yaml:"manifest"`
		Pattern   string `yaml:"pattern"`
		BasePath  string `yaml:"base_path"`
		Extension string `yaml:"extension"`
	} `yaml:"selection"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".dyntopics", "config.yaml")
}

// ResolveConfig layers built-in defaults, the YAML config file,
// DYNTOPICS_* environment variables and CLI values, later layers winning.
func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("DYNTOPICS_CONFIG"))
	}
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath: path,
		Output:     ResolvedValue{Value: DefaultOutput, Source: SourceDefault, From: "built-in default"},
		Format:     ResolvedValue{Value: string(bundle.FormatJSON), Source: SourceDefault, From: "built-in default"},
		Top:        ResolvedValue{Value: strconv.Itoa(DefaultTop), Source: SourceDefault, From: "built-in default"},
		LogLevel:   ResolvedValue{Value: "info", Source: SourceDefault, From: "built-in default"},
		LogMode:    ResolvedValue{Value: "plain", Source: SourceDefault, From: "built-in default"},
		Extension:  ResolvedValue{Value: selector.DefaultExtension, Source: SourceDefault, From: "built-in default"},
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.DynamicModel, cfg.DynamicModel, SourceConfig, path)
		apply(&out.Output, cfg.Output, SourceConfig, path)
		apply(&out.Format, cfg.Format, SourceConfig, path)
		if cfg.Top > 0 {
			apply(&out.Top, strconv.Itoa(cfg.Top), SourceConfig, path)
		}
		apply(&out.LogFile, cfg.Log.File, SourceConfig, path)
		apply(&out.LogLevel, cfg.Log.Level, SourceConfig, path)
		apply(&out.LogMode, cfg.Log.Mode, SourceConfig, path)
		apply(&out.Manifest, cfg.Selection.Manifest, SourceConfig, path)
		apply(&out.Pattern, cfg.Selection.Pattern, SourceConfig, path)
		apply(&out.BasePath, cfg.Selection.BasePath, SourceConfig, path)
		apply(&out.Extension, cfg.Selection.Extension, SourceConfig, path)
	}

	applyEnv(&out.DynamicModel, "DYNTOPICS_MODEL")
	applyEnv(&out.Output, "DYNTOPICS_OUTPUT")
	applyEnv(&out.Format, "DYNTOPICS_FORMAT")
	applyEnv(&out.Top, "DYNTOPICS_TOP")
	applyEnv(&out.LogFile, "DYNTOPICS_LOG_FILE")
	applyEnv(&out.LogLevel, "DYNTOPICS_LOG_LEVEL")
	applyEnv(&out.LogMode, "DYNTOPICS_LOG_MODE")
	applyEnv(&out.Manifest, "DYNTOPICS_MANIFEST")
	applyEnv(&out.Pattern, "DYNTOPICS_PATTERN")
	applyEnv(&out.BasePath, "DYNTOPICS_BASE_PATH")
	applyEnv(&out.Extension, "DYNTOPICS_EXTENSION")

	apply(&out.DynamicModel, opts.CLIModel, SourceCLI, "--model")
	apply(&out.Output, opts.CLIOutput, SourceCLI, "--output")
	apply(&out.Format, opts.CLIFormat, SourceCLI, "--format")
	apply(&out.Top, opts.CLITop, SourceCLI, "--top")
	apply(&out.LogFile, opts.CLILogFile, SourceCLI, "--log")
	apply(&out.LogLevel, opts.CLILogLevel, SourceCLI, "--log-level")
	apply(&out.Manifest, opts.CLIManifest, SourceCLI, "--selected_file")
	apply(&out.Pattern, opts.CLIPattern, SourceCLI, "--pattern")
	apply(&out.BasePath, opts.CLIBasePath, SourceCLI, "--base_path")
	apply(&out.Extension, opts.CLIExtension, SourceCLI, "--extension")

	for _, v := range []*ResolvedValue{&out.DynamicModel, &out.Output, &out.LogFile, &out.Manifest, &out.BasePath} {
		if v.Value != "" {
			v.Value = expandUserPath(v.Value)
		}
	}

	return out, nil
}

// TopN parses the resolved top-terms count.
func (r ResolvedConfig) TopN() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(r.Top.Value))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid top value %q from %s", r.Top.Value, r.Top.From)
	}
	return n, nil
}

// BundleFormat parses the resolved output format.
func (r ResolvedConfig) BundleFormat() (bundle.Format, error) {
	return bundle.ParseFormat(r.Format.Value)
}

// Selection returns the window file selection settings.
func (r ResolvedConfig) Selection() selector.Config {
	return selector.Config{
		Pattern:   r.Pattern.Value,
		BaseDir:   r.BasePath.Value,
		Extension: r.Extension.Value,
	}
}

// Logging returns the logger settings.
func (r ResolvedConfig) Logging() logging.Config {
	return logging.Config{
		Level: r.LogLevel.Value,
		File:  r.LogFile.Value,
		Mode:  r.LogMode.Value,
	}
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
