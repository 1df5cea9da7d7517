package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Validate.
const (
	DefaultOutputDir   = "./output"
	DefaultListen      = ":8080"
	DefaultWorkers     = 2
	DefaultQueueSize   = 32
	DefaultTimeout     = 4 * time.Hour
	DefaultHistoryDSN  = "~/.resume-optimizer/history.db"
	DefaultModel       = "gemma-3-4b-it"
	DefaultTemperature = 0.15
)

// Config represents the application configuration.
type Config struct {
	LLM        LLMConfig      `json:"llm" yaml:"llm"`
	PromptsDir string         `json:"prompts_dir,omitempty" yaml:"prompts_dir,omitempty"`
	OutputDir  string         `json:"output_dir" yaml:"output_dir"`
	Renderer   RendererConfig `json:"renderer" yaml:"renderer"`
	Runner     RunnerConfig   `json:"runner" yaml:"runner"`
	History    HistoryConfig  `json:"history" yaml:"history"`
	Server     ServerConfig   `json:"server" yaml:"server"`
	Defaults   DefaultConfig  `json:"defaults" yaml:"defaults"`
}

// LLMConfig selects and addresses the completion service.
type LLMConfig struct {
	Backend  string   `json:"backend,omitempty" yaml:"backend,omitempty"`
	Endpoint string   `json:"endpoint" yaml:"endpoint"`
	APIKey   string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Mock     bool     `json:"mock,omitempty" yaml:"mock,omitempty"`
	Timeout  Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// RendererConfig holds output format settings.
type RendererConfig struct {
	ChromePath string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`
	// DOCX enables the DOCX output next to the PDF. Nil means enabled.
	DOCX *bool `json:"docx,omitempty" yaml:"docx,omitempty"`
}

// RunnerConfig sizes the background worker pool.
type RunnerConfig struct {
	Workers       int `json:"workers" yaml:"workers"`
	QueueSize     int `json:"queue_size" yaml:"queue_size"`
	RatePerMinute int `json:"rate_per_minute,omitempty" yaml:"rate_per_minute,omitempty"`
}

// HistoryConfig locates the generation history store.
type HistoryConfig struct {
	DSN string `json:"dsn" yaml:"dsn"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Listen string `json:"listen" yaml:"listen"`
}

// DefaultConfig holds default values for generation requests.
type DefaultConfig struct {
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// Duration is a time.Duration written as a string such as "4h" or "90s".
type Duration time.Duration

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() (data []byte, err error) {
	data, err = json.Marshal(time.Duration(d).String())
	return data, err
}

// UnmarshalJSON accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) (err error) {
	var text string
	if json.Unmarshal(data, &text) == nil {
		err = d.parse(text)
		return err
	}

	var seconds float64
	err = json.Unmarshal(data, &seconds)
	if err != nil {
		err = errors.Errorf("invalid duration: %s", string(data))
		return err
	}
	*d = Duration(time.Duration(seconds * float64(time.Second)))
	return err
}

// MarshalYAML writes the duration as a string.
func (d Duration) MarshalYAML() (out interface{}, err error) {
	out = time.Duration(d).String()
	return out, err
}

// UnmarshalYAML accepts a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) (err error) {
	err = d.parse(node.Value)
	return err
}

func (d *Duration) parse(text string) (err error) {
	var parsed time.Duration
	parsed, err = time.ParseDuration(text)
	if err != nil {
		err = errors.Wrapf(err, "invalid duration %q", text)
		return err
	}
	*d = Duration(parsed)
	return err
}

// DOCXEnabled reports whether DOCX output is on.
func (c *Config) DOCXEnabled() (enabled bool) {
	enabled = c.Renderer.DOCX == nil || *c.Renderer.DOCX
	return enabled
}

// DefaultPath returns ~/.resume-optimizer/config.json.
func DefaultPath() (path string, err error) {
	var homeDir string
	homeDir, err = os.UserHomeDir()
	if err != nil {
		err = errors.Wrap(err, "failed to get user home directory")
		return path, err
	}
	path = filepath.Join(homeDir, ".resume-optimizer", "config.json")
	return path, err
}

// Load reads configuration from file with .env and environment variable overrides.
// With no explicit path, a missing default file is not an error and the environment alone configures the run.
func Load(configPath string) (cfg Config, err error) {
	LoadEnv()

	// Determine config file location
	path := configPath
	if path == "" {
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	// Read config file
	var data []byte
	data, err = os.ReadFile(path)
	switch {
	case err == nil:
		err = parse(path, data, &cfg)
		if err != nil {
			return cfg, err
		}
	case os.IsNotExist(err) && configPath == "":
		err = nil
	case os.IsNotExist(err):
		err = errors.Errorf("config file not found: %s (run 'resume-optimizer init' to create)", path)
		return cfg, err
	default:
		err = errors.Wrapf(err, "failed to read config file: %s", path)
		return cfg, err
	}

	applyEnv(&cfg)

	// Validate required fields
	err = cfg.Validate()
	if err != nil {
		err = errors.Wrap(err, "config validation failed")
		return cfg, err
	}

	return cfg, err
}

// parse decodes data as YAML for .yaml/.yml paths and as JSON otherwise.
func parse(path string, data []byte, cfg *Config) (err error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		err = errors.Wrapf(err, "failed to parse config file: %s", path)
		return err
	}
	return err
}

// applyEnv overrides file values with any set environment variables.
func applyEnv(cfg *Config) {
	overrides := []struct {
		name   string
		target *string
	}{
		{name: "LLM_ENDPOINT", target: &cfg.LLM.Endpoint},
		{name: "LLM_API_KEY", target: &cfg.LLM.APIKey},
		{name: "LLM_BACKEND", target: &cfg.LLM.Backend},
		{name: "PROMPTS_DIR", target: &cfg.PromptsDir},
		{name: "OUTPUT_DIR", target: &cfg.OutputDir},
		{name: "CHROME_PATH", target: &cfg.Renderer.ChromePath},
		{name: "HISTORY_DSN", target: &cfg.History.DSN},
	}

	for _, o := range overrides {
		if value := os.Getenv(o.name); value != "" {
			*o.target = value
		}
	}

	if value := os.Getenv("LLM_MOCK"); value != "" {
		mock, parseErr := strconv.ParseBool(value)
		cfg.LLM.Mock = parseErr == nil && mock
	}
}

// LoadEnv loads the nearest .env file found walking up from the working directory.
// Variables already set in the environment win.
func LoadEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}

	for {
		envPath := filepath.Join(dir, ".env")
		if _, statErr := os.Stat(envPath); statErr == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// Validate checks that all required configuration is present and fills in defaults.
func (c *Config) Validate() (err error) {
	if c.LLM.Endpoint == "" && !c.LLM.Mock && !strings.EqualFold(c.LLM.Backend, "mock") {
		err = errors.New("llm.endpoint is required (set in config or LLM_ENDPOINT env var) unless mock is enabled")
		return err
	}

	if c.Defaults.Temperature < 0 || c.Defaults.Temperature >= 2 {
		err = errors.Errorf("defaults.temperature must be below 2, got %v", c.Defaults.Temperature)
		return err
	}

	if c.Runner.RatePerMinute < 0 {
		err = errors.New("runner.rate_per_minute cannot be negative")
		return err
	}

	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}

	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}

	if c.Runner.Workers <= 0 {
		c.Runner.Workers = DefaultWorkers
	}

	if c.Runner.QueueSize <= 0 {
		c.Runner.QueueSize = DefaultQueueSize
	}

	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = Duration(DefaultTimeout)
	}

	if c.History.DSN == "" {
		c.History.DSN = DefaultHistoryDSN
	}

	if c.Defaults.Model == "" {
		c.Defaults.Model = DefaultModel
	}

	if c.Defaults.Temperature == 0 {
		c.Defaults.Temperature = DefaultTemperature
	}

	return err
}

// InitConfig creates a default configuration file.
func InitConfig(configPath string) (path string, err error) {
	// Determine config file location
	path = configPath
	if path == "" {
		path, err = DefaultPath()
		if err != nil {
			return path, err
		}
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0750)
	if err != nil {
		err = errors.Wrapf(err, "failed to create config directory: %s", dir)
		return path, err
	}

	// Check if file already exists
	_, err = os.Stat(path)
	if err == nil {
		err = errors.Errorf("config file already exists: %s", path)
		return path, err
	}

	docx := true
	defaultConfig := Config{
		LLM: LLMConfig{
			Backend:  "http",
			Endpoint: "http://localhost:11434/v1/chat/completions",
			Timeout:  Duration(DefaultTimeout),
		},
		OutputDir: DefaultOutputDir,
		Renderer:  RendererConfig{DOCX: &docx},
		Runner: RunnerConfig{
			Workers:   DefaultWorkers,
			QueueSize: DefaultQueueSize,
		},
		History:  HistoryConfig{DSN: DefaultHistoryDSN},
		Server:   ServerConfig{Listen: DefaultListen},
		Defaults: DefaultConfig{Model: DefaultModel, Temperature: DefaultTemperature},
	}

	// Write to file
	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(defaultConfig)
	default:
		data, err = json.MarshalIndent(defaultConfig, "", "  ")
	}
	if err != nil {
		err = errors.Wrap(err, "failed to marshal default config")
		return path, err
	}

	err = os.WriteFile(path, data, 0600)
	if err != nil {
		err = errors.Wrapf(err, "failed to write config file: %s", path)
		return path, err
	}

	return path, err
}
