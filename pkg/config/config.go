package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied when neither the config file nor the environment
// sets a value.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
	DefaultOutputDir   = "output"
)

// Config holds the application configuration.
type Config struct {
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GoogleAPIKey    string
	DeepSeekAPIKey  string

	DefaultClient string
	DefaultModel  string
	Temperature   float64
	MaxTokens     int

	OutputDir string
	ConfigDir string
}

// FileConfig represents the structure of ~/.promptchain/config.yaml
type FileConfig struct {
	APIKeys  APIKeysConfig  `yaml:"api_keys"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Output   OutputConfig   `yaml:"output"`
}

// APIKeysConfig holds API key configuration from file.
type APIKeysConfig struct {
	OpenAI    string `yaml:"openai"`
	Anthropic string `yaml:"anthropic"`
	Google    string `yaml:"google"`
	DeepSeek  string `yaml:"deepseek"`
}

// DefaultsConfig holds model-call defaults from file.
type DefaultsConfig struct {
	Client      string   `yaml:"client"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   *int     `yaml:"max_tokens"`
}

// OutputConfig holds output persistence settings from file.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Load reads configuration from .env, config files, and environment
// variables. Environment variables take precedence over file
// configuration.
func Load() (*Config, error) {
	// A missing .env is fine; the file is a convenience carried over
	// from local development setups.
	_ = godotenv.Load()

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fileConfig := loadFileConfig(filepath.Join(configDir, "config.yaml"))

	cfg := &Config{
		OpenAIAPIKey:    getEnvOrDefault("OPENAI_API_KEY", fileConfig.APIKeys.OpenAI),
		AnthropicAPIKey: getEnvOrDefault("ANTHROPIC_API_KEY", fileConfig.APIKeys.Anthropic),
		GoogleAPIKey:    getEnvOrDefault("GOOGLE_API_KEY", fileConfig.APIKeys.Google),
		DeepSeekAPIKey:  getEnvOrDefault("DEEPSEEK_API_KEY", fileConfig.APIKeys.DeepSeek),
		DefaultClient:   getEnvOrDefault("PROMPTCHAIN_CLIENT", fileConfig.Defaults.Client),
		DefaultModel:    getEnvOrDefault("PROMPTCHAIN_MODEL", fileConfig.Defaults.Model),
		Temperature:     DefaultTemperature,
		MaxTokens:       DefaultMaxTokens,
		OutputDir:       getEnvOrDefault("PROMPTCHAIN_OUTPUT_DIR", fileConfig.Output.Dir),
		ConfigDir:       configDir,
	}

	if fileConfig.Defaults.Temperature != nil {
		cfg.Temperature = *fileConfig.Defaults.Temperature
	}
	if fileConfig.Defaults.MaxTokens != nil {
		cfg.MaxTokens = *fileConfig.Defaults.MaxTokens
	}
	if v := os.Getenv("PROMPTCHAIN_TEMPERATURE"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid PROMPTCHAIN_TEMPERATURE %q: %w", v, err)
		}
		cfg.Temperature = parsed
	}
	if v := os.Getenv("PROMPTCHAIN_MAX_TOKENS"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PROMPTCHAIN_MAX_TOKENS %q: %w", v, err)
		}
		cfg.MaxTokens = parsed
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}

	return cfg, nil
}

// HasClient returns true if the API key for the given client is configured.
func (c *Config) HasClient(name string) bool {
	switch name {
	case "openai":
		return c.OpenAIAPIKey != ""
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "google":
		return c.GoogleAPIKey != ""
	case "deepseek":
		return c.DeepSeekAPIKey != ""
	default:
		return false
	}
}

// loadFileConfig reads the config file, returning empty config if not found.
func loadFileConfig(path string) *FileConfig {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	_ = yaml.Unmarshal(data, cfg)
	return cfg
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func getConfigDir() (string, error) {
	if dir := os.Getenv("PROMPTCHAIN_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".promptchain"), nil
}
