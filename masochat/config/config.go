package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderOllama = "ollama"

	DefaultModel = "gpt-3.5-turbo"
)

type Config struct {
	Port          string `yaml:"port"`
	LLMProvider   string `yaml:"llm_provider"`
	LLMModel      string `yaml:"llm_model"`
	OpenAIAPIKey  string `yaml:"-"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	GroqAPIKey    string `yaml:"-"`
	OllamaURL     string `yaml:"ollama_url"`
	LogDir        string `yaml:"log_dir"`
}

func defaults() Config {
	return Config{
		Port:        "8000",
		LLMProvider: ProviderOpenAI,
		LLMModel:    DefaultModel,
		OllamaURL:   "http://localhost:11434/api",
		LogDir:      "./logs",
	}
}

// LoadConfig layers .env, the optional YAML file and the process environment
// on top of the defaults. Environment variables win.
func LoadConfig() Config {
	_ = godotenv.Load()

	path := getEnv("MASOCHAT_CONFIG", "masochat.yaml")
	cfg, err := LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: ignoring %s: %v\n", path, err)
		cfg = defaults()
	}
	applyEnv(&cfg)
	return cfg
}

// LoadFile reads a YAML config file over the defaults without consulting
// the environment. A missing file yields the defaults.
func LoadFile(path string) (Config, error) {
	cfg := defaults()
	if err := loadFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LLMProvider = getEnv("LLM_PROVIDER", cfg.LLMProvider)
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.GroqAPIKey = getEnv("GROQ_API_KEY", cfg.GroqAPIKey)
	cfg.OllamaURL = getEnv("OLLAMA_URL", cfg.OllamaURL)
	cfg.LogDir = getEnv("LOG_DIR", cfg.LogDir)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}
