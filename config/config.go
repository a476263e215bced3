package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime settings. Values come from environment variables
// (optionally via a .env file loaded in main) with the defaults below.
type Config struct {
	Port string `mapstructure:"port"`

	PubMed PubMedConfig `mapstructure:"pubmed"`
	Sheet  SheetConfig  `mapstructure:"sheet"`
	LLM    LLMConfig    `mapstructure:"llm"`
	Agent  AgentConfig  `mapstructure:"agent"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// PubMedConfig configures the NCBI E-utilities client.
type PubMedConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Email   string        `mapstructure:"email"`
	Tool    string        `mapstructure:"tool"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SheetConfig configures the Niharika curated-FAQ sheet adapter.
type SheetConfig struct {
	CSVURL   string        `mapstructure:"csv_url"`
	SheetURL string        `mapstructure:"sheet_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LLMConfig selects and configures the completion-service backend.
type LLMConfig struct {
	Provider     string        `mapstructure:"provider"` // "gemini" or "openai"
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
	GeminiModel  string        `mapstructure:"gemini_model"`
	OpenAIAPIKey string        `mapstructure:"openai_api_key"`
	OpenAIModel  string        `mapstructure:"openai_model"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// AgentConfig tunes the telehealth agent pipeline.
type AgentConfig struct {
	SnippetLength      int     `mapstructure:"snippet_length"`
	MaxResultsPerQuery int     `mapstructure:"max_results_per_query"`
	AcceptThreshold    float64 `mapstructure:"accept_threshold"` // 0-10 scale
}

const (
	defaultSheetCSVURL = "https://docs.google.com/spreadsheets/d/1jE9m65m_fCQRZcfFfTVMxifmJKaE6J4WPKY9CrRtOkg/export?format=csv&gid=1981029180"
	defaultSheetURL    = "https://docs.google.com/spreadsheets/d/1jE9m65m_fCQRZcfFfTVMxifmJKaE6J4WPKY9CrRtOkg"
)

// Load reads configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("pubmed.email", "")
	v.SetDefault("pubmed.tool", "webfaqmcp")
	v.SetDefault("pubmed.timeout", 15*time.Second)

	v.SetDefault("sheet.csv_url", defaultSheetCSVURL)
	v.SetDefault("sheet.sheet_url", defaultSheetURL)
	v.SetDefault("sheet.timeout", 15*time.Second)

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.gemini_model", "gemini-2.0-flash")
	v.SetDefault("llm.openai_api_key", "")
	v.SetDefault("llm.openai_model", "gpt-4o-mini")
	v.SetDefault("llm.timeout", 60*time.Second)

	v.SetDefault("agent.snippet_length", 300)
	v.SetDefault("agent.max_results_per_query", 2)
	v.SetDefault("agent.accept_threshold", 7.0)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
