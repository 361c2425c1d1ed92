package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Tavily     TavilyConfig     `yaml:"tavily" mapstructure:"tavily"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Registry   RegistryConfig   `yaml:"registry" mapstructure:"registry"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Collect    CollectConfig    `yaml:"collect" mapstructure:"collect"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the optional dossier cache. An empty or "none"
// driver disables caching.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// Enabled reports whether a cache backend is configured.
func (s StoreConfig) Enabled() bool {
	return s.Driver != "" && s.Driver != "none"
}

// AnthropicConfig holds reasoning service settings. An empty key skips scoring.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	MaxTokens   int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the per-call reasoning timeout.
func (a AnthropicConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

// JinaConfig holds Jina Reader and Search settings. The reader works without a key.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// FirecrawlConfig holds Firecrawl API settings (alternative rendering proxy).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// TavilyConfig holds Tavily search settings.
type TavilyConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	SearchDepth string `yaml:"search_depth" mapstructure:"search_depth"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// SalesforceConfig holds Salesforce JWT auth settings. An empty client ID
// selects the log-only CRM.
type SalesforceConfig struct {
	ClientID    string  `yaml:"client_id" mapstructure:"client_id"`
	Username    string  `yaml:"username" mapstructure:"username"`
	KeyPath     string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL    string  `yaml:"login_url" mapstructure:"login_url"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TaskOwnerID string  `yaml:"task_owner_id" mapstructure:"task_owner_id"`
}

// NotionConfig holds Notion API credentials for the ICP ruleset database.
type NotionConfig struct {
	Token     string `yaml:"token" mapstructure:"token"`
	RulesetDB string `yaml:"ruleset_db" mapstructure:"ruleset_db"`
}

// RegistryConfig locates ICP ruleset definitions.
type RegistryConfig struct {
	RulesetFile string `yaml:"ruleset_file" mapstructure:"ruleset_file"`
}

// SearchConfig selects the search provider.
type SearchConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// Timeout returns the per-query search timeout.
func (s SearchConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// FetchConfig configures the evidence fetcher.
type FetchConfig struct {
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	Concurrency  int    `yaml:"concurrency" mapstructure:"concurrency"`
	Proxy        string `yaml:"proxy" mapstructure:"proxy"`
}

// Timeout returns the per-request fetch timeout.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// CollectConfig configures source collection.
type CollectConfig struct {
	ResultsPerQuery int `yaml:"results_per_query" mapstructure:"results_per_query"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	AllowedOrigins     []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// envOnlyKeys are credentials and paths that have no default value.
var envOnlyKeys = []string{
	"store.database_url",
	"anthropic.key",
	"jina.key",
	"firecrawl.key",
	"tavily.key",
	"perplexity.key",
	"salesforce.client_id",
	"salesforce.username",
	"salesforce.key_path",
	"salesforce.task_owner_id",
	"notion.token",
	"notion.ruleset_db",
	"registry.ruleset_file",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DOSSIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "none")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_secs", 180)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("anthropic.timeout_secs", 60)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("tavily.search_depth", "basic")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_limit", 5)
	v.SetDefault("search.provider", "tavily")
	v.SetDefault("search.timeout_secs", 15)
	v.SetDefault("search.rate_limit", 2)
	v.SetDefault("fetch.timeout_secs", 10)
	v.SetDefault("fetch.max_body_bytes", 2<<20)
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.proxy", "jina")
	v.SetDefault("collect.results_per_query", 1)

	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks settings for the given command mode ("run", "serve" or
// "cache"). Missing credentials are not errors: every collaborator degrades
// without one.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "run", "serve":
		problems = append(problems, c.validateResearch()...)
		if mode == "serve" && c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if mode == "serve" && c.Server.Port > 65535 {
			problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
		}
		problems = append(problems, c.validateStore()...)
	case "cache":
		if !c.Store.Enabled() {
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
		problems = append(problems, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateResearch() []string {
	var problems []string
	if c.Fetch.TimeoutSecs <= 0 {
		problems = append(problems, "fetch.timeout_secs must be > 0")
	}
	if c.Fetch.Concurrency < 1 || c.Fetch.Concurrency > 32 {
		problems = append(problems, "fetch.concurrency must be between 1 and 32")
	}
	switch c.Fetch.Proxy {
	case "jina":
	case "firecrawl":
		if c.Firecrawl.Key == "" {
			problems = append(problems, "firecrawl.key is required when fetch.proxy is firecrawl")
		}
	default:
		problems = append(problems, fmt.Sprintf("fetch.proxy %q is not one of jina, firecrawl", c.Fetch.Proxy))
	}
	switch c.Search.Provider {
	case "tavily", "jina", "perplexity":
	default:
		problems = append(problems, fmt.Sprintf("search.provider %q is not one of tavily, jina, perplexity", c.Search.Provider))
	}
	if c.Collect.ResultsPerQuery < 1 || c.Collect.ResultsPerQuery > 10 {
		problems = append(problems, "collect.results_per_query must be between 1 and 10")
	}
	return problems
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "", "none":
		return nil
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required when store.driver is " + c.Store.Driver}
		}
		return nil
	default:
		return []string{fmt.Sprintf("store.driver %q is not one of none, sqlite, postgres", c.Store.Driver)}
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
