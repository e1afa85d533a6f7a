package model

import "time"

// Config holds all runtime settings. It is built once by the CLI and passed to constructors.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Search      SearchConfig      `yaml:"search" mapstructure:"search"`
	Scrape      ScrapeConfig      `yaml:"scrape" mapstructure:"scrape"`
	Records     RecordsConfig     `yaml:"records" mapstructure:"records"`
	Market      MarketConfig      `yaml:"market" mapstructure:"market"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Scoring     ScoringConfig     `yaml:"scoring" mapstructure:"scoring"`
	Reconcile   ReconcileConfig   `yaml:"reconcile" mapstructure:"reconcile"`
	Evidence    EvidenceConfig    `yaml:"evidence" mapstructure:"evidence"`
	Audit       AuditConfig       `yaml:"audit" mapstructure:"audit"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// HTTPConfig configures outbound HTTP clients
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS  bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	ProxyURL     string        `yaml:"proxy_url,omitempty" mapstructure:"proxy_url"` // Empty uses HTTP(S)_PROXY env
}

// CacheConfig selects the provider-response cache backend
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend   string        `yaml:"backend" mapstructure:"backend"` // memory, layered, redis
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	RedisAddr string        `yaml:"redis_addr" mapstructure:"redis_addr"`
}

// LLMConfig configures the structured-output judge
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"-" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
}

// SearchConfig configures the web search adapter
type SearchConfig struct {
	APIKey     string `yaml:"-" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	MaxResults int    `yaml:"max_results" mapstructure:"max_results"`
}

// ScrapeConfig configures the scrape adapter
type ScrapeConfig struct {
	Provider      string   `yaml:"provider" mapstructure:"provider"` // firecrawl, direct
	APIKey        string   `yaml:"-" mapstructure:"api_key"`
	BaseURL       string   `yaml:"base_url" mapstructure:"base_url"`
	MaxChars      int      `yaml:"max_chars" mapstructure:"max_chars"`
	RespectRobots bool     `yaml:"respect_robots" mapstructure:"respect_robots"`
	SkipHosts     []string `yaml:"skip_hosts" mapstructure:"skip_hosts"`
}

// RecordsConfig configures parcel resolution and owner lookup
type RecordsConfig struct {
	Resolver     string `yaml:"resolver" mapstructure:"resolver"` // llm, static
	Lookup       string `yaml:"lookup" mapstructure:"lookup"`     // http, static
	BaseURL      string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	RegistryFile string `yaml:"registry_file,omitempty" mapstructure:"registry_file"`
	County       string `yaml:"county" mapstructure:"county"`
}

// MarketConfig configures the rent comparison
type MarketConfig struct {
	Enabled  bool `yaml:"enabled" mapstructure:"enabled"`
	MaxPages int  `yaml:"max_pages" mapstructure:"max_pages"`
}

// ConcurrencyConfig bounds fan-out, time and retries
type ConcurrencyConfig struct {
	Workers        int           `yaml:"workers" mapstructure:"workers"`
	SourceTimeout  time.Duration `yaml:"source_timeout" mapstructure:"source_timeout"`
	BranchTimeout  time.Duration `yaml:"branch_timeout" mapstructure:"branch_timeout"` // Reconciliation and market estimate, each
	RunTimeout     time.Duration `yaml:"run_timeout" mapstructure:"run_timeout"`
	MaxRetries     int           `yaml:"max_retries" mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" mapstructure:"retry_base_delay"`
	RatePerSecond  float64       `yaml:"rate_per_second" mapstructure:"rate_per_second"` // Per host
	Burst          int           `yaml:"burst" mapstructure:"burst"`
}

// ScoringConfig holds the verdict weights
type ScoringConfig struct {
	Base                 float64               `yaml:"base" mapstructure:"base"`
	RedWeights           map[Dimension]float64 `yaml:"red_weights" mapstructure:"red_weights"`
	GreenWeights         map[Dimension]float64 `yaml:"green_weights" mapstructure:"green_weights"`
	ReconcilePenalty     float64               `yaml:"reconcile_penalty" mapstructure:"reconcile_penalty"`
	BelowMarketThreshold float64               `yaml:"below_market_threshold" mapstructure:"below_market_threshold"`
	BelowMarketPenalty   float64               `yaml:"below_market_penalty" mapstructure:"below_market_penalty"`
}

// ReconcileConfig selects the name matching policy
type ReconcileConfig struct {
	Policy string `yaml:"policy" mapstructure:"policy"` // any_token, all_tokens
}

// EvidenceConfig tunes how claims fold into the evidence bundle
type EvidenceConfig struct {
	DiscountListing bool `yaml:"discount_listing" mapstructure:"discount_listing"` // Ignore support from the subject's own listing page
}

// AuditConfig configures the optional run audit trail
type AuditConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Env   string `yaml:"env" mapstructure:"env"` // development, production
	Level string `yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns the settings used when no config file is present
func DefaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "Veritas/0.1 (+https://github.com/Ads97/Veritas)",
			MaxBodyBytes: 2_000_000,
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "memory",
			Dir:     ".veritas-cache",
			TTL:     24 * time.Hour,
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			MaxTokens: 1024,
		},
		Search: SearchConfig{
			BaseURL:    "https://google.serper.dev",
			MaxResults: 5,
		},
		Scrape: ScrapeConfig{
			Provider:      "firecrawl",
			BaseURL:       "https://api.firecrawl.dev",
			MaxChars:      3000,
			RespectRobots: true,
			SkipHosts:     []string{"facebook.com", "twitter.com", "x.com", "instagram.com", "tiktok.com"},
		},
		Records: RecordsConfig{
			Resolver: "llm",
			Lookup:   "http",
			County:   "San Francisco",
		},
		Market: MarketConfig{
			Enabled:  true,
			MaxPages: 3,
		},
		Concurrency: ConcurrencyConfig{
			Workers:        4,
			SourceTimeout:  45 * time.Second,
			BranchTimeout:  90 * time.Second,
			RunTimeout:     3 * time.Minute,
			MaxRetries:     2,
			RetryBaseDelay: 500 * time.Millisecond,
			RatePerSecond:  2,
			Burst:          4,
		},
		Scoring:   DefaultScoring(),
		Reconcile: ReconcileConfig{Policy: "any_token"},
		Audit: AuditConfig{
			DSN: "veritas.db",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    4 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Env:   "development",
			Level: "info",
		},
	}
}

// DefaultScoring returns the default verdict weights
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		Base: 0.5,
		RedWeights: map[Dimension]float64{
			DimensionFraudReport:      0.25,
			DimensionPresenceLiveness: 0.2,
			DimensionLegalMention:     0.15,
			DimensionIdentityMatch:    0.1,
			DimensionOwnershipProof:   0.1,
		},
		GreenWeights: map[Dimension]float64{
			DimensionOwnershipProof:   0.15,
			DimensionFraudReport:      0.1,
			DimensionIdentityMatch:    0.1,
			DimensionLegalMention:     0.05,
			DimensionPresenceLiveness: 0.1,
		},
		ReconcilePenalty:     0.3,
		BelowMarketThreshold: 0.35,
		BelowMarketPenalty:   0.15,
	}
}
