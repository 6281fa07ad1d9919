package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mohammad-safakhou/aisearch/models"
	"github.com/spf13/viper"
)

// Config holds all configuration for one aisearch process. It is loaded once and
// passed explicitly into every component constructor.
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Search     SearchConfig     `mapstructure:"search"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Extract    ExtractConfig    `mapstructure:"extract"`
	Generation GenerationConfig `mapstructure:"generation"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Server     ServerConfig     `mapstructure:"server"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	LogLevel        string `mapstructure:"log_level"`
	LogFormat       string `mapstructure:"log_format"` // json or console
	DefaultLanguage string `mapstructure:"default_language"`
}

// SearchConfig selects and configures the web search provider.
type SearchConfig struct {
	Provider        string        `mapstructure:"provider"` // google, serper, brave
	GoogleAPIKey    string        `mapstructure:"google_api_key"`
	SearchEngineID  string        `mapstructure:"search_engine_id"`
	SerperAPIKey    string        `mapstructure:"serper_api_key"`
	BraveAPIKey     string        `mapstructure:"brave_api_key"`
	PerQueryLimit   int           `mapstructure:"per_query_limit"`
	ExcludeFileLike bool          `mapstructure:"exclude_file_like"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
}

// FetchConfig controls both fetch tiers.
type FetchConfig struct {
	Timeout      time.Duration     `mapstructure:"timeout"`
	MaxSizeBytes int64             `mapstructure:"max_size_bytes"`
	Retries      int               `mapstructure:"retries"`
	Backoff      time.Duration     `mapstructure:"backoff"`
	UserAgent    string            `mapstructure:"user_agent"`
	CrawlPolicy  CrawlPolicyConfig `mapstructure:"crawl_policy"`
	Browser      BrowserConfig     `mapstructure:"browser"`
}

// BrowserConfig configures the headless escalation tier.
type BrowserConfig struct {
	Driver      string        `mapstructure:"driver"` // chromedp, rod, none
	RemoteURL   string        `mapstructure:"remote_url"`
	Headless    bool          `mapstructure:"headless"`
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ExtractConfig bounds extraction cost.
type ExtractConfig struct {
	Mode          string `mapstructure:"mode"` // plain-text, structure-preserving, article
	HTMLMaxBytes  int    `mapstructure:"html_max_bytes"`
	PDFMaxBytes   int    `mapstructure:"pdf_max_bytes"`
	PDFMaxPages   int    `mapstructure:"pdf_max_pages"`
	TitleMaxRunes int    `mapstructure:"title_max_runes"`
}

// GenerationConfig configures the schema-constrained generation backend.
type GenerationConfig struct {
	Provider       string        `mapstructure:"provider"` // openai, gemini
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	Temperature    float64       `mapstructure:"temperature"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxQueries     int           `mapstructure:"max_queries"`
	PerSourceChars int           `mapstructure:"per_source_chars"`
}

// PipelineConfig bounds the per-run fan-out.
type PipelineConfig struct {
	Workers       int           `mapstructure:"workers"`
	FetchDeadline time.Duration `mapstructure:"fetch_deadline"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

// Normalize fills unset search values.
func (s SearchConfig) Normalize() SearchConfig {
	s.Provider = strings.ToLower(strings.TrimSpace(s.Provider))
	if s.Provider == "" {
		s.Provider = "google"
	}
	if s.PerQueryLimit <= 0 {
		s.PerQueryLimit = 5
	}
	if s.Timeout <= 0 {
		s.Timeout = 15 * time.Second
	}
	if s.MaxRetries < 0 {
		s.MaxRetries = 0
	}
	return s
}

// Validate checks that the selected provider has credentials.
func (s SearchConfig) Validate() error {
	switch s.Provider {
	case "google":
		if strings.TrimSpace(s.GoogleAPIKey) == "" || strings.TrimSpace(s.SearchEngineID) == "" {
			return fmt.Errorf("%w: search.google_api_key and search.search_engine_id are required", models.ErrConfiguration)
		}
	case "serper":
		if strings.TrimSpace(s.SerperAPIKey) == "" {
			return fmt.Errorf("%w: search.serper_api_key is required", models.ErrConfiguration)
		}
	case "brave":
		if strings.TrimSpace(s.BraveAPIKey) == "" {
			return fmt.Errorf("%w: search.brave_api_key is required", models.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unsupported search.provider %q", models.ErrConfiguration, s.Provider)
	}
	return nil
}

// Normalize fills unset fetch values.
func (f FetchConfig) Normalize() FetchConfig {
	if f.Timeout <= 0 {
		f.Timeout = 10 * time.Second
	}
	if f.MaxSizeBytes <= 0 {
		f.MaxSizeBytes = 5 << 20
	}
	if f.Retries <= 0 {
		f.Retries = 3
	}
	if f.Backoff <= 0 {
		f.Backoff = time.Second
	}
	f.CrawlPolicy = f.CrawlPolicy.Normalize()
	f.Browser.Driver = strings.ToLower(strings.TrimSpace(f.Browser.Driver))
	if f.Browser.Driver == "" {
		f.Browser.Driver = "chromedp"
	}
	if f.Browser.SettleDelay <= 0 {
		f.Browser.SettleDelay = 2 * time.Second
	}
	if f.Browser.Timeout <= 0 {
		f.Browser.Timeout = 30 * time.Second
	}
	return f
}

func (f FetchConfig) Validate() error {
	switch f.Browser.Driver {
	case "chromedp", "rod", "none":
	default:
		return fmt.Errorf("%w: unsupported fetch.browser.driver %q", models.ErrConfiguration, f.Browser.Driver)
	}
	return f.CrawlPolicy.Validate()
}

// Normalize fills unset extraction limits.
func (e ExtractConfig) Normalize() ExtractConfig {
	if e.Mode == "" {
		e.Mode = "plain-text"
	}
	if e.HTMLMaxBytes <= 0 {
		e.HTMLMaxBytes = 2 << 20
	}
	if e.PDFMaxBytes <= 0 {
		e.PDFMaxBytes = 20 << 20
	}
	if e.PDFMaxPages <= 0 {
		e.PDFMaxPages = 50
	}
	if e.TitleMaxRunes <= 0 {
		e.TitleMaxRunes = 100
	}
	return e
}

func (e ExtractConfig) Validate() error {
	switch e.Mode {
	case "plain-text", "structure-preserving", "article":
		return nil
	}
	return fmt.Errorf("%w: unsupported extract.mode %q", models.ErrConfiguration, e.Mode)
}

// Normalize fills unset generation values.
func (g GenerationConfig) Normalize() GenerationConfig {
	g.Provider = strings.ToLower(strings.TrimSpace(g.Provider))
	if g.Provider == "" {
		g.Provider = "openai"
	}
	if g.Model == "" {
		switch g.Provider {
		case "gemini":
			g.Model = "gemini-2.5-flash"
		default:
			g.Model = "gpt-4o-mini"
		}
	}
	if g.Timeout <= 0 {
		g.Timeout = 60 * time.Second
	}
	if g.MaxQueries <= 0 {
		g.MaxQueries = 3
	}
	if g.PerSourceChars <= 0 {
		g.PerSourceChars = 8000
	}
	return g
}

func (g GenerationConfig) Validate() error {
	switch g.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("%w: unsupported generation.provider %q", models.ErrConfiguration, g.Provider)
	}
	if strings.TrimSpace(g.APIKey) == "" {
		return fmt.Errorf("%w: generation.api_key is required for %s", models.ErrConfiguration, g.Provider)
	}
	return nil
}

// Normalize fills unset pipeline limits.
func (p PipelineConfig) Normalize() PipelineConfig {
	if p.Workers <= 0 {
		p.Workers = 4
	}
	if p.FetchDeadline <= 0 {
		p.FetchDeadline = 90 * time.Second
	}
	return p
}

// Normalize applies defaults to every section.
func (c *Config) Normalize() {
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
	if c.General.LogFormat == "" {
		c.General.LogFormat = "console"
	}
	if c.General.DefaultLanguage == "" {
		c.General.DefaultLanguage = string(models.LanguageAuto)
	}
	c.Search = c.Search.Normalize()
	c.Fetch = c.Fetch.Normalize()
	c.Extract = c.Extract.Normalize()
	c.Generation = c.Generation.Normalize()
	c.Pipeline = c.Pipeline.Normalize()
	if c.Server.Address == "" {
		c.Server.Address = ":10001"
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 3 * time.Minute
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "aisearch"
	}
}

// Validate checks every section; credential problems wrap models.ErrConfiguration.
func (c *Config) Validate() error {
	if _, err := models.ParseLanguage(c.General.DefaultLanguage); err != nil {
		return fmt.Errorf("%w: general.default_language: %v", models.ErrConfiguration, err)
	}
	return errors.Join(
		c.Search.Validate(),
		c.Fetch.Validate(),
		c.Extract.Validate(),
		c.Generation.Validate(),
	)
}

// envAliases binds the plain variable names the tool has always read.
var envAliases = map[string][]string{
	"search.google_api_key":   {"GOOGLE_API_KEY"},
	"search.search_engine_id": {"SEARCH_ENGINE_ID"},
	"search.serper_api_key":   {"SERPER_API_KEY"},
	"search.brave_api_key":    {"BRAVE_API_KEY"},
	"generation.api_key":      {"OPENAI_API_KEY", "GEMINI_API_KEY"},
}

// Load reads .env, an optional config file and AISEARCH_* environment variables.
// path may be empty, in which case config.{json,yaml} is searched in the usual places.
func Load(path string) (*Config, error) {
	// A missing .env is the common case.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("AISEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		args := append([]string{key, "AISEARCH_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.log_format", "console")
	v.SetDefault("general.default_language", "auto")
	v.SetDefault("search.provider", "google")
	v.SetDefault("search.per_query_limit", 5)
	v.SetDefault("search.exclude_file_like", true)
	v.SetDefault("search.timeout", "15s")
	v.SetDefault("search.max_retries", 0)
	v.SetDefault("fetch.timeout", "10s")
	v.SetDefault("fetch.max_size_bytes", 5<<20)
	v.SetDefault("fetch.retries", 3)
	v.SetDefault("fetch.backoff", "1s")
	v.SetDefault("fetch.crawl_policy.respect_robots", false)
	v.SetDefault("fetch.browser.driver", "chromedp")
	v.SetDefault("fetch.browser.headless", true)
	v.SetDefault("fetch.browser.settle_delay", "2s")
	v.SetDefault("fetch.browser.timeout", "30s")
	v.SetDefault("extract.mode", "plain-text")
	v.SetDefault("generation.provider", "openai")
	v.SetDefault("generation.temperature", 0.2)
	v.SetDefault("generation.max_queries", 3)
	v.SetDefault("generation.per_source_chars", 8000)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.fetch_deadline", "90s")
	v.SetDefault("server.address", ":10001")
	v.SetDefault("server.request_timeout", "3m")
	v.SetDefault("telemetry.service_name", "aisearch")
}
