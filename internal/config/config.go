// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. WEBSCRAP_CRAWL_BASE_URL.
const EnvPrefix = "WEBSCRAP"

// Output and checkpoint backends.
const (
	BackendLocal  = "local"
	BackendMemory = "memory"
	BackendGCS    = "gcs"

	CheckpointBlob = "blob"
	CheckpointBolt = "bolt"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Crawl      CrawlConfig      `mapstructure:"crawl"`
	Politeness PolitenessConfig `mapstructure:"politeness"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Oracle     OracleConfig     `mapstructure:"oracle"`
	Output     OutputConfig     `mapstructure:"output"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// CrawlConfig governs the crawl loop.
type CrawlConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	MaxPages        int    `mapstructure:"max_pages"`
	CheckpointEvery int    `mapstructure:"checkpoint_every"`
	UserAgent       string `mapstructure:"user_agent"`
}

// PolitenessConfig controls robots handling and adaptive delays.
type PolitenessConfig struct {
	RespectRobots bool          `mapstructure:"respect_robots"`
	MinDelay      time.Duration `mapstructure:"min_delay"`
	LatencyFactor float64       `mapstructure:"latency_factor"`
}

// HTTPConfig configures fetch timeouts, retries and size limits.
type HTTPConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	BackoffInitial time.Duration `mapstructure:"backoff_initial"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`
	MaxPageBytes   int64         `mapstructure:"max_page_bytes"`
}

// OracleConfig configures the LLM classifier and translator.
type OracleConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	ExcerptChars      int           `mapstructure:"excerpt_chars"`
}

// OutputConfig selects where page records and documents are written.
type OutputConfig struct {
	Backend        string `mapstructure:"backend"`
	WorkDir        string `mapstructure:"work_dir"`
	FinalDir       string `mapstructure:"final_dir"`
	GCSBucket      string `mapstructure:"gcs_bucket"`
	DocumentPrefix string `mapstructure:"document_prefix"`
	DocumentTitle  string `mapstructure:"document_title"`
}

// CheckpointConfig selects the snapshot backend.
type CheckpointConfig struct {
	Backend  string `mapstructure:"backend"`
	Name     string `mapstructure:"name"`
	BoltPath string `mapstructure:"bolt_path"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig exposes Prometheus metrics when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"base-url":         "crawl.base_url",
	"max-pages":        "crawl.max_pages",
	"checkpoint-every": "crawl.checkpoint_every",
}

// Load builds a Config from defaults, an optional file, the environment and
// any changed flags, in increasing order of precedence.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.base_url", "")
	v.SetDefault("crawl.max_pages", 100)
	v.SetDefault("crawl.checkpoint_every", 10)
	v.SetDefault("crawl.user_agent", "webscrap/1.0 (+https://github.com/Paulino-Cristovao/webscrap)")
	v.SetDefault("politeness.respect_robots", true)
	v.SetDefault("politeness.min_delay", time.Second)
	v.SetDefault("politeness.latency_factor", 0.5)
	v.SetDefault("http.timeout", 10*time.Second)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_initial", time.Second)
	v.SetDefault("http.backoff_max", 30*time.Second)
	v.SetDefault("http.max_page_bytes", 10<<20)
	v.SetDefault("oracle.enabled", true)
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.model", "gpt-3.5-turbo")
	v.SetDefault("oracle.base_url", "")
	v.SetDefault("oracle.timeout", 30*time.Second)
	v.SetDefault("oracle.requests_per_second", 2.0)
	v.SetDefault("oracle.excerpt_chars", 3000)
	v.SetDefault("output.backend", BackendLocal)
	v.SetDefault("output.work_dir", "output")
	v.SetDefault("output.final_dir", "final_output")
	v.SetDefault("output.gcs_bucket", "")
	v.SetDefault("output.document_prefix", "site_content")
	v.SetDefault("output.document_title", "Complete Website Content")
	v.SetDefault("checkpoint.backend", CheckpointBlob)
	v.SetDefault("checkpoint.name", "scraping_progress.json")
	v.SetDefault("checkpoint.bolt_path", "output/checkpoint.db")
	v.SetDefault("logging.development", true)
	v.SetDefault("metrics.addr", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Crawl.BaseURL) == "" {
		return fmt.Errorf("crawl.base_url must be set")
	}
	if c.Crawl.MaxPages <= 0 {
		return fmt.Errorf("crawl.max_pages must be > 0")
	}
	if c.Crawl.CheckpointEvery <= 0 {
		return fmt.Errorf("crawl.checkpoint_every must be > 0")
	}
	if c.Politeness.MinDelay < 0 {
		return fmt.Errorf("politeness.min_delay must be >= 0")
	}
	if c.Politeness.LatencyFactor < 0 {
		return fmt.Errorf("politeness.latency_factor must be >= 0")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.HTTP.MaxPageBytes <= 0 {
		return fmt.Errorf("http.max_page_bytes must be > 0")
	}
	if c.Oracle.Enabled && c.Oracle.ExcerptChars <= 0 {
		return fmt.Errorf("oracle.excerpt_chars must be > 0")
	}
	switch c.Output.Backend {
	case BackendLocal, BackendMemory:
	case BackendGCS:
		if c.Output.GCSBucket == "" {
			return fmt.Errorf("output.gcs_bucket must be set when output.backend is gcs")
		}
	default:
		return fmt.Errorf("output.backend must be one of local, memory, gcs")
	}
	switch c.Checkpoint.Backend {
	case CheckpointBlob:
	case CheckpointBolt:
		if c.Checkpoint.BoltPath == "" {
			return fmt.Errorf("checkpoint.bolt_path must be set when checkpoint.backend is bolt")
		}
	default:
		return fmt.Errorf("checkpoint.backend must be one of blob, bolt")
	}
	return nil
}
