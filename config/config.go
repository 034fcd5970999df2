package config

import (
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Config holds all runtime configuration, populated from environment
// variables and command-line flags. Flags win over environment values.
type Config struct {
	// HTTP server
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"Access key required on management endpoints (optional)"`

	// Database
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"papermux" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"papermux" description:"Database password"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"papermux" description:"Database name"`
	DBSSLMode  string `long:"db-sslmode" env:"DB_SSLMODE" default:"disable" description:"Database sslmode"`

	// Fetching
	MinFetchIntervalMS int    `long:"min-fetch-interval-ms" env:"MIN_FETCH_INTERVAL_MS" default:"3600000" description:"Minimum interval between fetches of the same journal"`
	MaxRedirects       int    `long:"max-redirects" env:"MAX_REDIRECTS" default:"5" description:"Redirect hop limit when fetching source pages"`
	ReduceByteBudget   int    `long:"reduce-byte-budget" env:"REDUCE_BYTE_BUDGET" default:"65536" description:"Byte budget for reduced HTML sent to the AI provider"`
	HTTPTimeoutSecond  int    `long:"http-timeout-second" env:"HTTP_TIMEOUT_SECOND" default:"20" description:"Timeout for outbound page and feed requests"`
	FetchWorkerCount   int    `long:"fetch-worker-count" env:"FETCH_WORKER_COUNT" default:"4" description:"Concurrent workers for batch fetches"`
	UserAgent          string `long:"user-agent" env:"USER_AGENT" default:"papermux/1.0 (+https://github.com/papermux/papermux)" description:"User agent for outbound requests"`

	// AI provider
	AIProvider      string `long:"ai-provider" env:"AI_PROVIDER" default:"anthropic" choice:"anthropic" choice:"openai" description:"Provider used for page analysis"`
	AITimeoutSecond int    `long:"ai-timeout-second" env:"AI_TIMEOUT_SECOND" default:"60" description:"Timeout for AI provider calls"`
	AnthropicAPIKey string `long:"anthropic-api-key" env:"ANTHROPIC_API_KEY" description:"Anthropic API key"`
	AnthropicModel  string `long:"anthropic-model" env:"ANTHROPIC_MODEL" default:"claude-3-5-sonnet-20241022" description:"Anthropic model name"`
	OpenAIAPIKey    string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key"`
	OpenAIModel     string `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini" description:"OpenAI model name"`

	// Feed cache
	RedisHost          string `long:"redis-host" env:"REDIS_HOST" description:"Redis host for the rendered feed cache (empty disables caching)"`
	RedisPort          string `long:"redis-port" env:"REDIS_PORT" default:"6379" description:"Redis port"`
	RedisPassword      string `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`
	FeedCacheTTLSecond int    `long:"feed-cache-ttl-second" env:"FEED_CACHE_TTL_SECOND" default:"1800" description:"TTL for cached rendered feeds"`
}

// Load parses configuration from os.Args and the environment. It returns
// (nil, nil) when -h/--help was requested.
func Load() (*Config, error) {
	return loadFromArgs(os.Args[1:])
}

func loadFromArgs(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// DSN returns the postgres connection string for gorm.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// RedisAddr returns the host:port of the feed cache, or empty when caching is
// disabled.
func (c *Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return c.RedisHost + ":" + c.RedisPort
}

func (c *Config) MinFetchInterval() time.Duration {
	return time.Duration(c.MinFetchIntervalMS) * time.Millisecond
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSecond) * time.Second
}

func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutSecond) * time.Second
}

func (c *Config) FeedCacheTTL() time.Duration {
	return time.Duration(c.FeedCacheTTLSecond) * time.Second
}
