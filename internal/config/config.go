package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
	Whois     WhoisConfig     `mapstructure:"whois"`
	Website   WebsiteConfig   `mapstructure:"website"`
	Social    SocialConfig    `mapstructure:"social"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // mysql, sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"db_name"`
	Path     string `mapstructure:"path"` // sqlite file path
}

type RabbitMQConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	VHost    string `mapstructure:"vhost"`
	Queue    string `mapstructure:"queue"`
}

// WhoisConfig controls the registration resolver.
type WhoisConfig struct {
	Timeout int `mapstructure:"timeout"` // seconds, per tier query
}

// WebsiteConfig controls the website validator and contact-page crawl.
type WebsiteConfig struct {
	Timeout            int  `mapstructure:"timeout"` // seconds, per page fetch
	FollowContactPages bool `mapstructure:"follow_contact_pages"`
	MaxContactPages    int  `mapstructure:"max_contact_pages"`
}

// SocialConfig controls the social presence crawler.
type SocialConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	SearchURL     string `mapstructure:"search_url"`  // search engine query template, %s = query
	NavTimeout    int    `mapstructure:"nav_timeout"` // seconds, per navigation
	MaxCandidates int    `mapstructure:"max_candidates"`
	ScreenshotDir string `mapstructure:"screenshot_dir"` // bot-challenge diagnostics
}

// BrowserConfig controls the headless browser capability.
type BrowserConfig struct {
	Headless bool   `mapstructure:"headless"`
	ExecPath string `mapstructure:"exec_path"` // empty = chromedp default lookup
}

type RateLimitConfig struct {
	Window      int `mapstructure:"window"`       // seconds
	MaxRequests int `mapstructure:"max_requests"` // per window per client IP
}

type CacheConfig struct {
	TTL        int `mapstructure:"ttl"` // seconds
	MaxEntries int `mapstructure:"max_entries"`
}

type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"` // max concurrent vetting pipelines
	QueueSize   int `mapstructure:"queue_size"`
}

// RiskConfig points at the risk rule configuration document.
type RiskConfig struct {
	ConfigPath string `mapstructure:"config_path"`
	Watch      bool   `mapstructure:"watch"` // hot reload on file change
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	// Environment overrides for deployment-level knobs.
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("rabbitmq.host", "RABBITMQ_HOST")
	viper.BindEnv("rabbitmq.port", "RABBITMQ_PORT")
	viper.BindEnv("rabbitmq.user", "RABBITMQ_USER")
	viper.BindEnv("rabbitmq.password", "RABBITMQ_PASS")
	viper.BindEnv("database.host", "MYSQL_HOST")
	viper.BindEnv("database.port", "MYSQL_PORT")
	viper.BindEnv("database.user", "MYSQL_USER")
	viper.BindEnv("database.password", "MYSQL_PASS")
	viper.BindEnv("database.db_name", "MYSQL_DB")
	viper.BindEnv("rate_limit.max_requests", "RATE_LIMIT_MAX_REQUESTS")
	viper.BindEnv("whois.timeout", "WHOIS_TIMEOUT")
	viper.BindEnv("worker.concurrency", "MAX_CONCURRENT_REQUESTS")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.path", "./data/reports.db")
	viper.SetDefault("whois.timeout", 30)
	viper.SetDefault("website.timeout", 15)
	viper.SetDefault("website.follow_contact_pages", true)
	viper.SetDefault("website.max_contact_pages", 5)
	viper.SetDefault("social.enabled", true)
	viper.SetDefault("social.search_url", "https://www.bing.com/search?q=%s")
	viper.SetDefault("social.nav_timeout", 25)
	viper.SetDefault("social.max_candidates", 3)
	viper.SetDefault("social.screenshot_dir", "./data/screenshots")
	viper.SetDefault("browser.headless", true)
	viper.SetDefault("rate_limit.window", 60)
	viper.SetDefault("rate_limit.max_requests", 10)
	viper.SetDefault("cache.ttl", 3600)
	viper.SetDefault("cache.max_entries", 500)
	viper.SetDefault("worker.concurrency", 4)
	viper.SetDefault("worker.queue_size", 100)
	viper.SetDefault("risk.config_path", "./configs/risk_rules.json")
	viper.SetDefault("risk.watch", true)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

// WhoisTimeout returns the per-tier query timeout as a duration.
func (c *WhoisConfig) WhoisTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// FetchTimeout returns the per-page fetch timeout as a duration.
func (c *WebsiteConfig) FetchTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// NavigationTimeout returns the per-navigation browser timeout.
func (c *SocialConfig) NavigationTimeout() time.Duration {
	if c.NavTimeout <= 0 {
		return 25 * time.Second
	}
	return time.Duration(c.NavTimeout) * time.Second
}
