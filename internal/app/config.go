package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the mail triage backend.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	IMAP     IMAPConfig     `mapstructure:"imap"`
	Groq     GroqConfig     `mapstructure:"groq"`
	Triage   TriageConfig   `mapstructure:"triage"`
	Send     SendConfig     `mapstructure:"send"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	LogLevel        string   `mapstructure:"log_level"`
	FrontendOrigins []string `mapstructure:"frontend_origins"`
	RateLimit       int      `mapstructure:"rate_limit"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// DryRun logs outbound confirmation codes instead of sending them.
	DryRun bool `mapstructure:"dry_run"`
}

// IMAPConfig locates the inbox to ingest from.
type IMAPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Folder   string `mapstructure:"folder"`
	StartTLS bool   `mapstructure:"starttls"`
	MarkSeen bool   `mapstructure:"mark_seen"`
}

// GroqConfig configures the LLM reply suggester. Empty key disables it.
type GroqConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TriageConfig tunes importance scoring.
type TriageConfig struct {
	VIPSenders []string `mapstructure:"vip_senders"`
	VIPDomains []string `mapstructure:"vip_domains"`
}

// SendConfig governs the outbound reply authorization flow.
type SendConfig struct {
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
	RecipientHourly   int           `mapstructure:"recipient_hourly"`
	RecipientDaily    int           `mapstructure:"recipient_daily"`
	IPHourly          int           `mapstructure:"ip_hourly"`
	AllowedRecipients []string      `mapstructure:"allowed_recipients"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("MAILTRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.frontend_origins", "http://localhost:3000")
	v.SetDefault("server.rate_limit", 100)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/mailtriage.sqlite")

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.timeout", "15s")
	v.SetDefault("smtp.dry_run", false)

	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.folder", "INBOX")
	v.SetDefault("imap.mark_seen", true)

	v.SetDefault("groq.model", "llama-3.3-70b-versatile")
	v.SetDefault("groq.timeout", "30s")

	v.SetDefault("send.token_ttl", "10m")
	v.SetDefault("send.recipient_hourly", 3)
	v.SetDefault("send.recipient_daily", 10)
	v.SetDefault("send.ip_hourly", 10)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
