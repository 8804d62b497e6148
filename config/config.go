package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for the processor.
type Config struct {
	RunID     string          `mapstructure:"run_id"`
	Codec     string          `mapstructure:"codec"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Report    ReportConfig    `mapstructure:"report"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type FeedConfig struct {
	Path string `mapstructure:"path"`
	// CancelPayloadLen is the 'X' body length after the tag. 18 reads the
	// reference only; NASDAQ ITCH 5.0 captures need 22.
	CancelPayloadLen int `mapstructure:"cancel_payload_len"`
}

type ReportConfig struct {
	Output    string `mapstructure:"output"`
	Mode      string `mapstructure:"mode"` // cumulative | window
	Precision int32  `mapstructure:"precision"`
	Echo      bool   `mapstructure:"echo"`
}

type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"` // json | console
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type OutboxConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Dir      string        `mapstructure:"dir"`
	Brokers  []string      `mapstructure:"brokers"`
	Topic    string        `mapstructure:"topic"`
	Interval time.Duration `mapstructure:"interval"`
}

type GRPCConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	Addr string `mapstructure:"addr"`
}

const EnvPrefix = "VWAP"

var ErrMissingFeed = errors.New("feed path is required (--feed, VWAP_FEED_PATH or first argument)")

// Load reads configuration from defaults, an optional config file, the
// .env file, VWAP_* environment variables and command line flags, in
// increasing order of precedence.
func Load(args []string) (*Config, error) {
	v := viper.New()

	// 1. Load .env into the process environment (if it exists)
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	// 2. Defaults
	setDefaults(v)

	// 3. Flags
	fs := pflag.NewFlagSet("vwap", pflag.ContinueOnError)
	configFile := fs.String("config", "", "optional config file (yaml, json, toml)")
	fs.String("feed", "", "ITCH feed file, optionally gzip compressed")
	fs.String("output", "", "report file")
	fs.String("mode", "", "vwap mode: cumulative or window")
	fs.Int32("precision", 0, "vwap decimal places")
	fs.Int("cancel-len", 0, "order cancel payload length (18 or 22)")
	fs.String("codec", "", "report codec for transports: json or proto")
	fs.String("log-level", "", "debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	bindFlags(v, fs, map[string]string{
		"feed":       "feed.path",
		"output":     "report.output",
		"mode":       "report.mode",
		"precision":  "report.precision",
		"cancel-len": "feed.cancel_payload_len",
		"codec":      "codec",
		"log-level":  "logger.level",
	})
	if fs.NArg() > 0 && !fs.Changed("feed") {
		v.Set("feed.path", fs.Arg(0))
	}

	// 4. Config file
	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", *configFile, err)
		}
	}

	// 5. Environment: feed.path -> VWAP_FEED_PATH
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v, v.AllKeys()...)

	// 6. Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("run_id", "")
	v.SetDefault("codec", "json")

	v.SetDefault("feed.path", "")
	v.SetDefault("feed.cancel_payload_len", 18)

	v.SetDefault("report.output", "vwap.txt")
	v.SetDefault("report.mode", "cumulative")
	v.SetDefault("report.precision", 8)
	v.SetDefault("report.echo", true)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "console")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "vwap_reports")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("outbox.enabled", false)
	v.SetDefault("outbox.dir", "./outbox")
	v.SetDefault("outbox.brokers", []string{"localhost:9092"})
	v.SetDefault("outbox.topic", "vwap_reports")
	v.SetDefault("outbox.interval", 250*time.Millisecond)

	v.SetDefault("grpc.addr", "")
	v.SetDefault("telemetry.addr", "")
}

// Validate checks the values the run cannot start without.
func (c *Config) Validate() error {
	if c.Feed.Path == "" {
		return ErrMissingFeed
	}
	if c.Feed.CancelPayloadLen < 18 {
		return fmt.Errorf("feed.cancel_payload_len must be at least 18, got %d", c.Feed.CancelPayloadLen)
	}
	if c.Report.Precision < 0 {
		return fmt.Errorf("report.precision must not be negative, got %d", c.Report.Precision)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka brokers cannot be empty")
	}
	if c.Outbox.Enabled && len(c.Outbox.Brokers) == 0 {
		return errors.New("outbox brokers cannot be empty")
	}
	return nil
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			log.Printf("Could not bind flag %s to %s: %v", flag, key, err)
		}
	}
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
