package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
	Log         LogConfig
	Scheduler   SchedulerConfig
	Payments    PaymentsConfig
	Board       BoardConfig
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
	// ProjectionGroup is the consumer group that copies audit events into
	// postgres; empty disables the projection.
	ProjectionGroup string
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SchedulerConfig holds the trigger cadence for the background jobs.
type SchedulerConfig struct {
	PublishDueInterval time.Duration `yaml:"publish_due_interval"`
	ScoreCron          string        `yaml:"score_cron"`
	PromoteCron        string        `yaml:"promote_cron"`
	// LockTTL bounds how long a distributed job lock is held if the holder dies.
	LockTTL time.Duration `yaml:"lock_ttl"`
}

type PaymentsConfig struct {
	CardDeclineAll bool `yaml:"card_decline_all"`
}

type BoardConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	Cooldown         time.Duration `yaml:"cooldown"`
}

// overlay is the subset of settings that may come from CONFIG_FILE.
type overlay struct {
	Log       *LogConfig       `yaml:"log"`
	Scheduler *SchedulerConfig `yaml:"scheduler"`
	Payments  *PaymentsConfig  `yaml:"payments"`
	Board     *BoardConfig     `yaml:"board"`
}

// FromEnv builds a Server config from environment variables so main stays lean.
// When CONFIG_FILE is set, its YAML settings are applied before the environment,
// so an explicit env var always wins.
func FromEnv() (Server, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := ApplyFile(&cfg, path); err != nil {
			return Server{}, err
		}
	}

	cfg.Addr = envOr("JOBBOARD_ADDR", cfg.Addr)
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.Redis.URL = os.Getenv("REDIS_URL")
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	cfg.Kafka.AuditTopic = envOr("AUDIT_TOPIC", cfg.Kafka.AuditTopic)
	cfg.Kafka.ProjectionGroup = envOr("AUDIT_PROJECTION_GROUP", cfg.Kafka.ProjectionGroup)
	cfg.Log.Level = envOr("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOr("LOG_FORMAT", cfg.Log.Format)
	cfg.Scheduler.ScoreCron = envOr("SCORE_CRON", cfg.Scheduler.ScoreCron)
	cfg.Scheduler.PromoteCron = envOr("PROMOTE_CRON", cfg.Scheduler.PromoteCron)

	if raw := os.Getenv("PUBLISH_DUE_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return Server{}, fmt.Errorf("invalid PUBLISH_DUE_INTERVAL %q", raw)
		}
		cfg.Scheduler.PublishDueInterval = d
	}
	if raw := os.Getenv("CARD_DECLINE_ALL"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Server{}, fmt.Errorf("invalid CARD_DECLINE_ALL %q: %w", raw, err)
		}
		cfg.Payments.CardDeclineAll = v
	}

	return cfg, nil
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Server {
	return Server{
		Addr: ":8080",
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{AuditTopic: "vacancy-audit", ProjectionGroup: "vacancy-audit-projection"},
		Log:   LogConfig{Level: "info", Format: "json"},
		Scheduler: SchedulerConfig{
			PublishDueInterval: time.Minute,
			ScoreCron:          "0 * * * *",
			PromoteCron:        "0 3 * * *",
			LockTTL:            10 * time.Minute,
		},
		Board: BoardConfig{FailureThreshold: 5, Cooldown: 30 * time.Second},
	}
}

// ApplyFile overlays YAML settings from path onto cfg. Sections absent from the
// file leave cfg untouched.
func ApplyFile(cfg *Server, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var o overlay
	if err := yaml.Unmarshal(b, &o); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if o.Log != nil {
		if o.Log.Level != "" {
			cfg.Log.Level = o.Log.Level
		}
		if o.Log.Format != "" {
			cfg.Log.Format = o.Log.Format
		}
	}
	if s := o.Scheduler; s != nil {
		if s.PublishDueInterval > 0 {
			cfg.Scheduler.PublishDueInterval = s.PublishDueInterval
		}
		if s.ScoreCron != "" {
			cfg.Scheduler.ScoreCron = s.ScoreCron
		}
		if s.PromoteCron != "" {
			cfg.Scheduler.PromoteCron = s.PromoteCron
		}
		if s.LockTTL > 0 {
			cfg.Scheduler.LockTTL = s.LockTTL
		}
	}
	if o.Payments != nil {
		cfg.Payments.CardDeclineAll = o.Payments.CardDeclineAll
	}
	if b := o.Board; b != nil {
		if b.FailureThreshold > 0 {
			cfg.Board.FailureThreshold = b.FailureThreshold
		}
		if b.Cooldown > 0 {
			cfg.Board.Cooldown = b.Cooldown
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
