package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort        int
	SQLitePath      string
	Timezone        string
	Location        *time.Location
	MaxOccurrences  int
	LogLevel        slog.Level
	KafkaBrokers    []string
	AuditTopic      string
	ShutdownTimeout time.Duration
}

const (
	defaultTimezone   = "America/Sao_Paulo"
	defaultAuditTopic = "reservation-audit"
)

// LoadDotEnv copies the variables of the given .env files (".env" when none
// are given) into the process environment. Variables already set win and
// missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("arquivo de ambiente %s inválido: %w", path, err)
		}
	}
	return nil
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults. Every invalid value is reported in a
// single localized error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		SQLitePath:      "scheduler.db",
		Timezone:        defaultTimezone,
		MaxOccurrences:  500,
		LogLevel:        slog.LevelInfo,
		AuditTopic:      defaultAuditTopic,
		ShutdownTimeout: 10 * time.Second,
	}

	invalid := make([]string, 0, 4)

	if portValue := env("SCHEDULER_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if path := env("SCHEDULER_SQLITE_DSN"); path != "" {
		cfg.SQLitePath = path
	}

	if tz := env("SCHEDULER_TIMEZONE"); tz != "" {
		cfg.Timezone = tz
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		invalid = append(invalid, "SCHEDULER_TIMEZONE")
	} else {
		cfg.Location = loc
	}

	if maxValue := env("SCHEDULER_MAX_OCCURRENCES"); maxValue != "" {
		maxOccurrences, err := strconv.Atoi(maxValue)
		if err != nil || maxOccurrences < 1 {
			invalid = append(invalid, "SCHEDULER_MAX_OCCURRENCES")
		} else {
			cfg.MaxOccurrences = maxOccurrences
		}
	}

	if levelValue := env("SCHEDULER_LOG_LEVEL"); levelValue != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(levelValue)); err != nil {
			invalid = append(invalid, "SCHEDULER_LOG_LEVEL")
		}
	}

	if brokers := env("SCHEDULER_KAFKA_BROKERS"); brokers != "" {
		for _, broker := range strings.Split(brokers, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}

	if topic := env("SCHEDULER_AUDIT_TOPIC"); topic != "" {
		cfg.AuditTopic = topic
	}

	if timeoutValue := env("SCHEDULER_SHUTDOWN_TIMEOUT"); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "SCHEDULER_SHUTDOWN_TIMEOUT")
		} else {
			cfg.ShutdownTimeout = timeout
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("valores inválidos nas variáveis de ambiente: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// AuditToKafka reports whether audit events should be sent to Kafka.
func (c Config) AuditToKafka() bool {
	return len(c.KafkaBrokers) > 0
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
