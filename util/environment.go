package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var environmentLogger = log.With().Str("logger_name", "util::environment").Logger()

type tableServerEnvironment struct {
	LogLevel         string
	PersistMethod    string
	RedisHost        string
	RedisPort        string
	RedisPW          string
	RedisDB          string
	LedgerMethod     string
	PostgresHost     string
	PostgresPort     string
	PostgresDB       string
	PostgresUser     string
	PostgresPW       string
	PostgresSSLMode  string
	NatsURL          string
	HTTPPort         string
	DefaultBalance   string
	DisableDelays    string
	HistoryCacheSize string
}

// Env is a helper object for accessing environment variables.
var Env = &tableServerEnvironment{
	LogLevel:         "LOG_LEVEL",
	PersistMethod:    "PERSIST_METHOD",
	RedisHost:        "REDIS_HOST",
	RedisPort:        "REDIS_PORT",
	RedisPW:          "REDIS_PW",
	RedisDB:          "REDIS_DB",
	LedgerMethod:     "LEDGER_METHOD",
	PostgresHost:     "POSTGRES_HOST",
	PostgresPort:     "POSTGRES_PORT",
	PostgresDB:       "POSTGRES_DB",
	PostgresUser:     "POSTGRES_USER",
	PostgresPW:       "POSTGRES_PASSWORD",
	PostgresSSLMode:  "POSTGRES_SSL_MODE",
	NatsURL:          "NATS_URL",
	HTTPPort:         "HTTP_PORT",
	DefaultBalance:   "DEFAULT_BALANCE",
	DisableDelays:    "DISABLE_DELAYS",
	HistoryCacheSize: "HISTORY_CACHE_SIZE",
}

func (e *tableServerEnvironment) GetZeroLogLogLevel() zerolog.Level {
	s := strings.ToLower(os.Getenv(e.LogLevel))
	if s == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		environmentLogger.Warn().Msgf("Invalid %s [%s]. Using info", e.LogLevel, s)
		return zerolog.InfoLevel
	}
	return level
}

// GetPersistMethod returns where hand histories are stored: memory or redis.
func (e *tableServerEnvironment) GetPersistMethod() string {
	method := strings.ToLower(os.Getenv(e.PersistMethod))
	if method == "" {
		return "memory"
	}
	if method != "memory" && method != "redis" {
		msg := fmt.Sprintf("Invalid %s [%s]", e.PersistMethod, method)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return method
}

func (e *tableServerEnvironment) GetRedisHost() string {
	host := os.Getenv(e.RedisHost)
	if host == "" {
		msg := fmt.Sprintf("%s is not defined", e.RedisHost)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return host
}

func (e *tableServerEnvironment) GetRedisPort() int {
	return e.requiredInt(e.RedisPort)
}

func (e *tableServerEnvironment) GetRedisPW() string {
	return os.Getenv(e.RedisPW)
}

func (e *tableServerEnvironment) GetRedisDB() int {
	return e.intOrDefault(e.RedisDB, 0)
}

// GetLedgerMethod returns the balance ledger backend: memory or postgres.
func (e *tableServerEnvironment) GetLedgerMethod() string {
	method := strings.ToLower(os.Getenv(e.LedgerMethod))
	if method == "" {
		return "memory"
	}
	if method != "memory" && method != "postgres" {
		msg := fmt.Sprintf("Invalid %s [%s]", e.LedgerMethod, method)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return method
}

func (e *tableServerEnvironment) GetPostgresHost() string {
	return e.required(e.PostgresHost)
}

func (e *tableServerEnvironment) GetPostgresPort() int {
	return e.intOrDefault(e.PostgresPort, 5432)
}

func (e *tableServerEnvironment) GetPostgresUser() string {
	return e.required(e.PostgresUser)
}

func (e *tableServerEnvironment) GetPostgresPW() string {
	return e.required(e.PostgresPW)
}

func (e *tableServerEnvironment) GetPostgresDB() string {
	return e.required(e.PostgresDB)
}

func (e *tableServerEnvironment) GetPostgresSSLMode() string {
	mode := os.Getenv(e.PostgresSSLMode)
	if mode == "" {
		return "disable"
	}
	return mode
}

func (e *tableServerEnvironment) GetPostgresConnStr() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		e.GetPostgresHost(), e.GetPostgresPort(), e.GetPostgresUser(), e.GetPostgresPW(),
		e.GetPostgresDB(), e.GetPostgresSSLMode())
}

// GetNatsURL returns an empty string when the bus is not configured.
func (e *tableServerEnvironment) GetNatsURL() string {
	return os.Getenv(e.NatsURL)
}

func (e *tableServerEnvironment) GetHTTPPort() int {
	return e.intOrDefault(e.HTTPPort, 8080)
}

func (e *tableServerEnvironment) GetDefaultBalance() int64 {
	return int64(e.intOrDefault(e.DefaultBalance, 10000))
}

func (e *tableServerEnvironment) GetHistoryCacheSize() int {
	return e.intOrDefault(e.HistoryCacheSize, 1000)
}

func (e *tableServerEnvironment) GetDisableDelays() string {
	v := os.Getenv(e.DisableDelays)
	if v == "" {
		return "false"
	}
	return v
}

func (e *tableServerEnvironment) ShouldDisableDelays() bool {
	return e.GetDisableDelays() == "1" || strings.ToLower(e.GetDisableDelays()) == "true"
}

func (e *tableServerEnvironment) required(name string) string {
	v := os.Getenv(name)
	if v == "" {
		msg := fmt.Sprintf("%s is not defined", name)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return v
}

func (e *tableServerEnvironment) requiredInt(name string) int {
	s := e.required(name)
	n, err := strconv.Atoi(s)
	if err != nil {
		msg := fmt.Sprintf("Invalid %s [%s]", name, s)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return n
}

func (e *tableServerEnvironment) intOrDefault(name string, defaultValue int) int {
	s := os.Getenv(name)
	if s == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		msg := fmt.Sprintf("Invalid %s [%s]", name, s)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return n
}
