package params

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// SelfMatch selects what happens when an incoming order would trade against
// a resting order of the same trader.
type SelfMatch string

const (
	SelfMatchReject SelfMatch = "reject"
	SelfMatchAllow  SelfMatch = "allow"
)

type Engine struct {
	SelfMatch SelfMatch
}

type API struct {
	Addr        string
	CORSOrigins []string
}

type Log struct {
	File  string // empty: console only
	Level string
}

// Sinks receive trades after they are recorded. Each is disabled when its
// setting is empty.
type Sinks struct {
	JournalPath  string   // pebble directory
	RequestLog   string   // raw request log file
	KafkaBrokers []string // host:port list
	KafkaTopic   string
}

type Config struct {
	Engine Engine
	API    API
	Log    Log
	Sinks  Sinks
}

func Default() Config {
	return Config{
		Engine: Engine{SelfMatch: SelfMatchReject},
		API: API{
			Addr:        ":8080",
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
		},
		Log: Log{
			File:  "data/node.log",
			Level: "info",
		},
		Sinks: Sinks{
			KafkaTopic: "market.trades",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// godotenv never overrides variables that are already set
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	switch strings.ToLower(os.Getenv("SELF_MATCH")) {
	case string(SelfMatchAllow):
		cfg.Engine.SelfMatch = SelfMatchAllow
	case string(SelfMatchReject):
		cfg.Engine.SelfMatch = SelfMatchReject
	}

	cfg.API.Addr = getEnv("API_ADDR", cfg.API.Addr)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.API.CORSOrigins = splitList(origins)
	}

	if v, ok := os.LookupEnv("LOG_FILE"); ok {
		cfg.Log.File = v
	}
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	cfg.Sinks.JournalPath = getEnv("JOURNAL_PATH", cfg.Sinks.JournalPath)
	cfg.Sinks.RequestLog = getEnv("REQUEST_LOG", cfg.Sinks.RequestLog)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Sinks.KafkaBrokers = splitList(brokers)
	}
	cfg.Sinks.KafkaTopic = getEnv("KAFKA_TOPIC", cfg.Sinks.KafkaTopic)

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
