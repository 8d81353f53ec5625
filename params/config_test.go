package params

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"SELF_MATCH", "API_ADDR", "CORS_ORIGINS", "LOG_FILE", "LOG_LEVEL", "JOURNAL_PATH", "REQUEST_LOG", "KAFKA_BROKERS", "KAFKA_TOPIC"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))

	if cfg.Engine.SelfMatch != SelfMatchReject {
		t.Errorf("expected reject by default, got %s", cfg.Engine.SelfMatch)
	}
	if cfg.API.Addr != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.API.Addr)
	}
	if cfg.Sinks.JournalPath != "" || cfg.Sinks.RequestLog != "" || len(cfg.Sinks.KafkaBrokers) != 0 {
		t.Errorf("expected sinks disabled, got %+v", cfg.Sinks)
	}
}

func TestLoadFromEnvFileAndOverrides(t *testing.T) {
	for _, k := range []string{"SELF_MATCH", "API_ADDR", "KAFKA_BROKERS", "JOURNAL_PATH"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	envPath := filepath.Join(t.TempDir(), ".env")
	content := "SELF_MATCH=allow\nAPI_ADDR=:9090\nKAFKA_BROKERS=a:9092, b:9092\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	// ENV wins over the file
	t.Setenv("API_ADDR", ":7070")

	cfg := LoadFromEnv(envPath)

	if cfg.Engine.SelfMatch != SelfMatchAllow {
		t.Errorf("expected allow from .env, got %s", cfg.Engine.SelfMatch)
	}
	if cfg.API.Addr != ":7070" {
		t.Errorf("expected env override :7070, got %s", cfg.API.Addr)
	}
	if len(cfg.Sinks.KafkaBrokers) != 2 || cfg.Sinks.KafkaBrokers[1] != "b:9092" {
		t.Errorf("unexpected brokers %v", cfg.Sinks.KafkaBrokers)
	}
}
