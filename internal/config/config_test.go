package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
http:
  addr: ":9090"
verification:
  code_ttl: 5m
  issue_per_minute: 10
media:
  max_upload_bytes: 1048576
bot:
  admin_chat_id: 123456789
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Verification.CodeTTL != 5*time.Minute {
		t.Fatalf("unexpected code ttl: %s", cfg.Verification.CodeTTL)
	}
	if cfg.Verification.IssuePerMinute != 10 {
		t.Fatalf("unexpected issue_per_minute: %d", cfg.Verification.IssuePerMinute)
	}
	if cfg.Media.MaxUploadBytes != 1048576 {
		t.Fatalf("unexpected max upload bytes: %d", cfg.Media.MaxUploadBytes)
	}
	if cfg.Bot.AdminChatID != 123456789 {
		t.Fatalf("unexpected admin chat id: %d", cfg.Bot.AdminChatID)
	}

	if cfg.Verification.IssuePer10Sec != 2 {
		t.Fatalf("issue_per_10sec default should stay 2, got %d", cfg.Verification.IssuePer10Sec)
	}
	if cfg.Media.StagingRetention != 12*time.Hour {
		t.Fatalf("staging retention default should stay 12h, got %s", cfg.Media.StagingRetention)
	}
	if cfg.Postgres.DSN == "" {
		t.Fatalf("postgres dsn default should not be empty")
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Verification.CodeTTL != 10*time.Minute {
		t.Fatalf("unexpected default code ttl: %s", cfg.Verification.CodeTTL)
	}
	if cfg.Media.MaxUploadBytes != 50<<20 {
		t.Fatalf("unexpected default upload limit: %d", cfg.Media.MaxUploadBytes)
	}
}

func TestEnvOverridesWinOverYAML(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("CODE_TTL", "2m")
	t.Setenv("ADMIN_CHAT_ID", "42")
	t.Setenv("MEDIA_MAX_UPLOAD_BYTES", "2048")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Verification.CodeTTL != 2*time.Minute {
		t.Fatalf("unexpected code ttl: %s", cfg.Verification.CodeTTL)
	}
	if cfg.Bot.AdminChatID != 42 {
		t.Fatalf("unexpected admin chat id: %d", cfg.Bot.AdminChatID)
	}
	if cfg.Media.MaxUploadBytes != 2048 {
		t.Fatalf("unexpected max upload bytes: %d", cfg.Media.MaxUploadBytes)
	}
}

func TestEnvOverrideRejectsMalformedDuration(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("CODE_TTL", "not-a-duration")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for malformed CODE_TTL")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()

	keys := []string{
		"APP_ENV", "HTTP_ADDR", "HTTP_READ_TIMEOUT", "HTTP_WRITE_TIMEOUT", "HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL", "POSTGRES_DSN", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"S3_ENDPOINT", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_BUCKET", "S3_USE_SSL",
		"BOT_TOKEN", "ADMIN_CHAT_ID", "BOT_CLEANUP_INTERVAL",
		"CODE_TTL", "CODE_RETENTION", "CODE_ISSUE_PER_MINUTE", "CODE_ISSUE_PER_10SEC",
		"MEDIA_MAX_UPLOAD_BYTES", "MEDIA_STAGING_RETENTION",
	}
	for _, key := range keys {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}
