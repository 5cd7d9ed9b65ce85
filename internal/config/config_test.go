package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func validConfig() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		Store: StoreConfig{Backend: StorePostgres},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "accounts"},
		Auth:  AuthConfig{JWTSecret: testSecret},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"APP_ENV", "DB_HOST", "JWT_SECRET"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %v", want, err)
		}
	}
}

func TestValidate_AppliesDefaults(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Auth.AccessTokenTTL != 24*time.Hour || c.Auth.RefreshTokenTTL != 7*24*time.Hour {
		t.Fatalf("unexpected ttl defaults: %s %s", c.Auth.AccessTokenTTL, c.Auth.RefreshTokenTTL)
	}
	if c.Throttle.MaxFailures != 5 || c.Throttle.Window != 15*time.Minute {
		t.Fatalf("unexpected throttle defaults: %+v", c.Throttle)
	}
	if c.Auth.BcryptCost != DefaultBcryptCost || c.Auth.LookupTimeout != DefaultLookupTimeout {
		t.Fatalf("unexpected auth defaults: %+v", c.Auth)
	}
	if c.Redis.Enabled() {
		t.Fatalf("redis must be optional")
	}
}

func TestValidate_ProductionRequiresSSLModeAndClaims(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected error for production config")
	}
	for _, want := range []string{"DB_SSLMODE", "JWT_ISSUER", "JWT_AUDIENCE"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %v", want, err)
		}
	}
}

func TestValidate_MemoryStoreSkipsDB(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "local", Port: 8080},
		Store: StoreConfig{Backend: StoreMemory},
		Auth:  AuthConfig{JWTSecret: testSecret},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_RejectsShortSecretAndInvertedTTLs(t *testing.T) {
	c := validConfig()
	c.Auth.JWTSecret = "short"
	c.Auth.AccessTokenTTL = time.Hour
	c.Auth.RefreshTokenTTL = time.Minute
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") || !strings.Contains(err.Error(), "JWT_REFRESH_TTL") {
		t.Fatalf("expected secret and ttl errors, got %v", err)
	}
}

func TestValidate_PartialAdminBootstrap(t *testing.T) {
	c := validConfig()
	c.Admin.Username = "root"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected partial admin config to be rejected")
	}
}

func TestTTL_ParsesMillisAndDurations(t *testing.T) {
	cases := map[string]time.Duration{
		"86400000": 24 * time.Hour,
		"1500":     1500 * time.Millisecond,
		"15m":      15 * time.Minute,
		"168h":     7 * 24 * time.Hour,
	}
	for in, want := range cases {
		t.Setenv("JWT_ACCESS_TTL", in)
		got, err := ttl("JWT_ACCESS_TTL")
		if err != nil || got != want {
			t.Fatalf("%q: expected %s, got %s (%v)", in, want, got, err)
		}
	}
	t.Setenv("JWT_ACCESS_TTL", "9223372036854")
	if got, err := ttl("JWT_ACCESS_TTL"); err != nil || got <= 0 {
		t.Fatalf("largest millisecond ttl: got %s (%v)", got, err)
	}
	for _, bad := range []string{"-5", "0", "soon", "9223372036855", "9300000000000"} {
		t.Setenv("JWT_ACCESS_TTL", bad)
		if _, err := ttl("JWT_ACCESS_TTL"); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestLoad_FromEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := strings.Join([]string{
		"APP_ENV=local",
		"USER_STORE=memory",
		"JWT_SECRET=" + testSecret,
		"JWT_ACCESS_TTL=60000",
		"REDIS_HOST=localhost",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	// Register cleanup for keys godotenv will set.
	for _, k := range []string{"APP_ENV", "USER_STORE", "JWT_SECRET", "JWT_ACCESS_TTL", "REDIS_HOST"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("ENV_FILE", path)

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Store.Backend != StoreMemory || c.Auth.AccessTokenTTL != time.Minute {
		t.Fatalf("unexpected config: %+v", c)
	}
	if !c.Redis.Enabled() || c.RedisAddr() != "localhost:6379" {
		t.Fatalf("unexpected redis config: %+v", c.Redis)
	}
}

func TestLoad_ReportsParseErrors(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("APP_PORT", "eighty")
	t.Setenv("JWT_REFRESH_TTL", "forever")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "APP_PORT") || !strings.Contains(err.Error(), "JWT_REFRESH_TTL") {
		t.Fatalf("expected parse errors, got %v", err)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" 10.0.0.0/8, ,192.168.1.1 ")
	if len(got) != 2 || got[0] != "10.0.0.0/8" || got[1] != "192.168.1.1" {
		t.Fatalf("unexpected list %v", got)
	}
	if splitList("") != nil {
		t.Fatalf("expected nil for empty input")
	}
}
