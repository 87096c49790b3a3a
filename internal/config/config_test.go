package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	cfg := Load()

	if cfg.HTTPAddr != ":8080" || cfg.HTTPTimeout != 30*time.Second || cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.MapEnabled || cfg.UploadsEnabled() || cfg.FileHostEnabled {
		t.Fatal("optional collaborators should be off by default")
	}
	if cfg.SignatureWidth != 400 || cfg.SignatureHeight != 200 {
		t.Fatalf("signature size %dx%d", cfg.SignatureWidth, cfg.SignatureHeight)
	}
	if cfg.EmailJSEndpoint != "https://api.emailjs.com/api/v1.0/email/send" {
		t.Fatalf("endpoint = %q", cfg.EmailJSEndpoint)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("MAP_ENABLED", "true")
	t.Setenv("UPLOAD_URL", "https://script.example/exec")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("OXIDB_PORT", "5555")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("PUBLIC_BASE_URL", "https://apply.example/")

	cfg := Load()
	if !cfg.MapEnabled || !cfg.UploadsEnabled() {
		t.Fatalf("expected map and uploads enabled: %+v", cfg)
	}
	if cfg.HTTPTimeout != 5*time.Second || cfg.OxiDBPort != 5555 {
		t.Fatalf("timeout %s port %d", cfg.HTTPTimeout, cfg.OxiDBPort)
	}
	if diff := cmp.Diff([]string{"https://a.example", "https://b.example"}, cfg.CORSOrigins); diff != "" {
		t.Fatalf("origins (-want +got):\n%s", diff)
	}
	if cfg.PublicBaseURL != "https://apply.example" {
		t.Fatalf("base url = %q", cfg.PublicBaseURL)
	}
}

func TestBadValuesFallBack(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("MAP_ENABLED", "sometimes")
	t.Setenv("SESSION_TTL", "forever")
	t.Setenv("SIGNATURE_WIDTH", "-3")

	cfg := Load()
	if cfg.MapEnabled || cfg.SessionTTL != 30*time.Minute || cfg.SignatureWidth != 400 {
		t.Fatalf("bad values should fall back: %+v", cfg)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.env")
	if err := os.WriteFile(path, []byte("EMAILJS_SERVICE_ID=service_from_file\nAPP_ADDR=:9999\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", path)
	t.Setenv("APP_ADDR", ":7000")
	t.Setenv("EMAILJS_SERVICE_ID", "")
	os.Unsetenv("EMAILJS_SERVICE_ID")

	cfg := Load()
	if cfg.EmailJSServiceID != "service_from_file" {
		t.Fatalf("service id = %q", cfg.EmailJSServiceID)
	}
	if cfg.HTTPAddr != ":7000" {
		t.Fatalf("environment should win over .env, got %q", cfg.HTTPAddr)
	}
	os.Unsetenv("EMAILJS_SERVICE_ID")
}
