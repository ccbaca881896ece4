package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmbeddedDefaults(t *testing.T) {
	t.Setenv("NARA_API_KEY", "env-key-value")

	s, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if s.API.Endpoint == "" {
		t.Error("endpoint must never be empty")
	}
	if s.API.ServiceKey != "env-key-value" {
		t.Errorf("service key %q, want env expansion", s.API.ServiceKey)
	}
	if s.Sync.DefaultStartDate == "" {
		t.Error("default start date missing")
	}
	if len(s.Filter.DefaultKeywords) == 0 {
		t.Error("default keyword set missing")
	}
}

func TestLoadFileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := []byte(`
api:
  endpoint: "https://override.example"
  service_key: "literal-key"
  encode_key: false
sync:
  default_start_date: "2025-06-01"
  retention_days: 30
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.API.Endpoint != "https://override.example" {
		t.Errorf("endpoint %q", s.API.Endpoint)
	}
	if s.Sync.RetentionDays != 30 {
		t.Errorf("retention %d, want 30", s.Sync.RetentionDays)
	}
	if s.API.EncodeKey {
		t.Error("encode_key override not applied")
	}
}

func TestLoadMissingOverrideFallsBackToEmbedded(t *testing.T) {
	s, err := Load("/nonexistent/settings.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if s.API.Endpoint == "" {
		t.Error("embedded settings should back a missing override path")
	}
}
