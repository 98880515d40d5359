package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("PORT")
	os.Unsetenv("STALENESS_THRESHOLD_HOURS")
	os.Unsetenv("FETCH_TIMEOUT_SECONDS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.StalenessThreshold() != 24*time.Hour {
		t.Errorf("expected 24h staleness threshold, got %v", cfg.StalenessThreshold())
	}
	if cfg.FetchTimeout() != 10*time.Second {
		t.Errorf("expected 10s fetch timeout, got %v", cfg.FetchTimeout())
	}
}

func TestLoad_FHIRBaseURL(t *testing.T) {
	os.Setenv("FHIR_BASE_URL", "https://fhir.example.org/r4")
	defer os.Unsetenv("FHIR_BASE_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FHIRBaseURL != "https://fhir.example.org/r4" {
		t.Errorf("expected FHIR_BASE_URL to be set, got %s", cfg.FHIRBaseURL)
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}

func TestValidate(t *testing.T) {
	valid := &Config{Env: "development", StalenessThresholdHours: 24, FetchTimeoutSeconds: 10}
	if err := valid.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	negative := &Config{Env: "development", StalenessThresholdHours: -1, FetchTimeoutSeconds: 10}
	if err := negative.Validate(); err == nil {
		t.Error("expected error for negative staleness threshold")
	}

	prodNoAuth := &Config{Env: "production", StalenessThresholdHours: 24, FetchTimeoutSeconds: 10}
	if err := prodNoAuth.Validate(); err == nil {
		t.Error("expected error for production without auth configuration")
	}

	prodWithKey := &Config{Env: "production", StalenessThresholdHours: 24, FetchTimeoutSeconds: 10, AuthSigningKey: "secret"}
	if err := prodWithKey.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
