package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearRelayEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "AUTH_TOKEN", "PROVIDER_URL", "OPENAI_API_KEY", "PROVIDER_MODEL",
		"PROVIDER_PROMPT", "PROVIDER_TIMEOUT", "RETRY_BUDGET", "RETRY_BACKOFF",
		"ACTUATOR_ADDR", "ACTUATOR_TIMEOUT", "ALTITUDE_CEILING",
		"DATABASE_PATH", "JOURNAL_PATH", "LOG_DIR", "SHUTDOWN_GRACE", "CONFIG_FILE",
	}
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

// ========================================
// Defaults Tests
// ========================================

func TestLoad_Defaults(t *testing.T) {
	clearRelayEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 3103 {
		t.Errorf("Expected default port 3103, got %d", cfg.Port)
	}
	if cfg.ProviderTimeout != 30*time.Second {
		t.Errorf("Expected default provider timeout 30s, got %s", cfg.ProviderTimeout)
	}
	if cfg.RetryBudget != 2 {
		t.Errorf("Expected default retry budget 2, got %d", cfg.RetryBudget)
	}
	if cfg.RetryBackoff != time.Second {
		t.Errorf("Expected default retry backoff 1s, got %s", cfg.RetryBackoff)
	}
	if cfg.ActuatorTimeout != 10*time.Second {
		t.Errorf("Expected default actuator timeout 10s, got %s", cfg.ActuatorTimeout)
	}
	if cfg.AltitudeCeiling != 120 {
		t.Errorf("Expected default ceiling 120, got %f", cfg.AltitudeCeiling)
	}
	if cfg.ProviderPrompt == "" {
		t.Error("Expected a default analysis prompt")
	}
	if !cfg.Geofence.Contains(52.23, 21.01) {
		t.Error("Default geofence should span the globe")
	}
}

// ========================================
// Environment Override Tests
// ========================================

func TestLoad_EnvOverrides(t *testing.T) {
	clearRelayEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("RETRY_BUDGET", "5")
	t.Setenv("PROVIDER_TIMEOUT", "5s")
	t.Setenv("ALTITUDE_CEILING", "60.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Port)
	}
	if cfg.RetryBudget != 5 {
		t.Errorf("Expected retry budget 5, got %d", cfg.RetryBudget)
	}
	if cfg.ProviderTimeout != 5*time.Second {
		t.Errorf("Expected provider timeout 5s, got %s", cfg.ProviderTimeout)
	}
	if cfg.AltitudeCeiling != 60.5 {
		t.Errorf("Expected ceiling 60.5, got %f", cfg.AltitudeCeiling)
	}
}

func TestLoad_InvalidEnvFallsBackToDefault(t *testing.T) {
	clearRelayEnv(t)
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 3103 {
		t.Errorf("Expected default port on bad env value, got %d", cfg.Port)
	}
}

// ========================================
// YAML Overlay Tests
// ========================================

func TestLoad_YAMLOverlay(t *testing.T) {
	clearRelayEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "relay.yaml")
	yamlBody := `
port: 9000
auth_token: secret
altitude_ceiling: 80
geofence:
  min_lat: 52.0
  max_lat: 53.0
  min_lon: 20.0
  max_lon: 22.0
`
	if err := os.WriteFile(path, []byte(yamlBody), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Expected port 9000 from file, got %d", cfg.Port)
	}
	if cfg.AuthToken != "secret" {
		t.Errorf("Expected auth token from file, got %q", cfg.AuthToken)
	}
	if cfg.AltitudeCeiling != 80 {
		t.Errorf("Expected ceiling 80 from file, got %f", cfg.AltitudeCeiling)
	}
	if cfg.Geofence.Contains(54.0, 21.0) {
		t.Error("Point north of the fence should be outside")
	}
	if !cfg.Geofence.Contains(52.5, 21.0) {
		t.Error("Point inside the fence should be accepted")
	}
}

func TestLoad_MissingConfigFileFails(t *testing.T) {
	clearRelayEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Error("Expected an error for a missing config file")
	}
}

// ========================================
// Validation Tests
// ========================================

func TestLoad_InvertedGeofenceRejected(t *testing.T) {
	clearRelayEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "relay.yaml")
	yamlBody := `
geofence:
  min_lat: 50.0
  max_lat: 40.0
  min_lon: 0.0
  max_lon: 1.0
`
	if err := os.WriteFile(path, []byte(yamlBody), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Error("Expected inverted geofence to fail validation")
	}
}

func TestGeofence_Contains(t *testing.T) {
	fence := Geofence{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}

	tests := []struct {
		lat, lon float64
		want     bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{91, 0, false},
		{-91, 0, false},
		{0, 181, false},
	}

	for _, tt := range tests {
		if got := fence.Contains(tt.lat, tt.lon); got != tt.want {
			t.Errorf("Contains(%f, %f) = %v, expected %v", tt.lat, tt.lon, got, tt.want)
		}
	}
}
