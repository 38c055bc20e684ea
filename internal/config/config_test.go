package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.envValue)
			assert.Equal(t, tc.expected, getEnvOrDefault(tc.key, tc.defaultVal))
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "42", 10, 42},
		{"uses default for empty", "", 10, 10},
		{"uses default for non-numeric", "abc", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tc.envValue)
			assert.Equal(t, tc.expected, getEnvAsIntOrDefault("TEST_INT", tc.defaultVal))
		})
	}
}

func TestGetEnvAsDurationOrDefault(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected time.Duration
	}{
		{"parses duration", "5s", 5 * time.Second},
		{"uses default for empty", "", time.Minute},
		{"uses default for garbage", "soon", time.Minute},
		{"rejects negative", "-3s", time.Minute},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tc.envValue)
			assert.Equal(t, tc.expected, getEnvAsDurationOrDefault("TEST_DURATION", time.Minute))
		})
	}
}

func TestGetEnvAsListOrDefault(t *testing.T) {
	t.Setenv("TEST_LIST", " https://a.example , ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, getEnvAsListOrDefault("TEST_LIST", nil))

	t.Setenv("TEST_LIST", " , ")
	assert.Equal(t, []string{"x"}, getEnvAsListOrDefault("TEST_LIST", []string{"x"}))
}

func TestLoadClient_Defaults(t *testing.T) {
	t.Setenv("CVCHAT_ENDPOINT", "")
	t.Setenv("CVCHAT_PROBE_TIMEOUT", "")
	t.Setenv("CVCHAT_REQUEST_TIMEOUT", "")

	cfg := LoadClient()

	assert.Equal(t, "http://localhost:8080/api/ask", cfg.EndpointURL)
	assert.Equal(t, 15*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestLoad_ProviderKeysStayServerSide(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("ENV", "production")

	cfg := Load()

	assert.Equal(t, "sk-test", cfg.OpenRouterKey)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "google/gemini-2.0-flash-exp:free", cfg.OpenRouterModel)
}
