package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server holds everything the portfolio server reads from the environment.
type Server struct {
	Port     string
	Env      string
	LogLevel string

	DatabasePath string

	// Inference providers. Keys never leave the server.
	OpenRouterKey     string
	OpenRouterBaseURL string
	OpenRouterModel   string
	SiteURL           string
	SiteTitle         string
	GeminiKey         string
	GeminiModel       string

	// CVPath optionally replaces the built-in CV text.
	CVPath string

	AskRatePerMinute int
	AskBurst         int
	AllowedOrigins   []string

	AdminUsername string
	AdminPassword string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	ToEmail  string
}

// Client configures the terminal chat client.
type Client struct {
	EndpointURL    string
	Model          string
	ContextPath    string
	ProbeTimeout   time.Duration
	RequestTimeout time.Duration
}

func Load() *Server {
	// Load .env file if it exists
	godotenv.Load()

	return &Server{
		Port:              getEnvOrDefault("PORT", "8080"),
		Env:               getEnvOrDefault("ENV", "development"),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		DatabasePath:      getEnvOrDefault("DATABASE_PATH", "portfolio.db"),
		OpenRouterKey:     os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterModel:   getEnvOrDefault("OPENROUTER_MODEL", "google/gemini-2.0-flash-exp:free"),
		SiteURL:           getEnvOrDefault("SITE_URL", "http://localhost:8080"),
		SiteTitle:         getEnvOrDefault("SITE_TITLE", "Portfolio CV Assistant"),
		GeminiKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		CVPath:            os.Getenv("CV_PATH"),
		AskRatePerMinute:  getEnvAsIntOrDefault("ASK_RATE_PER_MINUTE", 10),
		AskBurst:          getEnvAsIntOrDefault("ASK_BURST", 3),
		AllowedOrigins:    getEnvAsListOrDefault("ALLOWED_ORIGINS", []string{"http://localhost:8080"}),
		AdminUsername:     os.Getenv("ADMIN_USERNAME"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		SMTPHost:          getEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:          getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUser:          os.Getenv("SMTP_USER"),
		SMTPPass:          os.Getenv("SMTP_PASS"),
		ToEmail:           os.Getenv("TO_EMAIL"),
	}
}

// LoadClient reads client defaults. Flags override these in cmd/cvchat.
func LoadClient() *Client {
	godotenv.Load()

	return &Client{
		EndpointURL:    getEnvOrDefault("CVCHAT_ENDPOINT", "http://localhost:8080/api/ask"),
		Model:          os.Getenv("CVCHAT_MODEL"),
		ContextPath:    os.Getenv("CVCHAT_CONTEXT_FILE"),
		ProbeTimeout:   getEnvAsDurationOrDefault("CVCHAT_PROBE_TIMEOUT", 15*time.Second),
		RequestTimeout: getEnvAsDurationOrDefault("CVCHAT_REQUEST_TIMEOUT", 30*time.Second),
	}
}

// IsProduction reports whether gin should run in release mode.
func (s *Server) IsProduction() bool {
	return s.Env == "production"
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func getEnvAsListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
