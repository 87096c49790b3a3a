package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultFileHostSecret signs file links when FILEHOST_SECRET is unset.
const DefaultFileHostSecret = "cablevision-dev-secret-change-me"

type Config struct {
	HTTPAddr      string
	PublicBaseURL string
	CORSOrigins   []string
	GelfAddr      string
	HTTPTimeout   time.Duration
	SessionTTL    time.Duration

	MapEnabled      bool
	UploadURL       string
	SignatureWidth  int
	SignatureHeight int

	EmailJSEndpoint   string
	EmailJSServiceID  string
	EmailJSTemplateID string
	EmailJSPublicKey  string
	EmailJSPrivateKey string

	FileHostEnabled bool
	FileHostSecret  string
	FileHostLinkTTL time.Duration
	OxiDBHost       string
	OxiDBPort       int
	PoolSize        int
}

// UploadsEnabled reports whether documents are forwarded to an upload
// endpoint.
func (c *Config) UploadsEnabled() bool { return c.UploadURL != "" }

// Load reads the configuration from the environment. Values from a .env
// file in the working directory (or ENV_FILE) are applied first without
// overriding variables that are already set.
func Load() *Config {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err == nil {
		log.Printf("Loaded environment from %s", envFile)
	} else if !os.IsNotExist(err) {
		log.Printf("Warning: could not read %s: %v", envFile, err)
	}

	return &Config{
		HTTPAddr:      getEnv("APP_ADDR", ":8080"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		CORSOrigins:   getEnvList("CORS_ORIGINS", []string{"*"}),
		GelfAddr:      getEnv("GELF_ADDR", ""),
		HTTPTimeout:   getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		SessionTTL:    getEnvDuration("SESSION_TTL", 30*time.Minute),

		MapEnabled:      getEnvBool("MAP_ENABLED", false),
		UploadURL:       getEnv("UPLOAD_URL", ""),
		SignatureWidth:  getEnvInt("SIGNATURE_WIDTH", 400),
		SignatureHeight: getEnvInt("SIGNATURE_HEIGHT", 200),

		EmailJSEndpoint:   getEnv("EMAILJS_ENDPOINT", "https://api.emailjs.com/api/v1.0/email/send"),
		EmailJSServiceID:  getEnv("EMAILJS_SERVICE_ID", ""),
		EmailJSTemplateID: getEnv("EMAILJS_TEMPLATE_ID", ""),
		EmailJSPublicKey:  getEnv("EMAILJS_PUBLIC_KEY", ""),
		EmailJSPrivateKey: getEnv("EMAILJS_PRIVATE_KEY", ""),

		FileHostEnabled: getEnvBool("FILEHOST_ENABLED", false),
		FileHostSecret:  getEnv("FILEHOST_SECRET", DefaultFileHostSecret),
		FileHostLinkTTL: getEnvDuration("FILEHOST_LINK_TTL", 30*24*time.Hour),
		OxiDBHost:       getEnv("OXIDB_HOST", "127.0.0.1"),
		OxiDBPort:       getEnvInt("OXIDB_PORT", 4444),
		PoolSize:        getEnvInt("OXIDB_POOL_SIZE", 3),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("Warning: %s=%q is not a non-negative integer, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Warning: %s=%q is not a boolean, using %v", key, v, fallback)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Warning: %s=%q is not a duration, using %s", key, v, fallback)
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
