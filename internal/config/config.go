// Environment-driven configuration.
//
// A .env file in the working directory is loaded first when present;
// variables already set in the process environment win.

package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	AnalysisAPI AnalysisAPIConfig
	History     HistoryConfig
	Auth        AuthConfig
	GenAI       GenAIConfig
	Postgres    PostgresConfig
	S3          S3Config
	Log         LogConfig
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	AllowCreds     bool
}

type AnalysisAPIConfig struct {
	BaseURL          string
	Timeout          string
	DefaultThreshold string
}

// HistoryConfig - local analysis history (ResultStore) settings
type HistoryConfig struct {
	Driver     string // memory | file | sqlite | postgres | s3
	Key        string
	Capacity   string
	FileRoot   string
	SQLitePath string
}

// AuthConfig - verification of tokens issued by the external auth provider
type AuthConfig struct {
	Disabled     string
	JWTSecret    string
	OIDCIssuer   string
	OIDCClientID string
}

type GenAIConfig struct {
	APIKey string
	Model  string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

type LogConfig struct {
	Level string
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		Server: ServerConfig{
			Addr:           getenv("HTTP_ADDR", ":8080"),
			AllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
			AllowCreds:     strings.EqualFold(os.Getenv("CORS_ALLOW_CREDENTIALS"), "true"),
		},
		AnalysisAPI: AnalysisAPIConfig{
			BaseURL:          getenv("ANALYSIS_API_URL", "http://localhost:8000"),
			Timeout:          getenv("ANALYSIS_API_TIMEOUT", "120s"),
			DefaultThreshold: getenv("ANALYSIS_DEFAULT_THRESHOLD", "0.75"),
		},
		History: HistoryConfig{
			Driver:     getenv("HISTORY_DRIVER", "file"),
			Key:        getenv("HISTORY_KEY", "analysisResults"),
			Capacity:   getenv("HISTORY_CAPACITY", "10"),
			FileRoot:   getenv("HISTORY_FILE_ROOT", "./data"),
			SQLitePath: getenv("HISTORY_SQLITE_PATH", "./data/history.db"),
		},
		Auth: AuthConfig{
			Disabled:     os.Getenv("AUTH_DISABLED"),
			JWTSecret:    os.Getenv("AUTH_JWT_SECRET"),
			OIDCIssuer:   os.Getenv("AUTH_OIDC_ISSUER"),
			OIDCClientID: os.Getenv("AUTH_OIDC_CLIENT_ID"),
		},
		GenAI: GenAIConfig{
			APIKey: os.Getenv("AI_API_KEY"),
			Model:  getenv("GENAI_MODEL", "gemini-2.0-flash"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("HISTORY_S3_BUCKET"),
			Region:          getenv("HISTORY_S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("HISTORY_S3_ENDPOINT"),
			PathStyle:       strings.EqualFold(os.Getenv("HISTORY_S3_PATH_STYLE"), "true"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
		Log: LogConfig{
			Level: getenv("LOG_LEVEL", "INFO"),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
