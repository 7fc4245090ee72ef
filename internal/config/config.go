package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Qdrant   QdrantConfig
	Gemini   GeminiConfig
	Storage  StorageConfig
	Report   ReportConfig
	Workflow WorkflowConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type QdrantConfig struct {
	Enabled    bool
	URL        string
	APIKey     string
	Collection string
}

type GeminiConfig struct {
	APIKey       string
	APIKeyFile   string
	Model        string
	EmbedModel   string
	MaxLogLength int
}

type StorageConfig struct {
	Driver      string
	FilePath    string
	MaxFileSize int64
}

type ReportConfig struct {
	Enabled    bool
	Dir        string
	ChromePath string
}

type WorkflowConfig struct {
	TickInterval  time.Duration
	GracePeriod   time.Duration
	SessionTTL    time.Duration
	SweepInterval time.Duration
}

var defaults = map[string]any{
	"PORT":                    "3000",
	"ENV":                     "development",
	"DB_HOST":                 "localhost",
	"DB_PORT":                 "5432",
	"DB_USER":                 "postgres",
	"DB_PASSWORD":             "postgres",
	"DB_NAME":                 "ats_scanner",
	"QDRANT_ENABLED":          false,
	"QDRANT_URL":              "http://localhost:6334",
	"QDRANT_API_KEY":          "",
	"QDRANT_COLLECTION":       "ats_roles",
	"GEMINI_API_KEY":          "",
	"GEMINI_API_KEY_FILE":     "",
	"GEMINI_MODEL":            "gemini-2.5-flash",
	"GEMINI_EMBED_MODEL":      "text-embedding-004",
	"MAX_LOG_LENGTH":          200,
	"STORAGE_DRIVER":          StorageFile,
	"STORAGE_FILE_PATH":       "./data/storage.json",
	"MAX_FILE_SIZE":           int64(5 * 1024 * 1024),
	"REPORT_ENABLED":          false,
	"REPORT_DIR":              "./reports",
	"CHROME_PATH":             "",
	"PROGRESS_TICK_INTERVAL":  "100ms",
	"COMPLETION_GRACE_PERIOD": "600ms",
	"SESSION_TTL":             "1h",
	"SESSION_SWEEP_INTERVAL":  "1m",
}

// Load reads .env (when present), then environment variables and the
// optional config file already registered on v. A nil v uses the global
// viper instance that the CLI binds its flags to.
func Load(v *viper.Viper, logger *zap.Logger) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using environment and defaults")
	}

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
		},
		Qdrant: QdrantConfig{
			Enabled:    v.GetBool("QDRANT_ENABLED"),
			URL:        v.GetString("QDRANT_URL"),
			APIKey:     v.GetString("QDRANT_API_KEY"),
			Collection: v.GetString("QDRANT_COLLECTION"),
		},
		Gemini: GeminiConfig{
			APIKey:       v.GetString("GEMINI_API_KEY"),
			APIKeyFile:   v.GetString("GEMINI_API_KEY_FILE"),
			Model:        v.GetString("GEMINI_MODEL"),
			EmbedModel:   v.GetString("GEMINI_EMBED_MODEL"),
			MaxLogLength: v.GetInt("MAX_LOG_LENGTH"),
		},
		Storage: StorageConfig{
			Driver:      strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER"))),
			FilePath:    v.GetString("STORAGE_FILE_PATH"),
			MaxFileSize: v.GetInt64("MAX_FILE_SIZE"),
		},
		Report: ReportConfig{
			Enabled:    v.GetBool("REPORT_ENABLED"),
			Dir:        v.GetString("REPORT_DIR"),
			ChromePath: v.GetString("CHROME_PATH"),
		},
		Workflow: WorkflowConfig{
			TickInterval:  getDuration(v, "PROGRESS_TICK_INTERVAL"),
			GracePeriod:   getDuration(v, "COMPLETION_GRACE_PERIOD"),
			SessionTTL:    getDuration(v, "SESSION_TTL"),
			SweepInterval: getDuration(v, "SESSION_SWEEP_INTERVAL"),
		},
	}

	switch cfg.Storage.Driver {
	case StorageMemory, StorageFile, StoragePostgres:
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	return cfg, nil
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// GeminiAPIKey resolves the API key, preferring GEMINI_API_KEY_FILE.
func (c *Config) GeminiAPIKey() (string, error) {
	return LoadSecret(SecretSource{
		Name:  "gemini api key",
		Value: c.Gemini.APIKey,
		File:  c.Gemini.APIKeyFile,
	})
}

// getDuration falls back to the registered default when the value does not parse.
func getDuration(v *viper.Viper, key string) time.Duration {
	if d, err := time.ParseDuration(v.GetString(key)); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(fmt.Sprint(defaults[key]))
	return d
}

// SecretSource describes how to load a secret value.
type SecretSource struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration or flags.
	Value string
	// File points to a file containing the secret value. When set it takes
	// precedence over Value.
	File string
}

// LoadSecret returns the resolved secret value. The returned secret is always
// trimmed; an error is returned when neither File nor Value hold one.
func LoadSecret(src SecretSource) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		src.Value = string(data)
		src.File = file
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		if src.File != "" {
			return "", fmt.Errorf("%s file %q is empty", name, src.File)
		}
		return "", fmt.Errorf("%s is not configured", name)
	}

	return secret, nil
}
