package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Assistant  AssistantConfig  `mapstructure:"assistant"`
	Datasets   DatasetsConfig   `mapstructure:"datasets"`
	Processing ProcessingConfig `mapstructure:"processing"`
	Upload     UploadConfig     `mapstructure:"upload"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// DatabaseConfig selects and tunes the gorm backend.
// Driver is "sqlite" (default) or "postgres".
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
	return c.Path
}

// StorageConfig configures where uploaded files land.
// Type "local" writes under LocalDir; "s3" talks to any S3 compatible endpoint
// (AWS, R2, MinIO).
type StorageConfig struct {
	Type      string `mapstructure:"type"`
	LocalDir  string `mapstructure:"local_dir"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

// DatasetsConfig picks the fetch source used by the store's load operation.
type DatasetsConfig struct {
	Source       string `mapstructure:"source"` // builtin, manifest, database
	ManifestPath string `mapstructure:"manifest_path"`
	Mirror       bool   `mapstructure:"mirror"` // write every store event to the database
}

// ProcessingConfig tunes the simulated processing stage that follows an upload.
type ProcessingConfig struct {
	Delay       time.Duration `mapstructure:"delay"`
	MinScore    int           `mapstructure:"min_score"`
	MaxScore    int           `mapstructure:"max_score"`
	FailureRate float64       `mapstructure:"failure_rate"`
}

type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// Validate rejects settings that cannot work at runtime.
func (c *Config) Validate() error {
	var errs []error
	switch c.Datasets.Source {
	case "builtin", "database":
	case "manifest":
		if c.Datasets.ManifestPath == "" {
			errs = append(errs, errors.New("datasets.manifest_path is required for the manifest source"))
		}
	default:
		errs = append(errs, fmt.Errorf("datasets.source: unknown source %q", c.Datasets.Source))
	}
	p := c.Processing
	if p.MinScore < 0 || p.MaxScore > 100 || p.MinScore > p.MaxScore {
		errs = append(errs, fmt.Errorf("processing: score range [%d,%d] must lie within [0,100]", p.MinScore, p.MaxScore))
	}
	if p.FailureRate < 0 || p.FailureRate > 1 {
		errs = append(errs, fmt.Errorf("processing.failure_rate %v must be between 0 and 1", p.FailureRate))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("upload.max_bytes must be positive"))
	}
	if err := c.Assistant.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Load reads configuration from file and environment.
// An empty configPath searches ./configs and the working directory for config.yaml.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and deployment specific values
	_ = v.BindEnv("database.driver", "DB_DRIVER")
	_ = v.BindEnv("database.host", "DB_HOST")
	_ = v.BindEnv("database.user", "DB_USER")
	_ = v.BindEnv("database.password", "DB_PASSWORD")
	_ = v.BindEnv("database.dbname", "DB_NAME")
	_ = v.BindEnv("storage.type", "STORAGE_TYPE")
	_ = v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	_ = v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	_ = v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	_ = v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	_ = v.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	_ = v.BindEnv("assistant.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("assistant.base_url", "OPENAI_BASE_URL")
	_ = v.BindEnv("assistant.model", "ASSISTANT_MODEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Assistant.ResolveEnvVars()

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/insights.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_dir", "./data/uploads")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "datasets")
	v.SetDefault("storage.region", "auto")

	v.SetDefault("assistant.provider", "rules")
	v.SetDefault("assistant.model", "gpt-4o-mini")
	v.SetDefault("assistant.base_url", "https://api.openai.com/v1")
	v.SetDefault("assistant.timeout", 30*time.Second)

	v.SetDefault("datasets.source", "builtin")
	v.SetDefault("datasets.manifest_path", "./data/datasets.jsonl")
	v.SetDefault("datasets.mirror", false)

	v.SetDefault("processing.delay", 5*time.Second)
	v.SetDefault("processing.min_score", 70)
	v.SetDefault("processing.max_score", 99)
	v.SetDefault("processing.failure_rate", 0.0)

	v.SetDefault("upload.max_bytes", 100<<20)
}
