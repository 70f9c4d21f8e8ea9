// Package config loads service configuration from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the YAML config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

const defaultConfigPath = "config.yaml"

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Upload   UploadConfig   `koanf:"upload"`
	Minio    MinioConfig    `koanf:"minio"`
	Geocoder GeocoderConfig `koanf:"geocoder"`
	Kafka    KafkaConfig    `koanf:"kafka"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	PublicDir       string        `koanf:"public_dir"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	// URL wins over the individual parts when set.
	URL         string `koanf:"url"`
	Host        string `koanf:"host"`
	Port        int    `koanf:"port"`
	Name        string `koanf:"name"`
	User        string `koanf:"user"`
	Password    string `koanf:"password"`
	SSLMode     string `koanf:"sslmode"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

type UploadConfig struct {
	Driver   string `koanf:"driver"`
	Dir      string `koanf:"dir"`
	MaxBytes int64  `koanf:"max_bytes"`
}

type MinioConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	UseSSL    bool   `koanf:"use_ssl"`
	PublicURL string `koanf:"public_url"`
}

type GeocoderConfig struct {
	URL       string        `koanf:"url"`
	UserAgent string        `koanf:"user_agent"`
	Timeout   time.Duration `koanf:"timeout"`
}

type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	dbUser := os.Getenv("USER")
	if dbUser == "" {
		dbUser = "postgres"
	}

	return &Config{
		Server: ServerConfig{
			Port:            3000,
			PublicDir:       "public",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			Name:    "multimodal_demo",
			User:    dbUser,
			SSLMode: "disable",
		},
		Upload: UploadConfig{
			Driver:   StorageLocal,
			Dir:      "uploads",
			MaxBytes: 50 << 20,
		},
		Minio: MinioConfig{
			Bucket: "uploads",
		},
		Geocoder: GeocoderConfig{
			URL:       "https://nominatim.openstreetmap.org",
			UserAgent: "CoordMediaDashboard/1.0",
			Timeout:   10 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic: "dashboard.events",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

var envMappings = map[string]string{
	"port":                "server.port",
	"public_dir":          "server.public_dir",
	"shutdown_timeout":    "server.shutdown_timeout",
	"database_url":        "database.url",
	"db_host":             "database.host",
	"db_port":             "database.port",
	"db_name":             "database.name",
	"db_user":             "database.user",
	"db_password":         "database.password",
	"db_sslmode":          "database.sslmode",
	"db_auto_migrate":     "database.auto_migrate",
	"storage_driver":      "upload.driver",
	"upload_dir":          "upload.dir",
	"upload_max_bytes":    "upload.max_bytes",
	"minio_endpoint":      "minio.endpoint",
	"minio_access_key":    "minio.access_key",
	"minio_secret_key":    "minio.secret_key",
	"minio_bucket":        "minio.bucket",
	"minio_use_ssl":       "minio.use_ssl",
	"minio_public_url":    "minio.public_url",
	"geocoder_url":        "geocoder.url",
	"geocoder_user_agent": "geocoder.user_agent",
	"geocoder_timeout":    "geocoder.timeout",
	"kafka_brokers":       "kafka.brokers",
	"kafka_topic":         "kafka.topic",
	"log_level":           "logging.level",
	"log_format":          "logging.format",
}

// envTransformFunc maps a known environment variable to its koanf path.
// Anything else is ignored.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Load reads .env (if present), then layers defaults, the YAML file and the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

// splitList flattens comma-joined entries and drops blanks.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, p := range strings.Split(item, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("upload.max_bytes must be positive, got: %d", c.Upload.MaxBytes))
	}

	switch c.Upload.Driver {
	case StorageLocal:
		if c.Upload.Dir == "" {
			errs = append(errs, errors.New("upload.dir is empty"))
		}
	case StorageMinio:
		if c.Minio.Endpoint == "" {
			errs = append(errs, errors.New("minio.endpoint is empty"))
		}
		if c.Minio.Bucket == "" {
			errs = append(errs, errors.New("minio.bucket is empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown upload.driver %q", c.Upload.Driver))
	}

	if c.Geocoder.URL == "" {
		errs = append(errs, errors.New("geocoder.url is empty"))
	}
	if c.Geocoder.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("geocoder.timeout must be positive, got: %v", c.Geocoder.Timeout))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is empty"))
	}
	if c.Database.URL == "" && c.Database.Name == "" {
		errs = append(errs, errors.New("database.name is empty"))
	}

	return errors.Join(errs...)
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else {
		u.User = url.User(d.User)
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}
