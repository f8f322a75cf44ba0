package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	SamplesDir     string        `yaml:"samples_dir"`
	CORSOrigin     string        `yaml:"cors_origin"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type StorageConfig struct {
	UploadsDir string `yaml:"uploads_dir"`
	ResultsDir string `yaml:"results_dir"`
	IDStrategy string `yaml:"id_strategy"` // uuid | ulid
}

type InferenceConfig struct {
	// Command is the executable plus any leading args, e.g. ["python3", "/opt/rbs/processor.py"].
	Command         []string      `yaml:"command"`
	WorkDir         string        `yaml:"work_dir"`
	Timeout         time.Duration `yaml:"timeout"`
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max concurrent processes
	Models          []string      `yaml:"models"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // memory | sqlite | postgres
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL        string        `yaml:"url"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	TTL        time.Duration `yaml:"ttl"`
	RateLimit  int           `yaml:"rate_limit"` // uploads per window per client, 0 disables
	RateWindow time.Duration `yaml:"rate_window"`
}

type AuthConfig struct {
	HMACSecret string        `yaml:"hmac_secret"` // empty disables upload auth
	TokenTTL   time.Duration `yaml:"token_ttl"`
}

type RetentionConfig struct {
	MaxAge   time.Duration `yaml:"max_age"` // 0 disables the sweeper
	Interval time.Duration `yaml:"interval"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Storage   StorageConfig   `yaml:"storage"`
	Inference InferenceConfig `yaml:"inference"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Retention RetentionConfig `yaml:"retention"`

	Runtime RuntimeConfig `yaml:"-"`
}

// MinSecretLen is the minimum HMAC secret length (256 bits).
const MinSecretLen = 32

// LoadConfig reads the YAML file at path, overlays RBS_* environment
// variables (a .env file in the working directory is loaded first) and
// applies defaults. A missing file is not an error.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RBS_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("RBS_UPLOADS_DIR"); v != "" {
		cfg.Storage.UploadsDir = v
	}
	if v := os.Getenv("RBS_RESULTS_DIR"); v != "" {
		cfg.Storage.ResultsDir = v
	}
	if v := os.Getenv("RBS_INFERENCE_COMMAND"); v != "" {
		cfg.Inference.Command = strings.Fields(v)
	}
	if v := os.Getenv("RBS_INFERENCE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Inference.Timeout = d
		}
	}
	if v := os.Getenv("RBS_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("RBS_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("RBS_REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("RBS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("RBS_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Redis.DB = n
		}
	}
	if v := os.Getenv("RBS_AUTH_SECRET"); v != "" {
		cfg.Auth.HMACSecret = v
	}
	if v := os.Getenv("RBS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":3000"
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = 100 << 20
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = uploadReadTimeout(cfg.Server.MaxUploadBytes)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Storage.UploadsDir == "" {
		cfg.Storage.UploadsDir = "public/uploads"
	}
	if cfg.Storage.ResultsDir == "" {
		cfg.Storage.ResultsDir = "public/results"
	}
	if cfg.Storage.IDStrategy == "" {
		cfg.Storage.IDStrategy = "uuid"
	}
	if len(cfg.Inference.Command) == 0 {
		cfg.Inference.Command = DefaultCommand()
	}
	if cfg.Inference.Timeout <= 0 {
		cfg.Inference.Timeout = 10 * time.Minute
	}
	if cfg.Inference.ConcurrentLimit <= 0 {
		cfg.Inference.ConcurrentLimit = 2
	}
	if len(cfg.Inference.Models) == 0 {
		cfg.Inference.Models = []string{"daytime", "nighttime"}
	}
	// The write deadline runs from the end of the headers, so it spans the
	// body read plus the inference deadline.
	if floor := cfg.Server.ReadTimeout + cfg.Inference.Timeout; cfg.Server.WriteTimeout <= floor {
		cfg.Server.WriteTimeout = floor + 30*time.Second
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "memory"
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.URL == "" {
		cfg.Database.URL = "data/jobs.db"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Redis.RateWindow <= 0 {
		cfg.Redis.RateWindow = time.Minute
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Retention.Interval <= 0 {
		cfg.Retention.Interval = time.Hour
	}
}

func validate(cfg *Config) error {
	switch cfg.Database.Driver {
	case "memory", "sqlite":
	case "postgres":
		if cfg.Database.URL == "" {
			return errors.New("database.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", cfg.Database.Driver)
	}
	switch cfg.Storage.IDStrategy {
	case "uuid", "ulid":
	default:
		return fmt.Errorf("storage.id_strategy %q is not supported", cfg.Storage.IDStrategy)
	}
	if cfg.Auth.HMACSecret != "" && len(cfg.Auth.HMACSecret) < MinSecretLen {
		return fmt.Errorf("auth.hmac_secret must be at least %d bytes", MinSecretLen)
	}
	if cfg.Storage.UploadsDir == cfg.Storage.ResultsDir {
		return errors.New("storage.uploads_dir and storage.results_dir must differ")
	}
	return nil
}

// DefaultCommand runs the bundled stand-in processor from the repo root.
// Production deployments point inference.command at the real processor.
func DefaultCommand() []string { return []string{"go", "run", "./cmd/fakeproc"} }

// MinUploadRate is the slowest client upload, in bytes per second, the
// default read timeout still accommodates at the maximum upload size.
const MinUploadRate = 512 << 10

func uploadReadTimeout(maxBytes int64) time.Duration {
	d := time.Duration(maxBytes/MinUploadRate) * time.Second
	if d < 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
