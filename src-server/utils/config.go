package utils

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Config struct {
	port string
	dev  bool

	jwtSecret  string
	sessionTTL time.Duration
	admins     map[string]string

	location *time.Location

	sqlitePath    string
	storageDriver string
	badgerDir     string

	remoteDSN     string
	remoteTimeout time.Duration
	redisAddr     string
	redisPassword string

	discordWebhookID    string
	discordWebhookToken string

	minioEndpoint  string
	minioAccessKey string
	minioSecretKey string
	minioBucket    string
	minioUseSSL    bool
	uploadDir      string

	metricCollectionInterval time.Duration
	contentPollInterval      time.Duration
	dashboardRefreshInterval time.Duration
	scanSampleInterval       time.Duration
	rateLimitPerMinute       int
}

func envDuration(name string, def time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		slog.Debug("env", name, def)
		return def
	}
	duration, err := time.ParseDuration(raw)
	if err != nil || duration <= 0 {
		slog.Error("invalid duration", "name", name, "value", raw, "error", err)
		os.Exit(1)
	}
	slog.Debug("env", name, raw, "duration", duration)
	return duration
}

func envSecret(name string) string {
	secret := os.Getenv(name)
	if len(secret) > 3 {
		slog.Debug("env", name, secret[0:3]+"...")
	}
	return secret
}

func NewConfig() *Config {
	return &Config{
		port: func() string {
			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			slog.Debug("env", "PORT", port)
			return port
		}(),
		dev: func() bool {
			dev := os.Getenv("DEV") != ""
			slog.Debug("env", "DEV", dev)
			return dev
		}(),

		jwtSecret: func() string {
			secret := envSecret("JWT_SECRET")
			if secret == "" {
				slog.Warn("JWT_SECRET is not set, sessions won't survive a restart")
				secret = uuid.NewString()
			}
			return secret
		}(),
		sessionTTL: envDuration("SESSION_TTL", 24*time.Hour),
		admins: func() map[string]string {
			admins := make(map[string]string)
			for _, pair := range strings.Split(os.Getenv("ADMIN_ACCOUNTS"), ",") {
				id, password, ok := strings.Cut(strings.TrimSpace(pair), ":")
				if !ok || id == "" || password == "" {
					continue
				}
				admins[id] = password
			}
			if len(admins) == 0 {
				slog.Warn("ADMIN_ACCOUNTS is not set, nobody can sign in to the dashboard")
			}
			slog.Debug("env", "ADMIN_ACCOUNTS", len(admins))
			return admins
		}(),

		location: func() *time.Location {
			timezoneStr := os.Getenv("TIMEZONE")
			var loc *time.Location
			var err error
			switch timezoneStr {
			case "":
				slog.Warn("TIMEZONE is not set, using local timezone", "timezone", time.Local)
				loc = time.Local
			case "UTC":
				loc = time.UTC
			default:
				loc, err = time.LoadLocation(timezoneStr)
				if err != nil {
					slog.Error("invalid timezone", "timezone", timezoneStr, "error", err)
					os.Exit(1)
				}
			}
			slog.Debug("env", "TIMEZONE", timezoneStr)
			return loc
		}(),

		sqlitePath: func() string {
			path := os.Getenv("SQLITE_PATH")
			if path == "" {
				path = "./sqlite.db"
			}
			slog.Debug("env", "SQLITE_PATH", path)
			return filepath.Clean(path)
		}(),
		storageDriver: func() string {
			driver := strings.ToLower(os.Getenv("STORAGE_DRIVER"))
			switch driver {
			case "":
				driver = "bun"
			case "bun", "badger":
			default:
				slog.Error("STORAGE_DRIVER must be bun or badger", "value", driver)
				os.Exit(1)
			}
			slog.Debug("env", "STORAGE_DRIVER", driver)
			return driver
		}(),
		badgerDir: func() string {
			dir := os.Getenv("BADGER_DIR")
			if dir == "" {
				dir = "./badger"
			}
			slog.Debug("env", "BADGER_DIR", dir)
			return dir
		}(),

		remoteDSN: func() string {
			dsn := os.Getenv("REMOTE_DSN")
			if dsn == "" {
				slog.Warn("REMOTE_DSN is not set, running on local storage only")
			}
			return dsn
		}(),
		remoteTimeout: envDuration("REMOTE_TIMEOUT", 5*time.Second),
		redisAddr: func() string {
			addr := os.Getenv("REDIS_ADDR")
			slog.Debug("env", "REDIS_ADDR", addr)
			return addr
		}(),
		redisPassword: envSecret("REDIS_PASSWORD"),

		discordWebhookID: func() string {
			id := os.Getenv("DISCORD_WEBHOOK_ID")
			slog.Debug("env", "DISCORD_WEBHOOK_ID", id)
			return id
		}(),
		discordWebhookToken: envSecret("DISCORD_WEBHOOK_TOKEN"),

		minioEndpoint: func() string {
			endpoint := os.Getenv("MINIO_ENDPOINT")
			slog.Debug("env", "MINIO_ENDPOINT", endpoint)
			return endpoint
		}(),
		minioAccessKey: envSecret("MINIO_ACCESS_KEY"),
		minioSecretKey: envSecret("MINIO_SECRET_KEY"),
		minioBucket: func() string {
			bucket := os.Getenv("MINIO_BUCKET")
			if bucket == "" {
				bucket = "invitation"
			}
			slog.Debug("env", "MINIO_BUCKET", bucket)
			return bucket
		}(),
		minioUseSSL: func() bool {
			useSSL, _ := strconv.ParseBool(os.Getenv("MINIO_USE_SSL"))
			slog.Debug("env", "MINIO_USE_SSL", useSSL)
			return useSSL
		}(),
		uploadDir: func() string {
			dir := os.Getenv("UPLOAD_DIR")
			if dir == "" {
				dir = "./uploads"
			}
			slog.Debug("env", "UPLOAD_DIR", dir)
			return filepath.Clean(dir)
		}(),

		metricCollectionInterval: envDuration("METRIC_COLLECTION_INTERVAL", 5*time.Second),
		contentPollInterval:      envDuration("CONTENT_POLL_INTERVAL", time.Second),
		dashboardRefreshInterval: envDuration("DASHBOARD_REFRESH_INTERVAL", 5*time.Second),
		scanSampleInterval:       envDuration("SCAN_SAMPLE_INTERVAL", 100*time.Millisecond),
		rateLimitPerMinute: func() int {
			raw := os.Getenv("RATE_LIMIT_PER_MINUTE")
			if raw == "" {
				return 20
			}
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				slog.Error("invalid RATE_LIMIT_PER_MINUTE", "value", raw, "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "RATE_LIMIT_PER_MINUTE", n)
			return n
		}(),
	}
}

// Get PORT env, default to 8080
func (c *Config) GetPort() string {
	return c.port
}

// Get DEV env
func (c *Config) IsDev() bool {
	return c.dev
}

// Get JWT_SECRET env
func (c *Config) GetJWTSecret() string {
	return c.jwtSecret
}

// Get SESSION_TTL env, default to 24h
func (c *Config) GetSessionTTL() time.Duration {
	return c.sessionTTL
}

// Get ADMIN_ACCOUNTS env as id -> password
func (c *Config) GetAdminAccounts() map[string]string {
	return c.admins
}

// Get TIMEZONE env
func (c *Config) GetLocation() *time.Location {
	return c.location
}

func (c *Config) GetSQLitePath() string {
	return c.sqlitePath
}

func (c *Config) GetStorageDriver() string {
	return c.storageDriver
}

func (c *Config) GetBadgerDir() string {
	return c.badgerDir
}

// Get REMOTE_DSN env, empty disables the remote store
func (c *Config) GetRemoteDSN() string {
	return c.remoteDSN
}

func (c *Config) GetRemoteTimeout() time.Duration {
	return c.remoteTimeout
}

func (c *Config) GetRedisAddr() string {
	return c.redisAddr
}

func (c *Config) GetRedisPassword() string {
	return c.redisPassword
}

func (c *Config) GetDiscordWebhookID() string {
	return c.discordWebhookID
}

func (c *Config) GetDiscordWebhookToken() string {
	return c.discordWebhookToken
}

func (c *Config) GetMinioEndpoint() string {
	return c.minioEndpoint
}

func (c *Config) GetMinioAccessKey() string {
	return c.minioAccessKey
}

func (c *Config) GetMinioSecretKey() string {
	return c.minioSecretKey
}

func (c *Config) GetMinioBucket() string {
	return c.minioBucket
}

func (c *Config) GetMinioUseSSL() bool {
	return c.minioUseSSL
}

func (c *Config) GetUploadDir() string {
	return c.uploadDir
}

func (c *Config) GetMetricCollectionInterval() time.Duration {
	return c.metricCollectionInterval
}

func (c *Config) GetContentPollInterval() time.Duration {
	return c.contentPollInterval
}

func (c *Config) GetDashboardRefreshInterval() time.Duration {
	return c.dashboardRefreshInterval
}

func (c *Config) GetScanSampleInterval() time.Duration {
	return c.scanSampleInterval
}

func (c *Config) GetRateLimitPerMinute() int {
	return c.rateLimitPerMinute
}
