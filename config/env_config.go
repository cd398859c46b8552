package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type EnvConfig struct {
	Postgres struct {
		Host     string
		Database string
		Username string
		Password string
		Port     string
	}
	Redis struct {
		Password string
		Database int
		Host     string
		Port     string
	}
	RabbitMQ struct {
		Host     string
		Port     string
		Username string
		Password string
	}
	Minio struct {
		Endpoint     string
		RootUser     string
		RootPassword string
		MediaBucket  string
		PublicBase   string // base URL the stored media is served from
	}
	Instagram struct {
		GraphAPIBase  string
		APIVersion    string
		AccountMapRaw string
		PollInterval  time.Duration
		PollTimeout   time.Duration
	}
	Scheduler struct {
		TickInterval time.Duration
		TickLimit    int
	}
	JWT struct {
		SecretKey string
		Expire    int
	}
	CORS struct {
		AllowDomains string
	}
	Auth struct {
		AdminAPIKey string
		OpenMode    bool
	}
	Grafana struct {
		OTLPEndpoint string
		ServiceName  string
	}
	Environment struct {
		Mode string
	}
	Port string
}

func LoadEnvConfig() *EnvConfig {
	var config EnvConfig

	// Postgres
	config.Postgres.Host = os.Getenv("PGPOOL_HOST")
	config.Postgres.Database = os.Getenv("PGPOOL_DB")
	config.Postgres.Username = os.Getenv("PGPOOL_USER")
	config.Postgres.Password = os.Getenv("PGPOOL_PASSWORD")
	config.Postgres.Port = os.Getenv("PGPOOL_PORT")
	if config.Postgres.Port == "" {
		config.Postgres.Port = "5432"
	}

	// Redis
	config.Redis.Password = os.Getenv("REDIS_PASSWORD")
	config.Redis.Database, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	config.Redis.Host = os.Getenv("REDIS_HOST")
	config.Redis.Port = os.Getenv("REDIS_PORT")
	if config.Redis.Port == "" {
		config.Redis.Port = "6379"
	}

	// RabbitMQ
	config.RabbitMQ.Host = os.Getenv("RABBITMQ_HOST")
	if config.RabbitMQ.Host == "" {
		config.RabbitMQ.Host = "localhost"
	}
	config.RabbitMQ.Port = os.Getenv("RABBITMQ_PORT")
	if config.RabbitMQ.Port == "" {
		config.RabbitMQ.Port = "5672"
	}
	config.RabbitMQ.Username = os.Getenv("RABBITMQ_USER")
	if config.RabbitMQ.Username == "" {
		config.RabbitMQ.Username = "guest"
	}
	config.RabbitMQ.Password = os.Getenv("RABBITMQ_PASSWORD")
	if config.RabbitMQ.Password == "" {
		config.RabbitMQ.Password = "guest"
	}

	// MinIO
	config.Minio.Endpoint = os.Getenv("MINIO_ENDPOINT")
	config.Minio.RootUser = os.Getenv("MINIO_ROOT_USER")
	config.Minio.RootPassword = os.Getenv("MINIO_ROOT_PASSWORD")
	config.Minio.MediaBucket = os.Getenv("MINIO_MEDIA_BUCKET")
	if config.Minio.MediaBucket == "" {
		config.Minio.MediaBucket = "media"
	}
	config.Minio.PublicBase = strings.TrimRight(os.Getenv("MEDIA_PUBLIC_BASE_URL"), "/")

	// Instagram Graph API
	config.Instagram.GraphAPIBase = os.Getenv("IG_GRAPH_API_BASE")
	if config.Instagram.GraphAPIBase == "" {
		config.Instagram.GraphAPIBase = "https://graph.facebook.com"
	}
	config.Instagram.APIVersion = os.Getenv("IG_GRAPH_API_VERSION")
	if config.Instagram.APIVersion == "" {
		config.Instagram.APIVersion = "v21.0"
	}
	config.Instagram.AccountMapRaw = os.Getenv("IG_ACCOUNT_MAP_JSON")
	if config.Instagram.AccountMapRaw == "" {
		config.Instagram.AccountMapRaw = os.Getenv("IG_ACCOUNT_MAP")
	}
	config.Instagram.PollInterval = durationFromEnv("IG_POLL_INTERVAL", 3*time.Second)
	config.Instagram.PollTimeout = durationFromEnv("IG_POLL_TIMEOUT", 180*time.Second)

	// Scheduler
	config.Scheduler.TickInterval = durationFromEnv("SCHEDULER_TICK_INTERVAL", 60*time.Second)
	config.Scheduler.TickLimit, _ = strconv.Atoi(os.Getenv("SCHEDULER_TICK_LIMIT"))
	if config.Scheduler.TickLimit <= 0 {
		config.Scheduler.TickLimit = 20
	}

	// JWT
	config.JWT.SecretKey = os.Getenv("JWT_SECRET_KEY")
	if val := os.Getenv("JWT_EXPIRE"); val != "" {
		config.JWT.Expire, _ = strconv.Atoi(val)
	}
	if config.JWT.Expire == 0 {
		config.JWT.Expire = 3600 * 12
	}

	config.CORS.AllowDomains = os.Getenv("ALLOWED_DOMAINS")

	config.Auth.AdminAPIKey = os.Getenv("ADMIN_API_KEY")
	config.Auth.OpenMode = os.Getenv("AUTH_OPEN_MODE") == "true"

	// Grafana/OpenTelemetry
	grafanaEndpoint := os.Getenv("GRAFANA_OTLP_ENDPOINT")
	if strings.HasPrefix(grafanaEndpoint, "https://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "https://")
	} else if strings.HasPrefix(grafanaEndpoint, "http://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "http://")
	} else {
		config.Grafana.OTLPEndpoint = grafanaEndpoint
	}
	config.Grafana.ServiceName = os.Getenv("SERVICE_NAME")
	if config.Grafana.ServiceName == "" {
		config.Grafana.ServiceName = "gramflow"
	}

	config.Environment.Mode = os.Getenv("DEPLOY_ENV")
	if config.Environment.Mode == "" {
		config.Environment.Mode = "development"
	}

	config.Port = os.Getenv("PORT")
	if config.Port == "" {
		config.Port = "8080"
	}

	return &config
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
