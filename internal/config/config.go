package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
}

type QueuesConfig struct {
	ClaimInterval time.Duration
}

type StorageConfig struct {
	Endpoint         string
	AccessKey        string
	SecretKey        string
	BucketOriginals  string
	BucketThumbnails string
	UseSSL           bool
	Region           string
}

type SecurityConfig struct {
	JWTAccessSecret string
	JWTAccessTTL    time.Duration
	SessionTTL      time.Duration
	EncryptionKey   string
}

// LifecycleConfig drives the soft-delete state machine. GraceWindow is the
// interval between mark-for-deletion and purge eligibility. AutoDeleteWindow
// is the collection expiry clock armed when the first photo is attached.
// GuestTTL bounds how long a guest account stays usable.
type LifecycleConfig struct {
	GraceWindow      time.Duration
	AutoDeleteWindow time.Duration
	GuestTTL         time.Duration
	SweepCron        string
	SweepBatchSize   int
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Queues           QueuesConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Lifecycle        LifecycleConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("STOYANOGRAPHY")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "gallery:tasks")
	v.SetDefault("redis.group", "gallery-workers")
	v.SetDefault("redis.consumer", "worker-1")

	v.SetDefault("queues.claiminterval", "60s")

	v.SetDefault("storage.bucketoriginals", "gallery-originals")
	v.SetDefault("storage.bucketthumbnails", "gallery-thumbnails")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.jwtaccessttl", "15m")
	v.SetDefault("security.sessionttl", "168h") // 7 days

	v.SetDefault("lifecycle.gracewindow", "168h")      // 7 days
	v.SetDefault("lifecycle.autodeletewindow", "720h") // 30 days after delivery
	v.SetDefault("lifecycle.guestttl", "72h")
	v.SetDefault("lifecycle.sweepcron", "0 0 * * * *") // hourly, with seconds field
	v.SetDefault("lifecycle.sweepbatchsize", 200)
}
