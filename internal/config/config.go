package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"driveguard/common/config"

	"github.com/joho/godotenv"
)

// 事件日志存储后端
const (
	LogStoreRedis    = "redis"
	LogStorePostgres = "postgres"
	LogStoreMemory   = "memory"
)

// Config 驾驶员监控服务配置
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	Driver struct {
		VehicleID   string // 车辆标识，用于 MQTT 主题和缓存 key
		DefaultMode string // 启动时的模式，默认 STANDARD
		AutoStart   bool   // 启动后直接开启监控
	}

	Ingest struct {
		MQTTEnabled bool // 订阅 tracker 关键点帧和控制指令
	}

	LogStore struct {
		Backend string // redis | postgres | memory
		Key     string // 持久化 key，默认 driver_logs
	}

	Alert struct {
		AudioDebounce  time.Duration // DROWSY/DISTRACTED 播报间隔，默认 3 秒
		MQTTEnabled    bool          // 发布到 driveguard/{vehicle}/alerts
		WebhookURL     string        // 为空则不启用
		WebhookTimeout time.Duration
		Stream         string // Redis Stream 名，为空则不启用
		StreamMaxLen   int64
		QueueSize      int // 异步 sink 队列长度
	}

	HTTP struct {
		Addr string
	}

	Snapshot struct {
		Interval time.Duration // 状态写入 Redis 的间隔
		TTL      time.Duration
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置；envFiles 为空时尝试当前目录的 .env（不存在则忽略）
// 已存在的环境变量优先于 .env 中的值
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("failed to load env files: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{}

	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "driveguard"
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxConns = 5
	cfg.Database.MaxIdle = 2
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.Driver.VehicleID = getEnv("VEHICLE_ID", "vehicle-001")
	cfg.Driver.DefaultMode = strings.ToUpper(getEnv("DEFAULT_MODE", "STANDARD"))
	cfg.Driver.AutoStart = getEnvBool("MONITOR_AUTOSTART", false)

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "driveguard-" + cfg.Driver.VehicleID
	cfg.MQTT.ConnectTimeout = 10 * time.Second
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Ingest.MQTTEnabled = getEnvBool("INGEST_MQTT_ENABLED", true)

	cfg.LogStore.Backend = strings.ToLower(getEnv("LOG_STORE_BACKEND", LogStoreRedis))
	cfg.LogStore.Key = getEnv("LOG_STORE_KEY", "driver_logs")

	cfg.Alert.AudioDebounce = time.Duration(getEnvInt("ALERT_AUDIO_DEBOUNCE_MS", 3000)) * time.Millisecond
	cfg.Alert.MQTTEnabled = getEnvBool("ALERT_MQTT_ENABLED", true)
	cfg.Alert.WebhookURL = getEnv("ALERT_WEBHOOK_URL", "")
	cfg.Alert.WebhookTimeout = time.Duration(getEnvInt("ALERT_WEBHOOK_TIMEOUT_MS", 5000)) * time.Millisecond
	cfg.Alert.Stream = getEnv("ALERT_STREAM", "")
	cfg.Alert.StreamMaxLen = int64(getEnvInt("ALERT_STREAM_MAXLEN", 10000))
	cfg.Alert.QueueSize = getEnvInt("ALERT_QUEUE_SIZE", 32)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8090")

	cfg.Snapshot.Interval = time.Duration(getEnvInt("SNAPSHOT_INTERVAL_MS", 1000)) * time.Millisecond
	cfg.Snapshot.TTL = time.Duration(getEnvInt("SNAPSHOT_TTL", 30)) * time.Second

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验取值范围
func (c *Config) Validate() error {
	switch c.LogStore.Backend {
	case LogStoreRedis, LogStorePostgres, LogStoreMemory:
	default:
		return fmt.Errorf("invalid LOG_STORE_BACKEND %q", c.LogStore.Backend)
	}
	switch c.Driver.DefaultMode {
	case "STANDARD", "PROFESSIONAL", "EMERGENCY":
	default:
		return fmt.Errorf("invalid DEFAULT_MODE %q", c.Driver.DefaultMode)
	}
	if c.Driver.VehicleID == "" || strings.ContainsAny(c.Driver.VehicleID, "/+#") {
		return fmt.Errorf("invalid VEHICLE_ID %q", c.Driver.VehicleID)
	}
	if c.Snapshot.Interval <= 0 {
		return fmt.Errorf("SNAPSHOT_INTERVAL_MS must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
