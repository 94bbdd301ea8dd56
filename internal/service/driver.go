package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"driveguard/common/database"
	mqttcommon "driveguard/common/mqtt"
	rediscommon "driveguard/common/redis"
	"driveguard/internal/alert"
	"driveguard/internal/cache"
	"driveguard/internal/config"
	"driveguard/internal/consumer"
	"driveguard/internal/eventlog"
	"driveguard/internal/httpapi"
	"driveguard/internal/models"
	"driveguard/internal/monitor"
	"driveguard/internal/profile"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// DriverService 驾驶员监控服务（整合各层）
type DriverService struct {
	config      *config.Config
	logger      *zap.Logger
	redisClient *redis.Client
	db          *sql.DB
	mqttClient  *mqttcommon.Client

	// 各层组件
	asyncKV       *eventlog.AsyncKVStore
	logStore      *eventlog.Store
	asyncSink     *alert.AsyncSink
	monitor       *monitor.Monitor
	frameConsumer *consumer.FrameConsumer
	snapshotCache *cache.SnapshotCache
	httpServer    *http.Server

	stopOnce sync.Once
}

// NewDriverService 连接外部依赖并创建服务
func NewDriverService(cfg *config.Config, logger *zap.Logger) (*DriverService, error) {
	ctx := context.Background()

	// 1. 连接 Redis
	redisClient, err := rediscommon.Connect(ctx, &cfg.Redis)
	if err != nil {
		return nil, err
	}

	// 2. 连接数据库（仅 postgres 日志存储需要）
	var db *sql.DB
	if cfg.LogStore.Backend == config.LogStorePostgres {
		db, err = database.Connect(ctx, &cfg.Database)
		if err != nil {
			redisClient.Close()
			return nil, err
		}
	}

	// 3. 连接 MQTT
	var mqttClient *mqttcommon.Client
	if cfg.Ingest.MQTTEnabled || cfg.Alert.MQTTEnabled {
		mqttClient, err = mqttcommon.NewClient(&cfg.MQTT, logger)
		if err != nil {
			redisClient.Close()
			if db != nil {
				db.Close()
			}
			return nil, err
		}
	}

	return newDriverService(cfg, logger, redisClient, db, mqttClient)
}

// newDriverService 用已连接的客户端组装服务；db 和 mqttClient 可为 nil
func newDriverService(cfg *config.Config, logger *zap.Logger, redisClient *redis.Client, db *sql.DB, mqttClient *mqttcommon.Client) (*DriverService, error) {
	s := &DriverService{
		config:      cfg,
		logger:      logger,
		redisClient: redisClient,
		db:          db,
		mqttClient:  mqttClient,
	}

	// 1. 事件日志存储
	kv, err := s.buildKVStore(context.Background())
	if err != nil {
		return nil, err
	}
	s.logStore = eventlog.NewStore(kv, cfg.LogStore.Key, logger)
	s.logStore.Load(context.Background(), time.Now())
	logger.Info("Driver log loaded",
		zap.String("backend", cfg.LogStore.Backend),
		zap.Int("entries", s.logStore.Len()),
	)

	// 2. 告警输出
	dispatcher := alert.NewDispatcher(s.buildSink(), logger, cfg.Alert.AudioDebounce)

	// 3. 监控引擎
	mode, ok := profile.ParseMode(cfg.Driver.DefaultMode)
	if !ok {
		mode = models.ModeStandard
	}
	s.monitor = monitor.New(profile.DefaultRegistry(), mode, dispatcher, s.logStore, monitor.SystemClock{}, logger)
	if cfg.Driver.AutoStart {
		s.monitor.SetMonitoring(true)
	}

	// 4. 帧消费者
	if mqttClient != nil && cfg.Ingest.MQTTEnabled {
		s.frameConsumer = consumer.NewFrameConsumer(mqttClient, s.monitor, cfg.Driver.VehicleID, logger)
	}

	// 5. 状态缓存
	s.snapshotCache = cache.NewSnapshotCache(redisClient, cfg.Driver.VehicleID, cfg.Snapshot.Interval, cfg.Snapshot.TTL, logger)

	// 6. HTTP
	handler := httpapi.NewDriverHandler(s.monitor, time.Now, logger)
	s.httpServer = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewRouter(handler, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s, nil
}

func (s *DriverService) buildKVStore(ctx context.Context) (eventlog.KVStore, error) {
	switch s.config.LogStore.Backend {
	case config.LogStoreMemory:
		return eventlog.NewMemoryKVStore(), nil
	case config.LogStorePostgres:
		if s.db == nil {
			return nil, errors.New("postgres log store requires a database connection")
		}
		pg := eventlog.NewPostgresKVStore(s.db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		s.asyncKV = eventlog.NewAsyncKVStore(pg, s.logger)
		return s.asyncKV, nil
	default:
		s.asyncKV = eventlog.NewAsyncKVStore(eventlog.NewRedisKVStore(s.redisClient), s.logger)
		return s.asyncKV, nil
	}
}

// buildSink 日志 sink 同步执行；网络 sink 放到异步队列，不阻塞帧处理
func (s *DriverService) buildSink() alert.AlertSink {
	cfg := s.config
	var remote alert.MultiSink
	if s.mqttClient != nil && cfg.Alert.MQTTEnabled {
		remote = append(remote, alert.NewMQTTSink(s.mqttClient, consumer.AlertTopic(cfg.Driver.VehicleID), cfg.MQTT.QoS, cfg.Driver.VehicleID))
	}
	if cfg.Alert.Stream != "" {
		remote = append(remote, alert.NewStreamSink(s.redisClient, cfg.Alert.Stream, cfg.Alert.StreamMaxLen, cfg.Driver.VehicleID))
	}
	if cfg.Alert.WebhookURL != "" {
		remote = append(remote, alert.NewWebhookSink(cfg.Alert.WebhookURL, cfg.Driver.VehicleID, cfg.Alert.WebhookTimeout, s.logger))
	}

	sinks := alert.MultiSink{alert.NewLogSink(s.logger)}
	if len(remote) > 0 {
		s.asyncSink = alert.NewAsyncSink(remote, cfg.Alert.QueueSize, s.logger)
		s.asyncSink.Start(context.Background())
		sinks = append(sinks, s.asyncSink)
	}
	s.logger.Info("Alert sinks configured", zap.Int("remote_sinks", len(remote)))
	return sinks
}

// Monitor 监控引擎
func (s *DriverService) Monitor() *monitor.Monitor {
	return s.monitor
}

// Handler HTTP 路由
func (s *DriverService) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start 启动服务，阻塞到 ctx 取消或某个组件失败
func (s *DriverService) Start(ctx context.Context) error {
	s.logger.Info("Starting driver service",
		zap.String("vehicle_id", s.config.Driver.VehicleID),
		zap.String("mode", string(s.monitor.Session().Mode)),
		zap.String("http_addr", s.config.HTTP.Addr),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan error, 3)
	var wg sync.WaitGroup

	if s.frameConsumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.frameConsumer.Start(ctx); err != nil {
				errChan <- fmt.Errorf("failed to start frame consumer: %w", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.snapshotCache.Start(ctx, s.monitor); err != nil {
			errChan <- fmt.Errorf("snapshot cache: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errChan:
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Failed to shutdown http server", zap.Error(err))
	}
	if s.frameConsumer != nil {
		_ = s.frameConsumer.Stop(shutdownCtx)
	}

	wg.Wait()
	return runErr
}

// Stop 释放资源：先排空异步队列，再断开连接
func (s *DriverService) Stop() error {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping driver service")

		if s.asyncSink != nil {
			s.asyncSink.Close()
			if dropped := s.asyncSink.Dropped(); dropped > 0 {
				s.logger.Warn("Alerts dropped by full queue", zap.Int64("dropped", dropped))
			}
		}
		if s.asyncKV != nil {
			s.asyncKV.Close()
		}
		if s.mqttClient != nil {
			s.mqttClient.Disconnect()
		}
		if s.redisClient != nil {
			if err := s.redisClient.Close(); err != nil {
				s.logger.Error("Failed to close redis", zap.Error(err))
			}
		}
		if s.db != nil {
			if err := s.db.Close(); err != nil {
				s.logger.Error("Failed to close database", zap.Error(err))
			}
		}

		stats := s.monitor.Stats()
		s.logger.Info("Driver service stopped",
			zap.Int64("frames_processed", stats.FramesProcessed),
			zap.Int64("frames_skipped", stats.FramesSkipped),
			zap.Int64("logs_recorded", stats.LogsRecorded),
			zap.String("uptime", stats.Uptime),
		)
	})
	return nil
}
