package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"driveguard/common/logger"
	"driveguard/internal/config"
	"driveguard/internal/service"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "driveguard")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 创建服务
	driverService, err := service.NewDriverService(cfg, log)
	if err != nil {
		log.Fatal("Failed to create driver service",
			zap.Error(err),
		)
	}
	defer driverService.Stop()

	// 4. 创建上下文（支持优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. 启动服务（在 goroutine 中）
	serviceDone := make(chan error, 1)
	go func() {
		serviceDone <- driverService.Start(ctx)
	}()

	// 6. 等待信号（优雅关闭），Start 返回后才释放连接
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := waitForShutdown(log, sigChan, serviceDone, cancel); err != nil {
		log.Error("Service error",
			zap.Error(err),
		)
	}

	log.Info("Driver service stopped")
}

// waitForShutdown 阻塞到收到信号或服务退出；收到信号时取消 ctx 并等待服务返回
func waitForShutdown(log *zap.Logger, sigChan <-chan os.Signal, serviceDone <-chan error, cancel context.CancelFunc) error {
	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down",
			zap.String("signal", sig.String()),
		)
		cancel()
		return <-serviceDone
	case err := <-serviceDone:
		return err
	}
}
