package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"aegira/config"
	"aegira/internal/schedule"
	"aegira/pkg/errors"
	"aegira/pkg/logger"
	"aegira/pkg/metrics"
	"aegira/pkg/otel"
	"aegira/pkg/snowflake"
	"aegira/storage"
)

func main() {

	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Scheduler received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage for scheduler", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake for scheduler", zap.Error(err))
	}

	if config.Cfg.TracingEnabled {
		shutdown, err := otel.InitOpenTelemetry(ctx, otel.Config{
			ServiceName:  config.Cfg.ServiceName + "-scheduler",
			Environment:  config.Cfg.Environment,
			OTLPEndpoint: config.Cfg.OTLPEndpoint,
			SampleRatio:  config.Cfg.TracingSampler,
		})
		if err != nil {
			logger.Logger.Warn("Failed to initialize OpenTelemetry", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					logger.Logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
				}
			}()
		}

		if err := metrics.InitMetrics(); err != nil {
			logger.Logger.Warn("Failed to initialize metrics", zap.Error(err))
		}
	}

	logger.Logger.Info("Scheduler service starting",
		zap.String("service", config.Cfg.ServiceName+"-scheduler"),
		zap.String("environment", config.Cfg.Environment),
		zap.Int("detection_interval_minutes", config.Cfg.DetectionIntervalMinutes),
	)

	go runDetectionLoop(ctx)
	go runEscalationLoop(ctx)

	<-ctx.Done()

	logger.Logger.Info("Scheduler service shutting down gracefully")
}

// runDetectionLoop 按固定周期驱动检测 pass
// 检测本身幂等，周期重叠时由检测器自己跳过
func runDetectionLoop(ctx context.Context) {
	d := schedule.GetDetector()
	interval := time.Duration(config.Cfg.DetectionIntervalMinutes) * time.Minute

	// 启动即跑一轮，进程重启不丢当前周期
	runDetection(ctx, d)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runDetection(ctx, d)
		}
	}
}

func runDetection(ctx context.Context, d *schedule.Detector) {
	if err := d.RunDetectionPass(ctx); err != nil {
		if err == errors.DetectionAlreadyRunning {
			return // 检测器内部已记日志
		}
		logger.Logger.Error("Detection pass failed", zap.Error(err))
	}
}

// runEscalationLoop 每小时唤醒一次催办扫描
// 扫描自身带当日已执行标记，多次唤醒只有第一次真正生效
func runEscalationLoop(ctx context.Context) {
	s := schedule.GetEscalationSweeper()

	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			if err := s.Run(runCtx); err != nil {
				logger.Logger.Error("Escalation sweep failed", zap.Error(err))
			}
			cancel()
		}
	}
}
