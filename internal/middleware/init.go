package middleware

import (
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"aegira/pkg/logger"
)

// Init 初始化所有中间件
func Init() error {
	if err := initAuthMiddleware(); err != nil {
		logger.Logger.Error("Failed to initialize auth middleware", zap.Error(err))
		return err
	}

	// HTTP 观测指标依赖全局 MeterProvider，tracing 未开启时落到 noop 实现
	if err := InitMetrics(otel.Meter("aegira-http")); err != nil {
		logger.Logger.Error("Failed to initialize HTTP metrics", zap.Error(err))
		return err
	}

	logger.Logger.Info("All middlewares initialized successfully")
	return nil
}
