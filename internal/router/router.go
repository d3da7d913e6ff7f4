package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"aegira/internal/handler"
	"aegira/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	v1 := h.Group("/v1")

	// 漏打卡记录审阅路由
	missedCheckIns := v1.Group("/missed-check-ins")
	missedCheckIns.Use(middleware.AuthMiddleware())
	{
		missedCheckIns.GET("", handler.ListMissedCheckIns)
		missedCheckIns.GET("/:record_id", handler.GetMissedCheckIn)
		missedCheckIns.POST("/:record_id/status", handler.TransitionMissedCheckInStatus)
	}

	// 检测运维路由
	detection := v1.Group("/detection")
	detection.Use(middleware.AuthMiddleware())
	{
		detection.POST("/run", handler.TriggerDetection)
	}
}
