package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"aegira/internal/schedule"
	"aegira/pkg/response"
)

// TriggerDetection 手动触发一次检测 pass（运维入口）
// 正常周期由 scheduler 进程驱动，这里只用于补跑和排障
// POST /v1/detection/run
func TriggerDetection(ctx context.Context, c *app.RequestContext) {
	detector := schedule.GetDetector()
	if err := detector.RunDetectionPass(ctx); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]interface{}{
		"triggered":  true,
		"started_at": detector.LastRunTime().Format(time.RFC3339),
	})
}
