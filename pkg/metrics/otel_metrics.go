package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics OpenTelemetry 指标集合
type OTelMetrics struct {
	// 检测相关指标
	DetectionPassTotal     metric.Int64Counter
	DetectionPassDuration  metric.Float64Histogram
	DetectionRecordsTotal  metric.Int64Counter
	DetectionTenantFailed  metric.Int64Counter
	DetectionWorkersScanned metric.Int64Counter

	// HTTP 相关指标
	HTTPServerRequestTotal   metric.Int64Counter
	HTTPServerDuration       metric.Float64Histogram
	HTTPServerRequestSize    metric.Int64Histogram
	HTTPServerResponseSize   metric.Int64Histogram
	HTTPServerActiveRequests metric.Int64UpDownCounter
}

var (
	// 全局指标实例
	metrics *OTelMetrics
	// meter 用于创建指标
	meter = otel.Meter("aegira")
)

// InitMetrics 初始化 OpenTelemetry 指标
func InitMetrics() error {
	var err error

	metrics = &OTelMetrics{}

	metrics.DetectionPassTotal, err = meter.Int64Counter(
		"detection_pass_total",
		metric.WithDescription("Total number of detection passes"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return err
	}

	metrics.DetectionPassDuration, err = meter.Float64Histogram(
		"detection_pass_duration_seconds",
		metric.WithDescription("Time spent running a detection pass in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	metrics.DetectionRecordsTotal, err = meter.Int64Counter(
		"detection_records_created_total",
		metric.WithDescription("Total number of missed check-in records created"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return err
	}

	metrics.DetectionTenantFailed, err = meter.Int64Counter(
		"detection_tenant_failed_total",
		metric.WithDescription("Total number of tenant-level detection failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return err
	}

	metrics.DetectionWorkersScanned, err = meter.Int64Counter(
		"detection_workers_scanned_total",
		metric.WithDescription("Total number of workers evaluated by detection passes"),
		metric.WithUnit("{worker}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// GetMetrics 获取全局指标实例
func GetMetrics() *OTelMetrics {
	return metrics
}

// RecordDetectionPass 记录一次检测 pass 完成
func (m *OTelMetrics) RecordDetectionPass(ctx context.Context, status string, duration float64) {
	m.DetectionPassTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
	m.DetectionPassDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("status", status),
	))
}

// RecordDetectionRecords 记录某租户新产生的漏打卡记录数
func (m *OTelMetrics) RecordDetectionRecords(ctx context.Context, companyID int64, count int64) {
	if count <= 0 {
		return
	}
	m.DetectionRecordsTotal.Add(ctx, count, metric.WithAttributes(
		attribute.String("company_id", fmt.Sprintf("%d", companyID)),
	))
}

// RecordDetectionTenantFailure 记录租户级检测失败
func (m *OTelMetrics) RecordDetectionTenantFailure(ctx context.Context, companyID int64) {
	m.DetectionTenantFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("company_id", fmt.Sprintf("%d", companyID)),
	))
}

// RecordDetectionWorkersScanned 记录本次评估的成员数
func (m *OTelMetrics) RecordDetectionWorkersScanned(ctx context.Context, count int64) {
	if count <= 0 {
		return
	}
	m.DetectionWorkersScanned.Add(ctx, count)
}
