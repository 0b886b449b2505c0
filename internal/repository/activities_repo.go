package repository

import (
	"context"

	"carelink-binding/internal/docstore"
	"carelink-binding/internal/domain"
)

// ActivitiesRepository 活动存储适配器
// 按设备访问存活 Activity，全局匿名化汇集只进不出
type ActivitiesRepository interface {
	// CreateActivity 采集侧写入（本服务内仅测试与管理工具使用）
	CreateActivity(ctx context.Context, activity *domain.Activity) error

	// ListLiveByDevice 按稳定顺序返回该设备最多 limit 条存活 Activity
	// 归档流水线依赖"每次都重查当前最前 N 条"的语义
	ListLiveByDevice(ctx context.Context, deviceID string, limit int) ([]*domain.Activity, error)
	CountLiveByDevice(ctx context.Context, deviceID string) (int, error)

	// ListAnonymizedByDevice 查询匿名化汇集（管理/对账用）
	ListAnonymizedByDevice(ctx context.Context, deviceID string) ([]*domain.AnonymizedActivity, error)

	// BatchArchivePair 在同一个原子批提交中追加：匿名副本写入 + 原件删除
	BatchArchivePair(b docstore.Batch, live *domain.Activity, anonymized *domain.AnonymizedActivity) error
}
