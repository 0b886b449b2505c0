package repository

import (
	"context"

	"carelink-binding/internal/domain"
)

// NotificationPointsRepository 通知点 Repository 接口（继承解析器的只读输入）
type NotificationPointsRepository interface {
	// ListActiveByTenant 查询某租户当前活跃的全部通知点
	ListActiveByTenant(ctx context.Context, tenantID string) ([]*domain.NotificationPoint, error)

	// PutPoint 管理侧写入（种子数据/测试）
	PutPoint(ctx context.Context, point *domain.NotificationPoint) error
}
