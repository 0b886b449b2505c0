package service

import (
	"context"
	"fmt"

	"carelink-binding/internal/docstore"
	"carelink-binding/internal/domain"
	"carelink-binding/internal/repository"

	"go.uber.org/zap"
)

// InheritanceResolver 通知点继承解析器接口
// 仅在设备标签集合发生变化（集合相等比较）后由绑定生命周期管理器调用，
// 也可由管理接口手工触发
type InheritanceResolver interface {
	Recompute(ctx context.Context, deviceID string) error
}

type inheritanceService struct {
	devices repository.DevicesRepository
	points  repository.NotificationPointsRepository
	logger  *zap.Logger
}

// NewInheritanceService 创建继承解析器
func NewInheritanceService(devices repository.DevicesRepository, points repository.NotificationPointsRepository, logger *zap.Logger) InheritanceResolver {
	return &inheritanceService{
		devices: devices,
		points:  points,
		logger:  logger,
	}
}

// Recompute 根据设备当前标签集合重算应继承的通知点
//
// 空标签集与"有标签但该租户无活跃通知点"都归一为 nil——
// 两种状态刻意共用同一个空表示，下游不区分
func (s *inheritanceService) Recompute(ctx context.Context, deviceID string) error {
	device, err := s.devices.GetDevice(ctx, deviceID)
	if err != nil {
		if err == docstore.ErrNotFound {
			return domain.ErrDeviceNotFound
		}
		return fmt.Errorf("failed to load device %s: %w", deviceID, err)
	}

	var inherited []string
	if len(device.Tags) > 0 {
		// 首个标签作为生效租户范围
		tenantID := device.Tags[0]
		points, err := s.points.ListActiveByTenant(ctx, tenantID)
		if err != nil {
			// 查询失败对本次重算是致命的，但标签变更已先行提交，不回滚
			return fmt.Errorf("failed to query notification points for tenant %s: %w", tenantID, err)
		}
		for _, p := range points {
			inherited = append(inherited, p.GatewayID)
		}
	}

	device.InheritedNotificationPointIDs = inherited
	if err := s.devices.PutDevice(ctx, device); err != nil {
		return fmt.Errorf("failed to persist inherited notification points: %w", err)
	}

	s.logger.Debug("Recomputed inherited notification points",
		zap.String("device_id", deviceID),
		zap.Strings("tags", device.Tags),
		zap.Int("inherited_count", len(inherited)),
	)
	return nil
}
