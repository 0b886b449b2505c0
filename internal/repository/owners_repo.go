package repository

import (
	"context"

	"carelink-binding/internal/docstore"
	"carelink-binding/internal/domain"
)

// EldersRepository 受照护人 Repository 接口
type EldersRepository interface {
	GetElder(ctx context.Context, elderID string) (*domain.Elder, error)
	// FindByDevice 查找 device_id 反向引用指向该设备的全部 Elder（含失效引用）
	FindByDevice(ctx context.Context, deviceID string) ([]*domain.Elder, error)

	PutElder(ctx context.Context, elder *domain.Elder) error
	BatchPutElder(b docstore.Batch, elder *domain.Elder) error
}

// MapUsersRepository 移动端用户 Repository 接口
type MapUsersRepository interface {
	GetUser(ctx context.Context, userID string) (*domain.MapUser, error)
	// FindByBoundDevice 查找 bound_device_id 指向该设备的全部用户（含失效引用）
	FindByBoundDevice(ctx context.Context, deviceID string) ([]*domain.MapUser, error)

	PutUser(ctx context.Context, user *domain.MapUser) error
	BatchPutUser(b docstore.Batch, user *domain.MapUser) error
}
