package repository

import (
	"context"

	"carelink-binding/internal/docstore"
	"carelink-binding/internal/domain"
)

// DevicesRepository 设备 Repository 接口
// 使用强类型领域模型，不使用 map[string]any
type DevicesRepository interface {
	// 查询
	GetDevice(ctx context.Context, deviceID string) (*domain.Device, error)
	// FindBySerial 按产品序列号查找（大小写无关）
	FindBySerial(ctx context.Context, serial string) (*domain.Device, error)
	// FindByOwner 查找 bound_to 指向该所有者的全部设备（纠正性排他检查用）
	FindByOwner(ctx context.Context, ownerID string) ([]*domain.Device, error)

	// 写入
	PutDevice(ctx context.Context, device *domain.Device) error

	// BatchPutDevice 将设备写入追加到原子批提交
	BatchPutDevice(b docstore.Batch, device *domain.Device) error
}
