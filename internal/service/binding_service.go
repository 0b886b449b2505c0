package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carelink-binding/internal/auth"
	"carelink-binding/internal/docstore"
	"carelink-binding/internal/domain"
	"carelink-binding/internal/events"
	"carelink-binding/internal/repository"

	"go.uber.org/zap"
)

// BindingService 设备绑定生命周期管理器接口
// 状态机 {UNBOUND, ELDER, MAP_USER}：所有迁移只经过这里；
// 每次变更在单个原子批提交内恢复排他性不变量
// （Owner 反向引用与 Device.bound_to 必须一致）
type BindingService interface {
	BindToElder(ctx context.Context, req BindToElderRequest) (*domain.Device, error)
	BindToMapUser(ctx context.Context, req BindToMapUserRequest) (*domain.Device, error)
	Unbind(ctx context.Context, req UnbindRequest) error

	// UpdateTags 管理侧标签变更：标签先提交，继承重算尽力而为
	UpdateTags(ctx context.Context, req UpdateTagsRequest) (*domain.Device, error)
	// RecomputeInheritance 管理侧手工触发继承重算
	RecomputeInheritance(ctx context.Context, actor *auth.Principal, deviceID string) error
}

type bindingService struct {
	store     docstore.Store
	devices   repository.DevicesRepository
	elders    repository.EldersRepository
	mapUsers  repository.MapUsersRepository
	archiver  Archiver
	resolver  InheritanceResolver
	publisher events.Publisher // 可为 nil（事件发布未启用）
	logger    *zap.Logger
	now       func() time.Time
}

// NewBindingService 创建绑定生命周期管理器
func NewBindingService(
	store docstore.Store,
	devices repository.DevicesRepository,
	elders repository.EldersRepository,
	mapUsers repository.MapUsersRepository,
	archiver Archiver,
	resolver InheritanceResolver,
	publisher events.Publisher,
	logger *zap.Logger,
) BindingService {
	return &bindingService{
		store:     store,
		devices:   devices,
		elders:    elders,
		mapUsers:  mapUsers,
		archiver:  archiver,
		resolver:  resolver,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// BindToElderRequest 绑定到受照护人请求
type BindToElderRequest struct {
	Actor    *auth.Principal // 必填
	DeviceID string          // 必填
	ElderID  string          // 必填
}

// BindToElder 将设备绑定到受照护人
func (s *bindingService) BindToElder(ctx context.Context, req BindToElderRequest) (*domain.Device, error) {
	// 1. 授权：只能操作自己的所有者记录，除非持有提升权限
	if !req.Actor.CanOperateOn(req.ElderID) {
		return nil, domain.ErrUnauthorized
	}

	// 2. 解析设备与受照护人
	device, err := s.getDevice(ctx, req.DeviceID)
	if err != nil {
		return nil, err
	}
	elder, err := s.elders.GetElder(ctx, req.ElderID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, domain.ErrOwnerNotFound
		}
		return nil, fmt.Errorf("failed to load elder %s: %w", req.ElderID, err)
	}

	// 3. 所有者类型冲突：MAP_USER 持有的设备无法自动让渡
	if device.BindingType == domain.BindingMapUser {
		return nil, domain.ErrAlreadyBound
	}

	// 4. 旧归属的活动先归档（失败不阻断换绑，见 archiveBeforeRebind）
	prevType := device.BindingType
	if device.IsBound() {
		s.archiveBeforeRebind(ctx, device.DeviceID, ReasonRebind)
	}

	// 5. 单个原子批提交内完成四段排他性修复
	batch := s.store.NewBatch()

	//    (a) 其它仍指向该受照护人的设备强制回到 UNBOUND（失效引用修正）
	others, err := s.devices.FindByOwner(ctx, req.ElderID)
	if err != nil {
		return nil, fmt.Errorf("failed to scan conflicting devices: %w", err)
	}
	for _, od := range others {
		if od.DeviceID == device.DeviceID {
			continue
		}
		od.ClearBinding()
		if err := s.devices.BatchPutDevice(batch, od); err != nil {
			return nil, err
		}
	}

	//    (b) 之前引用该设备的其它受照护人清除反向引用
	prevElders, err := s.elders.FindByDevice(ctx, device.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to scan stale elder references: %w", err)
	}
	for _, pe := range prevElders {
		if pe.ElderID == elder.ElderID {
			continue
		}
		pe.DeviceID = nil
		if err := s.elders.BatchPutElder(batch, pe); err != nil {
			return nil, err
		}
	}

	//    (c) 目标受照护人反向引用指向本设备
	elder.DeviceID = &device.DeviceID
	if err := s.elders.BatchPutElder(batch, elder); err != nil {
		return nil, err
	}

	//    (d) 设备绑定状态；受照护人的租户并入标签集合
	oldTags := device.Tags
	device.Tags = unionTag(device.Tags, elder.TenantID)
	tagsChanged := !domain.TagSetEqual(oldTags, device.Tags)

	device.ClearBinding()
	device.BindingType = domain.BindingElder
	device.BoundTo = &elder.ElderID
	boundAt := s.now()
	device.BoundAt = &boundAt
	if err := s.devices.BatchPutDevice(batch, device); err != nil {
		return nil, err
	}

	if err := batch.Commit(ctx); err != nil {
		s.logger.Error("BindToElder commit failed",
			zap.String("device_id", device.DeviceID),
			zap.String("elder_id", elder.ElderID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to commit elder binding: %w", err)
	}

	// 6. 标签集合变化时重算继承（下游簿记，失败只记日志）
	if tagsChanged {
		s.recomputeAfterTagChange(ctx, device.DeviceID)
	}

	s.publishChange(ctx, device, prevType)

	return s.reloadDevice(ctx, device)
}

// BindToMapUserRequest 绑定到移动端用户请求
type BindToMapUserRequest struct {
	Actor          *auth.Principal     // 必填
	DeviceOrSerial string              // 必填：设备 ID 或产品序列号（大小写无关）
	UserID         string              // 必填
	Profile        domain.OwnerProfile // 影子资料
}

// BindToMapUser 将设备绑定到移动端用户
func (s *bindingService) BindToMapUser(ctx context.Context, req BindToMapUserRequest) (*domain.Device, error) {
	// 1. 授权
	if !req.Actor.CanOperateOn(req.UserID) {
		return nil, domain.ErrUnauthorized
	}

	// 2. 按设备 ID 解析，失败则按序列号解析
	device, err := s.devices.GetDevice(ctx, req.DeviceOrSerial)
	if errors.Is(err, docstore.ErrNotFound) {
		device, err = s.devices.FindBySerial(ctx, req.DeviceOrSerial)
	}
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, domain.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("failed to resolve device %s: %w", req.DeviceOrSerial, err)
	}

	// 3. 用户校验
	user, err := s.mapUsers.GetUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load map user %s: %w", req.UserID, err)
	}
	if user.Deleted {
		return nil, domain.ErrAccountDeleted
	}

	// 4. 冲突检查：ELDER 持有、或被其他用户持有的设备不可绑定
	if device.BindingType == domain.BindingElder {
		return nil, domain.ErrAlreadyBound
	}
	if device.BindingType == domain.BindingMapUser && device.BoundTo != nil && *device.BoundTo != user.UserID {
		return nil, domain.ErrAlreadyBound
	}

	batch := s.store.NewBatch()

	// 5. 该用户原先持有其它设备：先归档再在同一批提交内解绑
	if user.BoundDeviceID != nil && *user.BoundDeviceID != device.DeviceID {
		oldID := *user.BoundDeviceID
		s.archiveBeforeRebind(ctx, oldID, ReasonRebind)

		oldDevice, err := s.devices.GetDevice(ctx, oldID)
		if err == nil {
			oldDevice.ClearBinding()
			if err := s.devices.BatchPutDevice(batch, oldDevice); err != nil {
				return nil, err
			}
		} else if !errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("failed to load previously bound device %s: %w", oldID, err)
		}
	}

	// 6. 目标设备自身的历史活动归档（同用户换绑同样适用）
	prevType := device.BindingType
	if device.IsBound() {
		s.archiveBeforeRebind(ctx, device.DeviceID, ReasonRebind)
	}

	// 7. 用户反向引用 + 设备绑定状态与影子资料
	user.BoundDeviceID = &device.DeviceID
	if err := s.mapUsers.BatchPutUser(batch, user); err != nil {
		return nil, err
	}

	device.ClearBinding()
	device.BindingType = domain.BindingMapUser
	device.BoundTo = &user.UserID
	boundAt := s.now()
	device.BoundAt = &boundAt
	device.Nickname = firstNonNil(req.Profile.Nickname, strPtrOrNil(user.Nickname))
	device.Age = firstNonNilInt(req.Profile.Age, user.Age)
	device.Gender = firstNonNil(req.Profile.Gender, user.Gender)
	// 推送令牌暂存到设备记录，供外部分发系统读取
	if user.PushToken != nil {
		device.PushToken = user.PushToken
	}
	if err := s.devices.BatchPutDevice(batch, device); err != nil {
		return nil, err
	}

	if err := batch.Commit(ctx); err != nil {
		s.logger.Error("BindToMapUser commit failed",
			zap.String("device_id", device.DeviceID),
			zap.String("user_id", user.UserID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to commit map user binding: %w", err)
	}

	s.publishChange(ctx, device, prevType)

	return s.reloadDevice(ctx, device)
}

// UnbindRequest 解绑请求
type UnbindRequest struct {
	Actor    *auth.Principal // 必填
	DeviceID string          // 必填
}

// Unbind 解除设备当前绑定
// 归档总是先行尝试；无论归档结果如何，设备一律回到 UNBOUND，
// 影子/令牌字段一律清空（可用性优先于严格一致性）
func (s *bindingService) Unbind(ctx context.Context, req UnbindRequest) error {
	// 1. 设备解析
	device, err := s.getDevice(ctx, req.DeviceID)
	if err != nil {
		return err
	}

	// 2. 授权：当前所有者本人或提升权限
	ownerID := ""
	if device.BoundTo != nil {
		ownerID = *device.BoundTo
	}
	if !req.Actor.CanOperateOn(ownerID) {
		return domain.ErrUnauthorized
	}

	// 3. 归档先行（失败记录日志，不阻断解绑）
	s.archiveBeforeRebind(ctx, device.DeviceID, ReasonUnbind)

	// 4. 按当前绑定类型清除反向所有者引用（含失效引用）
	batch := s.store.NewBatch()
	switch device.BindingType {
	case domain.BindingElder:
		elders, err := s.elders.FindByDevice(ctx, device.DeviceID)
		if err != nil {
			return fmt.Errorf("failed to scan elder references: %w", err)
		}
		for _, e := range elders {
			e.DeviceID = nil
			if err := s.elders.BatchPutElder(batch, e); err != nil {
				return err
			}
		}
	case domain.BindingMapUser:
		users, err := s.mapUsers.FindByBoundDevice(ctx, device.DeviceID)
		if err != nil {
			return fmt.Errorf("failed to scan map user references: %w", err)
		}
		for _, u := range users {
			u.BoundDeviceID = nil
			if err := s.mapUsers.BatchPutUser(batch, u); err != nil {
				return err
			}
		}
	}

	prevType := device.BindingType
	device.ClearBinding()
	if err := s.devices.BatchPutDevice(batch, device); err != nil {
		return err
	}

	if err := batch.Commit(ctx); err != nil {
		s.logger.Error("Unbind commit failed",
			zap.String("device_id", device.DeviceID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to commit unbind: %w", err)
	}

	s.publishChange(ctx, device, prevType)
	return nil
}

// UpdateTagsRequest 管理侧标签变更请求
type UpdateTagsRequest struct {
	Actor    *auth.Principal // 必填（需提升权限）
	DeviceID string          // 必填
	Tags     []string
}

// UpdateTags 更新设备标签集合
// 标签先提交；集合确有变化时再触发继承重算，重算失败不回滚标签
func (s *bindingService) UpdateTags(ctx context.Context, req UpdateTagsRequest) (*domain.Device, error) {
	if req.Actor == nil || !req.Actor.Elevated {
		return nil, domain.ErrUnauthorized
	}

	device, err := s.getDevice(ctx, req.DeviceID)
	if err != nil {
		return nil, err
	}

	if domain.TagSetEqual(device.Tags, req.Tags) {
		return device, nil
	}

	device.Tags = req.Tags
	if err := s.devices.PutDevice(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to persist tags: %w", err)
	}

	s.recomputeAfterTagChange(ctx, device.DeviceID)
	return s.reloadDevice(ctx, device)
}

func (s *bindingService) RecomputeInheritance(ctx context.Context, actor *auth.Principal, deviceID string) error {
	if actor == nil || !actor.Elevated {
		return domain.ErrUnauthorized
	}
	return s.resolver.Recompute(ctx, deviceID)
}

// archiveBeforeRebind 换绑/解绑前的归档调用
// 归档失败刻意不致命：所有者必须及时释放，历史清扫可以事后重试；
// 这里把失败连同尝试的 session 一并落日志供人工对账
func (s *bindingService) archiveBeforeRebind(ctx context.Context, deviceID string, reason string) {
	result, err := s.archiver.Archive(ctx, deviceID, reason)
	if err != nil {
		s.logger.Error("Activity archival failed, binding proceeds",
			zap.String("device_id", deviceID),
			zap.String("reason", reason),
			zap.String("archive_session_id", result.SessionID),
			zap.Int("archived_before_failure", result.ArchivedCount),
			zap.Error(err),
		)
	}
}

func (s *bindingService) recomputeAfterTagChange(ctx context.Context, deviceID string) {
	if err := s.resolver.Recompute(ctx, deviceID); err != nil {
		s.logger.Warn("Inheritance recompute failed after tag change",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}
}

func (s *bindingService) publishChange(ctx context.Context, device *domain.Device, prevType domain.BindingType) {
	if s.publisher == nil {
		return
	}
	evt := events.BindingChangedEvent{
		DeviceID:     device.DeviceID,
		PreviousType: prevType,
		NewType:      device.BindingType,
		OwnerID:      device.BoundTo,
		PushToken:    device.PushToken,
		OccurredAt:   s.now(),
	}
	if err := s.publisher.PublishBindingChanged(ctx, evt); err != nil {
		s.logger.Warn("Failed to publish binding change event",
			zap.String("device_id", device.DeviceID),
			zap.Error(err),
		)
	}
}

func (s *bindingService) getDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	device, err := s.devices.GetDevice(ctx, deviceID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, domain.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("failed to load device %s: %w", deviceID, err)
	}
	return device, nil
}

// reloadDevice 提交后重读设备（拿到继承重算的最新结果）；读失败时退回内存副本
func (s *bindingService) reloadDevice(ctx context.Context, device *domain.Device) (*domain.Device, error) {
	fresh, err := s.devices.GetDevice(ctx, device.DeviceID)
	if err != nil {
		return device, nil
	}
	return fresh, nil
}

func unionTag(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	out := make([]string, 0, len(tags)+1)
	out = append(out, tags...)
	return append(out, tag)
}

func firstNonNil(a, b *string) *string {
	if a != nil {
		return a
	}
	return b
}

func firstNonNilInt(a, b *int) *int {
	if a != nil {
		return a
	}
	return b
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
