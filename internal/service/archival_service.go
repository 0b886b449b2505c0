package service

import (
	"context"
	"fmt"
	"time"

	"carelink-binding/internal/docstore"
	"carelink-binding/internal/domain"
	"carelink-binding/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ArchivePageSize 归档分页大小
// 一条记录在批提交中占两个操作（写匿名副本 + 删原件），
// 500 条的整页恰好是一个批次（docstore.MaxBatchOps = 1000）
const ArchivePageSize = 500

// 归档原因
const (
	ReasonRebind = "REBIND"
	ReasonUnbind = "UNBIND"
	ReasonManual = "MANUAL"
)

// ArchiveResult 一次归档调用的结果
// 出错时也会返回（调用方需要 session_id 与已归档数做日志/对账）
type ArchiveResult struct {
	SessionID     string
	ArchivedCount int
}

// Archiver 活动归档流水线接口
type Archiver interface {
	Archive(ctx context.Context, deviceID string, reason string) (*ArchiveResult, error)
}

type archivalService struct {
	store      docstore.Store
	activities repository.ActivitiesRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewArchivalService 创建归档流水线
func NewArchivalService(store docstore.Store, activities repository.ActivitiesRepository, logger *zap.Logger) Archiver {
	return &archivalService{
		store:      store,
		activities: activities,
		logger:     logger,
		now:        time.Now,
	}
}

// Archive 将设备的存活 Activity 分批迁入匿名化汇集并删除原件
//
// 分页策略：每轮重查"当前最前 N 条存活记录"而不是按偏移翻页——
// 删除会收缩存活集合，从头重查对并发删除和中途失败后的重试都是正确且幂等的。
// 仅当某页恰好返回满页（PAGE_SIZE 条）时才继续循环：短页即证明没有剩余。
func (s *archivalService) Archive(ctx context.Context, deviceID string, reason string) (*ArchiveResult, error) {
	sessionID := uuid.NewString()
	result := &ArchiveResult{SessionID: sessionID}

	for {
		page, err := s.activities.ListLiveByDevice(ctx, deviceID, ArchivePageSize)
		if err != nil {
			return result, &domain.ArchivalError{
				SessionID: sessionID,
				Archived:  result.ArchivedCount,
				Err:       fmt.Errorf("failed to query live activities: %w", err),
			}
		}
		if len(page) == 0 {
			break
		}

		batch := s.store.NewBatch()
		anonymizedAt := s.now()
		for _, live := range page {
			anon := s.anonymize(live, sessionID, reason, anonymizedAt)
			if err := s.activities.BatchArchivePair(batch, live, anon); err != nil {
				return result, &domain.ArchivalError{
					SessionID: sessionID,
					Archived:  result.ArchivedCount,
					Err:       err,
				}
			}
		}

		// 单页批提交失败：已提交的分页永久保持归档状态，剩余分页原样保留
		if err := batch.Commit(ctx); err != nil {
			return result, &domain.ArchivalError{
				SessionID: sessionID,
				Archived:  result.ArchivedCount,
				Err:       fmt.Errorf("batch commit failed: %w", err),
			}
		}
		result.ArchivedCount += len(page)

		s.logger.Debug("Archived activity page",
			zap.String("device_id", deviceID),
			zap.String("archive_session_id", sessionID),
			zap.Int("page_size", len(page)),
			zap.Int("archived_total", result.ArchivedCount),
		)

		if len(page) < ArchivePageSize {
			break
		}
	}

	if result.ArchivedCount > 0 {
		s.logger.Info("Archived device activities",
			zap.String("device_id", deviceID),
			zap.String("reason", reason),
			zap.String("archive_session_id", sessionID),
			zap.Int("archived_count", result.ArchivedCount),
		)
	}
	return result, nil
}

// anonymize 生成隐私剥离副本：保留设备身份与位置统计字段，清空归属
func (s *archivalService) anonymize(live *domain.Activity, sessionID, reason string, at time.Time) *domain.AnonymizedActivity {
	return &domain.AnonymizedActivity{
		AnonymizedActivityID: uuid.NewString(),
		DeviceID:             live.DeviceID,
		Timestamp:            live.Timestamp,
		GatewayID:            live.GatewayID,
		GatewayName:          live.GatewayName,
		GatewayType:          live.GatewayType,
		Lat:                  live.Lat,
		Lng:                  live.Lng,
		RSSI:                 live.RSSI,
		BindingType:          domain.BindingAnonymous,
		NotifyTriggered:      live.NotifyTriggered,
		AnonymizedReason:     reason,
		AnonymizedAt:         at,
		ArchiveSessionID:     sessionID,
		OriginalActivityID:   live.ActivityID,
	}
}
