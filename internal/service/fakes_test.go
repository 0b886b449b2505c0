package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"carelink-binding/internal/docstore"
	"carelink-binding/internal/domain"
	"carelink-binding/internal/repository"

	"github.com/stretchr/testify/require"
)

// countingStore 包装 docstore.Store，统计批提交次数并可注入指定批次的失败
type countingStore struct {
	docstore.Store
	commits    int
	failOnNth  int // 0 = 不注入失败；N = 第 N 次 Commit 返回错误
	commitErrs int
}

func newCountingStore(inner docstore.Store) *countingStore {
	return &countingStore{Store: inner}
}

func (s *countingStore) NewBatch() docstore.Batch {
	return &countingBatch{store: s, inner: s.Store.NewBatch()}
}

type countingBatch struct {
	store *countingStore
	inner docstore.Batch
}

func (b *countingBatch) Set(collection, id string, data []byte) {
	b.inner.Set(collection, id, data)
}

func (b *countingBatch) Delete(collection, id string) {
	b.inner.Delete(collection, id)
}

func (b *countingBatch) Len() int {
	return b.inner.Len()
}

func (b *countingBatch) Commit(ctx context.Context) error {
	b.store.commits++
	if b.store.failOnNth > 0 && b.store.commits == b.store.failOnNth {
		b.store.commitErrs++
		return errors.New("injected commit failure")
	}
	return b.inner.Commit(ctx)
}

// stubArchiver 归档桩：记录调用并可返回固定错误
type stubArchiver struct {
	calls   []string // "deviceID/reason"
	failErr error
}

func (a *stubArchiver) Archive(_ context.Context, deviceID string, reason string) (*ArchiveResult, error) {
	a.calls = append(a.calls, deviceID+"/"+reason)
	result := &ArchiveResult{SessionID: "stub-session"}
	if a.failErr != nil {
		return result, &domain.ArchivalError{SessionID: result.SessionID, Err: a.failErr}
	}
	return result, nil
}

// stubResolver 继承解析桩
type stubResolver struct {
	calls []string
	err   error
}

func (r *stubResolver) Recompute(_ context.Context, deviceID string) error {
	r.calls = append(r.calls, deviceID)
	return r.err
}

func seedLiveActivities(t *testing.T, repo repository.ActivitiesRepository, deviceID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := repo.CreateActivity(context.Background(), &domain.Activity{
			DeviceID:    deviceID,
			Timestamp:   time.Now(),
			GatewayID:   "gw-1",
			GatewayName: "entrance",
			GatewayType: "fixed",
			Lat:         35.6,
			Lng:         139.7,
			RSSI:        -70,
			BindingType: domain.BindingElder,
		})
		require.NoError(t, err)
	}
}
