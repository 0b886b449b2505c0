package docstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Get(ctx, "devices", "d1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Set(ctx, "devices", "d1", []byte(`{"device_id":"d1"}`)))

	doc, err := m.Get(ctx, "devices", "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1", doc.ID)
	assert.JSONEq(t, `{"device_id":"d1"}`, string(doc.Data))

	require.NoError(t, m.Delete(ctx, "devices", "d1"))
	_, err = m.Get(ctx, "devices", "d1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_QueryEquality(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "devices", "a", []byte(`{"bound_to":"owner-1","group_number":3}`)))
	require.NoError(t, m.Set(ctx, "devices", "b", []byte(`{"bound_to":"owner-2","group_number":3}`)))
	require.NoError(t, m.Set(ctx, "devices", "c", []byte(`{"bound_to":null,"group_number":5}`)))

	docs, err := m.Query(ctx, "devices", []Filter{Eq("bound_to", "owner-1")}, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].ID)

	// 数值等值（JSON 解码为 float64 也应命中）
	docs, err = m.Query(ctx, "devices", []Filter{Eq("group_number", 3)}, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestMemory_QueryArrayContains(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "devices", "a", []byte(`{"tags":["t1","t2"]}`)))
	require.NoError(t, m.Set(ctx, "devices", "b", []byte(`{"tags":["t2"]}`)))
	require.NoError(t, m.Set(ctx, "devices", "c", []byte(`{"tags":[]}`)))

	docs, err := m.Query(ctx, "devices", []Filter{Contains("tags", "t1")}, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].ID)

	docs, err = m.Query(ctx, "devices", []Filter{Contains("tags", "t2")}, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestMemory_QueryStableOrderAndLimit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("doc-%02d", i)
		require.NoError(t, m.Set(ctx, "activities", id, []byte(`{"device_id":"d1"}`)))
	}

	docs, err := m.Query(ctx, "activities", []Filter{Eq("device_id", "d1")}, 3)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	// doc_id 稳定排序：重复查询总是拿到同样的"前 N 条"
	assert.Equal(t, "doc-00", docs[0].ID)
	assert.Equal(t, "doc-01", docs[1].ID)
	assert.Equal(t, "doc-02", docs[2].ID)
}

func TestMemory_BatchAtomicCommit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "activities", "live-1", []byte(`{"device_id":"d1"}`)))

	b := m.NewBatch()
	b.Set("anonymized_activities", "anon-1", []byte(`{"device_id":"d1"}`))
	b.Delete("activities", "live-1")
	assert.Equal(t, 2, b.Len())

	// 提交前不可见
	_, err := m.Get(ctx, "anonymized_activities", "anon-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Commit(ctx))

	_, err = m.Get(ctx, "anonymized_activities", "anon-1")
	assert.NoError(t, err)
	_, err = m.Get(ctx, "activities", "live-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_BatchTooLarge(t *testing.T) {
	m := NewMemory()
	b := m.NewBatch()
	for i := 0; i <= MaxBatchOps; i++ {
		b.Set("activities", fmt.Sprintf("doc-%d", i), []byte(`{}`))
	}
	err := b.Commit(context.Background())
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}
