package docstore

import (
	"context"
	"errors"
)

// 文档集合名
const (
	CollectionDevices              = "devices"
	CollectionElders               = "elders"
	CollectionMapUsers             = "map_users"
	CollectionActivities           = "activities"
	CollectionAnonymizedActivities = "anonymized_activities"
	CollectionNotificationPoints   = "notification_points"
)

// MaxBatchOps 单个原子批提交的操作数上限
// 归档一条记录消耗两个操作（匿名副本写入 + 原件删除），
// 因此一个 500 条的完整归档分页恰好占满一个批次
const MaxBatchOps = 1000

var (
	ErrNotFound      = errors.New("document not found")
	ErrBatchTooLarge = errors.New("batch exceeds max operation count")
)

// 过滤操作符：等值与数组包含
const (
	OpEqual         = "=="
	OpArrayContains = "array-contains"
)

// Filter 单字段查询条件
type Filter struct {
	Field string
	Op    string
	Value any
}

// Eq 等值过滤
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: OpEqual, Value: value}
}

// Contains 数组包含过滤
func Contains(field string, value any) Filter {
	return Filter{Field: field, Op: OpArrayContains, Value: value}
}

// Document 原始文档（JSON 负载）
type Document struct {
	ID   string
	Data []byte
}

// Store 文档存储契约
// 查询结果按 doc_id 稳定排序；limit <= 0 表示不限制
type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Set(ctx context.Context, collection, id string, data []byte) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, filters []Filter, limit int) ([]*Document, error)
	NewBatch() Batch
}

// Batch 多文档原子批提交
// Commit 要么全部生效要么全部不生效；操作数超过 MaxBatchOps 时返回 ErrBatchTooLarge
type Batch interface {
	Set(collection, id string, data []byte)
	Delete(collection, id string)
	Len() int
	Commit(ctx context.Context) error
}
