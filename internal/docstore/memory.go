package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// Memory 内存文档存储
// DB 未就绪时作为回退后端，同时供单元测试使用
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{
		collections: map[string]map[string][]byte{},
	}
}

func (m *Memory) Get(_ context.Context, collection, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Document{ID: id, Data: cloneBytes(data)}, nil
}

func (m *Memory) Set(_ context.Context, collection, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(collection, id, data)
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections[collection], id)
	return nil
}

func (m *Memory) Query(_ context.Context, collection string, filters []Filter, limit int) ([]*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.collections[collection]))
	for id := range m.collections[collection] {
		ids = append(ids, id)
	}
	// doc_id 稳定排序：重复查询返回确定的"前 N 条"
	sort.Strings(ids)

	var out []*Document
	for _, id := range ids {
		data := m.collections[collection][id]
		if !matchFilters(data, filters) {
			continue
		}
		out = append(out, &Document{ID: id, Data: cloneBytes(data)})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) NewBatch() Batch {
	return &memoryBatch{store: m}
}

func (m *Memory) setLocked(collection, id string, data []byte) {
	if m.collections[collection] == nil {
		m.collections[collection] = map[string][]byte{}
	}
	m.collections[collection][id] = cloneBytes(data)
}

type batchOp struct {
	collection string
	id         string
	data       []byte // nil = delete
}

type memoryBatch struct {
	store *Memory
	ops   []batchOp
}

func (b *memoryBatch) Set(collection, id string, data []byte) {
	b.ops = append(b.ops, batchOp{collection: collection, id: id, data: cloneBytes(data)})
}

func (b *memoryBatch) Delete(collection, id string) {
	b.ops = append(b.ops, batchOp{collection: collection, id: id})
}

func (b *memoryBatch) Len() int {
	return len(b.ops)
}

func (b *memoryBatch) Commit(_ context.Context) error {
	if len(b.ops) > MaxBatchOps {
		return ErrBatchTooLarge
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for _, op := range b.ops {
		if op.data == nil {
			delete(b.store.collections[op.collection], op.id)
			continue
		}
		b.store.setLocked(op.collection, op.id, op.data)
	}
	return nil
}

// matchFilters 在解码后的文档上逐条匹配过滤器
func matchFilters(data []byte, filters []Filter) bool {
	if len(filters) == 0 {
		return true
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return false
	}

	for _, f := range filters {
		field, ok := doc[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual:
			if !jsonEqual(field, f.Value) {
				return false
			}
		case OpArrayContains:
			arr, ok := field.([]any)
			if !ok {
				return false
			}
			found := false
			for _, elem := range arr {
				if jsonEqual(elem, f.Value) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// jsonEqual 按 JSON 表示比较（吸收 Go 类型与 JSON 解码类型的差异）
func jsonEqual(a, b any) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
