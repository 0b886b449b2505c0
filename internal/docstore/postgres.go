package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// Postgres 基于 JSONB 的文档存储后端
// 单表 documents(collection, doc_id, data)，等值与数组包含统一编译为 @> 包含查询
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema 启动时创建文档表与 GIN 索引（幂等）
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			doc_id     TEXT NOT NULL,
			data       JSONB NOT NULL,
			PRIMARY KEY (collection, doc_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING GIN (data jsonb_path_ops)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("failed to ensure docstore schema: %w", err)
		}
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (*Document, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND doc_id = $2`,
		collection, id,
	).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &Document{ID: id, Data: data}, nil
}

func (p *Postgres) Set(ctx context.Context, collection, id string, data []byte) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO documents (collection, doc_id, data)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (collection, doc_id) DO UPDATE SET data = EXCLUDED.data`,
		collection, id, data,
	)
	return err
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND doc_id = $2`,
		collection, id,
	)
	return err
}

func (p *Postgres) Query(ctx context.Context, collection string, filters []Filter, limit int) ([]*Document, error) {
	where := []string{"collection = $1"}
	args := []any{collection}
	argN := 2

	for _, f := range filters {
		frag, err := containmentFragment(f)
		if err != nil {
			return nil, err
		}
		where = append(where, fmt.Sprintf("data @> $%d::jsonb", argN))
		args = append(args, frag)
		argN++
	}

	q := `SELECT doc_id, data FROM documents WHERE ` + strings.Join(where, " AND ") + ` ORDER BY doc_id`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Data); err != nil {
			return nil, err
		}
		out = append(out, &doc)
	}
	return out, rows.Err()
}

func (p *Postgres) NewBatch() Batch {
	return &postgresBatch{store: p}
}

// containmentFragment 将过滤器编译为 JSONB 包含片段
// 等值 -> {"field": value}；数组包含 -> {"field": [value]}
func containmentFragment(f Filter) (string, error) {
	var value any
	switch f.Op {
	case OpEqual:
		value = f.Value
	case OpArrayContains:
		value = []any{f.Value}
	default:
		return "", fmt.Errorf("unsupported filter op %q", f.Op)
	}
	b, err := json.Marshal(map[string]any{f.Field: value})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type postgresBatch struct {
	store *Postgres
	ops   []batchOp
}

func (b *postgresBatch) Set(collection, id string, data []byte) {
	b.ops = append(b.ops, batchOp{collection: collection, id: id, data: cloneBytes(data)})
}

func (b *postgresBatch) Delete(collection, id string) {
	b.ops = append(b.ops, batchOp{collection: collection, id: id})
}

func (b *postgresBatch) Len() int {
	return len(b.ops)
}

// Commit 在单个事务中执行全部操作
func (b *postgresBatch) Commit(ctx context.Context) error {
	if len(b.ops) > MaxBatchOps {
		return ErrBatchTooLarge
	}

	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for _, op := range b.ops {
		if op.data == nil {
			_, err = tx.ExecContext(ctx,
				`DELETE FROM documents WHERE collection = $1 AND doc_id = $2`,
				op.collection, op.id,
			)
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO documents (collection, doc_id, data)
				 VALUES ($1, $2, $3)
				 ON CONFLICT (collection, doc_id) DO UPDATE SET data = EXCLUDED.data`,
				op.collection, op.id, op.data,
			)
		}
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
