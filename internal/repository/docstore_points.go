package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"carelink-binding/internal/docstore"
	"carelink-binding/internal/domain"
)

type DocstoreNotificationPointsRepo struct {
	store docstore.Store
}

func NewDocstoreNotificationPointsRepo(store docstore.Store) *DocstoreNotificationPointsRepo {
	return &DocstoreNotificationPointsRepo{store: store}
}

func (r *DocstoreNotificationPointsRepo) ListActiveByTenant(ctx context.Context, tenantID string) ([]*domain.NotificationPoint, error) {
	docs, err := r.store.Query(ctx, docstore.CollectionNotificationPoints,
		[]docstore.Filter{
			docstore.Eq("tenant_id", tenantID),
			docstore.Eq("active", true),
		}, 0)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.NotificationPoint, 0, len(docs))
	for _, doc := range docs {
		var p domain.NotificationPoint
		if err := json.Unmarshal(doc.Data, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification point %s: %w", doc.ID, err)
		}
		out = append(out, &p)
	}
	return out, nil
}

func (r *DocstoreNotificationPointsRepo) PutPoint(ctx context.Context, point *domain.NotificationPoint) error {
	data, err := json.Marshal(point)
	if err != nil {
		return fmt.Errorf("failed to marshal notification point %s: %w", point.PointID, err)
	}
	return r.store.Set(ctx, docstore.CollectionNotificationPoints, point.PointID, data)
}
