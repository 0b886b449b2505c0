package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"carelink-binding/internal/docstore"
	"carelink-binding/internal/domain"

	"github.com/google/uuid"
)

type DocstoreActivitiesRepo struct {
	store docstore.Store
}

func NewDocstoreActivitiesRepo(store docstore.Store) *DocstoreActivitiesRepo {
	return &DocstoreActivitiesRepo{store: store}
}

func (r *DocstoreActivitiesRepo) CreateActivity(ctx context.Context, activity *domain.Activity) error {
	if activity.ActivityID == "" {
		activity.ActivityID = uuid.NewString()
	}
	data, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("failed to marshal activity %s: %w", activity.ActivityID, err)
	}
	return r.store.Set(ctx, docstore.CollectionActivities, activity.ActivityID, data)
}

func (r *DocstoreActivitiesRepo) ListLiveByDevice(ctx context.Context, deviceID string, limit int) ([]*domain.Activity, error) {
	docs, err := r.store.Query(ctx, docstore.CollectionActivities,
		[]docstore.Filter{docstore.Eq("device_id", deviceID)}, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Activity, 0, len(docs))
	for _, doc := range docs {
		var a domain.Activity
		if err := json.Unmarshal(doc.Data, &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal activity %s: %w", doc.ID, err)
		}
		out = append(out, &a)
	}
	return out, nil
}

func (r *DocstoreActivitiesRepo) CountLiveByDevice(ctx context.Context, deviceID string) (int, error) {
	docs, err := r.store.Query(ctx, docstore.CollectionActivities,
		[]docstore.Filter{docstore.Eq("device_id", deviceID)}, 0)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (r *DocstoreActivitiesRepo) ListAnonymizedByDevice(ctx context.Context, deviceID string) ([]*domain.AnonymizedActivity, error) {
	docs, err := r.store.Query(ctx, docstore.CollectionAnonymizedActivities,
		[]docstore.Filter{docstore.Eq("device_id", deviceID)}, 0)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.AnonymizedActivity, 0, len(docs))
	for _, doc := range docs {
		var a domain.AnonymizedActivity
		if err := json.Unmarshal(doc.Data, &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal anonymized activity %s: %w", doc.ID, err)
		}
		out = append(out, &a)
	}
	return out, nil
}

func (r *DocstoreActivitiesRepo) BatchArchivePair(b docstore.Batch, live *domain.Activity, anonymized *domain.AnonymizedActivity) error {
	data, err := json.Marshal(anonymized)
	if err != nil {
		return fmt.Errorf("failed to marshal anonymized activity for %s: %w", live.ActivityID, err)
	}
	b.Set(docstore.CollectionAnonymizedActivities, anonymized.AnonymizedActivityID, data)
	b.Delete(docstore.CollectionActivities, live.ActivityID)
	return nil
}
