package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"carelink-binding/internal/docstore"
	"carelink-binding/internal/domain"
)

type DocstoreEldersRepo struct {
	store docstore.Store
}

func NewDocstoreEldersRepo(store docstore.Store) *DocstoreEldersRepo {
	return &DocstoreEldersRepo{store: store}
}

func (r *DocstoreEldersRepo) GetElder(ctx context.Context, elderID string) (*domain.Elder, error) {
	doc, err := r.store.Get(ctx, docstore.CollectionElders, elderID)
	if err != nil {
		return nil, err
	}
	var e domain.Elder
	if err := json.Unmarshal(doc.Data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal elder %s: %w", doc.ID, err)
	}
	return &e, nil
}

func (r *DocstoreEldersRepo) FindByDevice(ctx context.Context, deviceID string) ([]*domain.Elder, error) {
	docs, err := r.store.Query(ctx, docstore.CollectionElders,
		[]docstore.Filter{docstore.Eq("device_id", deviceID)}, 0)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Elder, 0, len(docs))
	for _, doc := range docs {
		var e domain.Elder
		if err := json.Unmarshal(doc.Data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal elder %s: %w", doc.ID, err)
		}
		out = append(out, &e)
	}
	return out, nil
}

func (r *DocstoreEldersRepo) PutElder(ctx context.Context, elder *domain.Elder) error {
	data, err := json.Marshal(elder)
	if err != nil {
		return fmt.Errorf("failed to marshal elder %s: %w", elder.ElderID, err)
	}
	return r.store.Set(ctx, docstore.CollectionElders, elder.ElderID, data)
}

func (r *DocstoreEldersRepo) BatchPutElder(b docstore.Batch, elder *domain.Elder) error {
	data, err := json.Marshal(elder)
	if err != nil {
		return fmt.Errorf("failed to marshal elder %s: %w", elder.ElderID, err)
	}
	b.Set(docstore.CollectionElders, elder.ElderID, data)
	return nil
}

type DocstoreMapUsersRepo struct {
	store docstore.Store
}

func NewDocstoreMapUsersRepo(store docstore.Store) *DocstoreMapUsersRepo {
	return &DocstoreMapUsersRepo{store: store}
}

func (r *DocstoreMapUsersRepo) GetUser(ctx context.Context, userID string) (*domain.MapUser, error) {
	doc, err := r.store.Get(ctx, docstore.CollectionMapUsers, userID)
	if err != nil {
		return nil, err
	}
	var u domain.MapUser
	if err := json.Unmarshal(doc.Data, &u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal map user %s: %w", doc.ID, err)
	}
	return &u, nil
}

func (r *DocstoreMapUsersRepo) FindByBoundDevice(ctx context.Context, deviceID string) ([]*domain.MapUser, error) {
	docs, err := r.store.Query(ctx, docstore.CollectionMapUsers,
		[]docstore.Filter{docstore.Eq("bound_device_id", deviceID)}, 0)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.MapUser, 0, len(docs))
	for _, doc := range docs {
		var u domain.MapUser
		if err := json.Unmarshal(doc.Data, &u); err != nil {
			return nil, fmt.Errorf("failed to unmarshal map user %s: %w", doc.ID, err)
		}
		out = append(out, &u)
	}
	return out, nil
}

func (r *DocstoreMapUsersRepo) PutUser(ctx context.Context, user *domain.MapUser) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal map user %s: %w", user.UserID, err)
	}
	return r.store.Set(ctx, docstore.CollectionMapUsers, user.UserID, data)
}

func (r *DocstoreMapUsersRepo) BatchPutUser(b docstore.Batch, user *domain.MapUser) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal map user %s: %w", user.UserID, err)
	}
	b.Set(docstore.CollectionMapUsers, user.UserID, data)
	return nil
}
