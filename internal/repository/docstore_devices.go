package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"carelink-binding/internal/docstore"
	"carelink-binding/internal/domain"
)

type DocstoreDevicesRepo struct {
	store docstore.Store
}

func NewDocstoreDevicesRepo(store docstore.Store) *DocstoreDevicesRepo {
	return &DocstoreDevicesRepo{store: store}
}

func (r *DocstoreDevicesRepo) GetDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	doc, err := r.store.Get(ctx, docstore.CollectionDevices, deviceID)
	if err != nil {
		return nil, err
	}
	return decodeDevice(doc)
}

func (r *DocstoreDevicesRepo) FindBySerial(ctx context.Context, serial string) (*domain.Device, error) {
	docs, err := r.store.Query(ctx, docstore.CollectionDevices,
		[]docstore.Filter{docstore.Eq("serial_lookup", domain.NormalizeSerial(serial))}, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, docstore.ErrNotFound
	}
	return decodeDevice(docs[0])
}

func (r *DocstoreDevicesRepo) FindByOwner(ctx context.Context, ownerID string) ([]*domain.Device, error) {
	docs, err := r.store.Query(ctx, docstore.CollectionDevices,
		[]docstore.Filter{docstore.Eq("bound_to", ownerID)}, 0)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Device, 0, len(docs))
	for _, doc := range docs {
		d, err := decodeDevice(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *DocstoreDevicesRepo) PutDevice(ctx context.Context, device *domain.Device) error {
	data, err := encodeDevice(device)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, docstore.CollectionDevices, device.DeviceID, data)
}

func (r *DocstoreDevicesRepo) BatchPutDevice(b docstore.Batch, device *domain.Device) error {
	data, err := encodeDevice(device)
	if err != nil {
		return err
	}
	b.Set(docstore.CollectionDevices, device.DeviceID, data)
	return nil
}

// encodeDevice 写入前维护序列号小写查找字段
func encodeDevice(device *domain.Device) ([]byte, error) {
	device.SerialLookup = domain.NormalizeSerial(device.SerialNumber)
	data, err := json.Marshal(device)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal device %s: %w", device.DeviceID, err)
	}
	return data, nil
}

func decodeDevice(doc *docstore.Document) (*domain.Device, error) {
	var d domain.Device
	if err := json.Unmarshal(doc.Data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal device %s: %w", doc.ID, err)
	}
	return &d, nil
}
