package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"carelink-binding/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher_PublishBindingChanged(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	publisher := NewRedisPublisher(client, "binding:events")

	owner := "elder-1"
	token := "fcm-token-1"
	occurredAt := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	err := publisher.PublishBindingChanged(context.Background(), BindingChangedEvent{
		DeviceID:     "d1",
		PreviousType: domain.BindingUnbound,
		NewType:      domain.BindingElder,
		OwnerID:      &owner,
		PushToken:    &token,
		OccurredAt:   occurredAt,
	})
	require.NoError(t, err)

	msgs, err := client.XRange(context.Background(), "binding:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var event BindingChangedEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &event))
	assert.Equal(t, "d1", event.DeviceID)
	assert.Equal(t, domain.BindingUnbound, event.PreviousType)
	assert.Equal(t, domain.BindingElder, event.NewType)
	require.NotNil(t, event.OwnerID)
	assert.Equal(t, "elder-1", *event.OwnerID)
	assert.Equal(t, occurredAt, event.OccurredAt.UTC())
}
