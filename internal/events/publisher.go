package events

import (
	"context"
	"encoding/json"
	"time"

	"carelink-binding/internal/domain"

	"github.com/go-redis/redis/v8"
)

// BindingChangedEvent 绑定状态变更事件
// 供外部推送分发/地图端消费：设备换主或解绑时刷新订阅关系与暂存令牌
type BindingChangedEvent struct {
	DeviceID     string             `json:"device_id"`
	PreviousType domain.BindingType `json:"previous_type"`
	NewType      domain.BindingType `json:"new_type"`
	OwnerID      *string            `json:"owner_id"`
	PushToken    *string            `json:"push_token"`
	OccurredAt   time.Time          `json:"occurred_at"`
}

// Publisher 绑定事件发布接口
type Publisher interface {
	PublishBindingChanged(ctx context.Context, event BindingChangedEvent) error
}

// RedisPublisher 通过 Redis Streams 发布绑定事件
type RedisPublisher struct {
	client *redis.Client
	stream string
}

func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	return &RedisPublisher{client: client, stream: stream}
}

// PublishBindingChanged 以 XADD 追加 JSON 消息
func (p *RedisPublisher) PublishBindingChanged(ctx context.Context, event BindingChangedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":      string(data),
			"timestamp": event.OccurredAt.Unix(),
		},
	}).Err()
}
