package domain

import "time"

// Activity 信标侦测事件（documents: "activities"，按设备归属）
// 由外部采集服务写入，仅由归档流水线消费并删除
type Activity struct {
	ActivityID string    `json:"activity_id"`
	DeviceID   string    `json:"device_id"`
	Timestamp  time.Time `json:"timestamp"`

	// 侦测到信标的网关
	GatewayID   string `json:"gateway_id"`
	GatewayName string `json:"gateway_name"`
	GatewayType string `json:"gateway_type"`

	// 位置与信号
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	RSSI int     `json:"rssi"`

	// 侦测时刻设备的绑定类型快照
	BindingType BindingType `json:"binding_type"`
	BoundTo     *string     `json:"bound_to"`

	// 通知触发标记
	NotifyTriggered bool `json:"notify_triggered"`
}

// AnonymizedActivity 隐私剥离后的 Activity 副本（documents: "anonymized_activities"）
// 归档匿名化的是"归属"而非设备身份：device_id 保留，bound_to 清空
// 只由归档流水线创建，之后不再修改、不再删除
type AnonymizedActivity struct {
	AnonymizedActivityID string    `json:"anonymized_activity_id"`
	DeviceID             string    `json:"device_id"`
	Timestamp            time.Time `json:"timestamp"`

	GatewayID   string `json:"gateway_id"`
	GatewayName string `json:"gateway_name"`
	GatewayType string `json:"gateway_type"`

	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	RSSI int     `json:"rssi"`

	BindingType     BindingType `json:"binding_type"` // 恒为 ANONYMOUS
	NotifyTriggered bool        `json:"notify_triggered"`

	// 归档溯源
	AnonymizedReason   string    `json:"anonymized_reason"`
	AnonymizedAt       time.Time `json:"anonymized_at"`
	ArchiveSessionID   string    `json:"archive_session_id"`
	OriginalActivityID string    `json:"original_activity_id"`
}

// NotificationPoint 通知点：标记为值得提醒的网关位置
// 租户级（TenantID 范围）或设备级（DeviceID 直接指定）两种形态
// 对继承解析器只读
type NotificationPoint struct {
	PointID   string  `json:"point_id"`
	TenantID  string  `json:"tenant_id"`
	GatewayID string  `json:"gateway_id"`
	DeviceID  *string `json:"device_id"` // 设备级通知点，nil = 租户级
	Active    bool    `json:"active"`
}
