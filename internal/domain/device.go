package domain

import (
	"strings"
	"time"
)

// BindingType 设备当前的绑定类型
type BindingType string

const (
	BindingUnbound BindingType = "UNBOUND"
	BindingElder   BindingType = "ELDER"
	BindingMapUser BindingType = "MAP_USER"
	// BindingAnonymous 仅出现在归档后的 AnonymizedActivity 上
	BindingAnonymous BindingType = "ANONYMOUS"
)

// Device 信标设备领域模型（documents: "devices"）
// 身份 = (service_id, group_number, unit_number) 三元组 + 产品序列号
// 不变量：BoundTo == nil 当且仅当 BindingType == UNBOUND
// 影子字段（Nickname/Age/Gender）仅在 BindingType == MAP_USER 时有效
type Device struct {
	DeviceID string `json:"device_id"`

	// 信标身份（与当前绑定无关）
	ServiceID    string `json:"service_id"`
	GroupNumber  int    `json:"group_number"`
	UnitNumber   int    `json:"unit_number"`
	SerialNumber string `json:"serial_number"`
	// SerialLookup 序列号小写形式（用于大小写无关查找，写入时维护）
	SerialLookup string `json:"serial_lookup"`

	// 绑定状态
	BindingType BindingType `json:"binding_type"`
	BoundTo     *string     `json:"bound_to"`
	BoundAt     *time.Time  `json:"bound_at"`

	// 租户标签（仅用于通知点继承，不参与身份）
	Tags []string `json:"tags"`
	// InheritedNotificationPointIDs nil 表示"无标签"与"有标签但无活跃通知点"（两态合并）
	InheritedNotificationPointIDs []string `json:"inherited_notification_point_ids"`

	// 影子字段（仅 MAP_USER）
	Nickname *string `json:"nickname"`
	Age      *int    `json:"age"`
	Gender   *string `json:"gender"`

	// PushToken 为外部推送分发系统暂存的消息令牌
	PushToken *string `json:"push_token"`
}

// NormalizeSerial 序列号大小写归一化
func NormalizeSerial(serial string) string {
	return strings.ToLower(strings.TrimSpace(serial))
}

// IsBound 设备是否处于绑定状态
func (d *Device) IsBound() bool {
	return d.BindingType != BindingUnbound && d.BindingType != ""
}

// ClearBinding 清除绑定状态和所有影子/令牌字段（回到 UNBOUND）
func (d *Device) ClearBinding() {
	d.BindingType = BindingUnbound
	d.BoundTo = nil
	d.BoundAt = nil
	d.Nickname = nil
	d.Age = nil
	d.Gender = nil
	d.PushToken = nil
}

// TagSetEqual 标签集合相等比较（忽略顺序与重复）
func TagSetEqual(a, b []string) bool {
	sa := make(map[string]struct{}, len(a))
	for _, t := range a {
		sa[t] = struct{}{}
	}
	sb := make(map[string]struct{}, len(b))
	for _, t := range b {
		sb[t] = struct{}{}
	}
	if len(sa) != len(sb) {
		return false
	}
	for t := range sa {
		if _, ok := sb[t]; !ok {
			return false
		}
	}
	return true
}
