package domain

// Elder 受照护人（租户范围内，可被绑定设备）
// 不变量：Elder.DeviceID 与对应 Device.BoundTo 必须一致
type Elder struct {
	ElderID   string  `json:"elder_id"`
	TenantID  string  `json:"tenant_id"`
	ElderName string  `json:"elder_name"`
	DeviceID  *string `json:"device_id"` // 反向引用，nil = 未绑定设备
}

// MapUser 自助注册的移动端用户（可被绑定设备）
// 不变量：MapUser.BoundDeviceID 与对应 Device.BoundTo 必须一致
type MapUser struct {
	UserID        string  `json:"user_id"`
	Nickname      string  `json:"nickname"`
	Age           *int    `json:"age"`
	Gender        *string `json:"gender"`
	PushToken     *string `json:"push_token"` // 推送令牌（可选）
	BoundDeviceID *string `json:"bound_device_id"`
	Deleted       bool    `json:"deleted"` // 已注销账号不可再绑定
}

// OwnerProfile bindToMapUser 时写入设备影子字段的资料
type OwnerProfile struct {
	Nickname *string `json:"nickname"`
	Age      *int    `json:"age"`
	Gender   *string `json:"gender"`
}
