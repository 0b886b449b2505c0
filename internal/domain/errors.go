package domain

import (
	"errors"
	"fmt"
)

// CodedError 带稳定错误码的业务错误
// 校验/授权类错误对操作是致命的，同步返回且不产生任何状态变更
type CodedError struct {
	Code    string
	Message string
}

func (e *CodedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is 按错误码比较（允许 errors.Is(err, ErrDeviceNotFound) 风格判断）
func (e *CodedError) Is(target error) bool {
	var t *CodedError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

var (
	ErrDeviceNotFound = &CodedError{Code: "DEVICE_NOT_FOUND", Message: "device not found"}
	ErrOwnerNotFound  = &CodedError{Code: "OWNER_NOT_FOUND", Message: "owner not found"}
	ErrUserNotFound   = &CodedError{Code: "USER_NOT_FOUND", Message: "user not found"}
	ErrAlreadyBound   = &CodedError{Code: "ALREADY_BOUND", Message: "device is bound to another owner"}
	ErrAccountDeleted = &CodedError{Code: "ACCOUNT_DELETED", Message: "user account has been deleted"}
	ErrUnauthorized   = &CodedError{Code: "UNAUTHORIZED", Message: "caller is not allowed to operate on this owner"}
)

// ArchivalError 归档流水线的批提交失败
// 已提交的分页保持已归档/已删除状态，未处理的分页原样保留；
// 调用方（绑定生命周期管理器）记录日志后丢弃，不回滚绑定操作
type ArchivalError struct {
	SessionID string
	Archived  int // 失败前已成功归档的记录数
	Err       error
}

func (e *ArchivalError) Error() string {
	return fmt.Sprintf("ARCHIVAL_FAILED: session %s archived %d before failure: %v", e.SessionID, e.Archived, e.Err)
}

func (e *ArchivalError) Unwrap() error {
	return e.Err
}

// ErrCode 提取稳定错误码；非业务错误返回空串
func ErrCode(err error) string {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	var ae *ArchivalError
	if errors.As(err, &ae) {
		return "ARCHIVAL_FAILED"
	}
	return ""
}
