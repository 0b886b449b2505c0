package httpapi

// Result 统一响应信封
// - code: 2000 成功
// - type: 'success' | 'error'
// - message: string
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

// FailCode 带稳定业务错误码的失败响应（错误码放入 result.error_code）
func FailCode(code, message string) Result[any] {
	return Result[any]{
		Code:    ResultError,
		Type:    "error",
		Message: message,
		Result:  map[string]any{"error_code": code},
	}
}
