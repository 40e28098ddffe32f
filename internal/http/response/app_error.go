package response

import "fmt"

// AppError 带业务状态码的错误包装，日志与响应共用同一份 code/message。
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 把底层错误包装为带业务状态码的错误
func WrapError(code int, message string, err error) *AppError {
	if message == "" {
		message = "internal error"
	}
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
