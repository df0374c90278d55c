// Package errors 提供带错误码的统一错误类型，错误码决定默认的
// 严重程度、是否可重试以及是否触发告警。
package errors

import (
	stdErrors "errors"
	"fmt"
)

// Code 表示系统内的统一错误码。
type Code string

const (
	CodeUnknown         Code = "UNKNOWN"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidation      Code = "VALIDATION_FAILED"
	CodeDecode          Code = "DECODE_FAILED"
	CodeRPCFailure      Code = "RPC_FAILURE"
	CodeFallbackFailure Code = "FALLBACK_FAILED"
	CodePublishFailure  Code = "PUBLISH_FAILED"
	CodeTimeout         Code = "TIMEOUT"
)

// Severity 描述错误的严重程度，用于告警和审计。
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// attributes 为每个错误码提供默认行为。
type attributes struct {
	message   string
	severity  Severity
	retryable bool
	alert     bool
}

var registry = map[Code]attributes{
	CodeUnknown:         {message: "unknown error", severity: SeverityCritical, alert: true},
	CodeInvalidArgument: {message: "invalid argument", severity: SeverityInfo},
	CodeNotFound:        {message: "resource not found", severity: SeverityInfo},
	CodeValidation:      {message: "intent validation failed", severity: SeverityInfo},
	CodeDecode:          {message: "event decode failed", severity: SeverityWarning},
	CodeRPCFailure:      {message: "chain rpc failure", severity: SeverityWarning, retryable: true, alert: true},
	CodeFallbackFailure: {message: "neural fallback failed", severity: SeverityWarning, retryable: true, alert: true},
	CodePublishFailure:  {message: "notification publish failed", severity: SeverityWarning, retryable: true, alert: true},
	CodeTimeout:         {message: "operation timed out", severity: SeverityWarning, retryable: true, alert: true},
}

func attributesOf(code Code) attributes {
	if attr, ok := registry[code]; ok {
		return attr
	}
	return registry[CodeUnknown]
}

// Error 是系统内统一的错误类型。
type Error struct {
	code     Code
	message  string
	cause    error
	metadata map[string]string
}

// Option 定义可选配置。
type Option func(*Error)

// WithMetadata 附加额外信息，供审计与告警输出。
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// New 创建一个新的错误实例。message 为空时使用错误码的默认描述。
func New(code Code, message string, opts ...Option) *Error {
	if message == "" {
		message = attributesOf(code).message
	}
	e := &Error{code: code, message: message}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Wrap 在已有错误外包裹统一错误类型。
func Wrap(code Code, cause error, message string, opts ...Option) *Error {
	e := New(code, message, opts...)
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is 允许通过 errors.Is 按错误码匹配。
func (e *Error) Is(target error) bool {
	var t *Error
	if e == nil || !stdErrors.As(target, &t) {
		return false
	}
	return e.code == t.code
}

// Code 返回错误码。
func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

// Message 返回不含错误码与底层原因的描述。
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Metadata 返回附加信息的副本。
func (e *Error) Metadata() map[string]string {
	if e == nil || len(e.metadata) == 0 {
		return nil
	}
	clone := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		clone[k] = v
	}
	return clone
}

// Retryable 判断是否可重试。
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	return attributesOf(e.code).retryable
}

// ShouldAlert 判断是否需要告警。
func (e *Error) ShouldAlert() bool {
	if e == nil {
		return false
	}
	return attributesOf(e.code).alert
}

// Severity 返回错误严重程度。
func (e *Error) Severity() Severity {
	if e == nil {
		return SeverityInfo
	}
	return attributesOf(e.code).severity
}

// CodeOf 返回任意 error 对应的错误码，非统一错误类型视为 UNKNOWN。
func CodeOf(err error) Code {
	var e *Error
	if stdErrors.As(err, &e) {
		return e.Code()
	}
	return CodeUnknown
}

// SeverityOf 返回任意 error 的严重程度。
func SeverityOf(err error) Severity {
	var e *Error
	if stdErrors.As(err, &e) {
		return e.Severity()
	}
	return attributesOf(CodeUnknown).severity
}

// ShouldAlert 判断任意 error 是否需要触发告警。
func ShouldAlert(err error) bool {
	var e *Error
	if stdErrors.As(err, &e) {
		return e.ShouldAlert()
	}
	return false
}
