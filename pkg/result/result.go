package result

import (
	"encoding/json"
	"fmt"
)

// Code identifies the class of failure surfaced at the tool boundary.
type Code string

const (
	CodeInvalidPath        Code = "INVALID_PATH"
	CodeAutoProvisionFail  Code = "AUTO_PROVISION_FAILED"
	CodeRsyncFailed        Code = "RSYNC_FAILED"
	CodeDeployFailed       Code = "DEPLOY_FAILED"
	CodeForbiddenCommand   Code = "FORBIDDEN_COMMAND"
	CodeOperatorOnly       Code = "OPERATOR_ONLY"
	CodeCrossTenantBlocked Code = "CROSS_TENANT_BLOCKED"
	CodePermissionDenied   Code = "PERMISSION_DENIED"
	CodeExecuteError       Code = "EXECUTE_ERROR"
	CodeTimeout            Code = "TIMEOUT"
)

type Error struct {
	Code    Code
	Err     error
	Details map[string]any
}

func (err *Error) Error() string {
	return err.Err.Error()
}

func (err *Error) Unwrap() error {
	return err.Err
}

func Errorf(code Code, format string, args ...interface{}) *Error {
	return &Error{
		Code: code,
		Err:  fmt.Errorf(format, args...),
	}
}

func ErrorWrap(code Code, err error) *Error {
	return &Error{
		Code: code,
		Err:  err,
	}
}

// ErrorCode extracts the boundary code from any error. Errors that were
// never classified count as execution errors.
func ErrorCode(err error) Code {
	if err == nil {
		return ""
	}
	e, ok := err.(*Error)
	if !ok {
		return CodeExecuteError
	}
	return e.Code
}

// Envelope is the only shape that crosses the tool boundary.
type Envelope struct {
	Success       bool            `json:"success"`
	Data          json.RawMessage `json:"data,omitempty"`
	Error         *ErrorBody      `json:"error,omitempty"`
	CorrelationID string          `json:"correlationID,omitempty"`
}

type ErrorBody struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func Success(data any) (*Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{Success: true, Data: raw}, nil
}

// Failure converts any error into a boundary envelope. Unclassified
// errors surface as EXECUTE_ERROR rather than leaking raw failures.
func Failure(err error) *Envelope {
	body := &ErrorBody{
		Code:    ErrorCode(err),
		Message: err.Error(),
	}
	if e, ok := err.(*Error); ok {
		body.Details = e.Details
	}
	return &Envelope{Success: false, Error: body}
}
