package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// 退出码
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // 作业执行失败
	ExitCommandError = 2 // 参数或配置错误
)

// ExitError 携带退出码的错误
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError 创建 ExitError
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError 为已有错误附加退出码
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode 非 ExitError 一律视为作业失败
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse json 输出的统一结构
type CLIResponse struct {
	Status string      `json:"status"` // "ok" 或 "error"
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// OutputFormatter 按 --format 输出结果
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Success text 模式调用 text 渲染，json 模式输出 data
func (f *OutputFormatter) Success(data interface{}, text func(w io.Writer)) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Failure 输出错误
func (f *OutputFormatter) Failure(err error) {
	if f.Format == "json" {
		_ = json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: err.Error()})
		return
	}
	fmt.Fprintf(f.Writer, "错误: %v\n", err)
}
