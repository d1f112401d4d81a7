// Package apperr はアプリケーション全体で共有するエラー分類を提供します。
// すべての障害は Code で分類され、人間可読な説明と復旧のヒントを持ちます。
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Code はエラーの分類を表す識別子です。
type Code string

const (
	CodeInvalidInput          Code = "invalid_input"
	CodeAPIError              Code = "api_error"
	CodeFileNotFound          Code = "file_not_found"
	CodeFileWriteFailed       Code = "file_write_failed"
	CodeImageProcessingFailed Code = "image_processing_failed"
	CodeNetworkError          Code = "network_error"
	CodeUnsupportedOperation  Code = "unsupported_operation"
	CodeUnauthorized          Code = "unauthorized"
	CodeRateLimited           Code = "rate_limited"
	CodeNotImplemented        Code = "not_implemented"
	CodeUnknown               Code = "unknown"
)

// APICode はバックエンドAPIが返すエラー種別です。
type APICode string

const (
	APIInvalidRequest APICode = "invalid_request_error"
	APIAuthentication APICode = "authentication_error"
	APIRateLimit      APICode = "rate_limit_error"
	APIServer         APICode = "server_error"
	APIUnknown        APICode = "unknown_error"
)

// Error は分類コードと文脈情報を持つアプリケーションエラーです。
type Error struct {
	Code       Code
	APICode    APICode       // CodeAPIError のときのみ設定されます
	Message    string
	HTTPStatus int           // ゲートウェイ由来のエラーで元のステータスコードを保持します
	RetryAfter time.Duration // CodeRateLimited のときのみ設定されます
	cause      error
}

// Error は人間可読なエラー説明を返します。
func (e *Error) Error() string {
	switch e.Code {
	case CodeInvalidInput:
		return fmt.Sprintf("Invalid Input: %s", e.Message)
	case CodeAPIError:
		return fmt.Sprintf("API Error (%s): %s", e.APICode, e.Message)
	case CodeFileNotFound:
		return fmt.Sprintf("File not found: %s", e.Message)
	case CodeFileWriteFailed:
		return fmt.Sprintf("Could not save file: %s", e.Message)
	case CodeImageProcessingFailed:
		return fmt.Sprintf("Image processing failed: %s", e.Message)
	case CodeNetworkError:
		return fmt.Sprintf("Network error: %s", e.Message)
	case CodeUnsupportedOperation:
		return fmt.Sprintf("Operation not supported: %s", e.Message)
	case CodeUnauthorized:
		return fmt.Sprintf("Unauthorized: %s", e.Message)
	case CodeRateLimited:
		return fmt.Sprintf("Rate limited. Retry in %d seconds.", int(e.RetryAfter.Seconds()))
	case CodeNotImplemented:
		return fmt.Sprintf("Feature not yet implemented: %s", e.Message)
	default:
		return fmt.Sprintf("Unknown error: %s", e.Message)
	}
}

// Unwrap はラップされた原因エラーを返します。
func (e *Error) Unwrap() error { return e.cause }

// RecoverySuggestion はユーザーに提示できる復旧のヒントを返します。
func (e *Error) RecoverySuggestion() string {
	switch e.Code {
	case CodeInvalidInput:
		return "Check your input and try again."
	case CodeAPIError, CodeUnauthorized, CodeNetworkError:
		return "Check your API keys and network connection."
	case CodeFileNotFound:
		return "The file may have been moved or deleted."
	case CodeRateLimited:
		return fmt.Sprintf("Wait %d seconds before retrying.", int(e.RetryAfter.Seconds()))
	case CodeNotImplemented:
		return "This feature will be available in a future update."
	default:
		return "Please try again or contact support."
	}
}

// InvalidInput は入力不正エラーを生成します。
func InvalidInput(msg string) *Error {
	return &Error{Code: CodeInvalidInput, Message: msg}
}

// API はバックエンドAPI由来のエラーを生成します。
func API(apiCode APICode, msg string) *Error {
	return &Error{Code: CodeAPIError, APICode: apiCode, Message: msg}
}

// Server はHTTPステータスコードを保持するサーバーエラーを生成します。
func Server(status int) *Error {
	return &Error{
		Code:       CodeAPIError,
		APICode:    APIServer,
		Message:    fmt.Sprintf("HTTP %d", status),
		HTTPStatus: status,
	}
}

// FileNotFound はファイル不在エラーを生成します。
func FileNotFound(path string) *Error {
	return &Error{Code: CodeFileNotFound, Message: path}
}

// FileWriteFailed は書き込み失敗エラーを生成します。
func FileWriteFailed(msg string, cause error) *Error {
	return &Error{Code: CodeFileWriteFailed, Message: msg, cause: cause}
}

// ImageProcessingFailed は画像処理失敗エラーを生成します。
func ImageProcessingFailed(msg string) *Error {
	return &Error{Code: CodeImageProcessingFailed, Message: msg}
}

// Network は通信障害エラーを生成します。
func Network(cause error) *Error {
	msg := "connection failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Code: CodeNetworkError, Message: msg, cause: cause}
}

// Unsupported はプロバイダが未対応の操作を表すエラーを生成します。
// 汎用的な失敗と明確に区別できるよう、専用コードを持たせています。
func Unsupported(operation string) *Error {
	return &Error{Code: CodeUnsupportedOperation, Message: operation}
}

// Unauthorized は認証失敗エラーを生成します。
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// RateLimited はレート制限エラーを生成します。retryAfter は再試行までの待機時間です。
func RateLimited(retryAfter time.Duration) *Error {
	return &Error{Code: CodeRateLimited, RetryAfter: retryAfter}
}

// NotImplemented は未実装機能のエラーを生成します。
func NotImplemented(feature string) *Error {
	return &Error{Code: CodeNotImplemented, Message: feature}
}

// Unknown は分類不能なエラーをラップして生成します。
func Unknown(cause error) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Code: CodeUnknown, Message: msg, cause: cause}
}

// CodeOf は err の分類コードを返します。apperr.Error でない場合は CodeUnknown です。
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// IsCode は err が指定コードに分類されるかどうかを判定します。
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
