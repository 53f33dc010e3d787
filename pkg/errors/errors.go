// Package errors 提供對局中繼服務的錯誤碼與錯誤型別
package errors

import (
	"errors"
	"fmt"
)

// 定義錯誤碼
const (
	// ErrCodeRoomFull 房間已滿（使用者可見，可恢復）
	ErrCodeRoomFull = "ROOM_FULL"
	// ErrCodeAlreadyBound 連線已綁定其他房間（內部不變量被破壞）
	ErrCodeAlreadyBound = "ALREADY_BOUND"
	// ErrCodeUnknownSession 未知的連線
	ErrCodeUnknownSession = "UNKNOWN_SESSION"
	// ErrCodeNotInRoom 發送者不在該房間
	ErrCodeNotInRoom = "NOT_IN_ROOM"
	// ErrCodeInvalidState 房間狀態不允許此操作
	ErrCodeInvalidState = "INVALID_STATE"
	// ErrCodeInvalidMessage 無法解析的訊息
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	// ErrCodeRateLimited 事件速率超限
	ErrCodeRateLimited = "RATE_LIMITED"
	// ErrCodeInternal 內部錯誤
	ErrCodeInternal = "INTERNAL_ERROR"
)

// AppError 應用程式錯誤
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

// Error 實現 error 介面
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 實現 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 以錯誤碼比對
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 創建新的應用程式錯誤
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包裝錯誤
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails 回傳附帶詳細資訊的副本（預定義錯誤是共用的，不能原地修改）
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// 預定義錯誤
var (
	ErrRoomFull       = New(ErrCodeRoomFull, "room is full")
	ErrAlreadyBound   = New(ErrCodeAlreadyBound, "session already bound to another room")
	ErrUnknownSession = New(ErrCodeUnknownSession, "unknown session")
	ErrNotInRoom      = New(ErrCodeNotInRoom, "session is not in this room")
	ErrInvalidState   = New(ErrCodeInvalidState, "room state does not allow this event")
	ErrInvalidMessage = New(ErrCodeInvalidMessage, "invalid message")
	ErrRateLimited    = New(ErrCodeRateLimited, "too many events")
)

// Code 取出錯誤碼，非 AppError 一律視為內部錯誤
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsRoomFull 檢查是否為房間已滿
func IsRoomFull(err error) bool {
	return Code(err) == ErrCodeRoomFull
}

// IsAlreadyBound 檢查是否為重複綁定
func IsAlreadyBound(err error) bool {
	return Code(err) == ErrCodeAlreadyBound
}

// IsInvalidState 檢查是否為狀態錯誤
func IsInvalidState(err error) bool {
	return Code(err) == ErrCodeInvalidState
}
