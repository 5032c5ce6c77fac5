package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"error"`             // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap 讓 errors.Is / errors.As 可以看到原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// WithError 複製預定義錯誤並附上原始錯誤
func (e *CustomError) WithError(err error) *CustomError {
	return &CustomError{Code: e.Code, Message: e.Message, Status: e.Status, Err: err}
}

// Response 轉成 API 錯誤響應
func (e *CustomError) Response(debug bool) ErrorResponse {
	resp := ErrorResponse{Code: e.Code, Message: e.Message}
	if debug && e.Err != nil {
		resp.Details = e.Err.Error()
	}
	return resp
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// AsCustomError 取出錯誤鏈中的 CustomError，找不到時回傳內部錯誤
func AsCustomError(err error) *CustomError {
	var cerr *CustomError
	if errors.As(err, &cerr) {
		return cerr
	}
	return ErrInternalError.WithError(err)
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest   = "INVALID_REQUEST"    // 400
	ErrCodeNotFound         = "NOT_FOUND"          // 404
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED" // 405
	ErrCodeTooLarge         = "PAYLOAD_TOO_LARGE"  // 413
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"  // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest   = NewError(ErrCodeInvalidRequest, "Invalid request format", http.StatusBadRequest, nil)
	ErrNotFound         = NewError(ErrCodeNotFound, "Resource not found", http.StatusNotFound, nil)
	ErrMethodNotAllowed = NewError(ErrCodeMethodNotAllowed, "Method not allowed", http.StatusMethodNotAllowed, nil)
	ErrTooManyRequests  = NewError(ErrCodeTooManyRequests, "Too many requests", http.StatusTooManyRequests, nil)
	ErrPayloadTooLarge  = NewError(ErrCodeTooLarge, "Request body too large", http.StatusRequestEntityTooLarge, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "Internal server error", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "Service temporarily unavailable", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout     = NewError(ErrCodeGatewayTimeout, "Gateway timeout", http.StatusGatewayTimeout, nil)

	// 業務錯誤
	ErrNoIngredients    = NewError("NO_INGREDIENTS", "No ingredients provided", http.StatusBadRequest, nil)
	ErrRecipeNotFound   = NewError("RECIPE_NOT_FOUND", "Recipe not found", http.StatusNotFound, nil)
	ErrInvalidRating    = NewError("INVALID_RATING", "Rating must be between 1 and 5", http.StatusBadRequest, nil)
	ErrMissingUserID    = NewError("MISSING_USER_ID", "user_id is required", http.StatusBadRequest, nil)
	ErrFeedbackSave     = NewError("FEEDBACK_SAVE_FAILED", "Failed to save feedback", http.StatusInternalServerError, nil)
	ErrNoImage          = NewError("NO_IMAGE", "No image file provided", http.StatusBadRequest, nil)
	ErrInvalidImageType = NewError("INVALID_IMAGE_TYPE", "Invalid file type. Please upload an image file.", http.StatusBadRequest, nil)
	ErrInvalidImageSize = NewError("INVALID_IMAGE_SIZE", "Image size exceeds limit", http.StatusRequestEntityTooLarge, nil)
	ErrDetectorFailed   = NewError("DETECTOR_ERROR", "Failed to process image", http.StatusBadGateway, nil)
	ErrCacheFull        = NewError("CACHE_FULL", "Cache is full", http.StatusServiceUnavailable, nil)
	ErrCacheMiss        = NewError("CACHE_MISS", "Cache miss", http.StatusNotFound, nil)
	ErrCacheDisabled    = NewError("CACHE_DISABLED", "Cache is disabled", http.StatusServiceUnavailable, nil)
	ErrEngineNotReady   = NewError("ENGINE_NOT_READY", "Recommendation engine not ready", http.StatusServiceUnavailable, nil)
)
