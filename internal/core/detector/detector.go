// Package detector 從食材照片辨識食材名稱
package detector

import (
	"context"
	"errors"
)

var (
	// ErrDetectionFailed 偵測服務回傳錯誤或無法解析
	ErrDetectionFailed = errors.New("ingredient detection failed")
	// ErrQueueFull 偵測佇列已滿
	ErrQueueFull = errors.New("detection queue is full")
	// ErrQueueClosed 佇列已關閉
	ErrQueueClosed = errors.New("detection queue is closed")
)

// Detection 偵測結果，ConfidenceScores 與 Ingredients 一一對應
type Detection struct {
	Ingredients      []string  `json:"ingredients"`
	ConfidenceScores []float64 `json:"confidence_scores"`
	Provider         string    `json:"provider"`
}

// Total 偵測到的食材數
func (d *Detection) Total() int {
	return len(d.Ingredients)
}

// Detector 食材偵測介面
type Detector interface {
	Detect(ctx context.Context, image []byte) (*Detection, error)
	Name() string
}
