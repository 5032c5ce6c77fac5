package image

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"  // 支援 BMP
	_ "golang.org/x/image/webp" // 支援 WebP
)

var (
	// ErrUnsupportedImage 副檔名或實際格式不在允許清單內
	ErrUnsupportedImage = errors.New("unsupported image")
	// ErrImageTooLarge 圖片超過大小上限
	ErrImageTooLarge = errors.New("image too large")
	// ErrEmptyImage 沒有圖片內容
	ErrEmptyImage = errors.New("empty image")
)

// allowedExtensions 允許上傳的副檔名
var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"bmp":  true,
	"webp": true,
}

// Service 圖片處理服務
type Service struct {
	maxSizeBytes int64
	uploadDir    string
}

// Info 驗證後的圖片資訊
type Info struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int    `json:"size"`
}

// NewService 創建新的圖片處理服務
func NewService(maxSizeBytes int64, uploadDir string) *Service {
	return &Service{
		maxSizeBytes: maxSizeBytes,
		uploadDir:    uploadDir,
	}
}

// MaxSizeBytes 大小上限
func (s *Service) MaxSizeBytes() int64 {
	return s.maxSizeBytes
}

// AllowedExtension 檢查檔名副檔名是否在允許清單內
func AllowedExtension(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return allowedExtensions[ext]
}

// Validate 驗證檔名、大小與實際圖片格式
func (s *Service) Validate(filename string, data []byte) (*Info, error) {
	if !AllowedExtension(filename) {
		return nil, fmt.Errorf("%w: extension of %q", ErrUnsupportedImage, filename)
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if int64(len(data)) > s.maxSizeBytes {
		return nil, fmt.Errorf("%w: exceeds maximum limit of %d bytes", ErrImageTooLarge, s.maxSizeBytes)
	}

	// 只讀取標頭，不解碼整張圖
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", ErrUnsupportedImage, err)
	}
	if !isSupportedFormat(format) {
		return nil, fmt.Errorf("%w: format %s", ErrUnsupportedImage, format)
	}

	return &Info{Format: format, Width: cfg.Width, Height: cfg.Height, Size: len(data)}, nil
}

// Save 以 uuid 檔名存到上傳目錄，回傳檔案路徑
func (s *Service) Save(data []byte, format string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	if format == "jpeg" {
		format = "jpg"
	}
	path := filepath.Join(s.uploadDir, fmt.Sprintf("%s.%s", uuid.New().String(), format))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return path, nil
}

// ToJPEGDataURL 將圖片轉為 JPEG 並編碼成 data URL
func (s *Service) ToJPEGDataURL(data []byte) (string, error) {
	if int64(len(data)) > s.maxSizeBytes {
		return "", fmt.Errorf("%w: exceeds maximum limit of %d bytes", ErrImageTooLarge, s.maxSizeBytes)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: failed to decode image: %v", ErrUnsupportedImage, err)
	}
	if !isSupportedFormat(format) {
		return "", fmt.Errorf("%w: format %s", ErrUnsupportedImage, format)
	}

	// 將圖片轉換為 JPEG 格式
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("failed to encode image as JPEG: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
	return fmt.Sprintf("data:image/jpeg;base64,%s", encoded), nil
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"png":  true,
		"gif":  true,
		"bmp":  true,
		"webp": true,
	}
	return supportedFormats[format]
}
