package recipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"recipe-recommender/internal/core/detector"
	"recipe-recommender/internal/core/image"
	"recipe-recommender/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DetectionResponse 食材識別響應
type DetectionResponse struct {
	Success          bool      `json:"success"`
	Ingredients      []string  `json:"ingredients"`
	ConfidenceScores []float64 `json:"confidence_scores"`
	TotalDetected    int       `json:"total_detected"`
	Provider         string    `json:"provider"`
	Message          string    `json:"message"`
}

// DetectionHandler 上傳圖片辨識食材
type DetectionHandler struct {
	detector detector.Detector
	images   *image.Service
	debug    bool
}

// NewDetectionHandler 創建食材識別處理程序
func NewDetectionHandler(det detector.Detector, images *image.Service, debug bool) *DetectionHandler {
	return &DetectionHandler{detector: det, images: images, debug: debug}
}

// detectionError 將圖片與偵測錯誤轉成 API 錯誤
func detectionError(err error) error {
	switch {
	case errors.Is(err, image.ErrEmptyImage):
		return common.ErrNoImage.WithError(err)
	case errors.Is(err, image.ErrUnsupportedImage):
		return common.ErrInvalidImageType.WithError(err)
	case errors.Is(err, image.ErrImageTooLarge):
		return common.ErrInvalidImageSize.WithError(err)
	case errors.Is(err, detector.ErrQueueFull), errors.Is(err, detector.ErrQueueClosed):
		return common.ErrServiceUnavailable.WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return common.ErrGatewayTimeout.WithError(err)
	}
	return common.ErrDetectorFailed.WithError(err)
}

// HandleDetect 處理食材識別請求，圖片放在 multipart 的 image 欄位
func (h *DetectionHandler) HandleDetect(c *gin.Context) {
	requestID := requestid.Get(c)

	file, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			common.WriteError(c, common.ErrInvalidImageSize.WithError(err), h.debug)
			return
		}
		common.WriteError(c, common.ErrNoImage.WithError(err), h.debug)
		return
	}
	if file.Filename == "" {
		common.WriteError(c, common.ErrNoImage, h.debug)
		return
	}
	if !image.AllowedExtension(file.Filename) {
		common.WriteError(c, common.ErrInvalidImageType, h.debug)
		return
	}
	if file.Size > h.images.MaxSizeBytes() {
		common.WriteError(c, common.ErrInvalidImageSize.WithError(
			fmt.Errorf("%d bytes exceeds %d", file.Size, h.images.MaxSizeBytes())), h.debug)
		return
	}

	f, err := file.Open()
	if err != nil {
		common.WriteError(c, common.ErrInternalError.WithError(err), h.debug)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.images.MaxSizeBytes()+1))
	if err != nil {
		common.WriteError(c, common.ErrInternalError.WithError(err), h.debug)
		return
	}

	info, err := h.images.Validate(file.Filename, data)
	if err != nil {
		common.WriteError(c, detectionError(err), h.debug)
		return
	}

	path, err := h.images.Save(data, info.Format)
	if err != nil {
		common.WriteError(c, common.ErrInternalError.WithError(err), h.debug)
		return
	}

	result, err := h.detector.Detect(c.Request.Context(), data)
	if err != nil {
		common.WriteError(c, detectionError(err), h.debug)
		return
	}

	common.LogInfo("Successfully identified ingredients",
		zap.String("request_id", requestID),
		zap.String("saved_path", path),
		zap.String("format", info.Format),
		zap.Int("ingredients_count", result.Total()),
		zap.String("ingredients", common.StringSliceToString(result.Ingredients)),
	)

	c.JSON(http.StatusOK, DetectionResponse{
		Success:          true,
		Ingredients:      result.Ingredients,
		ConfidenceScores: result.ConfidenceScores,
		TotalDetected:    result.Total(),
		Provider:         result.Provider,
		Message:          fmt.Sprintf("Detected %d ingredients", result.Total()),
	})
}
