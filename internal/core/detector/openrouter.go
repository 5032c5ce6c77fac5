package detector

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	imgsvc "recipe-recommender/internal/core/image"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const detectionPrompt = `You are a kitchen assistant. List every food ingredient visible in the photo.
Reply with a single JSON object and nothing else, in this format:
{"ingredients": [{"name": "ingredient name in lowercase English", "confidence": 0.0}]}
confidence is between 0 and 1. Use common grocery names such as "chicken breast" or "soy sauce".`

// chatRequest OpenRouter chat completions 請求
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

// chatMessage 消息結構
type chatMessage struct {
	Role    string        `json:"role"`
	Content []chatContent `json:"content"`
}

// chatContent 內容結構
type chatContent struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

// imageURL 圖片 URL 結構
type imageURL struct {
	URL string `json:"url"`
}

// chatResponse 只取需要的欄位
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// detectionPayload 模型回傳的 JSON
type detectionPayload struct {
	Ingredients []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"ingredients"`
}

// OpenRouterDetector 透過 OpenRouter 視覺模型辨識食材
type OpenRouterDetector struct {
	config config.DetectorConfig
	client *resty.Client
	images *imgsvc.Service
}

// NewOpenRouterDetector 創建 OpenRouter 偵測器
func NewOpenRouterDetector(cfg config.DetectorConfig, images *imgsvc.Service) *OpenRouterDetector {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("HTTP-Referer", "https://recipe-recommender.local").
		SetHeader("X-Title", "Recipe Recommender")

	return &OpenRouterDetector{
		config: cfg,
		client: client,
		images: images,
	}
}

// Name 提供者名稱
func (d *OpenRouterDetector) Name() string {
	return "openrouter"
}

// Detect 將圖片轉成 JPEG data URL 後送出請求並解析模型回應
func (d *OpenRouterDetector) Detect(ctx context.Context, image []byte) (*Detection, error) {
	dataURL, err := d.images.ToJPEGDataURL(image)
	if err != nil {
		return nil, err
	}

	req := chatRequest{
		Model: d.config.Model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []chatContent{
					{Type: "text", Text: detectionPrompt},
					{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
				},
			},
		},
		MaxTokens: d.config.MaxTokens,
	}

	start := time.Now()
	var result chatResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		ForceContentType("application/json").
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send request to OpenRouter: %v", ErrDetectionFailed, err)
	}
	if resp.StatusCode() != http.StatusOK {
		common.LogWarn("OpenRouter 回應錯誤",
			zap.Int("status", resp.StatusCode()),
			zap.Duration("耗時", time.Since(start)),
		)
		return nil, fmt.Errorf("%w: OpenRouter API returned status %d", ErrDetectionFailed, resp.StatusCode())
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in OpenRouter response", ErrDetectionFailed)
	}

	det, err := parseDetection(result.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	det.Provider = d.Name()
	return det, nil
}

// parseDetection 解析模型輸出，容忍程式碼區塊標記與未加引號的鍵
func parseDetection(content string) (*Detection, error) {
	text := common.ExtractJSONObject(content)

	var payload detectionPayload
	if err := common.ParseJSON(text, &payload); err != nil {
		if err := common.ParseJSON(common.QuoteJSONKeys(text), &payload); err != nil {
			return nil, fmt.Errorf("%w: failed to parse model output: %v", ErrDetectionFailed, err)
		}
	}

	det := &Detection{Ingredients: []string{}, ConfidenceScores: []float64{}}
	seen := make(map[string]bool)
	for _, item := range payload.Ingredients {
		name := strings.ToLower(strings.TrimSpace(item.Name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		det.Ingredients = append(det.Ingredients, name)
		det.ConfidenceScores = append(det.ConfidenceScores, math.Round(clamp01(item.Confidence)*100)/100)
	}
	return det, nil
}

func clamp01(f float64) float64 {
	switch {
	case f < 0 || math.IsNaN(f):
		return 0
	case f > 1:
		return 1
	}
	return f
}
