package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ordering-helper/backend/pkg/config"
	"github.com/ordering-helper/backend/pkg/errors"
)

// RESTVisionClient is the production VisionClient: it posts the menu photo
// to the configured vision model's structured-JSON endpoint (§6 "Vision
// model contract").
type RESTVisionClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
}

// NewRESTVisionClient builds a RESTVisionClient from the Vision config.
func NewRESTVisionClient(cfg config.VisionConfig) *RESTVisionClient {
	return &RESTVisionClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
	}
}

type visionRequest struct {
	Model      string `json:"model"`
	ImageB64   string `json:"image_base64"`
	TargetLang string `json:"target_lang"`
	Prompt     string `json:"prompt"`
}

const visionPrompt = "Identify every menu item in this photo. Return a JSON object matching the structured menu-items contract."

// Recognise implements VisionClient.
func (c *RESTVisionClient) Recognise(ctx context.Context, jpegBytes []byte, targetLang string) (*VisionResponse, error) {
	if c.apiKey == "" {
		return nil, errors.OcrBackendError(fmt.Errorf("vision api key not configured"))
	}

	body, err := json.Marshal(visionRequest{
		Model:      c.model,
		ImageB64:   base64.StdEncoding.EncodeToString(jpegBytes),
		TargetLang: targetLang,
		Prompt:     visionPrompt,
	})
	if err != nil {
		return nil, errors.OcrBackendError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://generativelanguage.googleapis.com/v1beta/models/"+c.model+":generateContent?key="+c.apiKey,
		bytes.NewReader(body))
	if err != nil {
		return nil, errors.OcrBackendError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.OcrBackendError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.OcrBackendError(fmt.Errorf("vision backend returned status %d", resp.StatusCode))
	}

	return ParseVisionJSON(resp.Body)
}
