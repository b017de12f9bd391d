package synthesis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const defaultCloudEndpoint = "https://texttospeech.googleapis.com/v1"

// CloudClient calls the cloud TTS REST API. The service accepts plain
// text plus a voice/model selection and returns MP3 directly.
type CloudClient struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
	log      *slog.Logger
}

func NewCloudClient(cfg BackendConfig, logger *slog.Logger) *CloudClient {
	if logger == nil {
		logger = slog.Default()
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultCloudEndpoint
	}
	return &CloudClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   cfg.APIKey,
		model:    cfg.ModelName,
		http:     &http.Client{Timeout: cfg.Timeout},
		log:      logger.With("component", "cloud_tts"),
	}
}

type cloudSynthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
		ModelName    string `json:"modelName,omitempty"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate"`
		Pitch         float64 `json:"pitch"`
	} `json:"audioConfig"`
}

type cloudSynthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

type cloudErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *CloudClient) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if c.apiKey == "" {
		return nil, &BackendError{Kind: KindConfig, Op: "cloud synthesize", Err: fmt.Errorf("missing API key")}
	}
	if req.ByteSize() > MaxInputBytes {
		return nil, &BackendError{
			Kind: KindPermanent,
			Op:   "cloud synthesize",
			Err:  fmt.Errorf("%w: %d bytes (limit %d)", ErrOversizeInput, req.ByteSize(), MaxInputBytes),
		}
	}

	var body cloudSynthesizeRequest
	body.Input.Text = req.Text
	body.Voice.LanguageCode = LanguageCode(req.Language)
	body.Voice.Name = req.Voice.Name
	body.Voice.ModelName = c.model
	body.AudioConfig.AudioEncoding = "MP3"
	body.AudioConfig.SpeakingRate = 1.0

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &BackendError{Kind: KindPermanent, Op: "cloud synthesize", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/text:synthesize", bytes.NewReader(payload))
	if err != nil {
		return nil, &BackendError{Kind: KindPermanent, Op: "cloud synthesize", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &BackendError{Kind: KindTransient, Op: "cloud synthesize", Err: ctx.Err()}
		}
		return nil, &BackendError{Kind: KindTransient, Op: "cloud synthesize", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, &BackendError{Kind: KindTransient, Op: "cloud synthesize", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr cloudErrorResponse
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = fmt.Sprintf("%s (%s)", apiErr.Error.Message, apiErr.Error.Status)
		}
		return nil, &BackendError{
			Kind:   kindForStatus(resp.StatusCode),
			Op:     "cloud synthesize",
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", msg),
		}
	}

	var decoded cloudSynthesizeResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &BackendError{Kind: KindTransient, Op: "cloud synthesize", Err: err}
	}
	if decoded.AudioContent == "" {
		return nil, &BackendError{Kind: KindTransient, Op: "cloud synthesize", Err: fmt.Errorf("empty audio content")}
	}

	audio, err := base64.StdEncoding.DecodeString(decoded.AudioContent)
	if err != nil {
		return nil, &BackendError{Kind: KindTransient, Op: "cloud synthesize", Err: fmt.Errorf("decode audio: %w", err)}
	}
	return audio, nil
}
