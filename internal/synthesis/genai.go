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
	"strconv"
	"strings"
)

const defaultGenAIEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// GenAIClient calls a generative audio-out model. The prompt carries
// style instructions plus the literal text to speak; the response is
// base64 PCM16LE mono with the sample rate embedded in the MIME type,
// which the transcoder converts to MP3.
type GenAIClient struct {
	endpoint  string
	apiKey    string
	model     string
	transcode Transcoder
	http      *http.Client
	log       *slog.Logger
}

func NewGenAIClient(cfg BackendConfig, transcoder Transcoder, logger *slog.Logger) *GenAIClient {
	if logger == nil {
		logger = slog.Default()
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultGenAIEndpoint
	}
	return &GenAIClient{
		endpoint:  strings.TrimRight(endpoint, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.GenAIModelID,
		transcode: transcoder,
		http:      &http.Client{Timeout: cfg.Timeout},
		log:       logger.With("component", "genai_tts"),
	}
}

type genaiPart struct {
	Text string `json:"text"`
}

type genaiContent struct {
	Parts []genaiPart `json:"parts"`
}

type genaiVoiceConfig struct {
	PrebuiltVoiceConfig struct {
		VoiceName string `json:"voiceName"`
	} `json:"prebuiltVoiceConfig"`
}

type genaiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
	SpeechConfig       struct {
		VoiceConfig genaiVoiceConfig `json:"voiceConfig"`
	} `json:"speechConfig"`
}

type genaiGenerateRequest struct {
	Contents         []genaiContent        `json:"contents"`
	GenerationConfig genaiGenerationConfig `json:"generationConfig"`
}

type genaiGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				InlineData struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *GenAIClient) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if c.apiKey == "" {
		return nil, &BackendError{Kind: KindConfig, Op: "genai synthesize", Err: fmt.Errorf("missing API key")}
	}
	if c.transcode == nil {
		return nil, &BackendError{Kind: KindConfig, Op: "genai synthesize", Err: fmt.Errorf("no PCM transcoder available")}
	}

	// The speakable text is quoted so the model does not read style
	// instructions aloud.
	prompt := fmt.Sprintf("%s\n\nSay the following text verbatim, and do not say anything else:\n\"\"\"%s\"\"\"\n", req.StyleHint, req.Text)

	var body genaiGenerateRequest
	body.Contents = []genaiContent{{Parts: []genaiPart{{Text: prompt}}}}
	body.GenerationConfig.ResponseModalities = []string{"AUDIO"}
	body.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = req.Voice.Name

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &BackendError{Kind: KindPermanent, Op: "genai synthesize", Err: err}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.endpoint, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &BackendError{Kind: KindPermanent, Op: "genai synthesize", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &BackendError{Kind: KindTransient, Op: "genai synthesize", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 128<<20))
	if err != nil {
		return nil, &BackendError{Kind: KindTransient, Op: "genai synthesize", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &BackendError{
			Kind:   kindForStatus(resp.StatusCode),
			Op:     "genai synthesize",
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", strings.TrimSpace(string(raw))),
		}
	}

	var decoded genaiGenerateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &BackendError{Kind: KindTransient, Op: "genai synthesize", Err: err}
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return nil, &BackendError{Kind: KindTransient, Op: "genai synthesize", Err: fmt.Errorf("response carries no audio part")}
	}

	inline := decoded.Candidates[0].Content.Parts[0].InlineData
	if inline.Data == "" {
		return nil, &BackendError{Kind: KindTransient, Op: "genai synthesize", Err: fmt.Errorf("inline audio data missing")}
	}

	pcm, err := base64.StdEncoding.DecodeString(inline.Data)
	if err != nil {
		return nil, &BackendError{Kind: KindTransient, Op: "genai synthesize", Err: fmt.Errorf("decode pcm: %w", err)}
	}

	mp3, err := c.transcode.PCMToMP3(pcm, ParsePCMRate(inline.MimeType))
	if err != nil {
		return nil, &BackendError{Kind: KindConfig, Op: "genai synthesize", Err: fmt.Errorf("transcode pcm: %w", err)}
	}
	return mp3, nil
}

// ParsePCMRate extracts the sample rate from a MIME descriptor such as
// "audio/L16;codec=pcm;rate=24000". Unparseable input falls back to the
// default rate.
func ParsePCMRate(mimeType string) int {
	for _, part := range strings.Split(mimeType, ";") {
		part = strings.TrimSpace(part)
		if rest, ok := strings.CutPrefix(part, "rate="); ok {
			if rate, err := strconv.Atoi(rest); err == nil && rate > 0 {
				return rate
			}
		}
	}
	return DefaultSampleRate
}
