package synthesis

import "time"

const (
	// MaxInputBytes is the backend's hard per-request input ceiling.
	MaxInputBytes = 4000

	// SafetyMargin is subtracted from MaxInputBytes when sizing chunks
	// upstream so requests never sit exactly at the ceiling.
	SafetyMargin = 200

	// DefaultSampleRate is assumed when a PCM response carries no rate.
	DefaultSampleRate = 24000
)

type Backend string

const (
	BackendCloud Backend = "cloud"
	BackendGenAI Backend = "genai"
)

// VoiceProfile identifies a synthesis voice. Supplied by the caller and
// never mutated here.
type VoiceProfile struct {
	Name        string
	Gender      string
	DisplayName string
}

type BackendConfig struct {
	Backend      Backend
	APIKey       string
	ModelName    string // cloud TTS model, e.g. gemini-2.5-pro-tts
	GenAIModelID string // generative audio-out model
	Endpoint     string // override for tests; empty selects the default
	Timeout      time.Duration
}

// Request is one unit of synthesis work. Index ties the result back to
// its position in the final audio regardless of completion order.
type Request struct {
	Index     int
	Text      string
	Voice     VoiceProfile
	Language  string
	StyleHint string
}

func (r Request) ByteSize() int {
	return len(r.Text)
}

// LanguageCode maps the pipeline's short language tag to the backend's
// BCP-47 code.
func LanguageCode(language string) string {
	if language == "ko" {
		return "ko-KR"
	}
	return "en-US"
}
