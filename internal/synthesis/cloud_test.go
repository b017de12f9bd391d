package synthesis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCloudClient_Synthesize(t *testing.T) {
	var gotPath, gotKey string
	var gotBody cloudSynthesizeRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Goog-Api-Key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(cloudSynthesizeResponse{
			AudioContent: base64.StdEncoding.EncodeToString([]byte("mp3-bytes")),
		})
	}))
	defer srv.Close()

	client := NewCloudClient(BackendConfig{
		APIKey:    "test-key",
		ModelName: "studio-narrator",
		Endpoint:  srv.URL,
		Timeout:   5 * time.Second,
	}, nil)

	audio, err := client.Synthesize(context.Background(), Request{
		Text:     "안녕하세요",
		Voice:    VoiceProfile{Name: "ko-KR-Neural2-A"},
		Language: "ko",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Errorf("audio = %q", audio)
	}
	if gotPath != "/text:synthesize" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if gotBody.Input.Text != "안녕하세요" {
		t.Errorf("input text = %q", gotBody.Input.Text)
	}
	if gotBody.Voice.LanguageCode != "ko-KR" {
		t.Errorf("language code = %q", gotBody.Voice.LanguageCode)
	}
	if gotBody.Voice.Name != "ko-KR-Neural2-A" {
		t.Errorf("voice name = %q", gotBody.Voice.Name)
	}
	if gotBody.Voice.ModelName != "studio-narrator" {
		t.Errorf("model name = %q", gotBody.Voice.ModelName)
	}
	if gotBody.AudioConfig.AudioEncoding != "MP3" {
		t.Errorf("encoding = %q", gotBody.AudioConfig.AudioEncoding)
	}
}

func TestCloudClient_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{"quota exhausted", 429, `{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`, KindRateLimit},
		{"server error", 500, `{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`, KindTransient},
		{"bad voice", 400, `{"error":{"code":400,"message":"voice not found","status":"INVALID_ARGUMENT"}}`, KindPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewCloudClient(BackendConfig{APIKey: "k", Endpoint: srv.URL, Timeout: 5 * time.Second}, nil)
			_, err := client.Synthesize(context.Background(), Request{Text: "hi"})
			if err == nil {
				t.Fatal("expected error")
			}
			var be *BackendError
			if !errors.As(err, &be) {
				t.Fatalf("expected BackendError, got %T", err)
			}
			if be.Kind != tt.want {
				t.Errorf("kind = %v, want %v", be.Kind, tt.want)
			}
			if be.Status != tt.status {
				t.Errorf("status = %d, want %d", be.Status, tt.status)
			}
		})
	}
}

func TestCloudClient_OversizeRejectedLocally(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewCloudClient(BackendConfig{APIKey: "k", Endpoint: srv.URL, Timeout: 5 * time.Second}, nil)
	_, err := client.Synthesize(context.Background(), Request{Text: strings.Repeat("a", MaxInputBytes+1)})
	if !errors.Is(err, ErrOversizeInput) {
		t.Fatalf("expected ErrOversizeInput, got %v", err)
	}
	if KindOf(err) != KindPermanent {
		t.Errorf("oversize input should be permanent, got %v", KindOf(err))
	}
	if called {
		t.Error("oversize input must not reach the backend")
	}
}

func TestCloudClient_MissingAPIKey(t *testing.T) {
	client := NewCloudClient(BackendConfig{Timeout: time.Second}, nil)
	_, err := client.Synthesize(context.Background(), Request{Text: "hi"})
	if KindOf(err) != KindConfig {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestCloudClient_EmptyAudioContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(cloudSynthesizeResponse{})
	}))
	defer srv.Close()

	client := NewCloudClient(BackendConfig{APIKey: "k", Endpoint: srv.URL, Timeout: 5 * time.Second}, nil)
	_, err := client.Synthesize(context.Background(), Request{Text: "hi"})
	if err == nil {
		t.Fatal("expected error for empty audio content")
	}
	if KindOf(err) != KindTransient {
		t.Errorf("expected transient error, got %v", KindOf(err))
	}
}
