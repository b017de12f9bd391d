package job

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/narratize/audiobook-engine/internal/orchestrator"
	"github.com/narratize/audiobook-engine/internal/pipeline"
)

type fakeNarrator struct {
	err error
}

func (f *fakeNarrator) Narrate(ctx context.Context, req pipeline.NarrateRequest, onProgress orchestrator.ProgressFunc) (*pipeline.Manifest, error) {
	return f.finish(req.OutputPath, onProgress)
}

func (f *fakeNarrator) NarrateDialogue(ctx context.Context, req pipeline.DialogueRequest, onProgress orchestrator.ProgressFunc) (*pipeline.Manifest, error) {
	return f.finish(req.OutputPath, onProgress)
}

func (f *fakeNarrator) finish(outputPath string, onProgress orchestrator.ProgressFunc) (*pipeline.Manifest, error) {
	if f.err != nil {
		return nil, f.err
	}
	if onProgress != nil {
		onProgress(orchestrator.Progress{Done: 1, Total: 1})
	}
	if err := os.WriteFile(outputPath, []byte("mp3"), 0o644); err != nil {
		return nil, err
	}
	return &pipeline.Manifest{
		Mode:        pipeline.ModeNarration,
		TotalChunks: 1,
		Succeeded:   1,
		OutputPath:  outputPath,
	}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(t *testing.T, narrator Narrator) (*Handler, *Store, *Runner) {
	t.Helper()
	store := newTestStore(t)
	hub := NewHub()
	runner := NewRunner(store, narrator, hub, t.TempDir(), nil)
	return NewHandler(store, runner, hub, discardLogger()), store, runner
}

func postJSON(h echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func waitForStatus(t *testing.T, store *Store, id string, want Status) *Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		j, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if j.Status == want {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %s", id, want)
	return nil
}

func TestCreate_RunsJobToCompletion(t *testing.T) {
	handler, store, runner := newTestHandler(t, &fakeNarrator{})

	rec := postJSON(handler.Create, `{"text":"A story.","language":"ko","voice":"Charon"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var j Job
	if err := json.Unmarshal(rec.Body.Bytes(), &j); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if j.VoiceName != "Charon" {
		t.Errorf("voice = %q", j.VoiceName)
	}

	done := waitForStatus(t, store, j.ID, StatusDone)
	if done.Succeeded != 1 {
		t.Errorf("succeeded = %d", done.Succeeded)
	}
	runner.Wait()
}

func TestCreate_ValidationErrors(t *testing.T) {
	handler, _, _ := newTestHandler(t, &fakeNarrator{})

	tests := []struct {
		name string
		body string
	}{
		{"missing text", `{"language":"ko"}`},
		{"bad mode", `{"text":"x","mode":"chorus"}`},
		{"unknown voice", `{"text":"x","voice":"NotAVoice"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(handler.Create, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, body %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreate_FailedJobRecordsError(t *testing.T) {
	handler, store, _ := newTestHandler(t, &fakeNarrator{err: errors.New("backend down")})

	rec := postJSON(handler.Create, `{"text":"A story."}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	var j Job
	json.Unmarshal(rec.Body.Bytes(), &j)

	failed := waitForStatus(t, store, j.ID, StatusFailed)
	if !strings.Contains(failed.Error, "backend down") {
		t.Errorf("error = %q", failed.Error)
	}
}

func TestGet_NotFound(t *testing.T) {
	handler, _, _ := newTestHandler(t, &fakeNarrator{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/jobs/:id")
	c.SetParamNames("id")
	c.SetParamValues("job_missing")
	if err := handler.Get(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAudio_NotReady(t *testing.T) {
	handler, store, _ := newTestHandler(t, &fakeNarrator{})

	j := &Job{Mode: "narration", Status: StatusPending}
	if err := store.Create(context.Background(), j); err != nil {
		t.Fatalf("create: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/jobs/:id/audio")
	c.SetParamNames("id")
	c.SetParamValues(j.ID)
	if err := handler.Audio(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestList_ReturnsJobs(t *testing.T) {
	handler, store, _ := newTestHandler(t, &fakeNarrator{})
	for i := 0; i < 3; i++ {
		store.Create(context.Background(), &Job{Mode: "narration"})
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs?limit=2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := handler.List(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Jobs []Job `json:"jobs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Jobs) != 2 {
		t.Errorf("jobs = %d, want 2", len(resp.Jobs))
	}
}
