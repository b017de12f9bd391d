package job

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/narratize/audiobook-engine/internal/pipeline"
	"github.com/narratize/audiobook-engine/internal/shared"
	"github.com/narratize/audiobook-engine/internal/synthesis"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	// maxTextBytes caps one submission. Far above any realistic book
	// chapter; keeps pathological payloads out of the chunker.
	maxTextBytes = 10 << 20
)

type CreateJobRequest struct {
	Text      string `json:"text"`
	Mode      string `json:"mode"`
	Language  string `json:"language"`
	Voice     string `json:"voice"`
	Gender    string `json:"gender"`
	StyleHint string `json:"style_hint"`
}

type Handler struct {
	store  *Store
	runner *Runner
	hub    *Hub
	logger *slog.Logger

	upgrader websocket.Upgrader
}

func NewHandler(store *Store, runner *Runner, hub *Hub, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		runner: runner,
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/audio", h.Audio)
	g.GET("/:id/events", h.Events)
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateJobRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if req.Text == "" {
		return shared.BadRequest("missing_text", "text is required")
	}
	if len(req.Text) > maxTextBytes {
		return shared.BadRequest("text_too_large", "text exceeds the per-job limit")
	}

	mode := pipeline.Mode(req.Mode)
	if mode == "" {
		mode = pipeline.ModeNarration
	}
	if mode != pipeline.ModeNarration && mode != pipeline.ModeDialogue {
		return shared.BadRequest("invalid_mode", "mode must be narration or dialogue")
	}

	voice := synthesis.DefaultVoice(req.Gender)
	if req.Voice != "" {
		v, ok := synthesis.VoiceByName(req.Voice)
		if !ok {
			return shared.BadRequest("unknown_voice", "voice not found")
		}
		voice = v
	}

	language := req.Language
	if language == "" {
		language = "ko"
	}

	j := &Job{
		Mode:      string(mode),
		Status:    StatusPending,
		Language:  language,
		VoiceName: voice.Name,
	}
	if err := h.store.Create(c.Request().Context(), j); err != nil {
		h.logger.Error("failed to create job", "error", err)
		return shared.InternalError("create_failed", "failed to create job")
	}

	h.runner.Launch(j, req.Text, req.StyleHint)
	return c.JSON(http.StatusAccepted, j)
}

func (h *Handler) List(c echo.Context) error {
	limit := defaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxListLimit)
		}
	}
	offset := 0
	if raw := c.QueryParam("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}

	jobs, err := h.store.List(c.Request().Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list jobs", "error", err)
		return shared.InternalError("list_failed", "failed to list jobs")
	}
	return c.JSON(http.StatusOK, map[string]any{"jobs": jobs})
}

func (h *Handler) Get(c echo.Context) error {
	j, err := h.store.GetByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("job_not_found", "job not found")
	}
	if err != nil {
		h.logger.Error("failed to load job", "job_id", c.Param("id"), "error", err)
		return shared.InternalError("get_failed", "failed to load job")
	}
	return c.JSON(http.StatusOK, j)
}

func (h *Handler) Audio(c echo.Context) error {
	j, err := h.store.GetByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("job_not_found", "job not found")
	}
	if err != nil {
		return shared.InternalError("get_failed", "failed to load job")
	}
	if j.Status != StatusDone {
		return shared.Conflict("not_ready", "job audio is not ready")
	}
	if _, err := os.Stat(j.OutputPath); err != nil {
		h.logger.Error("job audio missing from disk", "job_id", j.ID, "path", j.OutputPath)
		return shared.InternalError("audio_missing", "job audio is missing")
	}
	return c.Attachment(j.OutputPath, j.ID+".mp3")
}

// Events streams progress over a websocket until the job reaches a
// terminal state or the client disconnects.
func (h *Handler) Events(c echo.Context) error {
	j, err := h.store.GetByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("job_not_found", "job not found")
	}
	if err != nil {
		return shared.InternalError("get_failed", "failed to load job")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	events, cancel := h.hub.Subscribe(j.ID)
	defer cancel()

	// Snapshot first so late subscribers see the current state.
	if err := conn.WriteJSON(Event{Type: "status", JobID: j.ID, Status: j.Status, Error: j.Error}); err != nil {
		return nil
	}
	if j.Terminal() {
		return nil
	}

	// Reader goroutine surfaces client disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-events:
			if err := conn.WriteJSON(ev); err != nil {
				return nil
			}
			if ev.Type == "status" && (ev.Status == StatusDone || ev.Status == StatusFailed) {
				return nil
			}
		case <-done:
			return nil
		}
	}
}

func voiceForJob(j *Job) (synthesis.VoiceProfile, bool) {
	if v, ok := synthesis.VoiceByName(j.VoiceName); ok {
		return v, true
	}
	return synthesis.DefaultVoice(""), false
}
