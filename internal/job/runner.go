package job

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/narratize/audiobook-engine/internal/orchestrator"
	"github.com/narratize/audiobook-engine/internal/pipeline"
)

// Narrator is the slice of the pipeline the runner drives.
type Narrator interface {
	Narrate(ctx context.Context, req pipeline.NarrateRequest, onProgress orchestrator.ProgressFunc) (*pipeline.Manifest, error)
	NarrateDialogue(ctx context.Context, req pipeline.DialogueRequest, onProgress orchestrator.ProgressFunc) (*pipeline.Manifest, error)
}

// Runner executes accepted jobs in the background, persisting state
// transitions and publishing progress to the hub.
type Runner struct {
	store     *Store
	narrator  Narrator
	hub       *Hub
	outputDir string
	log       *slog.Logger

	wg sync.WaitGroup
}

func NewRunner(store *Store, narrator Narrator, hub *Hub, outputDir string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:     store,
		narrator:  narrator,
		hub:       hub,
		outputDir: outputDir,
		log:       logger.With("component", "job_runner"),
	}
}

// Launch starts the job asynchronously. The job must already be
// persisted as pending.
func (r *Runner) Launch(j *Job, text, styleHint string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.execute(context.Background(), j, text, styleHint)
	}()
}

// Wait blocks until all launched jobs finish. Used during shutdown.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) execute(ctx context.Context, j *Job, text, styleHint string) {
	j.Status = StatusRunning
	j.OutputPath = filepath.Join(r.outputDir, j.ID+".mp3")
	if err := r.store.Update(ctx, j); err != nil {
		r.log.Error("failed to mark job running", "job_id", j.ID, "error", err)
		return
	}
	r.hub.Publish(Event{Type: "status", JobID: j.ID, Status: StatusRunning})

	onProgress := func(p orchestrator.Progress) {
		r.hub.Publish(Event{
			Type:   "progress",
			JobID:  j.ID,
			Done:   p.Done,
			Total:  p.Total,
			Failed: p.Failed,
			ETAMs:  p.ETA.Milliseconds(),
		})
	}

	voice, _ := voiceForJob(j)
	var manifest *pipeline.Manifest
	var err error
	switch pipeline.Mode(j.Mode) {
	case pipeline.ModeDialogue:
		manifest, err = r.narrator.NarrateDialogue(ctx, pipeline.DialogueRequest{
			Transcript: text,
			Language:   j.Language,
			Voice:      voice,
			StyleHint:  styleHint,
			OutputPath: j.OutputPath,
		}, onProgress)
	default:
		manifest, err = r.narrator.Narrate(ctx, pipeline.NarrateRequest{
			Text:       text,
			Language:   j.Language,
			Voice:      voice,
			StyleHint:  styleHint,
			OutputPath: j.OutputPath,
		}, onProgress)
	}

	if err != nil {
		j.Status = StatusFailed
		j.Error = err.Error()
		if uerr := r.store.Update(ctx, j); uerr != nil {
			r.log.Error("failed to persist job failure", "job_id", j.ID, "error", uerr)
		}
		r.hub.Publish(Event{Type: "status", JobID: j.ID, Status: StatusFailed, Error: j.Error})
		r.log.Error("job failed", "job_id", j.ID, "error", err)
		return
	}

	j.Status = StatusDone
	j.TotalChunks = manifest.TotalChunks
	j.Succeeded = manifest.Succeeded
	j.FailedChunks = manifest.Failed
	j.CacheHits = manifest.CacheHits
	j.InputBytes = manifest.InputBytes
	j.ElapsedMs = manifest.Elapsed.Milliseconds()
	j.AudioDurationMs = manifest.AudioDuration.Milliseconds()
	if err := r.store.Update(ctx, j); err != nil {
		r.log.Error("failed to persist finished job", "job_id", j.ID, "error", err)
		return
	}
	r.hub.Publish(Event{Type: "status", JobID: j.ID, Status: StatusDone})
	r.log.Info("job done",
		"job_id", j.ID,
		"chunks", j.TotalChunks,
		"failed", len(j.FailedChunks),
		"elapsed", time.Duration(j.ElapsedMs)*time.Millisecond)
}
