package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/narratize/audiobook-engine/internal/audio"
	"github.com/narratize/audiobook-engine/internal/cache"
	"github.com/narratize/audiobook-engine/internal/chunker"
	"github.com/narratize/audiobook-engine/internal/orchestrator"
	"github.com/narratize/audiobook-engine/internal/synthesis"
)

// Mode names the two synthesis shapes a job can take.
type Mode string

const (
	ModeNarration Mode = "narration"
	ModeDialogue  Mode = "dialogue"
)

type batchRunner interface {
	Run(ctx context.Context, reqs []synthesis.Request, onProgress orchestrator.ProgressFunc) (*orchestrator.Report, error)
}

type segmentMerger interface {
	Merge(ctx context.Context, segments []audio.Segment, outputPath string) error
}

// Config carries the per-service knobs the pipeline needs to size its
// chunks and identify cache entries.
type Config struct {
	Backend       synthesis.Backend
	ModelName     string
	MaxChunkBytes int // effective request ceiling, margin already applied
	BatchSize     int // dialogue turns per batch
}

// NarrateRequest is one narration job: a body of text read by a single
// voice.
type NarrateRequest struct {
	Text       string
	Language   string
	Voice      synthesis.VoiceProfile
	StyleHint  string
	OutputPath string
}

// DialogueRequest is one two-host dialogue job. The transcript carries
// speaker labels; unlabeled transcripts fall back to alternating lines.
type DialogueRequest struct {
	Transcript string
	Language   string
	Voice      synthesis.VoiceProfile
	StyleHint  string
	OutputPath string
}

// Manifest summarizes a finished job. Failed lists the chunk indices
// absent from the output audio.
type Manifest struct {
	Mode          Mode          `json:"mode"`
	Language      string        `json:"language"`
	TotalChunks   int           `json:"total_chunks"`
	Succeeded     int           `json:"succeeded"`
	Failed        []int         `json:"failed,omitempty"`
	CacheHits     int           `json:"cache_hits"`
	InputBytes    int           `json:"input_bytes"`
	Elapsed       time.Duration `json:"elapsed"`
	BytesPerSec   float64       `json:"bytes_per_sec"`
	AudioDuration time.Duration `json:"audio_duration"`
	OutputPath    string        `json:"output_path"`
}

// Service runs text through chunking, rate-controlled synthesis, and
// merging. It sits behind the job layer and knows nothing about HTTP.
type Service struct {
	orch   batchRunner
	merger segmentMerger
	cache  *cache.ChunkCache
	cfg    Config
	log    *slog.Logger
}

func NewService(orch batchRunner, merger segmentMerger, chunkCache *cache.ChunkCache, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxChunkBytes <= 0 {
		cfg.MaxChunkBytes = synthesis.MaxInputBytes - synthesis.SafetyMargin
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = chunker.DefaultBatchSize
	}
	return &Service{
		orch:   orch,
		merger: merger,
		cache:  chunkCache,
		cfg:    cfg,
		log:    logger.With("component", "pipeline"),
	}
}

// Narrate synthesizes a single-voice reading of the text.
func (s *Service) Narrate(ctx context.Context, req NarrateRequest, onProgress orchestrator.ProgressFunc) (*Manifest, error) {
	clean := chunker.StripSSML(req.Text)
	chunks := chunker.Split(clean, req.Language, s.cfg.MaxChunkBytes)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no synthesizable text")
	}

	requests := make([]synthesis.Request, len(chunks))
	for i, chunk := range chunks {
		requests[i] = synthesis.Request{
			Index:     chunk.Index,
			Text:      chunk.Content,
			Voice:     req.Voice,
			Language:  req.Language,
			StyleHint: req.StyleHint,
		}
	}

	return s.run(ctx, ModeNarration, req.Language, requests, req.OutputPath, onProgress)
}

// NarrateDialogue synthesizes a two-host transcript. Labeled turns are
// merged per speaker and packed into capped batches so each request
// stays within backend limits.
func (s *Service) NarrateDialogue(ctx context.Context, req DialogueRequest, onProgress orchestrator.ProgressFunc) (*Manifest, error) {
	turns := chunker.ParseDialogue(req.Transcript)
	if len(turns) == 0 {
		turns = chunker.AlternateLines(req.Transcript)
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("no dialogue turns found")
	}
	turns = chunker.MergeTurns(turns)

	batches := chunker.BuildBatches(turns, s.cfg.BatchSize, s.cfg.MaxChunkBytes)
	requests := make([]synthesis.Request, len(batches))
	for i, batch := range batches {
		requests[i] = synthesis.Request{
			Index:     batch.Index,
			Text:      batch.Render(),
			Voice:     req.Voice,
			Language:  req.Language,
			StyleHint: req.StyleHint,
		}
	}

	return s.run(ctx, ModeDialogue, req.Language, requests, req.OutputPath, onProgress)
}

func (s *Service) run(ctx context.Context, mode Mode, language string, requests []synthesis.Request, outputPath string, onProgress orchestrator.ProgressFunc) (*Manifest, error) {
	start := time.Now()

	manifest := &Manifest{
		Mode:        mode,
		Language:    language,
		TotalChunks: len(requests),
		OutputPath:  outputPath,
	}

	var segments []audio.Segment
	var pending []synthesis.Request
	for _, req := range requests {
		key := s.cacheKey(req)
		if data := s.cache.Get(ctx, key); data != nil {
			segments = append(segments, audio.Segment{Index: req.Index, Data: data})
			manifest.CacheHits++
			manifest.InputBytes += req.ByteSize()
			continue
		}
		pending = append(pending, req)
	}
	if manifest.CacheHits > 0 {
		s.log.Info("cache hits", "hits", manifest.CacheHits, "total", len(requests))
	}

	if len(pending) > 0 {
		report, err := s.orch.Run(ctx, pending, onProgress)
		if err != nil {
			return nil, err
		}
		segments = append(segments, report.Segments...)
		manifest.InputBytes += report.TotalInputBytes

		for idx, ferr := range report.Failed {
			manifest.Failed = append(manifest.Failed, idx)
			s.log.Warn("segment missing from output", "index", idx, "error", ferr)
		}
		sort.Ints(manifest.Failed)

		byIndex := make(map[int][]byte, len(report.Segments))
		for _, seg := range report.Segments {
			byIndex[seg.Index] = seg.Data
		}
		for _, req := range pending {
			if data, ok := byIndex[req.Index]; ok {
				s.cache.Put(ctx, s.cacheKey(req), data)
			}
		}
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: %d requests", orchestrator.ErrAllFailed, len(requests))
	}
	manifest.Succeeded = len(segments)

	if err := s.merger.Merge(ctx, segments, outputPath); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	manifest.Elapsed = time.Since(start)
	if secs := manifest.Elapsed.Seconds(); secs > 0 {
		manifest.BytesPerSec = float64(manifest.InputBytes) / secs
	}
	manifest.AudioDuration = s.probeDuration(outputPath)

	s.log.Info("job finished",
		"mode", mode,
		"chunks", manifest.TotalChunks,
		"succeeded", manifest.Succeeded,
		"failed", len(manifest.Failed),
		"cache_hits", manifest.CacheHits,
		"elapsed", manifest.Elapsed.Round(time.Second),
		"output", outputPath)
	return manifest, nil
}

func (s *Service) cacheKey(req synthesis.Request) string {
	return cache.Key(string(s.cfg.Backend), s.cfg.ModelName, req.Voice.Name, req.Language, req.StyleHint+"\x00"+req.Text)
}

func (s *Service) probeDuration(path string) time.Duration {
	data, err := os.ReadFile(path)
	if err != nil {
		s.log.Warn("duration probe failed", "error", err)
		return 0
	}
	d, err := audio.MP3Duration(data)
	if err != nil {
		s.log.Warn("duration probe failed", "error", err)
		return 0
	}
	return d
}
