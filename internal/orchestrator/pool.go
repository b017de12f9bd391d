package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/narratize/audiobook-engine/internal/audio"
	"github.com/narratize/audiobook-engine/internal/synthesis"
)

// DefaultWorkers bounds in-flight synthesis calls. The limiter paces
// actual backend traffic, so the pool only needs enough workers to
// keep the quota window full.
const DefaultWorkers = 10

// ErrAllFailed is returned when not a single request produced audio.
var ErrAllFailed = errors.New("all synthesis requests failed")

// runner is the slice of the requester the pool depends on.
type runner interface {
	SynthesizeWithRetry(ctx context.Context, req synthesis.Request) ([]byte, int, error)
}

// Progress is a point-in-time snapshot pushed after every completed
// request.
type Progress struct {
	Done   int
	Total  int
	Failed int
	ETA    time.Duration
}

type ProgressFunc func(Progress)

// Report collects the outcome of a batch run. Every request index
// lands in exactly one of Segments or Failed.
type Report struct {
	Segments        []audio.Segment
	Failed          map[int]error
	TotalInputBytes int
	Elapsed         time.Duration
}

// Orchestrator fans a batch of synthesis requests across a fixed
// worker pool and collects results as they arrive, keyed by the
// request's original index so ordering survives out-of-order
// completion.
type Orchestrator struct {
	requester runner
	workers   int
	log       *slog.Logger
}

func New(requester runner, workers int, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Orchestrator{
		requester: requester,
		workers:   workers,
		log:       logger.With("component", "orchestrator"),
	}
}

// Run synthesizes every request and returns the collected report. A
// partially failed batch still returns nil error; only a batch with
// zero successes fails outright.
func (o *Orchestrator) Run(ctx context.Context, reqs []synthesis.Request, onProgress ProgressFunc) (*Report, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("empty request batch")
	}

	workers := o.workers
	if workers > len(reqs) {
		workers = len(reqs)
	}

	type outcome struct {
		index      int
		audio      []byte
		inputBytes int
		elapsed    time.Duration
		err        error
	}

	jobs := make(chan synthesis.Request)
	outcomes := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range jobs {
				start := time.Now()
				data, inputBytes, err := o.requester.SynthesizeWithRetry(ctx, req)
				outcomes <- outcome{
					index:      req.Index,
					audio:      data,
					inputBytes: inputBytes,
					elapsed:    time.Since(start),
					err:        err,
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, req := range reqs {
			select {
			case jobs <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	start := time.Now()
	report := &Report{Failed: make(map[int]error)}

	var avgLatency time.Duration
	done := 0
	for oc := range outcomes {
		done++
		avgLatency += (oc.elapsed - avgLatency) / time.Duration(done)

		if oc.err != nil {
			report.Failed[oc.index] = oc.err
			o.log.Warn("request failed permanently",
				"index", oc.index,
				"error", oc.err)
		} else {
			report.Segments = append(report.Segments, audio.Segment{Index: oc.index, Data: oc.audio})
			report.TotalInputBytes += oc.inputBytes
		}

		if onProgress != nil {
			onProgress(Progress{
				Done:   done,
				Total:  len(reqs),
				Failed: len(report.Failed),
				ETA:    estimateETA(avgLatency, len(reqs)-done, workers),
			})
		}
	}

	report.Elapsed = time.Since(start)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if len(report.Segments) == 0 {
		return report, fmt.Errorf("%w: %d requests", ErrAllFailed, len(reqs))
	}

	o.log.Info("batch complete",
		"total", len(reqs),
		"succeeded", len(report.Segments),
		"failed", len(report.Failed),
		"input_bytes", report.TotalInputBytes,
		"elapsed", report.Elapsed.Round(time.Second))
	return report, nil
}

// estimateETA projects remaining wall time from the running average
// latency, assuming the pool stays saturated.
func estimateETA(avg time.Duration, pending, workers int) time.Duration {
	if pending <= 0 || workers <= 0 {
		return 0
	}
	rounds := (pending + workers - 1) / workers
	return avg * time.Duration(rounds)
}
