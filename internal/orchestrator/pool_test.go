package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/narratize/audiobook-engine/internal/synthesis"
)

type fakeRunner struct {
	mu       sync.Mutex
	calls    int
	failIdx  map[int]bool
	maxDelay time.Duration
}

func (f *fakeRunner) SynthesizeWithRetry(ctx context.Context, req synthesis.Request) ([]byte, int, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.maxDelay > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(f.maxDelay))))
	}
	if f.failIdx[req.Index] {
		return nil, len(req.Text), errors.New("synthesis failed after 5 attempts")
	}
	return []byte(fmt.Sprintf("audio-%d", req.Index)), len(req.Text), nil
}

func makeRequests(n int) []synthesis.Request {
	reqs := make([]synthesis.Request, n)
	for i := range reqs {
		reqs[i] = synthesis.Request{Index: i, Text: fmt.Sprintf("chunk %d", i)}
	}
	return reqs
}

func TestRun_EveryIndexAccountedOnce(t *testing.T) {
	runner := &fakeRunner{maxDelay: 5 * time.Millisecond}
	o := New(runner, 4, nil)

	reqs := makeRequests(37)
	report, err := o.Run(context.Background(), reqs, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	seen := make(map[int]bool)
	for _, seg := range report.Segments {
		if seen[seg.Index] {
			t.Errorf("index %d reported twice", seg.Index)
		}
		seen[seg.Index] = true
		if string(seg.Data) != fmt.Sprintf("audio-%d", seg.Index) {
			t.Errorf("index %d carries wrong audio %q", seg.Index, seg.Data)
		}
	}
	for idx := range report.Failed {
		if seen[idx] {
			t.Errorf("index %d in both segments and failed", idx)
		}
		seen[idx] = true
	}
	if len(seen) != len(reqs) {
		t.Errorf("accounted for %d of %d indices", len(seen), len(reqs))
	}
	if runner.calls != len(reqs) {
		t.Errorf("runner called %d times, want %d", runner.calls, len(reqs))
	}
}

func TestRun_PartialFailureTolerated(t *testing.T) {
	runner := &fakeRunner{failIdx: map[int]bool{3: true, 7: true}}
	o := New(runner, 3, nil)

	report, err := o.Run(context.Background(), makeRequests(10), nil)
	if err != nil {
		t.Fatalf("partial failure should not error the batch: %v", err)
	}
	if len(report.Segments) != 8 {
		t.Errorf("segments = %d, want 8", len(report.Segments))
	}
	if len(report.Failed) != 2 {
		t.Errorf("failed = %d, want 2", len(report.Failed))
	}
	for _, idx := range []int{3, 7} {
		if report.Failed[idx] == nil {
			t.Errorf("index %d missing from failed map", idx)
		}
	}
}

func TestRun_AllFailed(t *testing.T) {
	fail := make(map[int]bool)
	for i := 0; i < 5; i++ {
		fail[i] = true
	}
	o := New(&fakeRunner{failIdx: fail}, 2, nil)

	report, err := o.Run(context.Background(), makeRequests(5), nil)
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("expected ErrAllFailed, got %v", err)
	}
	if len(report.Failed) != 5 {
		t.Errorf("failed = %d, want 5", len(report.Failed))
	}
}

func TestRun_EmptyBatch(t *testing.T) {
	o := New(&fakeRunner{}, 2, nil)
	if _, err := o.Run(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for empty batch")
	}
}

func TestRun_TotalInputBytesCountsSuccessesOnly(t *testing.T) {
	runner := &fakeRunner{failIdx: map[int]bool{0: true}}
	o := New(runner, 2, nil)

	reqs := []synthesis.Request{
		{Index: 0, Text: "aaaa"},
		{Index: 1, Text: "bb"},
		{Index: 2, Text: "ccc"},
	}
	report, err := o.Run(context.Background(), reqs, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.TotalInputBytes != 5 {
		t.Errorf("input bytes = %d, want 5", report.TotalInputBytes)
	}
}

func TestRun_ProgressReachesTotal(t *testing.T) {
	o := New(&fakeRunner{maxDelay: 2 * time.Millisecond}, 4, nil)

	var mu sync.Mutex
	var snaps []Progress
	_, err := o.Run(context.Background(), makeRequests(12), func(p Progress) {
		mu.Lock()
		snaps = append(snaps, p)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(snaps) != 12 {
		t.Fatalf("expected 12 progress snapshots, got %d", len(snaps))
	}
	for i, p := range snaps {
		if p.Done != i+1 {
			t.Errorf("snapshot %d has done=%d", i, p.Done)
		}
		if p.Total != 12 {
			t.Errorf("snapshot %d has total=%d", i, p.Total)
		}
	}
	last := snaps[len(snaps)-1]
	if last.ETA != 0 {
		t.Errorf("final ETA = %v, want 0", last.ETA)
	}
}

func TestEstimateETA(t *testing.T) {
	if got := estimateETA(10*time.Second, 25, 10); got != 30*time.Second {
		t.Errorf("eta = %v, want 30s", got)
	}
	if got := estimateETA(10*time.Second, 0, 10); got != 0 {
		t.Errorf("eta with no pending = %v", got)
	}
}

func TestRun_WorkerCapRespectsSmallBatches(t *testing.T) {
	var mu sync.Mutex
	inflight, peak := 0, 0

	runner := &trackingRunner{onCall: func() func() {
		mu.Lock()
		inflight++
		if inflight > peak {
			peak = inflight
		}
		mu.Unlock()
		return func() {
			mu.Lock()
			inflight--
			mu.Unlock()
		}
	}}

	o := New(runner, 3, nil)
	if _, err := o.Run(context.Background(), makeRequests(20), nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if peak > 3 {
		t.Errorf("peak concurrency %d exceeds pool size 3", peak)
	}
}

type trackingRunner struct {
	onCall func() func()
}

func (r *trackingRunner) SynthesizeWithRetry(ctx context.Context, req synthesis.Request) ([]byte, int, error) {
	done := r.onCall()
	time.Sleep(time.Millisecond)
	done()
	return []byte("x"), len(req.Text), nil
}
