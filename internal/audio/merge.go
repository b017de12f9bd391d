package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"
)

// DefaultSilenceGap separates consecutive segments in the merged file.
const DefaultSilenceGap = 300 * time.Millisecond

// Segment is one synthesized MP3 keyed by its position in the source
// text.
type Segment struct {
	Index int
	Data  []byte
}

// Merger stitches synthesized segments into a single MP3 in index
// order. With ffmpeg present it re-encodes through a concat list with
// silence gaps between segments; otherwise it falls back to raw byte
// concatenation, which players tolerate but which has no gaps.
type Merger struct {
	silenceGap time.Duration
	ffmpeg     string
	log        *slog.Logger
}

func NewMerger(silenceGap time.Duration, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	if silenceGap <= 0 {
		silenceGap = DefaultSilenceGap
	}
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		path = ""
	}
	return &Merger{
		silenceGap: silenceGap,
		ffmpeg:     path,
		log:        logger.With("component", "merger"),
	}
}

// Merge writes the combined audio to outputPath. Segments are ordered
// by ascending index regardless of arrival order. Filesystem errors
// are fatal; a failed ffmpeg run degrades to the raw path.
func (m *Merger) Merge(ctx context.Context, segments []Segment, outputPath string) error {
	if len(segments) == 0 {
		return fmt.Errorf("no segments to merge")
	}

	ordered := make([]Segment, len(segments))
	copy(ordered, segments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	if m.ffmpeg != "" {
		if err := m.mergeFFmpeg(ctx, ordered, outputPath); err == nil {
			return nil
		} else if ctx.Err() != nil {
			return err
		} else {
			m.log.Warn("ffmpeg merge failed, falling back to raw concatenation", "error", err)
		}
	} else {
		m.log.Warn("ffmpeg not found, merging by raw concatenation without silence gaps")
	}

	return m.mergeRaw(ordered, outputPath)
}

func (m *Merger) mergeFFmpeg(ctx context.Context, ordered []Segment, outputPath string) error {
	dir, err := os.MkdirTemp("", "merge-*")
	if err != nil {
		return fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	silencePath := filepath.Join(dir, "silence.mp3")
	gap := fmt.Sprintf("%.3f", m.silenceGap.Seconds())
	cmd := exec.CommandContext(ctx, m.ffmpeg, "-y",
		"-f", "lavfi", "-i", "anullsrc=r=24000:cl=mono",
		"-t", gap, "-codec:a", "libmp3lame", "-b:a", mp3Bitrate, silencePath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("generate silence: %w: %s", err, tail(out))
	}

	listPath := filepath.Join(dir, "list.txt")
	list, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}
	for i, seg := range ordered {
		segPath := filepath.Join(dir, fmt.Sprintf("seg_%04d.mp3", seg.Index))
		if err := os.WriteFile(segPath, seg.Data, 0o644); err != nil {
			list.Close()
			return fmt.Errorf("write segment %d: %w", seg.Index, err)
		}
		fmt.Fprintf(list, "file '%s'\n", segPath)
		if i < len(ordered)-1 {
			fmt.Fprintf(list, "file '%s'\n", silencePath)
		}
	}
	if err := list.Close(); err != nil {
		return fmt.Errorf("close concat list: %w", err)
	}

	cmd = exec.CommandContext(ctx, m.ffmpeg, "-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-codec:a", "libmp3lame", "-b:a", mp3Bitrate, outputPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("concat encode: %w: %s", err, tail(out))
	}

	m.log.Info("segments merged",
		"segments", len(ordered),
		"gap", m.silenceGap,
		"output", outputPath)
	return nil
}

// mergeRaw relies on MP3 frames being self-delimiting, so decoders
// play back-to-back frame streams from independent encodes.
func (m *Merger) mergeRaw(ordered []Segment, outputPath string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	var total int
	for _, seg := range ordered {
		n, err := out.Write(seg.Data)
		if err != nil {
			out.Close()
			return fmt.Errorf("write segment %d: %w", seg.Index, err)
		}
		total += n
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	m.log.Info("segments merged without gaps",
		"segments", len(ordered),
		"bytes", total,
		"output", outputPath)
	return nil
}
