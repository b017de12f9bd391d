package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrTranscoderUnavailable is returned when no ffmpeg binary can be
// found on the host.
var ErrTranscoderUnavailable = errors.New("ffmpeg not available")

const mp3Bitrate = "128k"

// FFmpegTranscoder converts raw PCM16LE mono into MP3 by writing a WAV
// intermediate and shelling out to ffmpeg.
type FFmpegTranscoder struct {
	ffmpeg string
	log    *slog.Logger
}

// NewFFmpegTranscoder locates ffmpeg on the host. Returns
// ErrTranscoderUnavailable when the binary is missing, so callers can
// decide whether PCM backends are usable at all.
func NewFFmpegTranscoder(logger *slog.Logger) (*FFmpegTranscoder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, ErrTranscoderUnavailable
	}
	return &FFmpegTranscoder{ffmpeg: path, log: logger.With("component", "transcoder")}, nil
}

func (t *FFmpegTranscoder) PCMToMP3(pcm []byte, sampleRate int) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("empty pcm input")
	}

	dir, err := os.MkdirTemp("", "transcode-*")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	wavPath := filepath.Join(dir, "in.wav")
	if err := writeWAV(wavPath, pcm, sampleRate); err != nil {
		return nil, err
	}

	mp3Path := filepath.Join(dir, "out.mp3")
	cmd := exec.Command(t.ffmpeg, "-y", "-i", wavPath, "-codec:a", "libmp3lame", "-b:a", mp3Bitrate, mp3Path)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg encode: %w: %s", err, tail(out))
	}

	mp3, err := os.ReadFile(mp3Path)
	if err != nil {
		return nil, fmt.Errorf("read encoded mp3: %w", err)
	}
	return mp3, nil
}

func writeWAV(path string, pcm []byte, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Data:           PCMBytesToInts(pcm),
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}
	return nil
}

// tail keeps error output readable; ffmpeg is chatty.
func tail(out []byte) string {
	const max = 400
	if len(out) > max {
		out = out[len(out)-max:]
	}
	return string(out)
}
