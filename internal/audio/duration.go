package audio

import (
	"bytes"
	"fmt"
	"time"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// MP3Duration decodes just enough of the stream to report playback
// length. The decoder emits 16-bit stereo, so four bytes per sample
// frame.
func MP3Duration(data []byte) (time.Duration, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("decode mp3: %w", err)
	}
	rate := dec.SampleRate()
	if rate <= 0 {
		return 0, fmt.Errorf("invalid sample rate %d", rate)
	}
	frames := dec.Length() / 4
	return time.Duration(frames) * time.Second / time.Duration(rate), nil
}
