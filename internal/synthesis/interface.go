package synthesis

import "context"

// Synthesizer performs exactly one text-to-audio request and returns
// compressed (MP3) audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}

// Transcoder converts raw PCM16LE mono samples to MP3. The generative
// backend needs one; the cloud backend returns MP3 directly.
type Transcoder interface {
	PCMToMP3(pcm []byte, sampleRate int) ([]byte, error)
}
