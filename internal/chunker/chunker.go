package chunker

import (
	"regexp"
	"strings"
)

// minChunkBytes guards against degenerate tiny chunks when a caller
// passes an aggressive byte limit.
const minChunkBytes = 500

// Chunk is one ordered piece of text sized to fit a single backend
// request. Index determines final audio ordering.
type Chunk struct {
	Index   int
	Content string
}

func (c Chunk) ByteSize() int {
	return len(c.Content)
}

var ssmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// StripSSML removes angle-bracket SSML tags while preserving
// square-bracket markup tags such as [sigh] or [short pause].
func StripSSML(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(ssmlTagPattern.ReplaceAllString(text, ""))
}

// Split breaks text into chunks not exceeding maxBytes, packing whole
// sentences greedily. Sentence terminators are language aware: Korean
// text also splits on full-width CJK terminators. A sentence that alone
// exceeds maxBytes is repacked at word granularity; a single word over
// the limit passes through unmodified rather than being cut mid-rune.
func Split(text, language string, maxBytes int) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if maxBytes < minChunkBytes {
		maxBytes = minChunkBytes
	}

	sentences := splitSentences(text, language)

	var chunks []Chunk
	var current string

	flush := func() {
		if trimmed := strings.TrimSpace(current); trimmed != "" {
			chunks = append(chunks, Chunk{Index: len(chunks), Content: trimmed})
		}
		current = ""
	}

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		candidate := sentence
		if current != "" {
			candidate = current + " " + sentence
		}

		if len(candidate) <= maxBytes {
			current = candidate
			continue
		}

		flush()

		if len(sentence) <= maxBytes {
			current = sentence
			continue
		}

		// Sentence alone exceeds the limit: fall back to word packing.
		current = packWords(sentence, maxBytes, func(full string) {
			chunks = append(chunks, Chunk{Index: len(chunks), Content: full})
		})
	}
	flush()

	return chunks
}

// packWords greedily packs words up to maxBytes, emitting full chunks
// through emit and returning the unfinished remainder.
func packWords(sentence string, maxBytes int, emit func(string)) string {
	var current string
	for _, word := range strings.Fields(sentence) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if len(candidate) <= maxBytes {
			current = candidate
			continue
		}
		if current != "" {
			emit(current)
		}
		// A single word over the limit is emitted as-is; truncating it
		// would corrupt the text mid-character.
		current = word
	}
	return current
}

func isTerminator(r rune, korean bool) bool {
	switch r {
	case '.', '!', '?':
		return true
	case '。', '！', '？':
		return korean
	}
	return false
}

// splitSentences yields sentences with their terminators attached.
// Text without any terminator is returned as a single sentence.
func splitSentences(text, language string) []string {
	korean := language == "ko"

	var sentences []string
	var sb strings.Builder
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		sb.WriteRune(runes[i])
		if !isTerminator(runes[i], korean) {
			continue
		}
		// Consume the terminator run and trailing whitespace so chunks
		// keep their natural spacing.
		for i+1 < len(runes) && isTerminator(runes[i+1], korean) {
			i++
			sb.WriteRune(runes[i])
		}
		for i+1 < len(runes) && (runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' || runes[i+1] == '\r') {
			i++
			sb.WriteRune(runes[i])
		}
		sentences = append(sentences, sb.String())
		sb.Reset()
	}

	if sb.Len() > 0 {
		sentences = append(sentences, sb.String())
	}

	return sentences
}
