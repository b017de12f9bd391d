package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultBatchSize caps how many turns go into one synthesis request.
	DefaultBatchSize = 9

	// minBatchBytes keeps dialogue batches from collapsing under an
	// aggressive byte limit.
	minBatchBytes = 800
)

// Turn is one speaker's utterance in two-host dialogue mode.
type Turn struct {
	Speaker int // 1 or 2
	Text    string
}

// Batch bundles consecutive turns into one synthesis request. Index
// determines final audio ordering.
type Batch struct {
	Index int
	Turns []Turn
}

// Render produces the request text: one "Host N: ..." line per turn.
func (b Batch) Render() string {
	lines := make([]string, 0, len(b.Turns))
	for _, turn := range b.Turns {
		lines = append(lines, fmt.Sprintf("Host %d: %s", turn.Speaker, turn.Text))
	}
	return strings.Join(lines, "\n")
}

var speakerLabelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*[-*]?\s*(?:Host|Speaker|화자)\s*([12])\s*[:：\-]\s*`),
	regexp.MustCompile(`(?i)^\s*\[(?:Host|Speaker|화자)\s*([12])\]\s*`),
}

// ParseDialogue extracts speaker turns from a transcript with
// "Host 1:" / "[Speaker 2]" style labels. Unlabeled lines continue the
// current speaker's turn. Text before the first label is dropped.
func ParseDialogue(text string) []Turn {
	var turns []Turn
	speaker := 0
	var current strings.Builder

	flush := func() {
		if speaker != 0 && strings.TrimSpace(current.String()) != "" {
			turns = append(turns, Turn{Speaker: speaker, Text: strings.TrimSpace(current.String())})
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var matched []string
		for _, pattern := range speakerLabelPatterns {
			if m := pattern.FindStringSubmatch(line); m != nil {
				matched = m
				break
			}
		}
		if matched != nil {
			flush()
			speaker = int(matched[1][0] - '0')
			current.WriteString(strings.TrimSpace(line[len(matched[0]):]))
			continue
		}

		if speaker != 0 {
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(line)
		}
	}
	flush()

	return turns
}

// MergeTurns collapses consecutive turns from the same speaker into one.
func MergeTurns(turns []Turn) []Turn {
	if len(turns) == 0 {
		return nil
	}

	merged := []Turn{turns[0]}
	for _, turn := range turns[1:] {
		last := &merged[len(merged)-1]
		if turn.Speaker == last.Speaker {
			last.Text = strings.TrimSpace(last.Text + " " + turn.Text)
			continue
		}
		merged = append(merged, turn)
	}
	return merged
}

// AlternateLines builds a dialogue from an unlabeled script by assigning
// non-empty lines to Host 1 and Host 2 in alternation. Used as a
// fallback when a radio-show script carries no speaker labels.
func AlternateLines(text string) []Turn {
	var turns []Turn
	speaker := 1
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		turns = append(turns, Turn{Speaker: speaker, Text: line})
		if speaker == 1 {
			speaker = 2
		} else {
			speaker = 1
		}
	}
	return turns
}

// BuildBatches packs turns into batches capped by both batchSize turns
// and maxBytes of rendered text. A new batch starts whenever either cap
// would be exceeded. Turn order is preserved within and across batches.
func BuildBatches(turns []Turn, batchSize, maxBytes int) []Batch {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if maxBytes < minBatchBytes {
		maxBytes = minBatchBytes
	}

	var batches []Batch
	var current []Turn
	currentBytes := 0

	flush := func() {
		if len(current) > 0 {
			batches = append(batches, Batch{Index: len(batches), Turns: current})
			current = nil
			currentBytes = 0
		}
	}

	for _, turn := range turns {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}
		turn.Text = text

		lineBytes := len(fmt.Sprintf("Host %d: %s", turn.Speaker, text)) + 1 // newline

		if len(current) >= batchSize || (currentBytes+lineBytes > maxBytes && len(current) > 0) {
			flush()
		}

		current = append(current, turn)
		currentBytes += lineBytes
	}
	flush()

	return batches
}
