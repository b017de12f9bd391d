package chunker

import (
	"fmt"
	"strings"
	"testing"
)

func TestParseDialogue(t *testing.T) {
	text := `Host 1: Welcome to the show.
Host 2: Glad to be here!
This continues my thought.
Host 1: Back to you.`

	turns := ParseDialogue(text)
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[0].Speaker != 1 || turns[0].Text != "Welcome to the show." {
		t.Errorf("unexpected first turn: %+v", turns[0])
	}
	if turns[1].Speaker != 2 || turns[1].Text != "Glad to be here! This continues my thought." {
		t.Errorf("continuation line should join previous turn: %+v", turns[1])
	}
	if turns[2].Speaker != 1 {
		t.Errorf("unexpected third turn speaker: %d", turns[2].Speaker)
	}
}

func TestParseDialogue_LabelVariants(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		speaker int
	}{
		{"host with space", "Host 1: hello", 1},
		{"speaker label", "Speaker 2: hello", 2},
		{"korean label", "화자1: hello", 1},
		{"bracketed", "[Host 2] hello", 2},
		{"dash separator", "Host 1 - hello", 1},
		{"lowercase", "host 2: hello", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turns := ParseDialogue(tt.line)
			if len(turns) != 1 {
				t.Fatalf("expected 1 turn, got %d", len(turns))
			}
			if turns[0].Speaker != tt.speaker {
				t.Errorf("expected speaker %d, got %d", tt.speaker, turns[0].Speaker)
			}
			if turns[0].Text != "hello" {
				t.Errorf("expected text %q, got %q", "hello", turns[0].Text)
			}
		})
	}
}

func TestParseDialogue_NoLabels(t *testing.T) {
	turns := ParseDialogue("just some narration\nwith no speakers")
	if len(turns) != 0 {
		t.Errorf("expected no turns without labels, got %d", len(turns))
	}
}

func TestMergeTurns(t *testing.T) {
	turns := []Turn{
		{Speaker: 1, Text: "First."},
		{Speaker: 1, Text: "Still me."},
		{Speaker: 2, Text: "Reply."},
		{Speaker: 1, Text: "Again."},
	}

	merged := MergeTurns(turns)
	if len(merged) != 3 {
		t.Fatalf("expected 3 merged turns, got %d", len(merged))
	}
	if merged[0].Text != "First. Still me." {
		t.Errorf("consecutive same-speaker turns should merge, got %q", merged[0].Text)
	}
	if merged[1].Speaker != 2 || merged[2].Speaker != 1 {
		t.Errorf("speaker alternation broken: %+v", merged)
	}
}

func TestMergeTurns_Empty(t *testing.T) {
	if got := MergeTurns(nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestAlternateLines(t *testing.T) {
	turns := AlternateLines("line one\n\nline two\nline three")
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	wantSpeakers := []int{1, 2, 1}
	for i, want := range wantSpeakers {
		if turns[i].Speaker != want {
			t.Errorf("turn %d: expected speaker %d, got %d", i, want, turns[i].Speaker)
		}
	}
}

func TestBuildBatches_TurnCountCap(t *testing.T) {
	var turns []Turn
	for i := 0; i < 20; i++ {
		turns = append(turns, Turn{Speaker: i%2 + 1, Text: fmt.Sprintf("turn number %d", i)})
	}

	batches := BuildBatches(turns, 9, 3800)
	if len(batches) != 3 {
		t.Fatalf("expected ceil(20/9)=3 batches, got %d", len(batches))
	}
	if len(batches[0].Turns) != 9 || len(batches[1].Turns) != 9 || len(batches[2].Turns) != 2 {
		t.Errorf("unexpected batch sizes: %d/%d/%d",
			len(batches[0].Turns), len(batches[1].Turns), len(batches[2].Turns))
	}

	// Reconstructing the transcript from batches must preserve turn order.
	var got []string
	for _, b := range batches {
		for _, turn := range b.Turns {
			got = append(got, turn.Text)
		}
	}
	for i, text := range got {
		want := fmt.Sprintf("turn number %d", i)
		if text != want {
			t.Fatalf("turn %d out of order: got %q, want %q", i, text, want)
		}
	}
}

func TestBuildBatches_ByteCap(t *testing.T) {
	long := strings.Repeat("y", 700)
	turns := []Turn{
		{Speaker: 1, Text: long},
		{Speaker: 2, Text: long},
		{Speaker: 1, Text: long},
	}

	batches := BuildBatches(turns, 9, 1500)
	if len(batches) != 2 {
		t.Fatalf("expected byte cap to force 2 batches, got %d", len(batches))
	}
	for i, b := range batches {
		if size := len(b.Render()); size > 1500 {
			t.Errorf("batch %d rendered to %d bytes, over the cap", i, size)
		}
	}
}

func TestBuildBatches_SkipsEmptyTurns(t *testing.T) {
	turns := []Turn{
		{Speaker: 1, Text: "hello"},
		{Speaker: 2, Text: "   "},
		{Speaker: 1, Text: "world"},
	}
	batches := BuildBatches(turns, 9, 3800)
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	if len(batches[0].Turns) != 2 {
		t.Errorf("expected empty turn dropped, got %d turns", len(batches[0].Turns))
	}
}

func TestBatchRender(t *testing.T) {
	b := Batch{Turns: []Turn{
		{Speaker: 1, Text: "Hello."},
		{Speaker: 2, Text: "Hi there."},
	}}
	want := "Host 1: Hello.\nHost 2: Hi there."
	if got := b.Render(); got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}
