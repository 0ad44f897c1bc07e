package services

import (
	"strings"
	"testing"
)

func TestBuildMasterPromptEmbedsDescriptions(t *testing.T) {
	prompt := BuildMasterPrompt("a small robot with a red scarf", "flat vector art")
	if !strings.Contains(prompt, "a small robot with a red scarf") {
		t.Fatalf("character description missing from prompt")
	}
	if !strings.Contains(prompt, "flat vector art") {
		t.Fatalf("style description missing from prompt")
	}
	if !strings.Contains(prompt, "Do not include any text") {
		t.Fatalf("no-text instruction missing from prompt")
	}
}

func TestScenePrompt(t *testing.T) {
	got := ScenePrompt("MASTER", "The robot sets off.")
	want := "MASTER\n\nCurrent Scene: The robot sets off."
	if got != want {
		t.Fatalf("ScenePrompt = %q, want %q", got, want)
	}
}

func TestSegmentStoryShortStorySingleScene(t *testing.T) {
	scenes := SegmentStory("A tiny tale. It ends quickly.", 250)
	if len(scenes) != 1 {
		t.Fatalf("got %d scenes, want 1: %v", len(scenes), scenes)
	}
	if scenes[0] != "A tiny tale. It ends quickly." {
		t.Fatalf("scene text = %q", scenes[0])
	}
}

func TestSegmentStorySplitsOnBudget(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("The fox ran through the dark and tangled forest for a very long time. ")
	}
	scenes := SegmentStory(b.String(), 50)
	if len(scenes) < 2 {
		t.Fatalf("expected multiple scenes, got %d", len(scenes))
	}
	// no sentence may be split across scenes
	for _, scene := range scenes {
		if !strings.HasSuffix(strings.TrimSpace(scene), ".") {
			t.Fatalf("scene does not end on a sentence boundary: %q", scene)
		}
	}
	joined := strings.Join(scenes, " ")
	if strings.Count(joined, "The fox ran") != 40 {
		t.Fatalf("sentences lost or duplicated during segmentation")
	}
}

func TestSegmentStoryOversizedSentenceGetsOwnScene(t *testing.T) {
	long := "This single sentence rambles on and on, far past any reasonable budget, " +
		strings.Repeat("meandering through clause after clause ", 30) + "until it finally stops."
	scenes := SegmentStory("Short one. "+long+" Another short one.", 20)
	if len(scenes) != 3 {
		t.Fatalf("got %d scenes, want 3", len(scenes))
	}
	if scenes[0] != "Short one." {
		t.Fatalf("scene 0 = %q", scenes[0])
	}
	if scenes[2] != "Another short one." {
		t.Fatalf("scene 2 = %q", scenes[2])
	}
}

func TestSegmentStoryNoSentencesFallsBackToLines(t *testing.T) {
	scenes := SegmentStory("line one\n\nline two\nline three\n", 250)
	if len(scenes) != 3 {
		t.Fatalf("got %d scenes, want 3: %v", len(scenes), scenes)
	}
	if scenes[1] != "line two" {
		t.Fatalf("scene 1 = %q", scenes[1])
	}
}

func TestSplitSentencesKeepsClosers(t *testing.T) {
	sentences := splitSentences(`"Hello!" she said. He waved back.`)
	if len(sentences) != 3 {
		t.Fatalf("got %d sentences, want 3: %v", len(sentences), sentences)
	}
	if sentences[0] != `"Hello!"` {
		t.Fatalf("sentence 0 = %q", sentences[0])
	}
}

func TestCountTokensNeverZero(t *testing.T) {
	if got := CountTokens("a", ""); got < 1 {
		t.Fatalf("CountTokens(\"a\") = %d", got)
	}
	short := CountTokens("one sentence", "")
	long := CountTokens(strings.Repeat("one sentence ", 50), "")
	if long <= short {
		t.Fatalf("token count not monotonic: short=%d long=%d", short, long)
	}
}
