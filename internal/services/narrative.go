package services

import (
	"fmt"
	"strings"
	"unicode"
)

// defaultSceneTokenBudget caps how much text lands on one storybook page.
const defaultSceneTokenBudget = 250

// BuildMasterPrompt expands the user's character and style descriptions into
// the instruction block prepended to every image-generation call, so the
// character and art style stay consistent across all scenes of one book.
func BuildMasterPrompt(characterDesc, styleDesc string) string {
	return "Master Instructions: Create all images with the following consistent style and character. " +
		fmt.Sprintf("Character Details: A character based on the description '%s'. ", characterDesc) +
		"Maintain the character's facial features, clothing, and hair style identically in every image. " +
		fmt.Sprintf("Artistic Style: A consistent style of '%s'. ", styleDesc) +
		"The color palette, line work, and overall mood must be the same across all images. " +
		"Do not include any text, letters, or numbers in the generated images. " +
		"This is a storybook, so ensure the style is cohesive from one image to the next."
}

// ScenePrompt combines the book's master prompt with one scene's text.
func ScenePrompt(masterPrompt, sceneText string) string {
	return masterPrompt + "\n\nCurrent Scene: " + sceneText
}

// SegmentStory splits a story into scenes of roughly maxTokens each by
// packing whole sentences greedily. A sentence larger than the budget gets a
// scene of its own rather than being split mid-sentence. When the text has
// no recognizable sentences the non-empty lines become the scenes.
func SegmentStory(fullText string, maxTokens int) []string {
	if maxTokens <= 0 {
		maxTokens = defaultSceneTokenBudget
	}

	sentences := splitSentences(fullText)
	if len(sentences) == 0 {
		return nonEmptyLines(fullText)
	}

	var scenes []string
	var current []string
	currentTokens := 0

	for _, s := range sentences {
		t := CountTokens(s, "")
		if len(current) > 0 && currentTokens+t > maxTokens {
			scenes = append(scenes, strings.Join(current, " "))
			current = []string{s}
			currentTokens = t
			continue
		}
		current = append(current, s)
		currentTokens += t
	}
	if len(current) > 0 {
		scenes = append(scenes, strings.Join(current, " "))
	}
	return scenes
}

// splitSentences breaks text on sentence terminators (. ! ?) followed by
// whitespace. Terminators stay attached to their sentence.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	runes := []rune(strings.TrimSpace(text))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		b.WriteRune(r)
		if !isTerminator(r) {
			continue
		}
		// consume trailing closers like quotes or parens
		for i+1 < len(runes) && isCloser(runes[i+1]) {
			i++
			b.WriteRune(runes[i])
		}
		if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
			}
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	return r == '"' || r == '\'' || r == ')' || r == ']' || r == '”' || r == '’'
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
	}
	return out
}
