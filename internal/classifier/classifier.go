// Package classifier decides which generation capability a raw chat
// message should be routed to: text completion or image generation.
package classifier

import (
	"strings"
	"unicode"

	"github.com/jbrukh/bayesian"
)

const (
	classText  bayesian.Class = "text"
	classImage bayesian.Class = "image"
)

// Explicit commands always win, regardless of other signals.
var imageCommands = []string{"/image", "/generate image"}

// Keyword fallback for phrasing the trained model misses.
var imageKeywords = []string{"generate image", "create image", "make image", "draw", "picture of"}

// Fixed training corpus. Training happens once in New; the model is
// immutable afterwards and safe for unsynchronized concurrent reads.
var trainingCorpus = []struct {
	text  string
	class bayesian.Class
}{
	{"can you create an image of a cat", classImage},
	{"generate a picture of a sunset", classImage},
	{"draw me a castle on a hill", classImage},
	{"make an illustration of a robot playing chess", classImage},
	{"what's the weather like today", classText},
	{"summarize this article for me", classText},
	{"how do I reverse a list in python", classText},
	{"tell me a joke about databases", classText},
}

// Classifier routes messages to a capability. Deterministic for
// identical input given the same trained state.
type Classifier struct {
	model *bayesian.Classifier
}

// New trains the intent model over the fixed corpus.
func New() *Classifier {
	model := bayesian.NewClassifier(classText, classImage)
	for _, doc := range trainingCorpus {
		model.Learn(tokenize(doc.text), doc.class)
	}
	return &Classifier{model: model}
}

// IsImageRequest reports whether the message asks for image generation.
// The conversational context is accepted for interface parity but does
// not influence the routing decision.
func (c *Classifier) IsImageRequest(message string, _ ...string) bool {
	if message == "" {
		return false
	}

	lowered := strings.ToLower(message)
	for _, command := range imageCommands {
		if strings.HasPrefix(lowered, command) {
			return true
		}
	}

	// Classes were registered text-first, so an untrained tie stays text.
	_, winner, _ := c.model.LogScores(tokenize(message))
	if winner == 1 {
		return true
	}

	for _, keyword := range imageKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
