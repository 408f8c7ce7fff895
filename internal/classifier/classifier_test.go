package classifier_test

import (
	"testing"

	"github.com/yattcodes/ai-gateway/backend/internal/classifier"
)

func TestCommandPrefixAlwaysWins(t *testing.T) {
	c := classifier.New()

	cases := []string{
		"/image a red bicycle",
		"/IMAGE a red bicycle",
		"/generate image of anything at all",
		"/image what's the weather like today",
	}
	for _, msg := range cases {
		if !c.IsImageRequest(msg) {
			t.Fatalf("expected image verdict for %q", msg)
		}
	}
}

func TestKeywordFallback(t *testing.T) {
	c := classifier.New()

	cases := []string{
		"please generate image with a boat",
		"could you make image number two bigger",
		"I'd like a picture of my dog",
	}
	for _, msg := range cases {
		if !c.IsImageRequest(msg) {
			t.Fatalf("expected image verdict for %q", msg)
		}
	}
}

func TestPlainTextMessages(t *testing.T) {
	c := classifier.New()

	cases := []string{
		"",
		"what's the weather like today",
		"summarize this article for me",
		"tell me a joke about databases",
	}
	for _, msg := range cases {
		if c.IsImageRequest(msg) {
			t.Fatalf("expected text verdict for %q", msg)
		}
	}
}

func TestDeterministicVerdicts(t *testing.T) {
	c := classifier.New()

	msg := "generate a picture of a sunset"
	first := c.IsImageRequest(msg)
	for i := 0; i < 50; i++ {
		if c.IsImageRequest(msg) != first {
			t.Fatal("verdict changed between identical calls")
		}
	}
}

func TestContextIsIgnored(t *testing.T) {
	c := classifier.New()

	msg := "/image a red bicycle"
	if c.IsImageRequest(msg) != c.IsImageRequest(msg, "earlier", "context") {
		t.Fatal("context parameter affected the verdict")
	}
}
