package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStripsSelfIntroduction(t *testing.T) {
	out := Sanitize("안녕하세요 저는 Nova 입니다 how can I help?", "Nova")
	assert.NotContains(t, out, "저는")
	assert.Contains(t, out, "how can I help?")
}

func TestSanitizeStripsEmoji(t *testing.T) {
	out := Sanitize("Sure thing! 😊👍", "Nova")
	assert.Equal(t, "Sure thing!", out)
}

func TestSanitizeCollapsesWhitespace(t *testing.T) {
	out := Sanitize("hello    there   friend", "Nova")
	assert.Equal(t, "hello there friend", out)
}

func TestSanitizeEmptyResultReturnsClarification(t *testing.T) {
	out := Sanitize("저는 Nova 입니다", "Nova")
	assert.Equal(t, clarificationPhrase, out)
}

func TestSanitizeLeavesOrdinaryTextUnchanged(t *testing.T) {
	out := Sanitize("The weather is sunny today.", "Nova")
	assert.Equal(t, "The weather is sunny today.", out)
}
