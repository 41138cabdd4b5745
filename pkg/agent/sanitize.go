package agent

import (
	"fmt"
	"regexp"
	"strings"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

// emojiRE covers the pictograph/emoji/zero-width-joiner ranges the
// original assistant stripped from spoken replies (emoji don't speak well
// through TTS).
var emojiRE = regexp.MustCompile(`[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}\x{200D}\x{FE0F}]`)

func selfIntroRE(assistantName string) *regexp.Regexp {
	pattern := fmt.Sprintf(`^(안녕하세요)?\s*(저는|제 이름은)\s*%s\s*(입니다|이에요|예요)?`, regexp.QuoteMeta(assistantName))
	return regexp.MustCompile(pattern)
}

const clarificationPhrase = "죄송해요, 다시 한 번 말씀해 주시겠어요?"

// Sanitize removes a leading self-introduction, strips emoji and
// zero-width joiners, and collapses whitespace. An empty result is
// replaced with a canned clarification phrase rather than sending dead
// air through TTS.
func Sanitize(text, assistantName string) string {
	cleaned := selfIntroRE(assistantName).ReplaceAllString(text, "")
	cleaned = emojiRE.ReplaceAllString(cleaned, "")
	cleaned = whitespaceRE.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return clarificationPhrase
	}
	return cleaned
}
