package agentbrain

import "strings"

// Emotion is a closed classification of the user's apparent emotional
// state, used to steer persona tone. Unknown input always classifies as
// Neutral rather than introducing a stringly-typed catch-all.
type Emotion string

const (
	EmotionNeutral Emotion = "neutral"
	EmotionHappy   Emotion = "happy"
	EmotionSad     Emotion = "sad"
	EmotionAngry   Emotion = "angry"
	EmotionTired   Emotion = "tired"
)

var emotionKeywords = map[Emotion][]string{
	EmotionHappy: {"기뻐", "happy", "좋아", "신나", "excited", "great", "awesome"},
	EmotionSad:   {"슬퍼", "sad", "우울", "속상", "down", "depressed"},
	EmotionAngry: {"화나", "angry", "짜증", "mad", "furious"},
	EmotionTired: {"피곤", "tired", "졸려", "exhausted", "sleepy"},
}

// Classify maps text to the emotion whose keyword set matches first.
// Keyword sets are checked in a fixed order so the result is deterministic
// when multiple sets match.
func Classify(text string) Emotion {
	lower := strings.ToLower(text)
	order := []Emotion{EmotionAngry, EmotionSad, EmotionTired, EmotionHappy}
	for _, e := range order {
		for _, kw := range emotionKeywords[e] {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return e
			}
		}
	}
	return EmotionNeutral
}
