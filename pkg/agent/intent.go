package agent

import "regexp"

// Intent is the closed set of directives the LLM reply can carry inline,
// extracted and stripped before the text is spoken.
type Intent string

const (
	IntentNone      Intent = "none"
	IntentSleep     Intent = "sleep"
	IntentModeRobot Intent = "mode_robot"
	IntentModeAgent Intent = "mode_agent"
)

var validIntents = map[string]Intent{
	string(IntentNone):      IntentNone,
	string(IntentSleep):     IntentSleep,
	string(IntentModeRobot): IntentModeRobot,
	string(IntentModeAgent): IntentModeAgent,
}

var intentTagRE = regexp.MustCompile(`\[INTENT:(\w+)\]`)

// ExtractIntent finds and strips a [INTENT:x] tag from text, returning the
// stripped text and the parsed intent. An absent tag yields IntentNone and
// the text unchanged; an unrecognized tag yields IntentNone and is still
// stripped. The text is not trimmed.
func ExtractIntent(text string) (string, Intent) {
	match := intentTagRE.FindStringSubmatchIndex(text)
	if match == nil {
		return text, IntentNone
	}

	raw := text[match[2]:match[3]]
	intent, ok := validIntents[raw]
	if !ok {
		intent = IntentNone
	}

	stripped := text[:match[0]] + text[match[1]:]
	return stripped, intent
}
