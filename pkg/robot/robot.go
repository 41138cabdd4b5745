// Package robot implements the servo-controller mode's decision adapter:
// turning a cleaned STT transcript into a closed-set ActionCommand.
package robot

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/lokutor-ai/hearth/pkg/orchestrator"
)

var firstJSONObjectRE = regexp.MustCompile(`\{[^}]+\}`)

// Adapter decides a robot-mode action for a transcript. Any error from the
// LLM path is swallowed and yields NOOP; it never propagates, matching
// SPEC_FULL.md §4.7's error policy.
type Adapter struct {
	llm      orchestrator.LLMProvider
	commands []string
	logger   orchestrator.Logger
}

// New builds a robot adapter. commands is the short catalog of named
// servo/robot commands supplied to the LLM's decision prompt.
func New(llm orchestrator.LLMProvider, commands []string, logger orchestrator.Logger) *Adapter {
	if logger == nil {
		logger = &orchestrator.NoOpLogger{}
	}
	return &Adapter{llm: llm, commands: commands, logger: logger}
}

// Decide refines text (optionally), asks the LLM for a JSON-only action
// decision, and returns the resulting ActionCommand with any servo angle
// clamped to [0, 180]. On any failure it returns NOOP.
func (a *Adapter) Decide(ctx context.Context, text string, currentAngle int) orchestrator.ActionCommand {
	refined := a.refine(ctx, text)

	decision, err := a.llm.Complete(ctx, a.decisionMessages(refined, currentAngle), orchestrator.ChatOptions{Temperature: 0.2, MaxTokens: 128})
	if err != nil {
		a.logger.Warn("robot decision LLM call failed", "error", err)
		return orchestrator.ActionCommand{Action: orchestrator.ActionNoop}
	}

	object := firstJSONObjectRE.FindString(decision)
	if object == "" {
		return orchestrator.ActionCommand{Action: orchestrator.ActionNoop}
	}
	return orchestrator.ParseRobotDecision([]byte(object))
}

// refine asks the LLM to clean up the recognized text; a refinement that is
// empty or more than 3x the original length is discarded in favor of the
// original, treating it as a runaway or hallucinated completion.
func (a *Adapter) refine(ctx context.Context, text string) string {
	messages := []orchestrator.Message{
		{Role: "system", Content: "Correct obvious speech-recognition errors in the following short command. Reply with only the corrected text, nothing else."},
		{Role: "user", Content: text},
	}
	refined, err := a.llm.Complete(ctx, messages, orchestrator.ChatOptions{Temperature: 0.1, MaxTokens: 64})
	if err != nil {
		return text
	}
	refined = strings.TrimSpace(refined)
	if refined == "" || len(refined) > 3*len(text) {
		return text
	}
	return refined
}

func (a *Adapter) decisionMessages(text string, currentAngle int) []orchestrator.Message {
	catalog := strings.Join(a.commands, ", ")
	system := fmt.Sprintf(
		"You control a servo-armed robot. Reply with exactly one JSON object and nothing else, "+
			"using only the action set {SERVO_SET, STOP, SWITCH_MODE, NOOP}, for example "+
			"{\"action\": \"SERVO_SET\", \"servo\": 0, \"angle\": 90} or {\"action\": \"STOP\", \"servo\": 0}. "+
			"SERVO_SET and STOP carry an integer \"servo\" index (0 if there is only one servo). "+
			"SERVO_SET also carries an integer \"angle\" in [0,180]. SWITCH_MODE carries a \"target\" of \"robot\" or \"agent\". "+
			"The current servo angle is %d. Named commands you may recognize: %s.",
		currentAngle, catalog,
	)
	return []orchestrator.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: text},
	}
}
