package agentbrain

import (
	"context"
	"fmt"
)

// Persona is the assistant's name and a short list of personality traits,
// assembled into the system prompt the same way agent_mode_improved.py
// built its persona block.
type Persona struct {
	AssistantName string
	Traits        []string
}

// Brain is the concrete AgentBrain the agent adapter calls through one
// interface per SPEC_FULL.md §4.8a, bundling memory, info, and scheduling.
// Emotion classification is the package-level Classify function, which
// Brain does not call.
type Brain struct {
	Persona   Persona
	Memory    *Memory
	Info      *Info
	Scheduler *Scheduler
}

// New builds a brain with fresh, empty collaborators.
func New(persona Persona, weatherAPIKey string) *Brain {
	return &Brain{
		Persona:   persona,
		Memory:    NewMemory(50),
		Info:      NewInfo(weatherAPIKey),
		Scheduler: NewScheduler(),
	}
}

// SystemPrompt assembles the persona and remembered facts into the system
// message the agent adapter prepends to every chat call.
func (b *Brain) SystemPrompt() string {
	prompt := fmt.Sprintf("You are %s, a helpful home assistant.", b.Persona.AssistantName)
	if len(b.Persona.Traits) > 0 {
		prompt += " Your personality: "
		for i, t := range b.Persona.Traits {
			if i > 0 {
				prompt += ", "
			}
			prompt += t
		}
		prompt += "."
	}
	if summary := b.Memory.Summary(); summary != "" {
		prompt += " " + summary
	}
	return prompt
}

// ReferenceData returns a "[reference data]" block for text if the info or
// scheduler collaborators have anything relevant, per spec.md §4.8 step 1.
func (b *Brain) ReferenceData(ctx context.Context, text string) (string, bool) {
	if data, ok := b.Info.Lookup(ctx, text); ok {
		return "[reference data] " + data, true
	}
	if upcoming := b.Scheduler.Upcoming(); upcoming != "" {
		return "[reference data] " + upcoming, true
	}
	return "", false
}

// Observe feeds a user utterance to the memory collaborator so important
// facts are captured across turns.
func (b *Brain) Observe(text string) {
	b.Memory.ExtractImportant(text)
}
