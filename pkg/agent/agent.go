// Package agent implements the conversational mode adapter: turning a
// transcribed utterance into a spoken reply via an LLM and TTS provider,
// per SPEC_FULL.md §4.8.
package agent

import (
	"context"

	"github.com/lokutor-ai/hearth/pkg/agentbrain"
	"github.com/lokutor-ai/hearth/pkg/audio"
	"github.com/lokutor-ai/hearth/pkg/orchestrator"
)

const (
	maxHistoryTurns  = 20
	replyTemperature = 0.8
	replyMaxTokens   = 256
	ttsMaxChunks     = 3
	crossFadeOverlap = 10 * audio.SampleRate / 1000
)

const fallbackReply = "Sorry, I'm having trouble thinking right now."

// Turn is one exchange in the bounded conversation history fed back to the
// LLM as context.
type Turn struct {
	User      string
	Assistant string
}

// Adapter drives the agent mode: LLM reply generation, intent extraction,
// text sanitization, and TTS synthesis with per-chunk post-processing.
type Adapter struct {
	llm           orchestrator.LLMProvider
	tts           orchestrator.TTSProvider
	brain         *agentbrain.Brain
	voice         string
	lang          orchestrator.Language
	assistantName string
	logger        orchestrator.Logger

	history []Turn
}

// New builds an Adapter around the given LLM/TTS providers and brain
// façade. assistantName drives self-introduction stripping in replies.
func New(llm orchestrator.LLMProvider, tts orchestrator.TTSProvider, brain *agentbrain.Brain, voice string, lang orchestrator.Language, logger orchestrator.Logger) *Adapter {
	if logger == nil {
		logger = &orchestrator.NoOpLogger{}
	}
	return &Adapter{
		llm:           llm,
		tts:           tts,
		brain:         brain,
		voice:         voice,
		lang:          lang,
		assistantName: brain.Persona.AssistantName,
		logger:        logger,
	}
}

// Reply generates the assistant's spoken response to a transcribed
// utterance: system prompt + reference data + bounded history go to the
// LLM, the reply is stripped of its intent tag and sanitized, and the
// resulting text is returned alongside the extracted intent. On any LLM
// failure a canned apology is returned with IntentNone rather than
// propagating the error, matching the robot adapter's never-propagate
// policy for user-facing failures.
func (a *Adapter) Reply(ctx context.Context, text string) (string, Intent) {
	a.brain.Observe(text)

	messages := a.buildMessages(ctx, text)
	raw, err := a.llm.Complete(ctx, messages, orchestrator.ChatOptions{
		Temperature: replyTemperature,
		MaxTokens:   replyMaxTokens,
	})
	if err != nil {
		a.logger.Warn("agent: llm completion failed", "error", err)
		return fallbackReply, IntentNone
	}

	stripped, intent := ExtractIntent(raw)
	clean := Sanitize(stripped, a.assistantName)

	a.pushHistory(text, clean)
	return clean, intent
}

func (a *Adapter) buildMessages(ctx context.Context, text string) []orchestrator.Message {
	messages := make([]orchestrator.Message, 0, len(a.history)*2+2)
	messages = append(messages, orchestrator.Message{Role: "system", Content: a.brain.SystemPrompt()})

	if ref, ok := a.brain.ReferenceData(ctx, text); ok {
		messages = append(messages, orchestrator.Message{Role: "system", Content: ref})
	}

	for _, turn := range a.history {
		messages = append(messages, orchestrator.Message{Role: "user", Content: turn.User})
		messages = append(messages, orchestrator.Message{Role: "assistant", Content: turn.Assistant})
	}
	messages = append(messages, orchestrator.Message{Role: "user", Content: text})
	return messages
}

func (a *Adapter) pushHistory(user, assistant string) {
	a.history = append(a.history, Turn{User: user, Assistant: assistant})
	if len(a.history) > maxHistoryTurns {
		a.history = a.history[len(a.history)-maxHistoryTurns:]
	}
}

// Synthesize runs the full TTS pipeline for a reply: chunk the text,
// synthesize and post-process each chunk independently, then cross-fade
// adjacent chunks together and encode the merged audio as PCM16LE.
func (a *Adapter) Synthesize(ctx context.Context, text string) ([]byte, error) {
	samples, err := a.SynthesizeSamples(ctx, text)
	if err != nil {
		return nil, err
	}
	return audio.Float32ToPCM16(samples), nil
}

// SynthesizeSamples runs the TTS pipeline and returns the merged float32
// samples without the final PCM16LE encode step, for callers (like the
// outbound streaming path) that want to post-process further.
func (a *Adapter) SynthesizeSamples(ctx context.Context, text string) ([]float32, error) {
	chunks := ChunkForTTS(text, ttsMaxChunks)

	rendered := make([][]float32, 0, len(chunks))
	for i, chunk := range chunks {
		samples, err := a.tts.Synthesize(ctx, chunk, a.voice, a.lang)
		if err != nil {
			return nil, err
		}
		rendered = append(rendered, postProcessChunk(samples, i, len(chunks)))
	}

	merged := rendered[0]
	for i := 1; i < len(rendered); i++ {
		merged = audio.CrossFade(merged, rendered[i], crossFadeOverlap)
	}
	return merged, nil
}

// postProcessChunk removes DC offset, trims silence with a position-
// dependent pad (first/last chunks keep more room for the cross-fade
// boundary they lack, a lone chunk keeps the most), normalizes toward the
// outbound loudness target, and applies the boundary fade.
func postProcessChunk(samples []float32, index, total int) []float32 {
	samples = audio.RemoveDCOffset(samples)

	padMS := 40
	switch {
	case total == 1:
		padMS = 140
	case index == 0 || index == total-1:
		padMS = 80
	}
	samples = audio.EnergyTrim(samples, audio.TrimOptions{TopDB: audio.DefaultInboundTrim.TopDB, PadMS: padMS})
	samples = audio.Normalize(samples, audio.DefaultOutboundNormalize)
	samples = audio.ApplyFade(samples)
	return samples
}
