package session

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/lokutor-ai/hearth/pkg/agent"
	"github.com/lokutor-ai/hearth/pkg/agentbrain"
	"github.com/lokutor-ai/hearth/pkg/orchestrator"
	"github.com/lokutor-ai/hearth/pkg/robot"
	"github.com/lokutor-ai/hearth/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSTT struct {
	text string
	err  error
}

func (s *scriptedSTT) Transcribe(ctx context.Context, samples []float32, lang orchestrator.Language) (string, error) {
	return s.text, s.err
}
func (s *scriptedSTT) Name() string { return "scripted-stt" }

type scriptedLLM struct {
	replies []string
	i       int
}

func (l *scriptedLLM) Complete(ctx context.Context, messages []orchestrator.Message, opts orchestrator.ChatOptions) (string, error) {
	if len(l.replies) == 0 {
		return "", nil
	}
	r := l.replies[l.i%len(l.replies)]
	l.i++
	return r, nil
}
func (l *scriptedLLM) Name() string { return "scripted-llm" }

type fixedTTS struct {
	n int
}

func (t *fixedTTS) Synthesize(ctx context.Context, text string, voice string, lang orchestrator.Language) ([]float32, error) {
	n := t.n
	if n == 0 {
		n = 2000
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = 0.15
	}
	return out, nil
}
func (t *fixedTTS) StreamSynthesize(ctx context.Context, text string, voice string, lang orchestrator.Language, onChunk func([]float32) error) error {
	s, _ := t.Synthesize(ctx, text, voice, lang)
	return onChunk(s)
}
func (t *fixedTTS) Name() string { return "fixed-tts" }

func newTestSession(t *testing.T, stt orchestrator.STTProvider, robotLLM, agentLLM orchestrator.LLMProvider) (*Session, *wire.Conn) {
	serverConn, clientConn := net.Pipe()

	robotAdapter := robot.New(robotLLM, []string{"wave", "sit"}, nil)
	brain := agentbrain.New(agentbrain.Persona{AssistantName: "Nova"}, "")
	agentAdapter := agent.New(agentLLM, &fixedTTS{}, brain, "default", orchestrator.LanguageEn, nil)

	s := New(wire.NewConn(serverConn, time.Second, 50), stt, robotAdapter, agentAdapter, Config{
		QueueCapacity:   4,
		MaxAudioSeconds: 12,
		StatusInterval:  time.Hour,
		Language:        orchestrator.LanguageEn,
	}, nil)

	client := wire.NewConn(clientConn, time.Second, 50)
	return s, client
}

// writeUtterance sends a complete START/AUDIO/END sequence carrying n
// samples' worth of non-silent PCM16LE audio.
func writeUtterance(client *wire.Conn, numSamples int) {
	client.WritePacket(wire.Start, nil)
	pcm := make([]byte, numSamples*2)
	for i := 0; i < numSamples; i++ {
		v := int16(8000)
		if i%2 == 0 {
			v = -8000
		}
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(v))
	}
	client.WritePacket(wire.Audio, pcm)
	client.WritePacket(wire.End, nil)
}

func TestSessionPingPong(t *testing.T) {
	s, client := newTestSession(t, &scriptedSTT{}, &scriptedLLM{}, &scriptedLLM{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Run(ctx)

	client.WritePacket(wire.Ping, nil)
	pkt, err := client.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, wire.Pong, pkt.Type)
}

func TestSessionAgentModeRepliesWithAudio(t *testing.T) {
	stt := &scriptedSTT{text: "what time is it"}
	agentLLM := &scriptedLLM{replies: []string{"It is two o'clock."}}
	s, client := newTestSession(t, stt, &scriptedLLM{}, agentLLM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// one second of loud audio, comfortably above the 0.45s / silence floors
	writeUtterance(client, orchestratorSampleRate())

	gotAudio := false
	gotEnd := false
	for i := 0; i < 64 && !gotEnd; i++ {
		pkt, err := client.ReadPacket()
		require.NoError(t, err)
		switch pkt.Type {
		case wire.AudioOut:
			gotAudio = true
		case wire.AudioOutEnd:
			gotEnd = true
		}
	}
	require.True(t, gotAudio)
	require.True(t, gotEnd)
}

func TestSessionRobotModeSendsNoopForShortUtterance(t *testing.T) {
	s, client := newTestSession(t, &scriptedSTT{}, &scriptedLLM{}, &scriptedLLM{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Run(ctx)
	go s.dispatcher.HandleModeSwitch(ctx, orchestrator.ModeRobot)

	// the HandleModeSwitch above sends a WIGGLE notification; drain it.
	pkt, err := client.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, wire.Cmd, pkt.Type)

	var wiggle map[string]interface{}
	require.NoError(t, json.Unmarshal(pkt.Payload, &wiggle))
	assert.Equal(t, "WIGGLE", wiggle["action"])

	// a too-short utterance (under 0.45s) triggers the unsure-policy NOOP,
	// per spec.md §8 scenario S6 — WIGGLE is reserved for mode-switch.
	writeUtterance(client, 100)

	pkt, err = client.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, wire.Cmd, pkt.Type)

	var noop map[string]interface{}
	require.NoError(t, json.Unmarshal(pkt.Payload, &noop))
	assert.Equal(t, "NOOP", noop["action"])
	assert.Equal(t, false, noop["meaningful"])
	assert.Equal(t, false, noop["recognized"])
}

func TestSessionRejectsOverlappingStreamWhileBusy(t *testing.T) {
	block := make(chan struct{})
	stt := &blockingSTT{block: block, text: "hello there"}
	agentLLM := &scriptedLLM{replies: []string{"ok"}}
	s, client := newTestSession(t, stt, &scriptedLLM{}, agentLLM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	writeUtterance(client, orchestratorSampleRate())

	// give the worker a moment to pick the job up and mark itself busy.
	time.Sleep(50 * time.Millisecond)

	// A second stream arriving mid-turn must be rejected by the gate: fully
	// drained but never produces its own response.
	writeUtterance(client, orchestratorSampleRate())

	close(block)

	gotEnd := 0
	for i := 0; i < 128 && gotEnd < 1; i++ {
		pkt, err := client.ReadPacket()
		require.NoError(t, err)
		if pkt.Type == wire.AudioOutEnd {
			gotEnd++
		}
	}
	require.Equal(t, 1, gotEnd)
}

type blockingSTT struct {
	block chan struct{}
	text  string
}

func (b *blockingSTT) Transcribe(ctx context.Context, samples []float32, lang orchestrator.Language) (string, error) {
	<-b.block
	return b.text, nil
}
func (b *blockingSTT) Name() string { return "blocking-stt" }

func orchestratorSampleRate() int {
	return 16000
}
