package robot

import (
	"context"
	"strings"
	"testing"

	"github.com/lokutor-ai/hearth/pkg/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	responses []string
	call      int
	err       error
}

func (f *fakeLLM) Complete(ctx context.Context, messages []orchestrator.Message, opts orchestrator.ChatOptions) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	resp := f.responses[f.call]
	if f.call < len(f.responses)-1 {
		f.call++
	}
	return resp, nil
}

func (f *fakeLLM) Name() string { return "fake-llm" }

func TestDecideServoSetCenter(t *testing.T) {
	llm := &fakeLLM{responses: []string{"가운데로", `{"action":"SERVO_SET","angle":90}`}}
	a := New(llm, []string{"center", "left", "right"}, nil)

	cmd := a.Decide(context.Background(), "가운데로", 45)
	assert.Equal(t, orchestrator.ActionServoSet, cmd.Action)
	require.NotNil(t, cmd.Angle)
	assert.Equal(t, 90, *cmd.Angle)
}

func TestDecideDiscardsOverlongRefinement(t *testing.T) {
	llm := &fakeLLM{responses: []string{strings.Repeat("x", 100), `{"action":"STOP"}`}}
	a := New(llm, nil, nil)

	cmd := a.Decide(context.Background(), "go", 0)
	assert.Equal(t, orchestrator.ActionStop, cmd.Action)
}

func TestDecideMalformedResponseYieldsNoop(t *testing.T) {
	llm := &fakeLLM{responses: []string{"", "not a json object at all"}}
	a := New(llm, nil, nil)

	cmd := a.Decide(context.Background(), "hello", 0)
	assert.Equal(t, orchestrator.ActionNoop, cmd.Action)
}

func TestDecideLLMErrorYieldsNoop(t *testing.T) {
	a := New(&fakeLLM{err: assert.AnError}, nil, nil)

	cmd := a.Decide(context.Background(), "hello", 0)
	assert.Equal(t, orchestrator.ActionNoop, cmd.Action)
}
