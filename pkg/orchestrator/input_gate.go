package orchestrator

import "sync"

// StreamDecision is the outcome of a gate transition.
type StreamDecision string

const (
	DecisionAccepted StreamDecision = "accepted"
	DecisionRejected StreamDecision = "rejected"
	DecisionAccept   StreamDecision = "accept"
	DecisionDrop     StreamDecision = "drop"
	DecisionIgnore   StreamDecision = "ignore"
)

// InputGate enforces half-duplex, one-turn-at-a-time admission for a single
// connection: at most one in-flight turn is ever handed to the job queue,
// and any utterance that arrives while a turn is in flight is fully drained
// from the wire but never enqueued. Every transition is atomic under one
// lock; there is no queueing of rejected streams.
type InputGate struct {
	mu           sync.Mutex
	busy         bool
	streamActive bool
	drop         bool
}

// NewInputGate returns a gate in its initial idle state.
func NewInputGate() *InputGate {
	return &InputGate{}
}

// StartStream begins a new inbound stream. If a turn is already in flight
// (busy) or a stream is already active, the new stream is marked to drop
// and rejected; the caller must still drain it to END without buffering.
func (g *InputGate) StartStream() StreamDecision {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy || g.streamActive {
		g.streamActive = true
		g.drop = true
		return DecisionRejected
	}
	g.streamActive = true
	g.drop = false
	return DecisionAccepted
}

// CanAcceptAudio reports whether AUDIO payload should be buffered right now.
func (g *InputGate) CanAcceptAudio() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.streamActive && !g.drop
}

// EndStream closes the current stream. A stream that was never started
// returns ignore. Otherwise stream/drop state is cleared and the decision
// reflects whether the stream had been marked for drop.
func (g *InputGate) EndStream() StreamDecision {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.streamActive {
		return DecisionIgnore
	}
	wasDrop := g.drop
	g.streamActive = false
	g.drop = false
	if wasDrop {
		return DecisionDrop
	}
	return DecisionAccept
}

// MarkBusy and MarkIdle bracket the full turn (STT + dispatch + send) so a
// new stream arriving mid-turn is rejected by StartStream. The session reader
// calls MarkBusy when it enqueues an accepted utterance; the worker calls
// MarkIdle when that turn ends.
func (g *InputGate) MarkBusy() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.busy = true
}

func (g *InputGate) MarkIdle() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.busy = false
}

// Busy reports whether a turn is currently in flight, for status reporting.
func (g *InputGate) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}
