// Package session runs the per-connection pipeline: a reader task drives
// the wire protocol's state machine and feeds the bounded job queue, and an
// STT worker task drains jobs and drives STT -> dispatch -> send, per
// SPEC_FULL.md §4.5.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/lokutor-ai/hearth/pkg/agent"
	"github.com/lokutor-ai/hearth/pkg/audio"
	"github.com/lokutor-ai/hearth/pkg/orchestrator"
	"github.com/lokutor-ai/hearth/pkg/robot"
	"github.com/lokutor-ai/hearth/pkg/wire"
)

const (
	// minUtteranceSeconds below which a job is treated by the "unsure
	// policy" rather than transcribed.
	minUtteranceSeconds = 0.45
	workerPollTimeout   = 1 * time.Second
	defaultStatusEvery  = 10 * time.Second

	notifyAgentModePhrase = "Switching back to chat mode."
)

// state is the reader task's protocol state.
type state int

const (
	stateIdle state = iota
	stateCollecting
)

// Config bounds the behavior that otherwise varies across deployments:
// queue depth, max utterance length, and the status log cadence.
type Config struct {
	QueueCapacity   int
	MaxAudioSeconds int
	StatusInterval  time.Duration
	Language        orchestrator.Language
}

// DefaultConfig matches spec.md's reference values.
var DefaultConfig = Config{
	QueueCapacity:   4,
	MaxAudioSeconds: 12,
	StatusInterval:  defaultStatusEvery,
	Language:        orchestrator.LanguageEn,
}

// Session owns one accepted connection's full lifecycle: the reader task
// (run on the caller's goroutine via Run) and the STT worker task (spawned
// internally). Session State per spec.md §3 (sid_counter, active_mode,
// current_servo_angle, audio_buffer, active_sid) is split across the
// Session struct (sid_counter, the reader's local buffer) and the
// Dispatcher (active_mode, current_servo_angle).
type Session struct {
	conn       *wire.Conn
	gate       *orchestrator.InputGate
	queue      *orchestrator.JobQueue
	dispatcher *orchestrator.Dispatcher
	stt        orchestrator.STTProvider
	agent      *agent.Adapter
	cfg        Config
	logger     orchestrator.Logger

	maxAudioBytes int
	sidCounter    uint64
}

// New builds a Session wired to conn, ready to Run. robotAdapter and
// agentAdapter implement the two behavioral modes; the Dispatcher is built
// internally so its mode-switch notifications can call back into this
// session's send path.
func New(conn *wire.Conn, stt orchestrator.STTProvider, robotAdapter *robot.Adapter, agentAdapter *agent.Adapter, cfg Config, logger orchestrator.Logger) *Session {
	if logger == nil {
		logger = &orchestrator.NoOpLogger{}
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = DefaultConfig.QueueCapacity
	}
	if cfg.MaxAudioSeconds <= 0 {
		cfg.MaxAudioSeconds = DefaultConfig.MaxAudioSeconds
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = DefaultConfig.StatusInterval
	}
	if cfg.Language == "" {
		cfg.Language = DefaultConfig.Language
	}

	s := &Session{
		conn:          conn,
		gate:          orchestrator.NewInputGate(),
		queue:         orchestrator.NewJobQueue(cfg.QueueCapacity),
		stt:           stt,
		agent:         agentAdapter,
		cfg:           cfg,
		logger:        logger,
		maxAudioBytes: cfg.MaxAudioSeconds * audio.SampleRate * 2,
	}
	s.dispatcher = orchestrator.NewDispatcher(robotAdapter, &agentReplier{agentAdapter}, s.notifyAgentMode, s.notifyRobotMode, logger)
	return s
}

// agentReplier adapts *agent.Adapter to orchestrator.AgentReplier, narrowing
// agent.Intent to a plain string so pkg/orchestrator need not import
// pkg/agent (which already imports pkg/orchestrator for provider types).
type agentReplier struct {
	inner *agent.Adapter
}

func (a *agentReplier) Reply(ctx context.Context, text string) (string, string) {
	reply, intent := a.inner.Reply(ctx, text)
	return reply, string(intent)
}

func (a *agentReplier) SynthesizeSamples(ctx context.Context, text string) ([]float32, error) {
	return a.inner.SynthesizeSamples(ctx, text)
}

// Run drives the reader task on the calling goroutine and the STT worker
// task on an internal goroutine. It returns once the reader task exits
// (socket closed, protocol error, or ctx cancellation), after the worker has
// been signaled to stop and drained.
func (s *Session) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runWorker(ctx)
	}()

	readErr := s.runReader(ctx)
	s.queue.Close()
	wg.Wait()
	s.conn.Close()
	return readErr
}

// runReader implements the idle/collecting protocol state machine described
// in spec.md §4.5. It is the only code path that reads the socket.
func (s *Session) runReader(ctx context.Context) error {
	st := stateIdle
	var buf []byte
	var sid uint64
	accepted := false
	lastStatus := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		pkt, err := s.conn.ReadPacket()
		if err != nil {
			return err
		}

		switch pkt.Type {
		case wire.Ping:
			s.conn.WritePacket(wire.Pong, nil)

		case wire.Start:
			if st != stateIdle {
				s.logger.Warn("session: START received out of state", "state", st)
				break
			}
			decision := s.gate.StartStream()
			st = stateCollecting
			buf = buf[:0]
			if decision == orchestrator.DecisionAccepted {
				s.sidCounter++
				sid = s.sidCounter
				accepted = true
			} else {
				accepted = false
			}

		case wire.Audio:
			if st == stateCollecting && accepted && s.gate.CanAcceptAudio() {
				buf = append(buf, pkt.Payload...)
				if len(buf) > s.maxAudioBytes {
					s.finishCollecting(sid, buf)
					st = stateIdle
					buf = nil
					accepted = false
				}
			}

		case wire.End:
			if st == stateCollecting {
				s.finishCollecting(sid, buf)
				st = stateIdle
				buf = nil
				accepted = false
			}

		default:
			s.logger.Warn("session: unknown or out-of-state packet", "type", pkt.Type)
		}

		if time.Since(lastStatus) >= s.cfg.StatusInterval {
			s.logStatus()
			lastStatus = time.Now()
		}
	}
}

// finishCollecting applies end_stream() to the just-completed utterance:
// enqueue on accept, discard on drop/ignore.
func (s *Session) finishCollecting(sid uint64, buf []byte) {
	decision := s.gate.EndStream()
	if decision != orchestrator.DecisionAccept {
		return
	}

	s.gate.MarkBusy()
	audioCopy := make([]byte, len(buf))
	copy(audioCopy, buf)
	if err := s.queue.Put(orchestrator.Job{SID: sid, Audio: audioCopy}); err != nil {
		s.gate.MarkIdle()
	}
}

func (s *Session) logStatus() {
	s.logger.Info("session status",
		"mode", s.dispatcher.Mode(),
		"busy", s.gate.Busy(),
		"queueDepth", s.queue.Len(),
		"sttLoaded", s.stt != nil,
	)
}

// runWorker is the STT worker task: get(timeout=1s), exit on ErrQueueClosed,
// otherwise run the full turn and always mark_idle on the way out.
func (s *Session) runWorker(ctx context.Context) {
	for {
		job, err := s.queue.Get(workerPollTimeout)
		if errors.Is(err, orchestrator.ErrQueueClosed) {
			return
		}
		if errors.Is(err, orchestrator.ErrQueueEmpty) {
			continue
		}
		s.handleJob(ctx, job)
	}
}

func (s *Session) handleJob(ctx context.Context, job orchestrator.Job) {
	defer s.gate.MarkIdle()

	samples := audio.PCM16ToFloat32(job.Audio)
	durationSec := float64(len(samples)) / float64(audio.SampleRate)
	if durationSec < minUtteranceSeconds {
		s.handleUnsure(job.SID)
		return
	}

	qc := audio.Analyze(samples)
	if qc.IsSilence() {
		s.handleUnsure(job.SID)
		return
	}

	trimmed := audio.EnergyTrim(samples, audio.DefaultInboundTrim)
	normalized := audio.Normalize(trimmed, audio.DefaultInboundNormalize)

	text, err := s.stt.Transcribe(ctx, normalized, s.cfg.Language)
	if err != nil {
		s.logger.Warn("session: transcription failed", "error", err)
		return
	}
	text = orchestrator.CleanTranscript(text)

	s.dispatch(ctx, job.SID, text)
}

// handleUnsure implements the "unsure policy" for utterances too short or
// too quiet to transcribe: a NOOP in robot mode (spec.md §8 scenario S6),
// nothing in agent mode. WIGGLE is reserved for the mode-switch
// notification, never for this case.
func (s *Session) handleUnsure(sid uint64) {
	if s.dispatcher.Mode() != orchestrator.ModeRobot {
		return
	}
	s.sendCmd(orchestrator.NewNoop(sid, false))
}

func (s *Session) dispatch(ctx context.Context, sid uint64, text string) {
	switch s.dispatcher.Mode() {
	case orchestrator.ModeRobot:
		cmd := s.dispatcher.DispatchRobot(ctx, sid, text)
		if cmd.Action != "" {
			s.sendCmd(cmd)
		}

	case orchestrator.ModeAgent:
		_, samples, err := s.dispatcher.DispatchAgent(ctx, text)
		if err != nil {
			s.logger.Warn("session: agent synthesis failed", "error", err)
			return
		}
		if samples != nil {
			s.sendAudio(samples)
		}
	}
}

func (s *Session) sendCmd(cmd orchestrator.ActionCommand) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		s.logger.Warn("session: failed to marshal action command", "error", err)
		return
	}
	s.conn.WritePacket(wire.Cmd, payload)
}

// sendAudio emits samples as a sequence of AUDIO_OUT packets followed by a
// terminal AUDIO_OUT_END, atomically under the connection's send lock.
func (s *Session) sendAudio(samples []float32) {
	pcm := audio.Float32ToPCM16(samples)
	s.conn.WithSendLock(func(send func(wire.PacketType, []byte) bool) {
		send(wire.AudioOut, pcm)
		send(wire.AudioOutEnd, nil)
	})
}

// notifyAgentMode synthesizes and sends the short notification phrase when
// transitioning into agent mode, per spec.md §4.6.
func (s *Session) notifyAgentMode(ctx context.Context) {
	samples, err := s.agent.SynthesizeSamples(ctx, notifyAgentModePhrase)
	if err != nil {
		s.logger.Warn("session: mode-switch notification synthesis failed", "error", err)
		return
	}
	s.sendAudio(samples)
}

// notifyRobotMode sends a WIGGLE action when transitioning into robot mode,
// per spec.md §4.6.
func (s *Session) notifyRobotMode(ctx context.Context) {
	s.sendCmd(orchestrator.NewWiggle(0))
}
