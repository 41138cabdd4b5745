package orchestrator

import (
	"context"
	"sync"
)

// Mode is the server's behavioral mode.
type Mode string

const (
	ModeRobot Mode = "robot"
	ModeAgent Mode = "agent"
)

// Intent strings the agent adapter can return alongside its reply text.
// Defined here (rather than imported from pkg/agent) so this package stays
// free of a dependency on its own callers.
const (
	IntentNone      = "none"
	IntentSleep     = "sleep"
	IntentModeRobot = "mode_robot"
	IntentModeAgent = "mode_agent"
)

// RobotDecider is the subset of pkg/robot.Adapter the dispatcher calls.
type RobotDecider interface {
	Decide(ctx context.Context, text string, currentAngle int) ActionCommand
}

// AgentReplier is the subset of pkg/agent.Adapter the dispatcher calls. Its
// Reply intent comes back as a plain string from the closed set above,
// since the concrete pkg/agent.Intent type cannot be named here without an
// import cycle (pkg/agent already imports this package for its provider
// interfaces).
type AgentReplier interface {
	Reply(ctx context.Context, text string) (replyText string, intent string)
	SynthesizeSamples(ctx context.Context, text string) ([]float32, error)
}

// Dispatcher holds the current mode and servo angle for one session and
// implements handle_mode_switch as the single idempotent mutation point,
// grounded on the teacher's single-writer-under-mutex UpdateConfig pattern.
type Dispatcher struct {
	mu         sync.Mutex
	mode       Mode
	servoAngle int

	robot RobotDecider
	agent AgentReplier

	// notifyAgentMode synthesizes and sends the short notification phrase
	// over the TTS path when transitioning into agent mode. notifyRobotMode
	// sends a WIGGLE action when transitioning into robot mode. Both are
	// session-owned since only the session has a socket to write to.
	notifyAgentMode func(ctx context.Context)
	notifyRobotMode func(ctx context.Context)

	logger Logger
}

// NewDispatcher builds a Dispatcher starting in agent mode, per spec.
func NewDispatcher(robot RobotDecider, agent AgentReplier, notifyAgentMode, notifyRobotMode func(ctx context.Context), logger Logger) *Dispatcher {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &Dispatcher{
		mode:            ModeAgent,
		robot:           robot,
		agent:           agent,
		notifyAgentMode: notifyAgentMode,
		notifyRobotMode: notifyRobotMode,
		logger:          logger,
	}
}

// Mode returns the current mode.
func (d *Dispatcher) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// ServoAngle returns the last-set servo angle.
func (d *Dispatcher) ServoAngle() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.servoAngle
}

// HandleModeSwitch is the only place mode changes happen. It is a no-op if
// already in target, otherwise logs the transition and fires the
// appropriate notification.
func (d *Dispatcher) HandleModeSwitch(ctx context.Context, target Mode) {
	d.mu.Lock()
	if d.mode == target {
		d.mu.Unlock()
		return
	}
	d.mode = target
	d.mu.Unlock()

	d.logger.Info("mode switch", "target", target)

	switch target {
	case ModeAgent:
		if d.notifyAgentMode != nil {
			d.notifyAgentMode(ctx)
		}
	case ModeRobot:
		if d.notifyRobotMode != nil {
			d.notifyRobotMode(ctx)
		}
	}
}

// DispatchRobot routes one recognized utterance through the robot adapter.
// Empty text yields an unrecognized NOOP. A SWITCH_MODE decision triggers
// HandleModeSwitch instead of being sent as a CMD, and returns the zero
// ActionCommand (Action == "") as a signal to the caller that nothing
// further should be sent for this utterance. Otherwise the command is
// stamped with sid/meaningful/recognized and, if it carries an angle, the
// session's servo angle is updated before the command is returned for
// sending.
func (d *Dispatcher) DispatchRobot(ctx context.Context, sid uint64, text string) ActionCommand {
	if text == "" {
		return NewNoop(sid, false)
	}

	cmd := d.robot.Decide(ctx, text, d.ServoAngle())

	if cmd.Action == ActionSwitchMode {
		target := ModeAgent
		if cmd.Target == string(ModeRobot) {
			target = ModeRobot
		}
		d.HandleModeSwitch(ctx, target)
		return ActionCommand{}
	}

	cmd.SID = sid
	cmd.Meaningful = cmd.Action != ActionNoop
	cmd.Recognized = true

	if cmd.Angle != nil {
		d.mu.Lock()
		d.servoAngle = *cmd.Angle
		d.mu.Unlock()
	}
	return cmd
}

// DispatchAgent routes one recognized utterance through the agent adapter.
// Empty text does nothing (all return values are zero). A "mode_robot"
// intent triggers HandleModeSwitch. Otherwise the reply text is synthesized
// into PCM samples for the caller to stream out as AUDIO_OUT packets.
func (d *Dispatcher) DispatchAgent(ctx context.Context, text string) (replyText string, samples []float32, err error) {
	if text == "" {
		return "", nil, nil
	}

	reply, intent := d.agent.Reply(ctx, text)
	if intent == IntentModeRobot {
		d.HandleModeSwitch(ctx, ModeRobot)
	}

	samples, err = d.agent.SynthesizeSamples(ctx, reply)
	if err != nil {
		return reply, nil, err
	}
	return reply, samples, nil
}
