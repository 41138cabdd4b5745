package orchestrator

import "errors"


var (
	
	ErrEmptyTranscription = errors.New("transcription returned empty text")

	
	ErrTranscriptionFailed = errors.New("speech-to-text transcription failed")

	
	ErrLLMFailed = errors.New("language model generation failed")

	
	ErrTTSFailed = errors.New("text-to-speech synthesis failed")

	
	ErrNilProvider = errors.New("required provider is nil")


	ErrContextCancelled = errors.New("operation cancelled by context")

	// ErrQueueClosed is returned by JobQueue.Get/Put once Close has been called.
	ErrQueueClosed = errors.New("job queue closed")

	// ErrQueueEmpty is returned by JobQueue.Get when timeout elapses with no
	// job available.
	ErrQueueEmpty = errors.New("job queue empty")

	// ErrGateRejected marks an inbound frame the InputGate refused to accept.
	ErrGateRejected = errors.New("input gate rejected frame")

	// ErrProtocolViolation marks a frame sequence that violates the wire
	// protocol's state machine (e.g. AUDIO before START).
	ErrProtocolViolation = errors.New("protocol violation")
)
