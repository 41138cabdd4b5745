// Package accept runs the TCP listener: one session per accepted
// connection, a bounded backoff on accept errors, and shutdown when its
// context is cancelled. Signal handling and the final counter print live in
// cmd/serverd. Grounded on the teacher's
// cmd/agent/main.go signal-handling idiom (signal.Notify + blocking <-sig +
// a final status print), retargeted from a local audio device to
// net.Listen("tcp", ...).
package accept

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/lokutor-ai/hearth/pkg/agent"
	"github.com/lokutor-ai/hearth/pkg/metrics"
	"github.com/lokutor-ai/hearth/pkg/orchestrator"
	"github.com/lokutor-ai/hearth/pkg/robot"
	"github.com/lokutor-ai/hearth/pkg/session"
	"github.com/lokutor-ai/hearth/pkg/wire"
)

// acceptBackoff matches spec.md §4.9's reference 1s backoff on an
// OS-level accept error.
const acceptBackoff = 1 * time.Second

// SessionFactory builds the provider-wired robot/agent adapters needed for
// one session. The acceptor itself is provider-agnostic: it only knows how
// to turn an accepted net.Conn into a running session.Session.
type SessionFactory func(conn net.Conn) (*session.Session, error)

// Acceptor owns the listening socket and the set of live connections'
// aggregate counters.
type Acceptor struct {
	listener net.Listener
	newSess  SessionFactory
	logger   orchestrator.Logger
	counters metrics.Counters
}

// New binds a TCP listener at hostPort (e.g. "0.0.0.0:7337"). The caller
// provides newSess to construct a Session per accepted connection, keeping
// this package free of any provider-specific wiring.
func New(hostPort string, newSess SessionFactory, logger orchestrator.Logger) (*Acceptor, error) {
	if logger == nil {
		logger = &orchestrator.NoOpLogger{}
	}
	ln, err := net.Listen("tcp", hostPort)
	if err != nil {
		return nil, fmt.Errorf("accept: listen %q: %w", hostPort, err)
	}
	return &Acceptor{listener: ln, newSess: newSess, logger: logger}, nil
}

// Addr returns the bound address, useful for tests that bind to ":0".
func (a *Acceptor) Addr() net.Addr {
	return a.listener.Addr()
}

// Close stops accepting new connections.
func (a *Acceptor) Close() error {
	return a.listener.Close()
}

// Counters returns the acceptor's live performance counters.
func (a *Acceptor) Counters() *metrics.Counters {
	return &a.counters
}

// Serve runs the accept loop until ctx is cancelled or the listener is
// closed. Per spec.md §4.9: per-connection failures are logged and do not
// crash the acceptor; OS-level accept errors back off briefly and retry.
func (a *Acceptor) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		a.listener.Close()
	}()

	for {
		conn, err := a.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			a.counters.AcceptError()
			a.logger.Warn("accept: accept error, backing off", "error", err)
			time.Sleep(acceptBackoff)
			continue
		}

		a.counters.ConnectionAccepted()
		go a.handle(ctx, conn)
	}
}

func (a *Acceptor) handle(ctx context.Context, conn net.Conn) {
	defer a.counters.ConnectionClosed()

	sess, err := a.newSess(conn)
	if err != nil {
		a.logger.Warn("accept: session setup failed", "error", err, "remote", conn.RemoteAddr())
		conn.Close()
		return
	}

	if err := sess.Run(ctx); err != nil {
		a.logger.Info("accept: session ended", "error", err, "remote", conn.RemoteAddr())
	}
}

// DefaultSessionFactory builds the standard SessionFactory wiring a wire.Conn
// around the accepted net.Conn with the given providers and config.
func DefaultSessionFactory(
	stt orchestrator.STTProvider,
	robotAdapter *robot.Adapter,
	agentAdapter *agent.Adapter,
	cfg session.Config,
	readTimeout time.Duration,
	maxTimeouts int,
	logger orchestrator.Logger,
) SessionFactory {
	return func(conn net.Conn) (*session.Session, error) {
		wc := wire.NewConn(conn, readTimeout, maxTimeouts)
		return session.New(wc, stt, robotAdapter, agentAdapter, cfg, logger), nil
	}
}
