package wire

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// ErrTooManyTimeouts is returned by RecvExact when a peer stays silent for
// the configured number of consecutive read timeouts.
var ErrTooManyTimeouts = errors.New("wire: too many consecutive read timeouts")

const (
	// audioOutChunkBytes is the reference per-packet size for AUDIO_OUT,
	// chosen to match a typical device playback ring buffer.
	audioOutChunkBytes = 4096
	// audioOutPacing paces consecutive AUDIO_OUT packets so a slow device
	// playback buffer isn't overrun.
	audioOutPacing = 2 * time.Millisecond
	// otherChunkBytes bounds every non-audio packet's payload per write.
	otherChunkBytes = 60000
	// defaultMaxTimeouts caps consecutive read timeouts before a silent
	// peer is dropped.
	defaultMaxTimeouts = 20
)

// Conn wraps a net.Conn with the framed protocol's read and write halves.
// Reads are driven by a single reader goroutine; writes are serialized by an
// internal send lock so a logical message (one action, one audio chunk
// sequence, one PONG) is never interleaved with another.
type Conn struct {
	nc          net.Conn
	readTimeout time.Duration
	maxTimeouts int

	sendMu sync.Mutex
}

// NewConn wraps nc. readTimeout governs how long a single Read() blocks
// before RecvExact treats it as a keepalive tick; maxTimeouts bounds how
// many consecutive ticks are tolerated before the peer is considered dead.
func NewConn(nc net.Conn, readTimeout time.Duration, maxTimeouts int) *Conn {
	if maxTimeouts <= 0 {
		maxTimeouts = defaultMaxTimeouts
	}
	return &Conn{nc: nc, readTimeout: readTimeout, maxTimeouts: maxTimeouts}
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.nc.Close()
}

// RemoteAddr returns the underlying connection's remote address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}

// RecvExact reads exactly n bytes, treating read timeouts as keepalive
// ticks: it loops over them, counting consecutive occurrences, and only
// surfaces an error once maxTimeouts consecutive timeouts have occurred. EOF
// and connection resets
// are terminal and returned immediately.
func (c *Conn) RecvExact(n int) ([]byte, error) {
	buf := make([]byte, 0, n)
	timeouts := 0
	for len(buf) < n {
		if c.readTimeout > 0 {
			if err := c.nc.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
				return nil, err
			}
		}
		chunk := make([]byte, n-len(buf))
		read, err := c.nc.Read(chunk)
		if read > 0 {
			buf = append(buf, chunk[:read]...)
			timeouts = 0
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				timeouts++
				if timeouts >= c.maxTimeouts {
					return nil, ErrTooManyTimeouts
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, err
		}
	}
	return buf, nil
}

// ReadPacket reads and decodes the next frame from the stream. It is the
// only code path that reads the socket for a given Conn.
func (c *Conn) ReadPacket() (Packet, error) {
	header, err := c.RecvExact(3)
	if err != nil {
		return Packet{}, err
	}
	ptype := PacketType(header[0])
	length := binary.LittleEndian.Uint16(header[1:3])
	if length == 0 {
		return Packet{Type: ptype, Payload: nil}, nil
	}
	payload, err := c.RecvExact(int(length))
	if err != nil {
		return Packet{}, err
	}
	return Packet{Type: ptype, Payload: payload}, nil
}

func writeHeader(w io.Writer, ptype PacketType, length int) error {
	var header [3]byte
	header[0] = byte(ptype)
	binary.LittleEndian.PutUint16(header[1:], uint16(length))
	_, err := w.Write(header[:])
	return err
}

// writeFrame writes one complete header+payload frame, or a header-only
// frame when payload is empty.
func (c *Conn) writeFrame(ptype PacketType, payload []byte) error {
	if len(payload) == 0 {
		return writeHeader(c.nc, ptype, 0)
	}
	if err := writeHeader(c.nc, ptype, len(payload)); err != nil {
		return err
	}
	_, err := c.nc.Write(payload)
	return err
}

// WritePacket sends ptype with payload, chunked per the wire rules (AUDIO_OUT
// is sample-aligned and paced; everything else is chunked at 60000 bytes),
// under the connection's send lock. It returns false — never an error — on
// any write failure, matching the spec's "send returns false, never raises"
// contract; callers abort the current message and continue the session.
func (c *Conn) WritePacket(ptype PacketType, payload []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.writeLocked(ptype, payload)
}

func (c *Conn) writeLocked(ptype PacketType, payload []byte) bool {
	if len(payload) == 0 {
		return c.writeFrame(ptype, nil) == nil
	}

	if ptype == AudioOut {
		return c.writeAudioChunksLocked(payload)
	}

	offset := 0
	for offset < len(payload) {
		end := offset + otherChunkBytes
		if end > len(payload) {
			end = len(payload)
		}
		if err := c.writeFrame(ptype, payload[offset:end]); err != nil {
			return false
		}
		offset = end
	}
	return true
}

func (c *Conn) writeAudioChunksLocked(payload []byte) bool {
	offset := 0
	total := len(payload)
	for offset < total {
		remaining := total - offset
		if remaining < 2 {
			// drop a trailing odd byte rather than ship a non-sample-aligned frame.
			break
		}
		size := remaining
		if size > audioOutChunkBytes {
			size = audioOutChunkBytes
		}
		if size%2 != 0 {
			size--
		}
		if err := c.writeFrame(AudioOut, payload[offset:offset+size]); err != nil {
			return false
		}
		offset += size
		if offset < total {
			time.Sleep(audioOutPacing)
		}
	}
	return true
}

// WithSendLock runs fn while holding the send lock, so a caller can emit a
// sequence of packets (e.g. several AUDIO_OUT chunks followed by
// AUDIO_OUT_END) as one atomic logical message.
func (c *Conn) WithSendLock(fn func(send func(PacketType, []byte) bool)) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	fn(c.writeLocked)
}
