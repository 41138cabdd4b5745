// Package wire implements the framed binary protocol spoken between an edge
// device and the server over a single long-lived TCP byte stream.
//
// Every packet is exactly:
//
//	1 byte  type
//	2 bytes length (little-endian)
//	length bytes payload
package wire

import "fmt"

// PacketType is the closed set of frame types understood by the protocol.
// Unknown types are logged and skipped by the reader, never rejected.
type PacketType uint8

const (
	Start       PacketType = 0x01
	Audio       PacketType = 0x02
	End         PacketType = 0x03
	Ping        PacketType = 0x10
	Cmd         PacketType = 0x11
	AudioOut    PacketType = 0x12
	AudioOutEnd PacketType = 0x13
	Pong        PacketType = 0x1F
)

func (t PacketType) String() string {
	switch t {
	case Start:
		return "START"
	case Audio:
		return "AUDIO"
	case End:
		return "END"
	case Ping:
		return "PING"
	case Cmd:
		return "CMD"
	case AudioOut:
		return "AUDIO_OUT"
	case AudioOutEnd:
		return "AUDIO_OUT_END"
	case Pong:
		return "PONG"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(t))
	}
}

// MaxPayloadLen is the largest payload a single frame can carry: the length
// header is a u16, so payloads above this can never be framed in one packet.
const MaxPayloadLen = 65535

// Packet is a single decoded frame. It is constructed per read/write and
// discarded once handled — nothing about it is retained across frames.
type Packet struct {
	Type    PacketType
	Payload []byte
}
