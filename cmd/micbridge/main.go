// Command micbridge is an optional dev tool that captures real microphone
// audio via malgo and speaks the device side of the wire protocol to a
// running serverd, playing back AUDIO_OUT chunks through the speaker.
// Adapted from the teacher's cmd/agent/main.go malgo duplex device loop and
// signal-handling idiom, retargeted from local in-process playback to a TCP
// client of the framed wire protocol.
package main

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/spf13/pflag"

	"github.com/lokutor-ai/hearth/pkg/wire"
)

const (
	deviceSampleRate = 16000
	deviceChannels   = 1

	// micChunkFrames bounds how much audio accumulates client-side before
	// it is flushed as one AUDIO packet, analogous to the server's
	// AUDIO_OUT chunking in spirit (small, steady chunks).
	micChunkFrames = 1600 // 100ms at 16kHz
)

func main() {
	addr := pflag.StringP("server", "s", "127.0.0.1:7337", "hearth server address (host:port).")
	vadThreshold := pflag.Float64P("vad-threshold", "t", 0.02, "RMS threshold above which captured audio is sent upstream.")
	pflag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatalf("micbridge: dial %s: %v", *addr, err)
	}
	defer conn.Close()
	wc := wire.NewConn(conn, time.Second, 50)

	fmt.Printf("micbridge connected to %s\n", *addr)
	fmt.Println("Listening to microphone. Press Ctrl+C to exit.")

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer mctx.Uninit()

	var playbackMu sync.Mutex
	var playbackBytes []byte

	var streaming bool
	var micBuf []byte

	onSamples := func(pOutput, pInput []byte, frameCount uint32) {
		if pInput != nil {
			rms := rmsOf(pInput)
			if rms > *vadThreshold {
				if !streaming {
					streaming = true
					wc.WritePacket(wire.Start, nil)
				}
				micBuf = append(micBuf, pInput...)
				for len(micBuf) >= micChunkFrames*2 {
					wc.WritePacket(wire.Audio, micBuf[:micChunkFrames*2])
					micBuf = micBuf[micChunkFrames*2:]
				}
			} else if streaming {
				if len(micBuf) > 0 {
					wc.WritePacket(wire.Audio, micBuf)
					micBuf = nil
				}
				wc.WritePacket(wire.End, nil)
				streaming = false
			}
		}
		if pOutput != nil {
			playbackMu.Lock()
			n := copy(pOutput, playbackBytes)
			playbackBytes = playbackBytes[n:]
			for i := n; i < len(pOutput); i++ {
				pOutput[i] = 0
			}
			playbackMu.Unlock()
		}
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = deviceChannels
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = deviceChannels
	deviceConfig.SampleRate = deviceSampleRate

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		log.Fatal(err)
	}

	go func() {
		for {
			pkt, err := wc.ReadPacket()
			if err != nil {
				fmt.Printf("\nconnection closed: %v\n", err)
				return
			}
			switch pkt.Type {
			case wire.AudioOut:
				playbackMu.Lock()
				playbackBytes = append(playbackBytes, pkt.Payload...)
				playbackMu.Unlock()
			case wire.AudioOutEnd:
				// nothing to do: playback drains naturally as bytes are consumed.
			case wire.Cmd:
				fmt.Printf("\n[CMD] %s\n", string(pkt.Payload))
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			wc.WritePacket(wire.Ping, nil)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Printf("\nShutting down...\n")
}

func rmsOf(pcm []byte) float64 {
	if len(pcm) < 2 {
		return 0
	}
	var sum float64
	n := len(pcm) / 2
	for i := 0; i < n; i++ {
		sample := int16(binary.LittleEndian.Uint16(pcm[2*i:]))
		f := float64(sample) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(n))
}
