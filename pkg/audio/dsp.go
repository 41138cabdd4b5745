// Package audio implements the PCM post-processing primitives shared by the
// inbound (microphone) and outbound (synthesized speech) pipelines: quality
// metrics, energy-based trimming, dBFS normalization, fades, and the
// PCM16LE <-> float32 sample conversions used at the wire boundary.
package audio

import "math"

// SampleRate is the mono sample rate every pipeline in this system agrees
// to speak at.
const SampleRate = 16000

const silenceEpsilon = 1e-10

// QualityCheck is the set of cheap scalar metrics computed over a block of
// float32 samples before it is accepted into the pipeline.
type QualityCheck struct {
	Peak      float64
	RMSDB     float64
	ClipRatio float64
}

// IsSilence reports whether the block should be rejected as silence, per
// the -45 dBFS RMS floor.
func (q QualityCheck) IsSilence() bool {
	return q.RMSDB < -45
}

// Analyze computes peak, rms_db and clip_ratio over samples.
func Analyze(samples []float32) QualityCheck {
	if len(samples) == 0 {
		return QualityCheck{RMSDB: -math.Inf(1)}
	}
	var sumSquares float64
	var peak float64
	var clipped int
	for _, s := range samples {
		abs := math.Abs(float64(s))
		if abs > peak {
			peak = abs
		}
		if abs >= 0.999 {
			clipped++
		}
		sumSquares += abs * abs
	}
	rms := math.Sqrt(sumSquares/float64(len(samples))) + silenceEpsilon
	return QualityCheck{
		Peak:      peak,
		RMSDB:     20 * math.Log10(rms),
		ClipRatio: float64(clipped) / float64(len(samples)) * 100,
	}
}

// TrimOptions configures EnergyTrim.
type TrimOptions struct {
	// TopDB is the drop below the loudest frame, in dB, below which a frame
	// is considered silent.
	TopDB float64
	// PadMS pads the kept range on each side, in milliseconds.
	PadMS int
}

// DefaultInboundTrim matches the inbound-utterance defaults.
var DefaultInboundTrim = TrimOptions{TopDB: 35, PadMS: 140}

const trimFrameMS = 20

// EnergyTrim removes leading/trailing low-energy frames from samples,
// keeping the inclusive frame range whose RMS is within opts.TopDB of the
// loudest frame, padded by opts.PadMS on each side and clamped to bounds.
// If no frame passes the threshold, samples is returned unchanged.
func EnergyTrim(samples []float32, opts TrimOptions) []float32 {
	frameLen := SampleRate * trimFrameMS / 1000
	if frameLen <= 0 || len(samples) == 0 {
		return samples
	}

	numFrames := (len(samples) + frameLen - 1) / frameLen
	frameRMS := make([]float64, numFrames)
	maxRMS := 0.0
	for i := 0; i < numFrames; i++ {
		start := i * frameLen
		end := start + frameLen
		if end > len(samples) {
			end = len(samples)
		}
		frame := samples[start:end]
		var sumSquares float64
		for _, s := range frame {
			v := float64(s)
			sumSquares += v * v
		}
		rms := math.Sqrt(sumSquares / float64(len(frame)))
		frameRMS[i] = rms
		if rms > maxRMS {
			maxRMS = rms
		}
	}
	if maxRMS == 0 {
		return samples
	}

	threshold := maxRMS * math.Pow(10, -opts.TopDB/20)
	first, last := -1, -1
	for i, rms := range frameRMS {
		if rms >= threshold {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	if first == -1 {
		return samples
	}

	padFrames := (opts.PadMS*SampleRate/1000 + frameLen - 1) / frameLen
	first -= padFrames
	last += padFrames
	if first < 0 {
		first = 0
	}
	if last >= numFrames {
		last = numFrames - 1
	}

	start := first * frameLen
	end := last*frameLen + frameLen
	if end > len(samples) {
		end = len(samples)
	}
	return samples[start:end]
}

// NormalizeOptions configures Normalize.
type NormalizeOptions struct {
	TargetDBFS float64
	MaxGainDB  float64
	// PeakLimit clips the final output to [-PeakLimit, PeakLimit] after
	// gain is applied. Zero disables the secondary peak-limit step.
	PeakLimit float64
}

// DefaultInboundNormalize matches the inbound-analysis defaults (no
// secondary peak-limit).
var DefaultInboundNormalize = NormalizeOptions{TargetDBFS: -22, MaxGainDB: 18}

// DefaultOutboundNormalize matches the TTS-output defaults.
var DefaultOutboundNormalize = NormalizeOptions{TargetDBFS: -18, MaxGainDB: 18, PeakLimit: 0.90}

// Normalize applies a dBFS gain clamped to [-6, opts.MaxGainDB] so the
// block's current loudness moves toward opts.TargetDBFS, hard-clips to
// [-1, 1], then applies the optional secondary peak-limit.
func Normalize(samples []float32, opts NormalizeOptions) []float32 {
	qc := Analyze(samples)
	gainDB := opts.TargetDBFS - qc.RMSDB
	if gainDB < -6 {
		gainDB = -6
	}
	if gainDB > opts.MaxGainDB {
		gainDB = opts.MaxGainDB
	}
	gain := math.Pow(10, gainDB/20)

	out := make([]float32, len(samples))
	for i, s := range samples {
		v := float64(s) * gain
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = float32(v)
	}

	if opts.PeakLimit > 0 {
		peak := 0.0
		for _, s := range out {
			if a := math.Abs(float64(s)); a > peak {
				peak = a
			}
		}
		if peak > opts.PeakLimit {
			scale := opts.PeakLimit / peak
			for i, s := range out {
				out[i] = float32(float64(s) * scale)
			}
		}
	}
	return out
}

// FadeMS is the linear fade-in/fade-out duration applied to every TTS chunk.
const FadeMS = 8

// ApplyFade applies a linear fade-in and fade-out of FadeMS to samples
// in place and returns it. Short blocks get a fade no longer than half
// their length so in and out ramps never overlap.
func ApplyFade(samples []float32) []float32 {
	n := FadeMS * SampleRate / 1000
	if n > len(samples)/2 {
		n = len(samples) / 2
	}
	if n <= 0 {
		return samples
	}
	for i := 0; i < n; i++ {
		ramp := float32(i) / float32(n)
		samples[i] *= ramp
		samples[len(samples)-1-i] *= ramp
	}
	return samples
}

// CrossFadeMS is the reference overlap window used between adjacent TTS
// chunks.
const CrossFadeMS = 10

// CrossFade concatenates a and b, blending overlapSamples of their boundary
// with linearly complementary ramps. The result has exactly
// len(a)+len(b)-overlapSamples samples, satisfying the merge invariant
// across any chunk sequence when folded with CrossFade pairwise.
func CrossFade(a, b []float32, overlapSamples int) []float32 {
	if overlapSamples > len(a) {
		overlapSamples = len(a)
	}
	if overlapSamples > len(b) {
		overlapSamples = len(b)
	}
	if overlapSamples <= 0 {
		return append(append([]float32{}, a...), b...)
	}

	out := make([]float32, len(a)+len(b)-overlapSamples)
	copy(out, a[:len(a)-overlapSamples])

	aTail := a[len(a)-overlapSamples:]
	bHead := b[:overlapSamples]
	for i := 0; i < overlapSamples; i++ {
		fadeOut := 1 - float32(i+1)/float32(overlapSamples+1)
		fadeIn := float32(i+1) / float32(overlapSamples+1)
		out[len(a)-overlapSamples+i] = aTail[i]*fadeOut + bHead[i]*fadeIn
	}
	copy(out[len(a):], b[overlapSamples:])
	return out
}

// PCM16ToFloat32 converts little-endian signed 16-bit PCM to float32
// samples in [-1, 1]. A trailing odd byte is ignored.
func PCM16ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		out[i] = float32(v) / 32768
	}
	return out
}

// Float32ToPCM16 converts float32 samples in [-1, 1] to little-endian
// signed 16-bit PCM, hard-clipping out-of-range input.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := float64(s)
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		sample := int16(v * 32767)
		out[2*i] = byte(sample)
		out[2*i+1] = byte(sample >> 8)
	}
	return out
}

// RemoveDCOffset subtracts the block mean from every sample in place.
func RemoveDCOffset(samples []float32) []float32 {
	if len(samples) == 0 {
		return samples
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s)
	}
	mean := float32(sum / float64(len(samples)))
	for i := range samples {
		samples[i] -= mean
	}
	return samples
}
