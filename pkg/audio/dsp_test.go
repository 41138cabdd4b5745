package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestAnalyzeSilenceIsBelowFloor(t *testing.T) {
	samples := make([]float32, SampleRate) // 1s of digital silence
	qc := Analyze(samples)
	assert.True(t, qc.IsSilence())
}

func TestAnalyzeFullScaleSquareIsNotSilence(t *testing.T) {
	samples := make([]float32, SampleRate)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 1
		} else {
			samples[i] = -1
		}
	}
	qc := Analyze(samples)
	assert.False(t, qc.IsSilence())
	assert.InDelta(t, 1.0, qc.Peak, 1e-6)
	assert.InDelta(t, 100.0, qc.ClipRatio, 1e-6)
}

func TestEnergyTrimKeepsLoudCenterDropsQuietEdges(t *testing.T) {
	frameLen := SampleRate * trimFrameMS / 1000
	silence := make([]float32, frameLen*3)
	loud := make([]float32, frameLen*3)
	for i := range loud {
		loud[i] = 0.8
	}
	samples := append(append(append([]float32{}, silence...), loud...), silence...)

	trimmed := EnergyTrim(samples, TrimOptions{TopDB: 35, PadMS: 0})
	assert.Less(t, len(trimmed), len(samples))
	for _, s := range trimmed {
		assert.InDelta(t, 0.8, s, 1e-6)
	}
}

func TestEnergyTrimReturnsInputWhenAllSilent(t *testing.T) {
	samples := make([]float32, SampleRate)
	trimmed := EnergyTrim(samples, DefaultInboundTrim)
	assert.Equal(t, samples, trimmed)
}

func TestNormalizeMovesTowardTargetAndClips(t *testing.T) {
	samples := make([]float32, SampleRate)
	for i := range samples {
		samples[i] = 0.01
	}
	out := Normalize(samples, NormalizeOptions{TargetDBFS: -18, MaxGainDB: 40})
	qc := Analyze(out)
	assert.InDelta(t, -18, qc.RMSDB, 1.0)
	for _, s := range out {
		assert.LessOrEqual(t, s, float32(1))
		assert.GreaterOrEqual(t, s, float32(-1))
	}
}

func TestNormalizePeakLimit(t *testing.T) {
	samples := make([]float32, SampleRate)
	for i := range samples {
		samples[i] = 0.95
	}
	out := Normalize(samples, NormalizeOptions{TargetDBFS: 0, MaxGainDB: 40, PeakLimit: 0.90})
	peak := 0.0
	for _, s := range out {
		if float64(s) > peak {
			peak = float64(s)
		}
	}
	assert.LessOrEqual(t, peak, 0.90+1e-6)
}

func TestApplyFadeZeroesEndpoints(t *testing.T) {
	samples := make([]float32, SampleRate/10)
	for i := range samples {
		samples[i] = 1
	}
	out := ApplyFade(samples)
	assert.InDelta(t, 0, out[0], 1e-6)
	assert.InDelta(t, 0, out[len(out)-1], 1e-6)
	mid := len(out) / 2
	assert.InDelta(t, 1, out[mid], 1e-6)
}

func TestCrossFadeSampleCountInvariant(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lenA := rapid.IntRange(1, 2000).Draw(rt, "lenA")
		lenB := rapid.IntRange(1, 2000).Draw(rt, "lenB")
		overlap := rapid.IntRange(0, min(lenA, lenB)).Draw(rt, "overlap")

		a := make([]float32, lenA)
		b := make([]float32, lenB)
		for i := range a {
			a[i] = 0.5
		}
		for i := range b {
			b[i] = 0.5
		}

		out := CrossFade(a, b, overlap)
		assert.Equal(rt, lenA+lenB-overlap, len(out))
	})
}

func TestCrossFadeMultiChunkMergeInvariant(t *testing.T) {
	lens := []int{320, 480, 160, 640}
	overlap := 160

	merged := []float32{}
	total := 0
	for i, l := range lens {
		chunk := make([]float32, l)
		for j := range chunk {
			chunk[j] = 0.3
		}
		total += l
		if i == 0 {
			merged = chunk
			continue
		}
		merged = CrossFade(merged, chunk, overlap)
	}
	expected := 0
	for _, l := range lens {
		expected += l
	}
	expected -= (len(lens) - 1) * overlap
	assert.Equal(t, expected, len(merged))
	assert.Equal(t, total-(len(lens)-1)*overlap, len(merged))
}

func TestPCM16Float32RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 500).Draw(rt, "n")
		samples := make([]float32, n)
		for i := range samples {
			samples[i] = float32(rapid.Int32Range(-32767, 32767).Draw(rt, "s")) / 32768
		}
		pcm := Float32ToPCM16(samples)
		back := PCM16ToFloat32(pcm)
		for i := range samples {
			assert.InDelta(rt, samples[i], back[i], 1.0/32768)
		}
	})
}

func TestPCM16ToFloat32DropsTrailingOddByte(t *testing.T) {
	out := PCM16ToFloat32([]byte{0, 0, 1, 0, 0xFF})
	assert.Len(t, out, 2)
}

func TestRemoveDCOffset(t *testing.T) {
	samples := []float32{0.6, 0.4, 0.5, 0.5}
	RemoveDCOffset(samples)
	var sum float32
	for _, s := range samples {
		sum += s
	}
	assert.InDelta(t, 0, sum, 1e-6)
}
