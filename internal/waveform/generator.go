package waveform

import (
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// DefaultBuckets is the number of level samples produced per recording,
// chosen to render well in a compact voice message bar.
const DefaultBuckets = 50

// Generator extracts normalized amplitude levels from audio data. The levels
// are what message clients render as the voice note waveform.
type Generator struct {
	Buckets int
}

// NewGenerator creates a generator producing DefaultBuckets levels
func NewGenerator() *Generator {
	return &Generator{Buckets: DefaultBuckets}
}

// LevelsFromWAV decodes WAV audio and returns one RMS level per bucket,
// normalized to [0, 1].
func (g *Generator) LevelsFromWAV(audioData io.ReadSeeker) ([]float64, error) {
	decoder := wav.NewDecoder(audioData)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read audio buffer: %w", err)
	}

	if buf == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("empty audio buffer")
	}

	return g.LevelsFromBuffer(buf), nil
}

// LevelsFromBuffer computes bucketed RMS levels from raw PCM samples
func (g *Generator) LevelsFromBuffer(buf *audio.IntBuffer) []float64 {
	buckets := g.Buckets
	if buckets < 1 {
		buckets = DefaultBuckets
	}
	if buckets > len(buf.Data) {
		buckets = len(buf.Data)
	}

	samplesPerBucket := len(buf.Data) / buckets

	// Full scale for normalization (16-bit audio unless stated otherwise)
	fullScale := float64(math.MaxInt16)
	if buf.SourceBitDepth > 0 {
		fullScale = math.Pow(2, float64(buf.SourceBitDepth-1)) - 1
	}

	levels := make([]float64, 0, buckets)
	for b := 0; b < buckets; b++ {
		start := b * samplesPerBucket
		end := start + samplesPerBucket
		if b == buckets-1 {
			end = len(buf.Data)
		}

		var sum float64
		for i := start; i < end; i++ {
			sample := float64(buf.Data[i])
			sum += sample * sample
		}

		rms := math.Sqrt(sum / float64(end-start))
		normalized := rms / fullScale
		if normalized > 1.0 {
			normalized = 1.0
		}
		levels = append(levels, normalized)
	}

	return levels
}
