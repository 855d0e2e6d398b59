// Package recorder captures streamed PCM audio into finished voice
// recordings. Clients push raw sample chunks (typically relayed over the
// websocket audio channel); the recorder accumulates them, reports live
// progress, and encodes the capture as WAV when the user stops.
package recorder

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"

	"github.com/voxchat/backend/internal/composer"
	"github.com/voxchat/backend/internal/waveform"
)

const (
	// DefaultSampleRate matches what voice-note clients capture at.
	DefaultSampleRate = 44100

	bitDepth    = 16
	numChannels = 1
)

// PCMRecorder implements composer.Recorder over a push-based PCM stream. A
// session holds one recorder for its lifetime; each Start begins a fresh
// capture.
type PCMRecorder struct {
	mu         sync.Mutex
	sampleRate int
	dir        string
	levels     *waveform.Generator

	samples   []int
	recording bool

	onProgress func(duration time.Duration, averagePower float64)
	onFailure  func(err error)
}

var _ composer.Recorder = (*PCMRecorder)(nil)

// Factory returns a composer.RecorderFactory producing recorders that stage
// encoded WAV files under dir. An empty dir falls back to the OS temp dir.
func Factory(dir string, sampleRate int) func() composer.Recorder {
	if dir == "" {
		dir = os.TempDir()
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return func() composer.Recorder {
		return &PCMRecorder{
			sampleRate: sampleRate,
			dir:        dir,
			levels:     waveform.NewGenerator(),
		}
	}
}

// Start implements composer.Recorder.
func (r *PCMRecorder) Start(onProgress func(duration time.Duration, averagePower float64), onFailure func(err error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return fmt.Errorf("recorder is already capturing")
	}
	r.recording = true
	r.samples = nil
	r.onProgress = onProgress
	r.onFailure = onFailure
	return nil
}

// Ingest appends a chunk of PCM samples and reports progress. Chunks pushed
// before Start or after Stop are dropped.
func (r *PCMRecorder) Ingest(chunk []int) {
	r.mu.Lock()
	if !r.recording || len(chunk) == 0 {
		r.mu.Unlock()
		return
	}
	r.samples = append(r.samples, chunk...)
	duration := r.durationLocked()
	progress := r.onProgress
	r.mu.Unlock()

	if progress != nil {
		progress(duration, chunkPower(chunk))
	}
}

// Fail aborts the capture and notifies the failure callback, used when the
// audio stream drops mid-recording.
func (r *PCMRecorder) Fail(err error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	r.recording = false
	r.samples = nil
	failure := r.onFailure
	r.mu.Unlock()

	if failure != nil {
		failure(err)
	}
}

// Stop implements composer.Recorder: it encodes the captured samples as WAV
// into the staging directory and returns the finished recording.
func (r *PCMRecorder) Stop() (*composer.RecordingResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return nil, fmt.Errorf("recorder is not recording")
	}
	r.recording = false

	if len(r.samples) == 0 {
		return nil, fmt.Errorf("no audio captured")
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: numChannels, SampleRate: r.sampleRate},
		Data:           r.samples,
		SourceBitDepth: bitDepth,
	}

	path := filepath.Join(r.dir, uuid.New().String()+".wav")
	if err := encodeWAV(path, buf); err != nil {
		return nil, err
	}

	return &composer.RecordingResult{
		URL:      "file://" + path,
		MIMEType: "audio/wav",
		Duration: r.durationLocked(),
		Waveform: r.levels.LevelsFromBuffer(buf),
	}, nil
}

// Discard implements composer.Recorder.
func (r *PCMRecorder) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = false
	r.samples = nil
}

func (r *PCMRecorder) durationLocked() time.Duration {
	return time.Duration(len(r.samples)) * time.Second / time.Duration(r.sampleRate)
}

func encodeWAV(path string, buf *audio.IntBuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create recording file: %w", err)
	}

	enc := wav.NewEncoder(f, buf.Format.SampleRate, bitDepth, buf.Format.NumChannels, 1)
	if err := enc.Write(buf); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to encode WAV: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to finalize WAV: %w", err)
	}
	return f.Close()
}

// chunkPower computes the normalized RMS power of a chunk, used for the live
// metering callback.
func chunkPower(chunk []int) float64 {
	var sum float64
	for _, s := range chunk {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(chunk)))
	power := rms / float64(math.MaxInt16)
	if power > 1.0 {
		power = 1.0
	}
	return power
}
