package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Encoder re-encodes voice recordings with FFmpeg: raw WAV from the recorder
// becomes a small AAC file suitable for CDN delivery.
type Encoder struct {
	tempDir string
}

// NewEncoder creates an FFmpeg-backed voice note encoder. tempDir holds
// intermediate files; an empty value falls back to the system temp dir.
func NewEncoder(tempDir string) *Encoder {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "voxchat_audio")
	}
	os.MkdirAll(tempDir, 0o755)

	return &Encoder{tempDir: tempDir}
}

// Available reports whether ffmpeg is installed on this host.
func (e *Encoder) Available() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// EncodeVoiceWAV normalizes a WAV voice recording to speech loudness and
// encodes it as mono AAC. Returns the encoded bytes.
func (e *Encoder) EncodeVoiceWAV(ctx context.Context, wavData []byte) ([]byte, error) {
	inputPath := filepath.Join(e.tempDir, uuid.New().String()+".wav")
	if err := os.WriteFile(inputPath, wavData, 0o644); err != nil {
		return nil, fmt.Errorf("failed to stage input: %w", err)
	}
	defer os.Remove(inputPath)

	outputPath := filepath.Join(e.tempDir, uuid.New().String()+".m4a")
	defer os.Remove(outputPath)

	args := []string{
		"-i", inputPath,

		// Speech loudness normalization
		"-af", "loudnorm=I=-16:TP=-1.5:LRA=11",

		// AAC settings tuned for voice, not music
		"-c:a", "aac",
		"-b:a", "48k",
		"-ar", "44100",
		"-ac", "1",

		// Move the moov atom up front so playback can start mid-download
		"-movflags", "+faststart",

		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg encode failed: %v, stderr: %s", err, stderr.String())
	}

	encoded, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read encoded file: %w", err)
	}
	return encoded, nil
}

// ProbeDuration reads a clip's duration with ffprobe. Used when the recorder
// metadata is missing or suspect.
func (e *Encoder) ProbeDuration(ctx context.Context, data []byte) (time.Duration, error) {
	path := filepath.Join(e.tempDir, uuid.New().String()+".bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("failed to stage probe input: %w", err)
	}
	defer os.Remove(path)

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	seconds := extractFloat(stdout.String(), "duration")
	if seconds <= 0 {
		return 0, fmt.Errorf("ffprobe returned no duration")
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// extractFloat pulls a quoted numeric field out of ffprobe's JSON output.
func extractFloat(json, key string) float64 {
	// ffprobe emits both spaced and unspaced variants depending on version
	searchStr := fmt.Sprintf(`"%s": "`, key)
	start := strings.Index(json, searchStr)
	if start == -1 {
		searchStr = fmt.Sprintf(`"%s":"`, key)
		start = strings.Index(json, searchStr)
		if start == -1 {
			return 0
		}
	}

	start += len(searchStr)
	end := strings.Index(json[start:], `"`)
	if end == -1 {
		return 0
	}

	value, _ := strconv.ParseFloat(json[start:start+end], 64)
	return value
}

// CheckFFmpegInstallation verifies FFmpeg and ffprobe are on the PATH.
func CheckFFmpegInstallation() error {
	if err := exec.Command("ffmpeg", "-version").Run(); err != nil {
		return fmt.Errorf("ffmpeg not found - install with: brew install ffmpeg")
	}
	if err := exec.Command("ffprobe", "-version").Run(); err != nil {
		return fmt.Errorf("ffprobe not found - install with: brew install ffmpeg")
	}
	return nil
}
