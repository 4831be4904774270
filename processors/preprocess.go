package processors

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"videoInsight/core"
)

// ExtractAudio pulls a 16kHz mono WAV out of the source video, the format
// speech recognition expects. Re-running it for the same inputs overwrites
// the previous artifact, so retries are idempotent.
func ExtractAudio(ctx context.Context, inputPath, audioOut string) error {
	if _, err := os.Stat(inputPath); err != nil {
		return core.WrapError(err, core.CodeAudioUnreadable, fmt.Sprintf("video file not found: %s", inputPath))
	}
	if err := os.MkdirAll(filepath.Dir(audioOut), 0755); err != nil {
		return core.WrapError(err, core.CodeInternal, "create job directory")
	}
	args := []string{"-y", "-i", inputPath, "-vn", "-ac", "1", "-ar", "16000", "-f", "wav", audioOut}
	if err := RunFFmpeg(ctx, args); err != nil {
		return core.WrapError(err, core.CodeAudioUnreadable, "extract audio")
	}
	return nil
}

// ProbeDuration returns the media duration in seconds via ffprobe.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1", path)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return 0, core.WrapError(err, core.CodeAudioUnreadable, "probe duration")
	}
	s := strings.TrimSpace(out.String())
	dur, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, core.WrapError(err, core.CodeAudioUnreadable, "parse probed duration")
	}
	return dur, nil
}

// RunFFmpeg runs ffmpeg with the given arguments and surfaces the last
// stderr line on failure.
func RunFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %s: %v: %s", args[len(args)-1], err, lastLine(stderr.String()))
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
