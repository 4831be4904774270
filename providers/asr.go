package providers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"videoInsight/core"
	"videoInsight/processors"
)

// Transcriber is the ASR contract: ordered, non-overlapping segments with
// timestamps for an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]core.Segment, error)
}

// WhisperASR transcribes through an OpenAI-compatible audio endpoint.
type WhisperASR struct {
	cli     *openai.Client
	model   string
	timeout time.Duration
}

func NewWhisperASR(cli *openai.Client, model string) *WhisperASR {
	if model == "" {
		model = "whisper-1"
	}
	return &WhisperASR{cli: cli, model: model, timeout: 2 * time.Minute}
}

func (w *WhisperASR) Transcribe(ctx context.Context, audioPath string) ([]core.Segment, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	resp, err := w.cli.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, core.WrapError(err, core.CodeTranscriptionTimeout, "transcription timed out")
		}
		return nil, core.WrapError(err, core.CodeTransientBackend, "transcription request failed")
	}
	segs := make([]core.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		text := NormalizeTranscript(s.Text)
		if text == "" {
			continue
		}
		segs = append(segs, core.Segment{Start: s.Start, End: s.End, Text: text})
	}
	if len(segs) == 0 {
		text := NormalizeTranscript(resp.Text)
		if text == "" {
			return nil, core.NewError(core.CodeEmptyTranscript, "empty transcription result")
		}
		dur, _ := processors.ProbeDuration(ctx, audioPath)
		segs = []core.Segment{{Start: 0, End: dur, Text: text}}
	}
	return segs, nil
}

// MockASR produces placeholder segments covering the audio duration. Kept
// as the offline/dev fallback, same as always.
type MockASR struct {
	SegmentLen float64
	// Duration overrides ffprobe when set; tests have no media files.
	Duration float64
}

func (m MockASR) Transcribe(ctx context.Context, audioPath string) ([]core.Segment, error) {
	dur := m.Duration
	if dur <= 0 {
		probed, err := processors.ProbeDuration(ctx, audioPath)
		if err != nil {
			return nil, err
		}
		dur = probed
	}
	segLen := m.SegmentLen
	if segLen <= 0 {
		segLen = 15.0
	}
	segs := make([]core.Segment, 0)
	for start := 0.0; start < dur; start += segLen {
		end := start + segLen
		if end > dur {
			end = dur
		}
		segs = append(segs, core.Segment{Start: start, End: end, Text: fmt.Sprintf("Placeholder transcript from %.0fs to %.0fs", start, end)})
	}
	return segs, nil
}

var (
	dupPunct   = regexp.MustCompile(`\.{2,}|!{2,}|\?{2,}`)
	punctSpace = regexp.MustCompile(`([.!?])([A-Za-z])`)
	multiSpace = regexp.MustCompile(`\s+`)
)

// NormalizeTranscript cleans common recognizer artifacts: duplicated
// punctuation, missing spaces after sentence ends, ragged whitespace.
func NormalizeTranscript(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	text = dupPunct.ReplaceAllStringFunc(text, func(run string) string { return run[:1] })
	text = punctSpace.ReplaceAllString(text, "$1 $2")
	text = multiSpace.ReplaceAllString(text, " ")
	runes := []rune(text)
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	return string(runes)
}
