package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"videoInsight/core"
)

// SummaryResult is the summarization contract's response shape.
type SummaryResult struct {
	Content   string
	KeyTopics []string
}

// Summarizer produces one summary kind for a text. Implementations fail
// with INPUT_TOO_LONG when the text exceeds their window; callers chunk.
type Summarizer interface {
	Summarize(ctx context.Context, text string, kind core.SummaryKind) (*SummaryResult, error)
}

type OpenAISummarizer struct {
	cli      *openai.Client
	model    string
	maxRunes int
}

func NewOpenAISummarizer(cli *openai.Client, model string) *OpenAISummarizer {
	return &OpenAISummarizer{cli: cli, model: model, maxRunes: 24000}
}

func summaryInstruction(kind core.SummaryKind) string {
	switch kind {
	case core.SummaryBullet:
		return "List the 3-5 main points of this transcript as short sentences separated by '. '."
	case core.SummaryShort:
		return "Condense this transcript into 1-2 sentences."
	default:
		return "Write a detailed flowing summary of this transcript in one paragraph."
	}
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, text string, kind core.SummaryKind) (*SummaryResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.NewError(core.CodeEmptyTranscript, "nothing to summarize")
	}
	if len([]rune(text)) > s.maxRunes {
		return nil, core.NewError(core.CodeInputTooLong, fmt.Sprintf("input exceeds %d characters", s.maxRunes))
	}
	prompt := fmt.Sprintf("%s Ground every statement in the transcript; do not invent names or events.\n\nTranscript:\n%s", summaryInstruction(kind), text)
	resp, err := s.cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   800,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, core.WrapError(err, core.CodeModelUnavailable, "summarization request failed")
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, core.NewError(core.CodeModelUnavailable, "empty summarization response")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	return &SummaryResult{Content: content, KeyTopics: ExtractKeyTopics(content, 5)}, nil
}

// RuleSummarizer is the deterministic fallback: leading sentences shaped per
// kind plus frequency-based topics. No model call, works offline.
type RuleSummarizer struct {
	// MaxRunes simulates a model window so chunking paths stay testable.
	MaxRunes int
}

func (s RuleSummarizer) Summarize(_ context.Context, text string, kind core.SummaryKind) (*SummaryResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.NewError(core.CodeEmptyTranscript, "nothing to summarize")
	}
	if s.MaxRunes > 0 && len([]rune(text)) > s.MaxRunes {
		return nil, core.NewError(core.CodeInputTooLong, fmt.Sprintf("input exceeds %d characters", s.MaxRunes))
	}
	sentences := splitSentences(text)
	var content string
	switch kind {
	case core.SummaryBullet:
		n := len(sentences)
		if n > 5 {
			n = 5
		}
		points := make([]string, 0, n)
		for _, sent := range sentences[:n] {
			points = append(points, strings.TrimRight(sent, "."))
		}
		content = strings.Join(points, ". ")
	case core.SummaryShort:
		n := len(sentences)
		if n > 2 {
			n = 2
		}
		content = strings.Join(sentences[:n], " ")
	default:
		n := len(sentences)
		if n > 6 {
			n = 6
		}
		content = strings.Join(sentences[:n], " ")
	}
	if content == "" {
		content = strings.TrimSpace(text)
	}
	return &SummaryResult{Content: content, KeyTopics: ExtractKeyTopics(text, 5)}, nil
}

// SummarizeChunked summarizes text of any length by splitting on the
// INPUT_TOO_LONG boundary, summarizing each piece and summarizing the
// concatenated partials.
func SummarizeChunked(ctx context.Context, s Summarizer, text string, kind core.SummaryKind) (*SummaryResult, error) {
	res, err := s.Summarize(ctx, text, kind)
	if err == nil {
		return res, nil
	}
	if core.CodeOf(err) != core.CodeInputTooLong {
		return nil, err
	}
	halves := splitInHalf(text)
	if len(halves) < 2 {
		return nil, err
	}
	partials := make([]string, 0, len(halves))
	topics := make([]string, 0)
	for _, part := range halves {
		// Intermediate passes always use the full kind; the requested
		// shape is applied on the final reduce.
		partial, perr := SummarizeChunked(ctx, s, part, core.SummaryFull)
		if perr != nil {
			return nil, perr
		}
		partials = append(partials, partial.Content)
		topics = append(topics, partial.KeyTopics...)
	}
	reduced := strings.Join(partials, " ")
	// Recurse only while the reduction shrinks the text; a summarizer that
	// echoes short inputs would otherwise loop on the same string forever.
	if len([]rune(reduced)) < len([]rune(text)) {
		final, err := SummarizeChunked(ctx, s, reduced, kind)
		if err != nil {
			return nil, err
		}
		final.KeyTopics = mergeTopics(final.KeyTopics, topics, 5)
		return final, nil
	}
	final, err := s.Summarize(ctx, reduced, kind)
	if err != nil {
		if core.CodeOf(err) == core.CodeInputTooLong {
			// The reduce stalled; settle for the joined partials.
			return &SummaryResult{Content: reduced, KeyTopics: mergeTopics(nil, topics, 5)}, nil
		}
		return nil, err
	}
	final.KeyTopics = mergeTopics(final.KeyTopics, topics, 5)
	return final, nil
}

func splitInHalf(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) < 2 {
		return nil
	}
	mid := len(sentences) / 2
	return []string{
		strings.Join(sentences[:mid], " "),
		strings.Join(sentences[mid:], " "),
	}
}

func splitSentences(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		out = append(out, f+".")
	}
	return out
}

// ExtractKeyTopics returns the most frequent meaningful tokens, title-cased.
func ExtractKeyTopics(text string, n int) []string {
	counts := map[string]int{}
	for _, tok := range core.Tokenize(text) {
		if len(tok) < 3 {
			continue
		}
		counts[tok]++
	}
	type tc struct {
		tok   string
		count int
	}
	all := make([]tc, 0, len(counts))
	for tok, c := range counts {
		all = append(all, tc{tok, c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].tok < all[j].tok
	})
	if n > len(all) {
		n = len(all)
	}
	topics := make([]string, 0, n)
	for _, t := range all[:n] {
		topics = append(topics, strings.Title(t.tok))
	}
	return topics
}

func mergeTopics(primary, extra []string, n int) []string {
	seen := map[string]bool{}
	out := make([]string, 0, n)
	for _, t := range append(append([]string{}, primary...), extra...) {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == n {
			break
		}
	}
	return out
}
