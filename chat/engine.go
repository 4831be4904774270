package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"videoInsight/core"
	"videoInsight/providers"
	"videoInsight/storage"
)

// Engine answers questions about one video, grounded in retrieved transcript
// segments. When the generative backend fails or returns nothing, it degrades
// to a purely extractive answer built from the same hits, so the response
// shape never changes.
type Engine struct {
	Index    storage.VectorIndex
	Gen      providers.Generative
	Chat     storage.ChatStore
	Segments storage.SegmentStore

	TopK          int
	ExtractBudget int
}

func NewEngine(index storage.VectorIndex, gen providers.Generative, chatStore storage.ChatStore, segments storage.SegmentStore) *Engine {
	return &Engine{
		Index:         index,
		Gen:           gen,
		Chat:          chatStore,
		Segments:      segments,
		TopK:          5,
		ExtractBudget: 1200,
	}
}

var broadMarkers = []string{"about", "overview", "summary", "summarize", "main", "overall", "why"}

// topKFor widens retrieval for broad questions; narrow factual ones stay at
// the default.
func (e *Engine) topKFor(question string) int {
	k := e.TopK
	if k <= 0 {
		k = 5
	}
	q := strings.ToLower(question)
	for _, m := range broadMarkers {
		if strings.Contains(q, m) {
			return k + 3
		}
	}
	return k
}

func (e *Engine) Ask(ctx context.Context, videoID, sessionID, question string) (*core.ChatAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, core.NewError(core.CodeInvalidArgument, "question is required")
	}
	if sessionID == "" {
		sessionID = core.NewID()
	}

	hits, err := e.Index.Query(ctx, videoID, question, e.topKFor(question))
	if err != nil {
		return nil, err
	}

	sources := make([]core.Source, 0, len(hits))
	cited := make([]string, 0, len(hits))
	for _, h := range hits {
		sources = append(sources, core.Source{
			Timestamp: core.FormatRange(h.Start, h.End),
			Start:     h.Start,
			End:       h.End,
			Text:      h.Text,
		})
		cited = append(cited, h.SegmentID)
	}

	answer, mode := e.answer(ctx, question, hits)

	now := time.Now()
	userTurn := &core.ChatTurn{VideoID: videoID, SessionID: sessionID, Role: core.RoleUser, Text: question, CreatedAt: now}
	if err := e.Chat.Append(ctx, userTurn); err != nil {
		log.Printf("chat: record question for video %s: %v", videoID, err)
	}
	asstTurn := &core.ChatTurn{VideoID: videoID, SessionID: sessionID, Role: core.RoleAssistant, Text: answer, CitedSegmentIDs: cited, CreatedAt: now}
	if err := e.Chat.Append(ctx, asstTurn); err != nil {
		log.Printf("chat: record answer for video %s: %v", videoID, err)
	}

	return &core.ChatAnswer{SessionID: sessionID, Answer: answer, Sources: sources, Mode: mode}, nil
}

func (e *Engine) answer(ctx context.Context, question string, hits []core.Hit) (string, core.AnswerMode) {
	prompt := buildPrompt(question, hits)
	text, err := e.Gen.Complete(ctx, prompt)
	if err == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text), core.ModeGenerative
	}
	if err != nil {
		log.Printf("chat: %s backend failed, degrading to extractive answer: %v", e.Gen.Name(), err)
	}
	return e.extractive(hits), core.ModeExtractive
}

func buildPrompt(question string, hits []core.Hit) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the transcript excerpts below. ")
	b.WriteString("Cite timestamps like [01:23-01:45] when you reference an excerpt. ")
	b.WriteString("If the excerpts do not contain the answer, say so.\n\nExcerpts:\n")
	for _, h := range hits {
		fmt.Fprintf(&b, "[%s] %s\n", core.FormatRange(h.Start, h.End), h.Text)
	}
	fmt.Fprintf(&b, "\nQuestion: %s", question)
	return b.String()
}

// extractive concatenates the retrieved excerpts with timestamps, trimmed to
// the budget. No generation involved.
func (e *Engine) extractive(hits []core.Hit) string {
	budget := e.ExtractBudget
	if budget <= 0 {
		budget = 1200
	}
	var b strings.Builder
	for _, h := range hits {
		line := fmt.Sprintf("[%s] %s", core.FormatRange(h.Start, h.End), h.Text)
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
		if len([]rune(b.String())) >= budget {
			break
		}
	}
	return core.TruncateRunes(b.String(), budget)
}

// History returns a session's conversation in order.
func (e *Engine) History(ctx context.Context, videoID, sessionID string) ([]core.ChatTurn, error) {
	return e.Chat.History(ctx, videoID, sessionID)
}

var questionTemplates = []string{
	"What does the speaker say about %s?",
	"How is %s explained in the video?",
	"Why is %s important here?",
	"What examples are given for %s?",
}

// SuggestedQuestions derives starter questions from evenly spaced parts of
// the transcript, so they cover the whole video rather than its opening.
func (e *Engine) SuggestedQuestions(ctx context.Context, videoID string, n int) ([]string, error) {
	if n <= 0 {
		n = 4
	}
	segs, err := e.Segments.List(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, core.NewError(core.CodeNotFound, "no transcript for video "+videoID)
	}
	out := make([]string, 0, n)
	seen := map[string]bool{}
	step := len(segs) / n
	if step == 0 {
		step = 1
	}
	for i := 0; i < len(segs) && len(out) < n; i += step {
		topics := providers.ExtractKeyTopics(segs[i].Text, 1)
		if len(topics) == 0 {
			continue
		}
		topic := strings.ToLower(topics[0])
		if seen[topic] {
			continue
		}
		seen[topic] = true
		out = append(out, fmt.Sprintf(questionTemplates[len(out)%len(questionTemplates)], topic))
	}
	if len(out) == 0 {
		out = append(out, "What is this video about?")
	}
	return out, nil
}
