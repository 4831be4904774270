package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoInsight/core"
	"videoInsight/providers"
	"videoInsight/storage"
)

type fakeGen struct {
	reply string
	err   error
	last  string
}

func (f *fakeGen) Name() string { return "fake" }

func (f *fakeGen) Complete(_ context.Context, prompt string) (string, error) {
	f.last = prompt
	return f.reply, f.err
}

func seedVideo(t *testing.T, index storage.VectorIndex, segments storage.SegmentStore, videoID string) {
	t.Helper()
	segs := []core.Segment{
		{ID: "s1", VideoID: videoID, Start: 0, End: 12, Text: "Today we look at how garbage collection works in Go."},
		{ID: "s2", VideoID: videoID, Start: 12, End: 25, Text: "The collector runs concurrently with your program."},
		{ID: "s3", VideoID: videoID, Start: 25, End: 40, Text: "Write barriers keep the heap consistent during marking."},
	}
	_, err := segments.Replace(context.Background(), videoID, segs)
	require.NoError(t, err)
	_, err = index.Upsert(context.Background(), videoID, segs)
	require.NoError(t, err)
}

func newTestEngine(t *testing.T, gen providers.Generative) (*Engine, storage.VectorIndex, storage.SegmentStore) {
	t.Helper()
	index := storage.NewMemoryVectorIndex(providers.HashEmbedder{})
	segments := storage.NewMemorySegmentStore()
	engine := NewEngine(index, gen, storage.NewMemoryChatStore(), segments)
	return engine, index, segments
}

func TestAskGenerative(t *testing.T) {
	gen := &fakeGen{reply: "The collector runs concurrently [00:12-00:25]."}
	engine, index, segments := newTestEngine(t, gen)
	seedVideo(t, index, segments, "vid-1")

	ans, err := engine.Ask(context.Background(), "vid-1", "", "how does garbage collection work?")
	require.NoError(t, err)

	assert.Equal(t, core.ModeGenerative, ans.Mode)
	assert.Equal(t, gen.reply, ans.Answer)
	assert.NotEmpty(t, ans.SessionID)
	assert.NotEmpty(t, ans.Sources)
	assert.Contains(t, gen.last, "garbage collection")
	assert.Contains(t, gen.last, "[00:00-00:12]")
}

func TestAskDegradesToExtractive(t *testing.T) {
	gen := &fakeGen{err: core.NewError(core.CodeModelUnavailable, "backend down")}
	engine, index, segments := newTestEngine(t, gen)
	seedVideo(t, index, segments, "vid-1")

	ans, err := engine.Ask(context.Background(), "vid-1", "sess-1", "how does garbage collection work?")
	require.NoError(t, err, "a broken model must not fail the question")

	assert.Equal(t, core.ModeExtractive, ans.Mode)
	assert.NotEmpty(t, ans.Answer)
	assert.Contains(t, ans.Answer, "[")
	assert.NotEmpty(t, ans.Sources, "extractive answers cite the same sources")
	assert.Equal(t, "sess-1", ans.SessionID)
}

func TestAskEmptyReplyDegrades(t *testing.T) {
	gen := &fakeGen{reply: "   "}
	engine, index, segments := newTestEngine(t, gen)
	seedVideo(t, index, segments, "vid-1")

	ans, err := engine.Ask(context.Background(), "vid-1", "", "what about write barriers?")
	require.NoError(t, err)
	assert.Equal(t, core.ModeExtractive, ans.Mode)
	assert.NotEmpty(t, ans.Answer)
}

func TestAskIndexEmpty(t *testing.T) {
	engine, _, _ := newTestEngine(t, &fakeGen{reply: "hi"})

	_, err := engine.Ask(context.Background(), "missing", "", "anything?")
	require.Error(t, err)
	assert.Equal(t, core.CodeIndexEmpty, core.CodeOf(err))
}

func TestAskValidatesQuestion(t *testing.T) {
	engine, index, segments := newTestEngine(t, &fakeGen{reply: "hi"})
	seedVideo(t, index, segments, "vid-1")

	_, err := engine.Ask(context.Background(), "vid-1", "", "   ")
	require.Error(t, err)
	assert.Equal(t, core.CodeInvalidArgument, core.CodeOf(err))
}

func TestAskRecordsHistory(t *testing.T) {
	engine, index, segments := newTestEngine(t, &fakeGen{reply: "it works concurrently"})
	seedVideo(t, index, segments, "vid-1")

	ans, err := engine.Ask(context.Background(), "vid-1", "sess-9", "how does the collector run?")
	require.NoError(t, err)

	turns, err := engine.History(context.Background(), "vid-1", "sess-9")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, core.RoleUser, turns[0].Role)
	assert.Equal(t, "how does the collector run?", turns[0].Text)
	assert.Equal(t, core.RoleAssistant, turns[1].Role)
	assert.Equal(t, ans.Answer, turns[1].Text)
	assert.NotEmpty(t, turns[1].CitedSegmentIDs)
	assert.Less(t, turns[0].Seq, turns[1].Seq)
}

func TestBroadQuestionsWidenRetrieval(t *testing.T) {
	engine, _, _ := newTestEngine(t, &fakeGen{})
	narrow := engine.topKFor("when does marking start?")
	broad := engine.topKFor("what is this video about?")
	assert.Greater(t, broad, narrow)
}

func TestSuggestedQuestions(t *testing.T) {
	engine, index, segments := newTestEngine(t, &fakeGen{reply: "hi"})
	seedVideo(t, index, segments, "vid-1")

	questions, err := engine.SuggestedQuestions(context.Background(), "vid-1", 3)
	require.NoError(t, err)
	require.NotEmpty(t, questions)
	assert.LessOrEqual(t, len(questions), 3)
	for _, q := range questions {
		assert.Contains(t, q, "?")
	}
}

func TestSuggestedQuestionsNoTranscript(t *testing.T) {
	engine, _, _ := newTestEngine(t, &fakeGen{reply: "hi"})

	_, err := engine.SuggestedQuestions(context.Background(), "missing", 3)
	require.Error(t, err)
	assert.Equal(t, core.CodeNotFound, core.CodeOf(err))
}
