package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"videoInsight/core"
	"videoInsight/processors"
	"videoInsight/providers"
	"videoInsight/storage"
)

// Deps collects everything a pipeline run touches. Extract and Probe default
// to the ffmpeg implementations and are injectable for tests.
type Deps struct {
	Videos     storage.VideoStore
	Segments   storage.SegmentStore
	Summaries  storage.SummaryStore
	Index      storage.VectorIndex
	Chat       storage.ChatStore
	ASR        providers.Transcriber
	Summarizer providers.Summarizer
	DataRoot   string

	Extract func(ctx context.Context, inputPath, audioOut string) error
	Probe   func(ctx context.Context, path string) (float64, error)
}

type Options struct {
	Workers      int
	MaxRetries   int
	Backoff      time.Duration
	StageTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 500 * time.Millisecond
	}
	if o.StageTimeout <= 0 {
		o.StageTimeout = 10 * time.Minute
	}
	return o
}

type runState struct {
	cancelled atomic.Bool
}

// Orchestrator drives each video through extract, transcribe, index and
// summarize. At most one run per video is in flight; a second submission for
// the same video is rejected synchronously.
type Orchestrator struct {
	deps Deps
	opts Options

	mu      sync.Mutex
	running map[string]*runState

	jobs chan string
	wg   sync.WaitGroup
	once sync.Once
}

func NewOrchestrator(deps Deps, opts Options) *Orchestrator {
	if deps.Extract == nil {
		deps.Extract = processors.ExtractAudio
	}
	if deps.Probe == nil {
		deps.Probe = processors.ProbeDuration
	}
	if deps.DataRoot == "" {
		deps.DataRoot = core.DataRoot()
	}
	opts = opts.withDefaults()
	return &Orchestrator{
		deps:    deps,
		opts:    opts,
		running: map[string]*runState{},
		jobs:    make(chan string, 64),
	}
}

// Start launches the worker pool. Safe to call once.
func (o *Orchestrator) Start() {
	o.once.Do(func() {
		for i := 0; i < o.opts.Workers; i++ {
			o.wg.Add(1)
			go func() {
				defer o.wg.Done()
				for videoID := range o.jobs {
					o.process(videoID)
				}
			}()
		}
	})
}

// Shutdown stops accepting work and waits for in-flight runs.
func (o *Orchestrator) Shutdown() {
	close(o.jobs)
	o.wg.Wait()
}

func (o *Orchestrator) claim(videoID string) (*runState, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.running[videoID]; ok {
		return nil, core.NewError(core.CodeAlreadyRunning, "processing already in progress for video "+videoID)
	}
	st := &runState{}
	o.running[videoID] = st
	return st, nil
}

func (o *Orchestrator) release(videoID string) {
	o.mu.Lock()
	delete(o.running, videoID)
	o.mu.Unlock()
}

func (o *Orchestrator) state(videoID string) *runState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running[videoID]
}

// Submit registers a new video and queues it for processing.
func (o *Orchestrator) Submit(ctx context.Context, sourcePath string) (string, error) {
	if sourcePath == "" {
		return "", core.NewError(core.CodeInvalidArgument, "source_path is required")
	}
	now := time.Now()
	v := &core.Video{
		ID:         core.NewID(),
		SourcePath: sourcePath,
		Status:     core.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := o.deps.Videos.Put(ctx, v); err != nil {
		return "", err
	}
	if _, err := o.claim(v.ID); err != nil {
		return "", err
	}
	o.jobs <- v.ID
	return v.ID, nil
}

// Resubmit re-runs the pipeline for a video already in a terminal state.
// Derived artifacts are dropped up front so no reader sees a mix of old and
// new results.
func (o *Orchestrator) Resubmit(ctx context.Context, videoID string) error {
	v, err := o.deps.Videos.Get(ctx, videoID)
	if err != nil {
		return err
	}
	if !v.Status.Terminal() {
		return core.NewError(core.CodeStateConflict,
			fmt.Sprintf("video %s is %s, only completed or failed videos can be reprocessed", videoID, v.Status))
	}
	if _, err := o.claim(videoID); err != nil {
		return err
	}
	if err := o.deps.Index.Invalidate(ctx, videoID); err != nil {
		o.release(videoID)
		return err
	}
	if err := o.deps.Summaries.Delete(ctx, videoID); err != nil {
		o.release(videoID)
		return err
	}
	v.Status = core.StatusPending
	v.Progress = 0
	v.ErrorCode = ""
	v.ErrorMessage = ""
	v.ProcessedAt = nil
	v.UpdatedAt = time.Now()
	if err := o.deps.Videos.Put(ctx, v); err != nil {
		o.release(videoID)
		return err
	}
	o.jobs <- videoID
	return nil
}

// Cancel requests a cooperative stop. The run notices at the next stage
// boundary; work inside a stage finishes or fails on its own.
func (o *Orchestrator) Cancel(ctx context.Context, videoID string) error {
	st := o.state(videoID)
	if st == nil {
		return core.NewError(core.CodeStateConflict, "no processing in progress for video "+videoID)
	}
	st.cancelled.Store(true)
	log.Printf("pipeline: cancel requested for video %s", videoID)
	return nil
}

// Status returns the lifecycle record.
func (o *Orchestrator) Status(ctx context.Context, videoID string) (*core.Video, error) {
	return o.deps.Videos.Get(ctx, videoID)
}

// List returns every known video ordered by creation time.
func (o *Orchestrator) List(ctx context.Context) ([]core.Video, error) {
	return o.deps.Videos.List(ctx)
}

// UpdateTranscript replaces the stored transcript with edited segments,
// drops stale derived artifacts and re-indexes immediately. Summaries stay
// deleted until the next reprocess. The edit holds the per-video run token,
// so it is rejected while a run is in flight and no run can start mid-edit.
func (o *Orchestrator) UpdateTranscript(ctx context.Context, videoID string, segs []core.Segment) error {
	if _, err := o.claim(videoID); err != nil {
		return err
	}
	defer o.release(videoID)
	if _, err := o.deps.Videos.Get(ctx, videoID); err != nil {
		return err
	}
	for i := range segs {
		if segs[i].ID == "" {
			segs[i].ID = core.NewID()
		}
		segs[i].VideoID = videoID
		if segs[i].End < segs[i].Start {
			return core.NewError(core.CodeInvalidArgument,
				fmt.Sprintf("segment %d ends before it starts", i))
		}
	}
	if _, err := o.deps.Segments.Replace(ctx, videoID, segs); err != nil {
		return err
	}
	if err := o.deps.Index.Invalidate(ctx, videoID); err != nil {
		return err
	}
	if err := o.deps.Summaries.Delete(ctx, videoID); err != nil {
		return err
	}
	if _, err := o.deps.Index.Upsert(ctx, videoID, segs); err != nil {
		return err
	}
	log.Printf("pipeline: transcript replaced for video %s (%d segments)", videoID, len(segs))
	return nil
}

// Delete removes a video and everything derived from it. Holds the per-video
// run token for the duration, same as UpdateTranscript.
func (o *Orchestrator) Delete(ctx context.Context, videoID string) error {
	if _, err := o.claim(videoID); err != nil {
		return err
	}
	defer o.release(videoID)
	if err := o.deps.Index.Invalidate(ctx, videoID); err != nil {
		return err
	}
	if err := o.deps.Summaries.Delete(ctx, videoID); err != nil {
		return err
	}
	if err := o.deps.Segments.Delete(ctx, videoID); err != nil {
		return err
	}
	if err := o.deps.Chat.DeleteVideo(ctx, videoID); err != nil {
		return err
	}
	if err := o.deps.Videos.Delete(ctx, videoID); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(o.deps.DataRoot, videoID)); err != nil {
		log.Printf("pipeline: remove artifacts for video %s: %v", videoID, err)
	}
	return nil
}
