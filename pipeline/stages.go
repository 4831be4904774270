package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"videoInsight/core"
	"videoInsight/providers"
)

func joinTranscript(segs []core.Segment) string {
	parts := make([]string, 0, len(segs))
	for _, seg := range segs {
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, " ")
}

type stage struct {
	name     string
	status   core.VideoStatus
	progress int
	run      func(ctx context.Context, v *core.Video) error
}

func (o *Orchestrator) stages() []stage {
	return []stage{
		{"extract", core.StatusProcessing, 10, o.stageExtract},
		{"transcribe", core.StatusTranscribing, 30, o.stageTranscribe},
		{"index", core.StatusIndexing, 70, o.stageIndex},
		{"summarize", core.StatusSummarizing, 80, o.stageSummarize},
	}
}

// process runs the full stage sequence for one video. Transient failures
// retry with exponential backoff; anything else fails the run. Cancellation
// is checked between stages only.
func (o *Orchestrator) process(videoID string) {
	defer o.release(videoID)
	ctx := context.Background()
	st := o.state(videoID)

	v, err := o.deps.Videos.Get(ctx, videoID)
	if err != nil {
		log.Printf("pipeline: load video %s: %v", videoID, err)
		return
	}

	started := time.Now()
	for _, stg := range o.stages() {
		if st != nil && st.cancelled.Load() {
			o.fail(ctx, v, core.NewError(core.CodeCancelled, "processing cancelled"))
			return
		}
		v.Status = stg.status
		v.Progress = stg.progress
		v.UpdatedAt = time.Now()
		if err := o.deps.Videos.Put(ctx, v); err != nil {
			log.Printf("pipeline: update video %s: %v", videoID, err)
			return
		}
		if err := o.runStage(ctx, stg, v); err != nil {
			o.fail(ctx, v, err)
			return
		}
	}

	now := time.Now()
	v.Status = core.StatusCompleted
	v.Progress = 100
	v.ErrorCode = ""
	v.ErrorMessage = ""
	v.ProcessedAt = &now
	v.UpdatedAt = now
	if err := o.deps.Videos.Put(ctx, v); err != nil {
		log.Printf("pipeline: complete video %s: %v", videoID, err)
		return
	}
	log.Printf("pipeline: video %s completed in %s", videoID, time.Since(started).Round(time.Millisecond))
}

func (o *Orchestrator) runStage(ctx context.Context, stg stage, v *core.Video) error {
	var lastErr error
	for attempt := 0; attempt < o.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := o.opts.Backoff * (1 << (attempt - 1))
			log.Printf("pipeline: video %s stage %s retry %d in %s: %v", v.ID, stg.name, attempt, delay, lastErr)
			time.Sleep(delay)
		}
		stageCtx, cancel := context.WithTimeout(ctx, o.opts.StageTimeout)
		err := stg.run(stageCtx, v)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !core.IsTransient(err) {
			return err
		}
	}
	return lastErr
}

func (o *Orchestrator) fail(ctx context.Context, v *core.Video, err error) {
	v.Status = core.StatusFailed
	v.ErrorCode = core.CodeOf(err)
	v.ErrorMessage = err.Error()
	v.UpdatedAt = time.Now()
	if perr := o.deps.Videos.Put(ctx, v); perr != nil {
		log.Printf("pipeline: record failure for video %s: %v", v.ID, perr)
	}
	log.Printf("pipeline: video %s failed: %v", v.ID, err)
}

func (o *Orchestrator) audioPath(videoID string) string {
	return filepath.Join(o.deps.DataRoot, videoID, "audio.wav")
}

func (o *Orchestrator) stageExtract(ctx context.Context, v *core.Video) error {
	if err := o.deps.Extract(ctx, v.SourcePath, o.audioPath(v.ID)); err != nil {
		return err
	}
	dur, err := o.deps.Probe(ctx, v.SourcePath)
	if err != nil {
		// Duration is cosmetic; a broken probe should not fail the run.
		log.Printf("pipeline: probe duration for video %s: %v", v.ID, err)
		return nil
	}
	v.Duration = dur
	return nil
}

func (o *Orchestrator) stageTranscribe(ctx context.Context, v *core.Video) error {
	segs, err := o.deps.ASR.Transcribe(ctx, o.audioPath(v.ID))
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return core.NewError(core.CodeEmptyTranscript, "no speech recognized")
	}
	for i := range segs {
		segs[i].ID = core.NewID()
		segs[i].VideoID = v.ID
	}
	replaced, err := o.deps.Segments.Replace(ctx, v.ID, segs)
	if err != nil {
		return err
	}
	if replaced {
		// An older transcript existed, so derived artifacts are stale.
		if err := o.deps.Index.Invalidate(ctx, v.ID); err != nil {
			return err
		}
		if err := o.deps.Summaries.Delete(ctx, v.ID); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) stageIndex(ctx context.Context, v *core.Video) error {
	segs, err := o.deps.Segments.List(ctx, v.ID)
	if err != nil {
		return err
	}
	n, err := o.deps.Index.Upsert(ctx, v.ID, segs)
	if err != nil {
		return err
	}
	log.Printf("pipeline: video %s indexed %d segments", v.ID, n)
	return nil
}

func (o *Orchestrator) stageSummarize(ctx context.Context, v *core.Video) error {
	segs, err := o.deps.Segments.List(ctx, v.ID)
	if err != nil {
		return err
	}
	text := joinTranscript(segs)
	for _, kind := range []core.SummaryKind{core.SummaryFull, core.SummaryBullet} {
		started := time.Now()
		res, err := providers.SummarizeChunked(ctx, o.deps.Summarizer, text, kind)
		if err != nil {
			return err
		}
		sum := &core.Summary{
			VideoID:        v.ID,
			Kind:           kind,
			Content:        res.Content,
			KeyTopics:      res.KeyTopics,
			GenerationTime: time.Since(started).Seconds(),
			GeneratedAt:    time.Now(),
		}
		if err := o.deps.Summaries.Put(ctx, sum); err != nil {
			return err
		}
	}
	return nil
}

// Summarize produces and stores a summary kind on demand, used for the
// short-form summary which is not part of the standard run.
func (o *Orchestrator) Summarize(ctx context.Context, videoID string, kind core.SummaryKind) (*core.Summary, error) {
	v, err := o.deps.Videos.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if v.Status != core.StatusCompleted {
		return nil, core.NewError(core.CodeStateConflict,
			fmt.Sprintf("video %s is %s, summaries require completed processing", videoID, v.Status))
	}
	segs, err := o.deps.Segments.List(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, core.NewError(core.CodeEmptyTranscript, "no transcript for video "+videoID)
	}
	started := time.Now()
	res, err := providers.SummarizeChunked(ctx, o.deps.Summarizer, joinTranscript(segs), kind)
	if err != nil {
		return nil, err
	}
	sum := &core.Summary{
		VideoID:        videoID,
		Kind:           kind,
		Content:        res.Content,
		KeyTopics:      res.KeyTopics,
		GenerationTime: time.Since(started).Seconds(),
		GeneratedAt:    time.Now(),
	}
	if err := o.deps.Summaries.Put(ctx, sum); err != nil {
		return nil, err
	}
	return sum, nil
}
