package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"videoflix/internal/domain"
	"videoflix/internal/hls"
	"videoflix/internal/infrastructure/logger"
	"videoflix/internal/port"
)

// Coordinator drives a video through the HLS pipeline:
//
//	created -> qualities_in_flight -> playlist_pending -> complete
//
// with failed absorbing any non-terminal state. On VideoCreated it fans out
// one rendition job per ladder entry plus a finalize job gated on all of
// them (the queue's dependency barrier is the fan-in); workers then call
// RunJob for each claimed job. The coordinator itself never waits for
// transcoding.
type Coordinator struct {
	store           port.VideoStore
	queue           port.JobQueue
	transcoder      port.Transcoder
	bus             EventPublisher
	ladder          domain.Ladder
	mediaRoot       string
	jobTimeout      time.Duration
	finalizeTimeout time.Duration
}

func NewCoordinator(
	store port.VideoStore,
	queue port.JobQueue,
	transcoder port.Transcoder,
	bus EventPublisher,
	ladder domain.Ladder,
	mediaRoot string,
	jobTimeout, finalizeTimeout time.Duration,
) *Coordinator {
	return &Coordinator{
		store:           store,
		queue:           queue,
		transcoder:      transcoder,
		bus:             bus,
		ladder:          ladder,
		mediaRoot:       mediaRoot,
		jobTimeout:      jobTimeout,
		finalizeTimeout: finalizeTimeout,
	}
}

// Start subscribes to the event bus and enqueues a pipeline for every
// VideoCreated until the context is cancelled.
func (c *Coordinator) Start(ctx context.Context, bus *EventBus) {
	events, cancel := bus.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				if created, isCreated := event.(domain.VideoCreated); isCreated {
					c.EnqueuePipeline(created.VideoID, created.SourcePath)
				}
			}
		}
	}()
}

// EnqueuePipeline fans out the rendition jobs for one video. It only
// enqueues; the actual transcoding happens on the worker pool. A directory
// creation failure is fatal for this video's run and nothing is enqueued.
func (c *Coordinator) EnqueuePipeline(videoID int64, sourcePath string) {
	if sourcePath == "" {
		logger.Info.Printf("video %d has no source file, skipping pipeline", videoID)
		return
	}

	if _, err := hls.EnsureOutputDir(c.mediaRoot, sourcePath); err != nil {
		c.markFailed(videoID, fmt.Errorf("prepare output directory: %w", err))
		return
	}

	// Transition before the first job exists so a fast worker's terminal
	// write can never be overwritten back to an in-flight state.
	c.setState(videoID, domain.StateQualitiesInFlight, "")

	renditionIDs := make([]int64, 0, len(c.ladder))
	for _, q := range c.ladder {
		job, err := c.queue.Enqueue(port.JobRequest{
			VideoID: videoID,
			Type:    domain.JobTypeTranscode,
			Quality: q.Label,
			Timeout: c.jobTimeout,
		})
		if err != nil {
			c.markFailed(videoID, fmt.Errorf("enqueue %s job: %w", q.Label, err))
			return
		}
		renditionIDs = append(renditionIDs, job.ID)
	}

	if _, err := c.queue.Enqueue(port.JobRequest{
		VideoID:   videoID,
		Type:      domain.JobTypeFinalize,
		Timeout:   c.finalizeTimeout,
		DependsOn: renditionIDs,
	}); err != nil {
		c.markFailed(videoID, fmt.Errorf("enqueue finalize job: %w", err))
		return
	}

	logger.Info.Printf("video %d: enqueued %d rendition jobs + finalize", videoID, len(renditionIDs))
}

// RunJob executes one claimed job. The caller settles the job in the queue
// from the returned error.
func (c *Coordinator) RunJob(ctx context.Context, job *domain.Job) error {
	switch job.Type {
	case domain.JobTypeTranscode:
		return c.runTranscode(ctx, job)
	case domain.JobTypeFinalize:
		return c.runFinalize(job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (c *Coordinator) runTranscode(ctx context.Context, job *domain.Job) error {
	video, err := c.store.Get(job.VideoID)
	if err != nil {
		return fmt.Errorf("get video: %w", err)
	}
	if video.VideoFile == "" {
		return domain.ErrNoSourceFile
	}

	quality, ok := c.ladder.ByLabel(job.Quality)
	if !ok {
		return fmt.Errorf("quality %q not in ladder", job.Quality)
	}

	// Re-ensure the directory so the job stays independently retryable.
	outDir, err := hls.EnsureOutputDir(c.mediaRoot, video.VideoFile)
	if err != nil {
		c.markFailed(video.ID, err)
		return err
	}

	result, err := c.transcoder.ConvertQuality(ctx, video.VideoFile, outDir, quality)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			// Shutdown, not a conversion failure. The record keeps its
			// state; the requeued job re-runs the conversion from scratch.
			return fmt.Errorf("convert %s interrupted: %w", quality.Label, err)
		}
		logger.Error.Printf("video %d quality %s failed: %v command=%q stderr=%s",
			video.ID, quality.Label, err,
			strings.Join(result.Command, " "), logger.Sanitize(result.Stderr))
		c.markFailed(video.ID, fmt.Errorf("%w: %s", err, result.Stderr))
		return fmt.Errorf("%w (stderr: %s)", err, result.Stderr)
	}

	logger.Info.Printf("video %d quality %s converted", video.ID, quality.Label)
	return nil
}

// runFinalize composes the master playlist and, only after the manifest is
// confirmed on disk and recorded, deletes the original upload. The playlist
// reference is set exactly once per successful run.
func (c *Coordinator) runFinalize(job *domain.Job) error {
	video, err := c.store.Get(job.VideoID)
	if err != nil {
		return fmt.Errorf("get video: %w", err)
	}
	if video.VideoFile == "" {
		return domain.ErrNoSourceFile
	}

	c.setState(video.ID, domain.StatePlaylistPending, "")

	outDir := hls.OutputDir(c.mediaRoot, video.VideoFile)
	relPath, err := hls.WriteMasterPlaylist(c.mediaRoot, outDir, c.ladder)
	if err != nil {
		// The renditions on disk stay playable material; the source must
		// not be deleted when the manifest could not be written.
		c.markFailed(video.ID, err)
		return err
	}

	if err := c.store.SetPlaylist(video.ID, relPath); err != nil {
		c.markFailed(video.ID, fmt.Errorf("record playlist: %w", err))
		return err
	}

	c.deleteSource(video)

	c.bus.Publish(domain.PipelineStateChanged{VideoID: video.ID, State: domain.StateComplete})
	logger.Info.Printf("video %d: pipeline complete, playlist=%s", video.ID, relPath)
	return nil
}

// deleteSource removes the original upload once the playlist is recorded.
// Absence is fine (idempotent); a removal failure keeps the record intact
// and is only logged, since the conversion itself succeeded.
func (c *Coordinator) deleteSource(video *domain.Video) {
	if err := removeIfExists(video.VideoFile, os.Remove); err != nil {
		logger.Error.Printf("video %d: source cleanup failed: %v", video.ID, err)
		return
	}
	if err := c.store.ClearSourceFile(video.ID); err != nil {
		logger.Error.Printf("video %d: clear source reference: %v", video.ID, err)
	}
}

func (c *Coordinator) setState(videoID int64, state domain.PipelineState, msg string) {
	if err := c.store.UpdatePipelineState(videoID, state, msg); err != nil {
		logger.Error.Printf("video %d: update state to %s: %v", videoID, state, err)
		return
	}
	c.bus.Publish(domain.PipelineStateChanged{VideoID: videoID, State: state, Message: msg})
}

func (c *Coordinator) markFailed(videoID int64, cause error) {
	logger.Error.Printf("video %d: pipeline failed: %v", videoID, cause)
	c.setState(videoID, domain.StateFailed, cause.Error())
}
