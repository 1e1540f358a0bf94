package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoflix/internal/adapter/queue/memory"
	"videoflix/internal/adapter/storage/sqlite"
	"videoflix/internal/domain"
	"videoflix/internal/port"
)

// fakeTranscoder stands in for ffmpeg: it writes the rendition playlist and
// one segment the real binary would produce, or fails a chosen quality.
type fakeTranscoder struct {
	mu          sync.Mutex
	failQuality string
	converted   []string
}

func (f *fakeTranscoder) ConvertQuality(_ context.Context, sourcePath, outputDir string, quality domain.Quality) (port.RenditionResult, error) {
	result := port.RenditionResult{
		Command: []string{"ffmpeg", "-i", sourcePath, filepath.Join(outputDir, quality.PlaylistName())},
	}

	if quality.Label == f.failQuality {
		result.Stderr = "Invalid data found when processing input"
		return result, errors.New("exit status 1")
	}

	if err := os.WriteFile(filepath.Join(outputDir, quality.PlaylistName()), []byte("#EXTM3U\n#EXT-X-ENDLIST\n"), 0644); err != nil {
		return result, err
	}
	if err := os.WriteFile(filepath.Join(outputDir, quality.Label+"_000.ts"), []byte("ts"), 0644); err != nil {
		return result, err
	}

	f.mu.Lock()
	f.converted = append(f.converted, quality.Label)
	f.mu.Unlock()
	return result, nil
}

var _ port.Transcoder = (*fakeTranscoder)(nil)

type pipelineEnv struct {
	root        string
	videos      *sqlite.VideoStore
	queue       *memory.Queue
	bus         *EventBus
	catalog     *CatalogService
	coordinator *Coordinator
}

// newPipelineEnv wires the whole pipeline against a temp media root and an
// in-memory queue, with the worker pool polling fast enough for tests.
func newPipelineEnv(t *testing.T, transcoder port.Transcoder) *pipelineEnv {
	t.Helper()

	root := t.TempDir()
	store, err := sqlite.NewStore(root)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	videos := sqlite.NewVideoStore(store)
	queue := memory.NewQueue()
	bus := NewEventBus()
	reconciler := NewReconciler(root)
	catalog := NewCatalogService(videos, reconciler, bus)
	coordinator := NewCoordinator(videos, queue, transcoder, bus, domain.DefaultLadder(), root, 10*time.Second, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	coordinator.Start(ctx, bus)

	pool := NewWorkerPool(queue, coordinator, 2)
	pool.pollInterval = 5 * time.Millisecond
	pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		pool.Wait()
	})

	return &pipelineEnv{
		root:        root,
		videos:      videos,
		queue:       queue,
		bus:         bus,
		catalog:     catalog,
		coordinator: coordinator,
	}
}

func (env *pipelineEnv) writeSource(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(env.root, "uploads", "action")
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("not a real mp4"), 0644))
	return path
}

func (env *pipelineEnv) waitForState(t *testing.T, videoID int64, want domain.PipelineState) *domain.Video {
	t.Helper()
	var video *domain.Video
	require.Eventually(t, func() bool {
		v, err := env.videos.Get(videoID)
		if err != nil {
			return false
		}
		video = v
		return v.PipelineState == want
	}, 5*time.Second, 10*time.Millisecond, "video never reached state %s", want)
	return video
}

func TestPipeline_EndToEnd(t *testing.T) {
	transcoder := &fakeTranscoder{}
	env := newPipelineEnv(t, transcoder)

	source := env.writeSource(t, "movie.mp4")
	video, err := env.catalog.Create("Movie", "", domain.CategoryAction, source, "")
	require.NoError(t, err)

	final := env.waitForState(t, video.ID, domain.StateComplete)

	assert.Equal(t, filepath.Join("videos", "hls", "movie", "playlist.m3u8"), final.HLSPlaylist)
	assert.True(t, final.Playable())

	// Master playlist references every rendition in ladder order.
	data, err := os.ReadFile(filepath.Join(env.root, final.HLSPlaylist))
	require.NoError(t, err)
	master := string(data)
	assert.Contains(t, master, "RESOLUTION=1920x1080")
	assert.Contains(t, master, "RESOLUTION=1280x720")
	assert.Contains(t, master, "RESOLUTION=854x480")

	outDir := filepath.Join(env.root, "videos", "hls", "movie")
	for _, q := range domain.DefaultLadder() {
		assert.FileExists(t, filepath.Join(outDir, q.PlaylistName()))
	}

	// The original upload is gone once the playlist is recorded.
	assert.NoFileExists(t, source)
	assert.Empty(t, final.VideoFile)

	transcoder.mu.Lock()
	defer transcoder.mu.Unlock()
	assert.ElementsMatch(t, []string{"1080p", "720p", "480p"}, transcoder.converted)
}

func TestPipeline_RenditionFailure(t *testing.T) {
	env := newPipelineEnv(t, &fakeTranscoder{failQuality: "480p"})

	source := env.writeSource(t, "broken.mp4")
	video, err := env.catalog.Create("Broken", "", domain.CategoryAction, source, "")
	require.NoError(t, err)

	final := env.waitForState(t, video.ID, domain.StateFailed)

	assert.Contains(t, final.PipelineError, "Invalid data found")
	assert.Empty(t, final.HLSPlaylist)
	assert.False(t, final.Playable())

	// The upload survives a failed run so the conversion can be retried.
	assert.FileExists(t, source)

	// The finalize job must be cancelled, never run.
	var finalize *domain.Job
	require.Eventually(t, func() bool {
		for _, job := range env.queue.List() {
			if job.Type == domain.JobTypeFinalize {
				finalize = job
				return job.Status == domain.JobStatusCancelled
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "dependency failed", finalize.ErrorMessage)
}

func TestCoordinator_EnqueuePipeline_JobGraph(t *testing.T) {
	root := t.TempDir()
	store, err := sqlite.NewStore(root)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	videos := sqlite.NewVideoStore(store)
	queue := memory.NewQueue()
	coordinator := NewCoordinator(videos, queue, &fakeTranscoder{}, NewEventBus(), domain.DefaultLadder(), root, 760*time.Second, 60*time.Second)

	video := domain.NewVideo("Movie", "", domain.CategoryAction, filepath.Join(root, "movie.mp4"), "")
	require.NoError(t, videos.Save(video))

	coordinator.EnqueuePipeline(video.ID, video.VideoFile)

	var renditionIDs []int64
	for _, label := range []string{"1080p", "720p", "480p"} {
		job, err := queue.Claim()
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, domain.JobTypeTranscode, job.Type)
		assert.Equal(t, label, job.Quality)
		assert.Equal(t, 760*time.Second, job.Timeout)
		renditionIDs = append(renditionIDs, job.ID)
	}

	// Finalize is gated on every rendition job and not claimable yet.
	blocked, err := queue.Claim()
	require.NoError(t, err)
	assert.Nil(t, blocked)

	for _, id := range renditionIDs {
		require.NoError(t, queue.Complete(id))
	}
	finalize, err := queue.Claim()
	require.NoError(t, err)
	require.NotNil(t, finalize)
	assert.Equal(t, domain.JobTypeFinalize, finalize.Type)
	assert.Equal(t, 60*time.Second, finalize.Timeout)
	assert.Equal(t, renditionIDs, finalize.DependsOn)

	stored, err := videos.Get(video.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateQualitiesInFlight, stored.PipelineState)
}

func TestCoordinator_EnqueuePipeline_NoSource(t *testing.T) {
	root := t.TempDir()
	store, err := sqlite.NewStore(root)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	videos := sqlite.NewVideoStore(store)
	queue := memory.NewQueue()
	coordinator := NewCoordinator(videos, queue, &fakeTranscoder{}, NewEventBus(), domain.DefaultLadder(), root, time.Second, time.Second)

	video := domain.NewVideo("No File", "", domain.CategoryAction, "", "")
	require.NoError(t, videos.Save(video))

	coordinator.EnqueuePipeline(video.ID, "")

	job, err := queue.Claim()
	require.NoError(t, err)
	assert.Nil(t, job)

	stored, err := videos.Get(video.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCreated, stored.PipelineState)
}

func TestCoordinator_EnqueuePipeline_OutputDirFailure(t *testing.T) {
	root := t.TempDir()
	store, err := sqlite.NewStore(root)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	videos := sqlite.NewVideoStore(store)
	queue := memory.NewQueue()
	coordinator := NewCoordinator(videos, queue, &fakeTranscoder{}, NewEventBus(), domain.DefaultLadder(), root, time.Second, time.Second)

	// A file where the rendition tree should go makes MkdirAll fail.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "videos"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "videos", "hls"), []byte("in the way"), 0644))

	video := domain.NewVideo("Movie", "", domain.CategoryAction, filepath.Join(root, "movie.mp4"), "")
	require.NoError(t, videos.Save(video))

	coordinator.EnqueuePipeline(video.ID, video.VideoFile)

	job, err := queue.Claim()
	require.NoError(t, err)
	assert.Nil(t, job, "no jobs may be enqueued when the output directory cannot be created")

	stored, err := videos.Get(video.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, stored.PipelineState)
	assert.NotEmpty(t, stored.PipelineError)
}

func TestCoordinator_Finalize_ManifestFailureKeepsSource(t *testing.T) {
	root := t.TempDir()
	store, err := sqlite.NewStore(root)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	videos := sqlite.NewVideoStore(store)
	coordinator := NewCoordinator(videos, memory.NewQueue(), &fakeTranscoder{}, NewEventBus(), domain.DefaultLadder(), root, time.Second, time.Second)

	source := filepath.Join(root, "movie.mp4")
	require.NoError(t, os.WriteFile(source, []byte("src"), 0644))
	video := domain.NewVideo("Movie", "", domain.CategoryAction, source, "")
	require.NoError(t, videos.Save(video))

	// The rendition directory is missing, so the manifest write fails.
	err = coordinator.RunJob(context.Background(), &domain.Job{
		ID:      1,
		VideoID: video.ID,
		Type:    domain.JobTypeFinalize,
	})
	require.Error(t, err)

	stored, err := videos.Get(video.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, stored.PipelineState)
	assert.Empty(t, stored.HLSPlaylist)
	assert.FileExists(t, source, "source must survive a failed finalize")
}

// interruptedTranscoder blocks until the context ends, like an ffmpeg
// process killed by shutdown.
type interruptedTranscoder struct{}

func (interruptedTranscoder) ConvertQuality(ctx context.Context, _, _ string, _ domain.Quality) (port.RenditionResult, error) {
	<-ctx.Done()
	return port.RenditionResult{}, ctx.Err()
}

func TestCoordinator_TranscodeInterruptionKeepsRecordIntact(t *testing.T) {
	root := t.TempDir()
	store, err := sqlite.NewStore(root)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	videos := sqlite.NewVideoStore(store)
	coordinator := NewCoordinator(videos, memory.NewQueue(), interruptedTranscoder{}, NewEventBus(), domain.DefaultLadder(), root, time.Second, time.Second)

	video := domain.NewVideo("Movie", "", domain.CategoryAction, filepath.Join(root, "movie.mp4"), "")
	require.NoError(t, videos.Save(video))
	require.NoError(t, videos.UpdatePipelineState(video.ID, domain.StateQualitiesInFlight, ""))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = coordinator.RunJob(ctx, &domain.Job{ID: 1, VideoID: video.ID, Type: domain.JobTypeTranscode, Quality: "1080p"})
	require.ErrorIs(t, err, context.Canceled)

	// An interrupted conversion is retried after restart; the record must
	// not be marked failed.
	stored, err := videos.Get(video.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateQualitiesInFlight, stored.PipelineState)
	assert.Empty(t, stored.PipelineError)
}

// stateRecordingQueue captures the video's pipeline state at the moment each
// job is enqueued.
type stateRecordingQueue struct {
	*memory.Queue
	store  *sqlite.VideoStore
	states []domain.PipelineState
}

func (q *stateRecordingQueue) Enqueue(req port.JobRequest) (*domain.Job, error) {
	if v, err := q.store.Get(req.VideoID); err == nil {
		q.states = append(q.states, v.PipelineState)
	}
	return q.Queue.Enqueue(req)
}

func TestCoordinator_EnqueuePipeline_StateSetBeforeFirstJob(t *testing.T) {
	root := t.TempDir()
	store, err := sqlite.NewStore(root)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	videos := sqlite.NewVideoStore(store)
	queue := &stateRecordingQueue{Queue: memory.NewQueue(), store: videos}
	coordinator := NewCoordinator(videos, queue, &fakeTranscoder{}, NewEventBus(), domain.DefaultLadder(), root, time.Second, time.Second)

	video := domain.NewVideo("Movie", "", domain.CategoryAction, filepath.Join(root, "movie.mp4"), "")
	require.NoError(t, videos.Save(video))

	coordinator.EnqueuePipeline(video.ID, video.VideoFile)

	// Every job must be born into an in-flight record, so a worker that
	// settles instantly can never have its terminal write overwritten.
	require.Len(t, queue.states, len(domain.DefaultLadder())+1)
	for _, state := range queue.states {
		assert.Equal(t, domain.StateQualitiesInFlight, state)
	}
}

func TestCoordinator_RunJob_UnknownType(t *testing.T) {
	coordinator := NewCoordinator(nil, nil, nil, NewEventBus(), domain.DefaultLadder(), t.TempDir(), time.Second, time.Second)

	err := coordinator.RunJob(context.Background(), &domain.Job{Type: "vacuum"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job type")
}
