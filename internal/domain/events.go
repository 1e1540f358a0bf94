package domain

// Event is a catalog or pipeline domain event carried by the event bus.
type Event interface {
	event()
}

// VideoCreated is published by the catalog when a new video with a source
// file is saved. The pipeline coordinator reacts by fanning out rendition
// jobs.
type VideoCreated struct {
	VideoID    int64
	SourcePath string
}

// VideoDeleted is published after a video record is removed. The artifact
// paths are captured before the row is gone; by the time subscribers see the
// event the lifecycle reconciler has already run.
type VideoDeleted struct {
	VideoID       int64
	SourcePath    string
	ThumbnailPath string
	PlaylistPath  string
}

// PipelineStateChanged reports a pipeline state transition for a video.
type PipelineStateChanged struct {
	VideoID int64
	State   PipelineState
	Message string
}

func (VideoCreated) event()         {}
func (VideoDeleted) event()         {}
func (PipelineStateChanged) event() {}
