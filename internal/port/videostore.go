package port

import "videoflix/internal/domain"

type VideoStore interface {
	Save(v *domain.Video) error
	Get(id int64) (*domain.Video, error)
	Delete(id int64) error
	ListAll() ([]*domain.Video, error)
	ListByCategory(category domain.Category) ([]*domain.Video, error)

	UpdatePipelineState(id int64, state domain.PipelineState, errMsg string) error
	// SetPlaylist records the master playlist path (relative to the media
	// root) and moves the video to the complete state in one write.
	SetPlaylist(id int64, relPath string) error
	// ClearSourceFile blanks the source reference once the original upload
	// has been deleted from disk.
	ClearSourceFile(id int64) error

	IncrementViews(id int64) error
	IncrementLikes(id int64) error
	IncrementDislikes(id int64) error
}
