package service

import (
	"errors"
	"fmt"

	"videoflix/internal/domain"
	"videoflix/internal/infrastructure/logger"
	"videoflix/internal/port"
)

// CatalogService is the content catalog surface: it owns Video records and
// emits the events the pipeline reacts to. Deleting a record runs the
// lifecycle reconciler synchronously, so a successful delete never leaves
// orphaned files behind.
type CatalogService struct {
	store      port.VideoStore
	reconciler *Reconciler
	bus        EventPublisher
}

func NewCatalogService(store port.VideoStore, reconciler *Reconciler, bus EventPublisher) *CatalogService {
	return &CatalogService{
		store:      store,
		reconciler: reconciler,
		bus:        bus,
	}
}

func (s *CatalogService) Create(title, description string, category domain.Category, sourcePath, thumbnailPath string) (*domain.Video, error) {
	if title == "" {
		return nil, errors.New("title is required")
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCategory, category)
	}

	video := domain.NewVideo(title, description, category, sourcePath, thumbnailPath)
	if err := s.store.Save(video); err != nil {
		return nil, fmt.Errorf("save video: %w", err)
	}

	logger.Info.Printf("video created: id=%d title=%s source=%s",
		video.ID, logger.Sanitize(title), logger.Sanitize(sourcePath))

	if video.VideoFile != "" {
		s.bus.Publish(domain.VideoCreated{VideoID: video.ID, SourcePath: video.VideoFile})
	}
	return video, nil
}

func (s *CatalogService) Get(id int64) (*domain.Video, error) {
	return s.store.Get(id)
}

func (s *CatalogService) List() ([]*domain.Video, error) {
	return s.store.ListAll()
}

func (s *CatalogService) ListByCategory(category domain.Category) ([]*domain.Video, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCategory, category)
	}
	return s.store.ListByCategory(category)
}

// Delete removes the record and everything it left on disk. Artifact paths
// are captured before the row is gone; cleanup runs synchronously after the
// delete so no orphaned source file, thumbnail or rendition directory
// survives the record.
func (s *CatalogService) Delete(id int64) error {
	video, err := s.store.Get(id)
	if err != nil {
		return err
	}

	artifacts := s.reconciler.Artifacts(video)

	if err := s.store.Delete(id); err != nil {
		return err
	}

	if err := s.reconciler.Remove(artifacts); err != nil {
		return fmt.Errorf("video %d deleted but cleanup incomplete: %w", id, err)
	}

	s.bus.Publish(domain.VideoDeleted{
		VideoID:       id,
		SourcePath:    artifacts.SourcePath,
		ThumbnailPath: artifacts.ThumbnailPath,
		PlaylistPath:  video.HLSPlaylist,
	})
	logger.Info.Printf("video %d deleted", id)
	return nil
}

func (s *CatalogService) AddView(id int64) error {
	return s.store.IncrementViews(id)
}

func (s *CatalogService) Like(id int64) error {
	return s.store.IncrementLikes(id)
}

func (s *CatalogService) Dislike(id int64) error {
	return s.store.IncrementDislikes(id)
}
