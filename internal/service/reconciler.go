package service

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"videoflix/internal/domain"
	"videoflix/internal/hls"
	"videoflix/internal/infrastructure/logger"
)

// Artifacts lists everything a video may have left on disk. Paths are
// captured from the record before the row is deleted; any of them may be
// empty or already gone.
type Artifacts struct {
	SourcePath    string
	ThumbnailPath string
	RenditionDir  string
}

// Reconciler removes a deleted video's on-disk artifacts so the filesystem
// never drifts from the database. It runs synchronously with record
// deletion.
type Reconciler struct {
	mediaRoot string
}

func NewReconciler(mediaRoot string) *Reconciler {
	return &Reconciler{mediaRoot: mediaRoot}
}

// Artifacts derives the artifact set for a video. The rendition directory
// comes from the playlist path when the pipeline finished, and from the
// source basename when it did not (the directory may then hold partial
// renditions).
func (r *Reconciler) Artifacts(v *domain.Video) Artifacts {
	a := Artifacts{
		SourcePath:    v.VideoFile,
		ThumbnailPath: v.Thumbnail,
	}
	switch {
	case v.HLSPlaylist != "":
		a.RenditionDir = filepath.Dir(filepath.Join(r.mediaRoot, v.HLSPlaylist))
	case v.VideoFile != "":
		a.RenditionDir = hls.OutputDir(r.mediaRoot, v.VideoFile)
	}
	return a
}

// Remove deletes every artifact that still exists. Each removal is guarded
// independently: an absent artifact is success (the video may have been
// deleted mid-pipeline, before all artifacts existed). Removal failures are
// aggregated so one bad path does not mask another.
func (r *Reconciler) Remove(a Artifacts) error {
	var errs error
	errs = multierr.Append(errs, removeIfExists(a.SourcePath, os.Remove))
	errs = multierr.Append(errs, removeIfExists(a.ThumbnailPath, os.Remove))
	errs = multierr.Append(errs, removeIfExists(a.RenditionDir, os.RemoveAll))
	if errs != nil {
		logger.Error.Printf("artifact cleanup incomplete: %v", errs)
	}
	return errs
}

func removeIfExists(path string, remove func(string) error) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
