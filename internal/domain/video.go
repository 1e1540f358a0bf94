package domain

import (
	"time"
)

type Category string

const (
	CategoryAction      Category = "action"
	CategoryComedy      Category = "comedy"
	CategoryDrama       Category = "drama"
	CategoryDocumentary Category = "documentary"
	CategoryRomance     Category = "romance"
)

// Categories lists the fixed catalog categories in display order.
var Categories = []Category{
	CategoryAction,
	CategoryComedy,
	CategoryDrama,
	CategoryDocumentary,
	CategoryRomance,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// PipelineState tracks the HLS conversion of a single video. A video starts
// in StateCreated, moves through the in-flight and playlist stages, and ends
// in StateComplete. StateFailed absorbs any non-terminal state.
type PipelineState string

const (
	StateCreated           PipelineState = "created"
	StateQualitiesInFlight PipelineState = "qualities_in_flight"
	StatePlaylistPending   PipelineState = "playlist_pending"
	StateComplete          PipelineState = "complete"
	StateFailed            PipelineState = "failed"
)

func (s PipelineState) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

type Video struct {
	ID            int64         `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Category      Category      `json:"category"`
	Likes         int64         `json:"likes"`
	Dislikes      int64         `json:"dislikes"`
	Views         int64         `json:"views"`
	VideoFile     string        `json:"video_file"`
	Thumbnail     string        `json:"thumbnail"`
	HLSPlaylist   string        `json:"hls_playlist"`
	PipelineState PipelineState `json:"pipeline_state"`
	PipelineError string        `json:"pipeline_error"`
	CreatedAt     time.Time     `json:"created_at"`
}

func NewVideo(title, description string, category Category, sourcePath, thumbnailPath string) *Video {
	return &Video{
		Title:         title,
		Description:   description,
		Category:      category,
		VideoFile:     sourcePath,
		Thumbnail:     thumbnailPath,
		PipelineState: StateCreated,
		CreatedAt:     time.Now(),
	}
}

// Playable reports whether the HLS conversion has finished. A video without
// a playlist is "not yet playable", never an error condition.
func (v *Video) Playable() bool {
	return v.HLSPlaylist != ""
}

func (v *Video) IsNew() bool {
	return time.Since(v.CreatedAt) <= 30*24*time.Hour
}

func (v *Video) IsPopular() bool {
	return v.Views >= 10
}
