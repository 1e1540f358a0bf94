package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"videoflix/internal/domain"
	"videoflix/internal/port"
)

const videoColumns = `id, title, description, category, likes, dislikes, views,
	video_file, thumbnail, hls_playlist, pipeline_state, pipeline_error, created_at`

// VideoStore persists catalog records.
type VideoStore struct {
	db *sql.DB
}

func NewVideoStore(store *Store) *VideoStore {
	return &VideoStore{db: store.db}
}

func (s *VideoStore) Save(v *domain.Video) error {
	ctx := context.Background()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO videos (
			title, description, category, likes, dislikes, views,
			video_file, thumbnail, hls_playlist, pipeline_state, pipeline_error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.Title, v.Description, string(v.Category), v.Likes, v.Dislikes, v.Views,
		v.VideoFile, v.Thumbnail, v.HLSPlaylist, string(v.PipelineState), v.PipelineError, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	v.ID = id
	return nil
}

func (s *VideoStore) Get(id int64) (*domain.Video, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	v, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (s *VideoStore) Delete(id int64) error {
	res, err := s.db.ExecContext(context.Background(), `DELETE FROM videos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *VideoStore) ListAll() ([]*domain.Video, error) {
	return s.list(`SELECT ` + videoColumns + ` FROM videos ORDER BY created_at DESC, id DESC`)
}

func (s *VideoStore) ListByCategory(category domain.Category) ([]*domain.Video, error) {
	return s.list(`SELECT `+videoColumns+` FROM videos WHERE category = ? ORDER BY created_at DESC, id DESC`,
		string(category))
}

func (s *VideoStore) list(query string, args ...any) ([]*domain.Video, error) {
	rows, err := s.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*domain.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (s *VideoStore) UpdatePipelineState(id int64, state domain.PipelineState, errMsg string) error {
	_, err := s.db.ExecContext(context.Background(),
		`UPDATE videos SET pipeline_state = ?, pipeline_error = ? WHERE id = ?`,
		string(state), errMsg, id)
	return err
}

func (s *VideoStore) SetPlaylist(id int64, relPath string) error {
	_, err := s.db.ExecContext(context.Background(),
		`UPDATE videos SET hls_playlist = ?, pipeline_state = ?, pipeline_error = '' WHERE id = ?`,
		relPath, string(domain.StateComplete), id)
	return err
}

func (s *VideoStore) ClearSourceFile(id int64) error {
	_, err := s.db.ExecContext(context.Background(),
		`UPDATE videos SET video_file = '' WHERE id = ?`, id)
	return err
}

func (s *VideoStore) IncrementViews(id int64) error {
	return s.increment("views", id)
}

func (s *VideoStore) IncrementLikes(id int64) error {
	return s.increment("likes", id)
}

func (s *VideoStore) IncrementDislikes(id int64) error {
	return s.increment("dislikes", id)
}

func (s *VideoStore) increment(column string, id int64) error {
	// column is one of three fixed names, never user input.
	_, err := s.db.ExecContext(context.Background(),
		`UPDATE videos SET `+column+` = `+column+` + 1 WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (*domain.Video, error) {
	var v domain.Video
	var category, state string
	err := row.Scan(
		&v.ID, &v.Title, &v.Description, &category, &v.Likes, &v.Dislikes, &v.Views,
		&v.VideoFile, &v.Thumbnail, &v.HLSPlaylist, &state, &v.PipelineError, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.Category = domain.Category(category)
	v.PipelineState = domain.PipelineState(state)
	return &v, nil
}

var _ port.VideoStore = (*VideoStore)(nil)
