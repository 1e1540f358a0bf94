package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"videoflix/internal/domain"
	"videoflix/internal/infrastructure/logger"
)

// Ingestor watches <mediaRoot>/uploads/<category>/ for dropped source files
// and creates a catalog record for each new one, which in turn triggers the
// pipeline. It stands in for the web upload surface, which lives outside
// this repository.
type Ingestor struct {
	catalog   *CatalogService
	mediaRoot string
	interval  time.Duration
}

func NewIngestor(catalog *CatalogService, mediaRoot string) *Ingestor {
	return &Ingestor{
		catalog:   catalog,
		mediaRoot: mediaRoot,
		interval:  30 * time.Second,
	}
}

func (in *Ingestor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(in.interval)
		defer ticker.Stop()
		for {
			if err := in.ScanOnce(); err != nil {
				logger.Error.Printf("upload scan failed: %v", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// ScanOnce walks the upload tree and registers unknown files. Files already
// referenced by a catalog record are skipped, so the scan is idempotent.
func (in *Ingestor) ScanOnce() error {
	uploadsDir := filepath.Join(in.mediaRoot, "uploads")
	entries, err := os.ReadDir(uploadsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	known, err := in.knownSources()
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		category := domain.Category(entry.Name())
		if !category.Valid() {
			logger.Warn.Printf("uploads/%s is not a known category, skipping", logger.Sanitize(entry.Name()))
			continue
		}

		files, err := os.ReadDir(filepath.Join(uploadsDir, entry.Name()))
		if err != nil {
			return err
		}
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			sourcePath := filepath.Join(uploadsDir, entry.Name(), file.Name())
			if known[sourcePath] {
				continue
			}
			title := strings.TrimSuffix(file.Name(), filepath.Ext(file.Name()))
			if _, err := in.catalog.Create(title, "", category, sourcePath, ""); err != nil {
				logger.Error.Printf("register upload %s: %v", logger.Sanitize(sourcePath), err)
			}
		}
	}
	return nil
}

// knownSources indexes every source path a record has referenced. Completed
// videos have an empty source reference and drop out naturally; their
// uploads are already deleted.
func (in *Ingestor) knownSources() (map[string]bool, error) {
	videos, err := in.catalog.List()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(videos))
	for _, v := range videos {
		if v.VideoFile != "" {
			known[v.VideoFile] = true
		}
	}
	return known, nil
}
