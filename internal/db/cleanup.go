package db

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultCleanupInterval = 1 * time.Hour
)

// FileRemover deletes a stored file by its storage path.
type FileRemover interface {
	Delete(storagePath string) error
}

// CleanupService prunes uploads whose expiry passed without the blob ever
// being attached to a message.
type CleanupService struct {
	blobs    *BlobRepository
	files    FileRemover
	interval time.Duration
}

func NewCleanupService(blobs *BlobRepository, files FileRemover) *CleanupService {
	return &CleanupService{
		blobs:    blobs,
		files:    files,
		interval: DefaultCleanupInterval,
	}
}

func (s *CleanupService) Start(ctx context.Context) {
	slog.Info("starting blob cleanup service", "component", "cleanup", "interval", s.interval)

	s.runCleanup(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping blob cleanup service", "component", "cleanup")
			return
		case <-ticker.C:
			s.runCleanup(ctx)
		}
	}
}

func (s *CleanupService) runCleanup(ctx context.Context) {
	paths, err := s.blobs.DeleteExpired(ctx, time.Now())
	if err != nil {
		slog.Error("error deleting expired blobs", "component", "cleanup", "error", err)
		return
	}

	for _, path := range paths {
		if err := s.files.Delete(path); err != nil {
			slog.Warn("error deleting expired blob file", "component", "cleanup", "error", err, "path", path)
		}
	}

	if len(paths) > 0 {
		slog.Info("deleted expired blobs", "component", "cleanup", "count", len(paths))
	}
}
