package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/interfaces"
	"github.com/ternarybob/lingua/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ErrFileNotFound is returned when a file lookup misses.
var ErrFileNotFound = fmt.Errorf("file not found")

// FileStorage implements the FileStorage interface for Badger
type FileStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewFileStorage creates a new FileStorage instance
func NewFileStorage(db *BadgerDB, logger arbor.ILogger) interfaces.FileStorage {
	return &FileStorage{
		db:     db,
		logger: logger,
	}
}

func (s *FileStorage) SaveFile(ctx context.Context, file *models.File) error {
	if file.ID == "" {
		return fmt.Errorf("file ID is required")
	}
	if err := s.db.Store().Upsert(file.ID, file); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func (s *FileStorage) GetFile(ctx context.Context, fileID string) (*models.File, error) {
	var file models.File
	if err := s.db.Store().Get(fileID, &file); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return &file, nil
}

func (s *FileStorage) ListFilesByProject(ctx context.Context, projectID string) ([]*models.File, error) {
	var files []models.File
	query := badgerhold.Where("ProjectID").Eq(projectID).Index("ProjectID").SortBy("CreatedAt")
	if err := s.db.Store().Find(&files, query); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	result := make([]*models.File, len(files))
	for i := range files {
		result[i] = &files[i]
	}
	return result, nil
}

// SetFileStatus transitions a file's processing status through the model
// state machine and persists the result. Progress < 0 leaves the stored
// progress untouched.
func (s *FileStorage) SetFileStatus(ctx context.Context, fileID string, status models.FileStatus, progress int, errorMessage string) (*models.File, error) {
	file, err := s.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if status == models.FileStatusError {
		file.SetError(errorMessage)
	} else {
		if err := file.TransitionTo(status); err != nil {
			return nil, err
		}
		if progress >= 0 {
			file.ProcessingProgress = progress
		}
	}

	if err := s.SaveFile(ctx, file); err != nil {
		return nil, err
	}
	return file, nil
}

func (s *FileStorage) DeleteFile(ctx context.Context, fileID string) error {
	if err := s.db.Store().Delete(fileID, &models.File{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
