package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/interfaces"
	"github.com/ternarybob/lingua/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ErrSegmentNotFound is returned when a segment lookup misses.
var ErrSegmentNotFound = fmt.Errorf("segment not found")

// SegmentStorage implements the SegmentStorage interface for Badger
type SegmentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSegmentStorage creates a new SegmentStorage instance
func NewSegmentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SegmentStorage {
	return &SegmentStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SegmentStorage) SaveSegment(ctx context.Context, segment *models.Segment) error {
	if segment.ID == "" {
		return fmt.Errorf("segment ID is required")
	}
	if err := s.db.Store().Upsert(segment.ID, segment); err != nil {
		return fmt.Errorf("failed to save segment: %w", err)
	}
	return nil
}

func (s *SegmentStorage) SaveSegments(ctx context.Context, segments []*models.Segment) error {
	for _, segment := range segments {
		if err := s.SaveSegment(ctx, segment); err != nil {
			return err
		}
	}
	return nil
}

func (s *SegmentStorage) GetSegment(ctx context.Context, segmentID string) (*models.Segment, error) {
	var segment models.Segment
	if err := s.db.Store().Get(segmentID, &segment); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", ErrSegmentNotFound, segmentID)
		}
		return nil, fmt.Errorf("failed to get segment: %w", err)
	}
	return &segment, nil
}

// ListSegmentsByFile returns a file's segments in document order.
func (s *SegmentStorage) ListSegmentsByFile(ctx context.Context, fileID string) ([]*models.Segment, error) {
	var segments []models.Segment
	query := badgerhold.Where("FileID").Eq(fileID).Index("FileID").SortBy("Position")
	if err := s.db.Store().Find(&segments, query); err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}

	result := make([]*models.Segment, len(segments))
	for i := range segments {
		result[i] = &segments[i]
	}
	return result, nil
}

func (s *SegmentStorage) DeleteSegmentsByFile(ctx context.Context, fileID string) error {
	if err := s.db.Store().DeleteMatching(&models.Segment{}, badgerhold.Where("FileID").Eq(fileID).Index("FileID")); err != nil {
		return fmt.Errorf("failed to delete segments: %w", err)
	}
	return nil
}
