// -----------------------------------------------------------------------
// Status Aggregator - derives a file's progress view from its segments.
// Pure functions: the file record stays authoritative for processing
// status, segment counts are recomputed on every call.
// -----------------------------------------------------------------------

package status

import (
	"math"

	"github.com/ternarybob/lingua/internal/models"
)

// DefaultThroughputPerMinute is the assumed confirmation rate used for
// remaining-time estimates when no configured value is supplied. It is a
// fixed heuristic, not a measured rate.
const DefaultThroughputPerMinute = 10

// FileProgress is the aggregate progress view for one file.
type FileProgress struct {
	FileID             string            `json:"file_id"`
	ProjectID          string            `json:"project_id"`
	Filename           string            `json:"filename"`
	ProcessingStatus   models.FileStatus `json:"processing_status"`
	ProcessingProgress int               `json:"processing_progress"`
	ErrorMessage       string            `json:"error_message,omitempty"`
	Percentage         int               `json:"percentage"`
	CompletedSegments  int               `json:"completed_segments"`
	TranslatedSegments int               `json:"translated_segments"`
	TotalSegments      int               `json:"total_segments"`
	RemainingMinutes   int               `json:"remaining_minutes"`
}

// completed reports whether a segment counts toward the confirmation
// percentage shown in the translating view.
func completed(s *models.Segment) bool {
	switch s.Status {
	case models.SegmentStatusReviewed, models.SegmentStatusExactMatch, models.SegmentStatusEdited:
		return true
	}
	return false
}

// Percentage returns the confirmed share of segments, rounded to the
// nearest integer. An empty segment set yields 0, never an error.
func Percentage(segments []*models.Segment) int {
	if len(segments) == 0 {
		return 0
	}
	done := 0
	for _, s := range segments {
		if completed(s) {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(segments)) * 100))
}

// RemainingMinutes estimates time to completion assuming a fixed
// confirmation throughput of segments per minute.
func RemainingMinutes(total, completed, throughputPerMinute int) int {
	if throughputPerMinute <= 0 {
		throughputPerMinute = DefaultThroughputPerMinute
	}
	remaining := total - completed
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(float64(remaining) / float64(throughputPerMinute)))
}

// Progress computes the full progress view for a file. The file record
// is authoritative for processing status; only the percentages and
// counts are derived from segments.
func Progress(file *models.File, segments []*models.Segment, throughputPerMinute int) FileProgress {
	completedCount := 0
	translatedCount := 0
	for _, s := range segments {
		if completed(s) {
			completedCount++
		}
		if s.Target != "" {
			translatedCount++
		}
	}

	percentage := 0
	if len(segments) > 0 {
		percentage = int(math.Round(float64(completedCount) / float64(len(segments)) * 100))
	}

	return FileProgress{
		FileID:             file.ID,
		ProjectID:          file.ProjectID,
		Filename:           file.Name,
		ProcessingStatus:   file.ProcessingStatus,
		ProcessingProgress: file.ProcessingProgress,
		ErrorMessage:       file.ErrorMessage,
		Percentage:         percentage,
		CompletedSegments:  completedCount,
		TranslatedSegments: translatedCount,
		TotalSegments:      len(segments),
		RemainingMinutes:   RemainingMinutes(len(segments), completedCount, throughputPerMinute),
	}
}
