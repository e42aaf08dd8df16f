// -----------------------------------------------------------------------
// Segment - smallest translatable unit of a file, with status/origin
// provenance rules enforced at the model level so every write path
// honors them.
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SegmentStatus is the review state of a segment's target text.
type SegmentStatus string

const (
	SegmentStatusDraft      SegmentStatus = "Draft"
	SegmentStatusExactMatch SegmentStatus = "100%"
	SegmentStatusFuzzy      SegmentStatus = "Fuzzy"
	SegmentStatusMT         SegmentStatus = "MT"
	SegmentStatusEdited     SegmentStatus = "Edited"
	SegmentStatusReviewed   SegmentStatus = "Reviewed"
	SegmentStatusRejected   SegmentStatus = "Rejected"
)

// SegmentOrigin is the provenance of the segment's current target text.
type SegmentOrigin string

const (
	OriginHT         SegmentOrigin = "HT"
	OriginMT         SegmentOrigin = "MT"
	OriginExactMatch SegmentOrigin = "100%"
	OriginFuzzy      SegmentOrigin = "Fuzzy"
)

// ErrEmptyTarget is returned when a review requires a non-empty target.
var ErrEmptyTarget = fmt.Errorf("segment target is empty")

// Segment is one translation unit. Records are last-writer-wins; the
// worker re-reads before writing and only touches worker-writable
// segments, so human decisions are never silently reverted.
type Segment struct {
	ID        string        `json:"id" badgerhold:"key"`
	FileID    string        `json:"file_id" badgerhold:"index"`
	Position  int           `json:"position"`
	Source    string        `json:"source"`
	Target    string        `json:"target,omitempty"`
	Status    SegmentStatus `json:"status" badgerhold:"index"`
	Origin    SegmentOrigin `json:"origin,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewSegment creates a draft segment for a file.
func NewSegment(fileID string, position int, source string) *Segment {
	return &Segment{
		ID:        uuid.New().String(),
		FileID:    fileID,
		Position:  position,
		Source:    source,
		Status:    SegmentStatusDraft,
		UpdatedAt: time.Now(),
	}
}

// HasAutomatedOrigin reports whether the current target came from a
// machine or memory source rather than a human.
func (s *Segment) HasAutomatedOrigin() bool {
	switch s.Origin {
	case OriginMT, OriginExactMatch, OriginFuzzy:
		return true
	}
	return false
}

// WorkerWritable reports whether the background worker may overwrite
// this segment. Only untouched Draft/MT segments qualify; anything a
// human has edited, reviewed or rejected is off limits.
func (s *Segment) WorkerWritable() bool {
	if s.Origin == OriginHT {
		return false
	}
	return s.Status == SegmentStatusDraft || s.Status == SegmentStatusMT
}

// ApplyEdit records a human edit of the target text. An automated
// origin is demoted to HT (idempotent for segments already HT), and a
// previously Reviewed segment drops back to Edited.
func (s *Segment) ApplyEdit(target string) {
	s.Target = target
	if s.HasAutomatedOrigin() {
		s.Origin = OriginHT
	}
	if s.Origin == "" {
		s.Origin = OriginHT
	}
	s.Status = SegmentStatusEdited
	s.UpdatedAt = time.Now()
}

// SetReviewed marks the segment Reviewed. Requires a non-empty target;
// entering Reviewed from an automated origin also forces origin to HT.
func (s *Segment) SetReviewed() error {
	if s.Target == "" {
		return ErrEmptyTarget
	}
	if s.HasAutomatedOrigin() {
		s.Origin = OriginHT
	}
	s.Status = SegmentStatusReviewed
	s.UpdatedAt = time.Now()
	return nil
}

// ToggleReview flips between Reviewed and Edited.
func (s *Segment) ToggleReview() error {
	if s.Status == SegmentStatusReviewed {
		s.Status = SegmentStatusEdited
		s.UpdatedAt = time.Now()
		return nil
	}
	return s.SetReviewed()
}

// SetRejected marks the segment Rejected. The worker never writes a
// rejected segment afterwards.
func (s *Segment) SetRejected() {
	s.Status = SegmentStatusRejected
	s.UpdatedAt = time.Now()
}

// ApplyMachineTranslation writes a machine-produced target. Returns an
// error if the segment is no longer worker-writable, which callers
// treat as a skip, not a failure.
func (s *Segment) ApplyMachineTranslation(target string) error {
	if !s.WorkerWritable() {
		return fmt.Errorf("segment %s not writable by worker (status=%s origin=%s)", s.ID, s.Status, s.Origin)
	}
	s.Target = target
	s.Status = SegmentStatusMT
	s.Origin = OriginMT
	s.UpdatedAt = time.Now()
	return nil
}

// ApplyTemplateMatch writes a template-produced target with the given
// match quality (exact or fuzzy). Same writability rule as MT.
func (s *Segment) ApplyTemplateMatch(target string, exact bool) error {
	if !s.WorkerWritable() {
		return fmt.Errorf("segment %s not writable by worker (status=%s origin=%s)", s.ID, s.Status, s.Origin)
	}
	s.Target = target
	if exact {
		s.Status = SegmentStatusExactMatch
		s.Origin = OriginExactMatch
	} else {
		s.Status = SegmentStatusFuzzy
		s.Origin = OriginFuzzy
	}
	s.UpdatedAt = time.Now()
	return nil
}
