package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment_EditDemotesAutomatedOrigin(t *testing.T) {
	tests := []struct {
		name   string
		origin SegmentOrigin
		status SegmentStatus
	}{
		{name: "machine translated", origin: OriginMT, status: SegmentStatusMT},
		{name: "exact match", origin: OriginExactMatch, status: SegmentStatusExactMatch},
		{name: "fuzzy match", origin: OriginFuzzy, status: SegmentStatusFuzzy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := NewSegment("file-1", 0, "Hello")
			seg.Target = "Bonjour"
			seg.Origin = tt.origin
			seg.Status = tt.status

			seg.ApplyEdit("Bonjour!")
			assert.Equal(t, OriginHT, seg.Origin)
			assert.Equal(t, SegmentStatusEdited, seg.Status)
			assert.Equal(t, "Bonjour!", seg.Target)
		})
	}
}

func TestSegment_EditIsIdempotentOnOrigin(t *testing.T) {
	seg := NewSegment("file-1", 0, "Hello")
	seg.ApplyEdit("Bonjour")
	require.Equal(t, OriginHT, seg.Origin)

	// Re-editing an already-HT segment leaves origin unchanged.
	seg.ApplyEdit("Bonjour encore")
	assert.Equal(t, OriginHT, seg.Origin)
}

func TestSegment_EditDemotesReviewed(t *testing.T) {
	seg := NewSegment("file-1", 0, "Hello")
	seg.ApplyEdit("Bonjour")
	require.NoError(t, seg.SetReviewed())
	require.Equal(t, SegmentStatusReviewed, seg.Status)

	seg.ApplyEdit("Salut")
	assert.Equal(t, SegmentStatusEdited, seg.Status)
}

func TestSegment_ReviewRequiresTarget(t *testing.T) {
	seg := NewSegment("file-1", 0, "Hello")
	assert.ErrorIs(t, seg.SetReviewed(), ErrEmptyTarget)
	assert.Equal(t, SegmentStatusDraft, seg.Status)
}

func TestSegment_ReviewFromAutomatedOriginForcesHT(t *testing.T) {
	seg := NewSegment("file-1", 0, "Hello")
	require.NoError(t, seg.ApplyMachineTranslation("Bonjour"))
	require.Equal(t, OriginMT, seg.Origin)

	require.NoError(t, seg.SetReviewed())
	assert.Equal(t, SegmentStatusReviewed, seg.Status)
	assert.Equal(t, OriginHT, seg.Origin)
}

func TestSegment_ToggleReview(t *testing.T) {
	seg := NewSegment("file-1", 0, "Hello")
	seg.ApplyEdit("Bonjour")

	require.NoError(t, seg.ToggleReview())
	assert.Equal(t, SegmentStatusReviewed, seg.Status)

	require.NoError(t, seg.ToggleReview())
	assert.Equal(t, SegmentStatusEdited, seg.Status)
}

func TestSegment_WorkerWritable(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(s *Segment)
		writable bool
	}{
		{name: "fresh draft", prepare: func(s *Segment) {}, writable: true},
		{
			name:     "machine translated, untouched",
			prepare:  func(s *Segment) { _ = s.ApplyMachineTranslation("Bonjour") },
			writable: true,
		},
		{
			name:     "human edited",
			prepare:  func(s *Segment) { s.ApplyEdit("Bonjour") },
			writable: false,
		},
		{
			name: "reviewed",
			prepare: func(s *Segment) {
				s.ApplyEdit("Bonjour")
				_ = s.SetReviewed()
			},
			writable: false,
		},
		{
			name:     "rejected",
			prepare:  func(s *Segment) { s.SetRejected() },
			writable: false,
		},
		{
			name:     "exact template match",
			prepare:  func(s *Segment) { _ = s.ApplyTemplateMatch("Bonjour", true) },
			writable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := NewSegment("file-1", 0, "Hello")
			tt.prepare(seg)
			assert.Equal(t, tt.writable, seg.WorkerWritable())
		})
	}
}

func TestSegment_MachineTranslationSkipsHumanWork(t *testing.T) {
	seg := NewSegment("file-1", 0, "Hello")
	seg.ApplyEdit("Bonjour")

	err := seg.ApplyMachineTranslation("machine output")
	assert.Error(t, err)
	assert.Equal(t, "Bonjour", seg.Target)
	assert.Equal(t, OriginHT, seg.Origin)
}

func TestSegment_TemplateMatchStatuses(t *testing.T) {
	exact := NewSegment("file-1", 0, "Hello")
	require.NoError(t, exact.ApplyTemplateMatch("Bonjour", true))
	assert.Equal(t, SegmentStatusExactMatch, exact.Status)
	assert.Equal(t, OriginExactMatch, exact.Origin)

	fuzzy := NewSegment("file-1", 1, "Hello there")
	require.NoError(t, fuzzy.ApplyTemplateMatch("Bonjour", false))
	assert.Equal(t, SegmentStatusFuzzy, fuzzy.Status)
	assert.Equal(t, OriginFuzzy, fuzzy.Origin)
}
