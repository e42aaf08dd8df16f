package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FileStatus represents a file's processing lifecycle state.
type FileStatus string

const (
	FileStatusUploaded    FileStatus = "uploaded"
	FileStatusParsing     FileStatus = "parsing"
	FileStatusParsed      FileStatus = "parsed"
	FileStatusTranslating FileStatus = "translating"
	FileStatusReady       FileStatus = "ready"
	FileStatusError       FileStatus = "error"
)

// fileTransitions is the set of legal processingStatus edges.
// Retry from error re-enters parsed or translating.
var fileTransitions = map[FileStatus][]FileStatus{
	FileStatusUploaded:    {FileStatusParsing, FileStatusError},
	FileStatusParsing:     {FileStatusParsed, FileStatusError},
	FileStatusParsed:      {FileStatusTranslating, FileStatusParsing, FileStatusError},
	FileStatusTranslating: {FileStatusReady, FileStatusParsed, FileStatusError},
	FileStatusReady:       {FileStatusTranslating, FileStatusParsing},
	FileStatusError:       {FileStatusParsed, FileStatusTranslating, FileStatusParsing},
}

// File is one translatable document in a project. The record's
// ProcessingStatus is authoritative; segment-derived percentages are
// computed by the status aggregator, never written back here as status.
type File struct {
	ID                 string     `json:"id" badgerhold:"key"`
	ProjectID          string     `json:"project_id" badgerhold:"index"`
	Name               string     `json:"name"`
	ProcessingStatus   FileStatus `json:"processing_status"`
	ProcessingProgress int        `json:"processing_progress"`
	ErrorMessage       string     `json:"error_message,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// NewFile creates a file record in the uploaded state.
func NewFile(projectID, name string) *File {
	now := time.Now()
	return &File{
		ID:               uuid.New().String(),
		ProjectID:        projectID,
		Name:             name,
		ProcessingStatus: FileStatusUploaded,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// CanTransition reports whether moving to the target status is legal.
func (f *File) CanTransition(target FileStatus) bool {
	if f.ProcessingStatus == target {
		return true
	}
	for _, next := range fileTransitions[f.ProcessingStatus] {
		if next == target {
			return true
		}
	}
	return false
}

// TransitionTo moves the file to the target status, validating the edge.
// Leaving the error state clears the stored error message.
func (f *File) TransitionTo(target FileStatus) error {
	if !f.CanTransition(target) {
		return fmt.Errorf("illegal file status transition %q -> %q", f.ProcessingStatus, target)
	}
	if f.ProcessingStatus == FileStatusError && target != FileStatusError {
		f.ErrorMessage = ""
	}
	f.ProcessingStatus = target
	f.UpdatedAt = time.Now()
	return nil
}

// SetError moves the file to the error state with a message.
func (f *File) SetError(message string) {
	f.ProcessingStatus = FileStatusError
	f.ProcessingProgress = 0
	f.ErrorMessage = message
	f.UpdatedAt = time.Now()
}
