package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/common"
	"github.com/ternarybob/lingua/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	project  interfaces.ProjectStorage
	file     interfaces.FileStorage
	segment  interfaces.SegmentStorage
	job      interfaces.JobStorage
	template interfaces.TemplateStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		project:  NewProjectStorage(db, logger),
		file:     NewFileStorage(db, logger),
		segment:  NewSegmentStorage(db, logger),
		job:      NewJobStorage(db, logger),
		template: NewTemplateStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// ProjectStorage returns the Project storage interface
func (m *Manager) ProjectStorage() interfaces.ProjectStorage {
	return m.project
}

// FileStorage returns the File storage interface
func (m *Manager) FileStorage() interfaces.FileStorage {
	return m.file
}

// SegmentStorage returns the Segment storage interface
func (m *Manager) SegmentStorage() interfaces.SegmentStorage {
	return m.segment
}

// JobStorage returns the Job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// TemplateStorage returns the Template storage interface
func (m *Manager) TemplateStorage() interfaces.TemplateStorage {
	return m.template
}

// Close closes the underlying database
func (m *Manager) Close() error {
	return m.db.Close()
}
