package interfaces

import "dppmini/internal/models"

// RecordFileInterface persists the full record collection.
type RecordFileInterface interface {
	Load() ([]models.Record, error)
	Save(records []models.Record) error
	Path() string
}
