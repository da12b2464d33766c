package repository

import (
	"funduscam/internal/model"
)

// CaptureRepository defines the interface for capture record operations.
type CaptureRepository interface {
	// Create operations
	Insert(c *model.Capture) (int64, error)

	// Read operations
	GetByID(id int64) (*model.Capture, error)
	GetAll(filter *model.CaptureFilter) ([]model.Capture, error)
	GetByPairID(pairID string) ([]model.Capture, error)
	Count(filter *model.CaptureFilter) (int, error)

	// Delete operations
	DeleteAll() error
}
