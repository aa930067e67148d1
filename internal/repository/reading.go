package repository

import (
	"context"

	"bptracker/internal/model"
)

// ReadingRepository defines data access for blood pressure readings using SQL
// queries only. No business logic here — strictly persistence operations.
// Readings handed to Create/Update are expected to be already validated and
// UTC-normalized by the service layer.
type ReadingRepository interface {
	// Create inserts a new reading and returns the stored row, including the
	// database-assigned id.
	Create(ctx context.Context, r *model.Reading) (*model.Reading, error)

	// FindByID returns a reading by its ID.
	FindByID(ctx context.Context, id int64) (*model.Reading, error)

	// List returns a page of readings, newest first, and the total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Reading], error)

	// FindAll returns every reading, newest first. Used for statistics, which
	// operate on the full collection.
	FindAll(ctx context.Context) ([]model.Reading, error)

	// Update rewrites an existing reading's fields by its ID.
	Update(ctx context.Context, r *model.Reading) error

	// Delete removes a reading by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id int64) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
