package postgres

import (
	"context"
	"database/sql"

	"bptracker/internal/model"
	"bptracker/internal/repository"
)

// ReadingPostgres is a PostgreSQL implementation of repository.ReadingRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type ReadingPostgres struct {
	db *sql.DB
}

// NewReadingPostgres creates a new ReadingPostgres repository.
func NewReadingPostgres(db *sql.DB) *ReadingPostgres {
	return &ReadingPostgres{db: db}
}

var _ repository.ReadingRepository = (*ReadingPostgres)(nil)

const readingColumns = "id, recorded_at, systolic, diastolic, pulse, photo_path, created_at"

// Create inserts a new reading row and returns the stored record.
func (r *ReadingPostgres) Create(ctx context.Context, reading *model.Reading) (*model.Reading, error) {
	const q = `
		INSERT INTO blood_pressure (recorded_at, systolic, diastolic, pulse, photo_path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + readingColumns

	row := r.db.QueryRowContext(ctx, q,
		reading.Timestamp,
		reading.Systolic,
		reading.Diastolic,
		nullableInt(reading.Pulse),
		reading.PhotoPath,
	)
	return scanReading(row)
}

// FindByID fetches a single reading by its ID.
func (r *ReadingPostgres) FindByID(ctx context.Context, id int64) (*model.Reading, error) {
	const q = `
		SELECT ` + readingColumns + `
		FROM blood_pressure
		WHERE id = $1
	`
	return scanReading(r.db.QueryRowContext(ctx, q, id))
}

// List returns readings using LIMIT/OFFSET pagination and a total count.
func (r *ReadingPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Reading], error) {
	const qCount = `SELECT COUNT(*) FROM blood_pressure`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + readingColumns + `
		FROM blood_pressure
		ORDER BY recorded_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := collectReadings(rows)
	if err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Reading]{
		Items: items,
		Total: total,
	}, nil
}

// FindAll returns every reading, newest first.
func (r *ReadingPostgres) FindAll(ctx context.Context) ([]model.Reading, error) {
	const q = `
		SELECT ` + readingColumns + `
		FROM blood_pressure
		ORDER BY recorded_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectReadings(rows)
}

// Update rewrites an existing reading's fields. Returns sql.ErrNoRows when the
// reading does not exist.
func (r *ReadingPostgres) Update(ctx context.Context, reading *model.Reading) error {
	const q = `
		UPDATE blood_pressure
		SET recorded_at = $1, systolic = $2, diastolic = $3, pulse = $4, photo_path = $5
		WHERE id = $6
	`
	res, err := r.db.ExecContext(ctx, q,
		reading.Timestamp,
		reading.Systolic,
		reading.Diastolic,
		nullableInt(reading.Pulse),
		reading.PhotoPath,
		reading.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a reading by ID. It does not return an error if the row does not exist.
func (r *ReadingPostgres) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM blood_pressure WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner) (*model.Reading, error) {
	var out model.Reading
	var pulse sql.NullInt64
	if err := row.Scan(
		&out.ID,
		&out.Timestamp,
		&out.Systolic,
		&out.Diastolic,
		&pulse,
		&out.PhotoPath,
		&out.CreatedAt,
	); err != nil {
		return nil, err
	}
	if pulse.Valid {
		p := int(pulse.Int64)
		out.Pulse = &p
	}
	return &out, nil
}

func collectReadings(rows *sql.Rows) ([]model.Reading, error) {
	items := make([]model.Reading, 0)
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *reading)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
