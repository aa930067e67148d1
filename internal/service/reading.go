package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bptracker/internal/model"
	"bptracker/internal/repository"
	"bptracker/internal/stats"
	"bptracker/internal/storage"
	"bptracker/internal/timeparse"
	"bptracker/internal/vision"
)

var (
	ErrInvalidID         = errors.New("id must be positive")
	ErrNotFound          = errors.New("reading not found")
	ErrReaderNil         = errors.New("reader is nil")
	ErrEmptyFile         = errors.New("file is empty")
	ErrVisionUnavailable = errors.New("vision service unavailable")
)

// AddReadingInput carries a new measurement. Date is optional; empty or
// unparseable input falls back to the current time (the fallback is logged,
// not hidden).
type AddReadingInput struct {
	Systolic  int
	Diastolic int
	Pulse     *int
	Date      string
	PhotoPath string
}

// UpdateReadingInput carries an edit. Nil/empty fields keep the stored value.
type UpdateReadingInput struct {
	Systolic  *int
	Diastolic *int
	Pulse     *int
	Date      string
}

// ReadingListResult is the service-level DTO for paginated readings.
type ReadingListResult struct {
	Items []model.Reading `json:"data"`
	Total int             `json:"total"`
}

// ImportResult reports a best-effort CSV import: rows accepted and rows
// skipped as malformed or out of range.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// StatsResult bundles overall statistics with rolling window averages.
type StatsResult struct {
	Count   int                   `json:"count"`
	Overall stats.Summary         `json:"overall"`
	Rolling []stats.WindowAverage `json:"rolling"`
}

// ExtractionResult is a vision extraction plus the archived photo's storage key.
type ExtractionResult struct {
	vision.Extraction
	PhotoPath string `json:"photo_path"`
}

// ReadingService defines the use cases for handling blood pressure readings.
type ReadingService interface {
	// Add validates and persists a new reading, normalizing its date to UTC.
	Add(ctx context.Context, in AddReadingInput) (*model.Reading, error)

	// Get returns a single reading by its ID.
	Get(ctx context.Context, id int64) (*model.Reading, error)

	// List returns readings newest-first using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*ReadingListResult, error)

	// Update edits a stored reading; unspecified fields keep their stored values.
	Update(ctx context.Context, id int64, in UpdateReadingInput) (*model.Reading, error)

	// Delete removes a reading by ID.
	Delete(ctx context.Context, id int64) error

	// ImportCSV bulk-loads "MM/DD/YY, SYS/DIA" rows, skipping malformed ones.
	ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error)

	// Stats computes overall and rolling statistics over all readings as of now.
	Stats(ctx context.Context, now time.Time) (*StatsResult, error)

	// ExtractFromImage archives a monitor photo and extracts a reading from it
	// via the vision collaborator. The result is not persisted; the caller
	// confirms it through Add.
	ExtractFromImage(ctx context.Context, image []byte, filename string) (*ExtractionResult, error)
}

// readingService is a concrete implementation of ReadingService.
type readingService struct {
	repo   repository.ReadingRepository
	store  storage.Storage
	vision vision.Describer
	tz     *timeparse.Parser
	logger *zap.Logger
}

// NewReadingService constructs a new ReadingService.
func NewReadingService(
	repo repository.ReadingRepository,
	store storage.Storage,
	describer vision.Describer,
	tz *timeparse.Parser,
	logger *zap.Logger,
) ReadingService {
	return &readingService{repo: repo, store: store, vision: describer, tz: tz, logger: logger}
}

func (s *readingService) Add(ctx context.Context, in AddReadingInput) (*model.Reading, error) {
	if err := model.Validate(in.Systolic, in.Diastolic, in.Pulse); err != nil {
		return nil, err
	}

	ts, parsed := s.tz.ParseToUTCOrNow(in.Date, time.Now())
	if !parsed && strings.TrimSpace(in.Date) != "" {
		s.logger.Warn("unparseable reading date, falling back to now", zap.String("date", in.Date))
	}

	reading := &model.Reading{
		Timestamp: ts,
		Systolic:  in.Systolic,
		Diastolic: in.Diastolic,
		Pulse:     in.Pulse,
		PhotoPath: in.PhotoPath,
	}
	stored, err := s.repo.Create(ctx, reading)
	if err != nil {
		return nil, fmt.Errorf("save reading: %w", err)
	}
	return stored, nil
}

func (s *readingService) Get(ctx context.Context, id int64) (*model.Reading, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	reading, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return reading, nil
}

// List returns paginated readings without exposing repository types.
func (s *readingService) List(ctx context.Context, limit, offset int) (*ReadingListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &ReadingListResult{Items: res.Items, Total: res.Total}, nil
}

// Update loads the stored reading, overlays the provided fields, validates,
// and persists. Absent fields fall back to the stored values.
func (s *readingService) Update(ctx context.Context, id int64, in UpdateReadingInput) (*model.Reading, error) {
	reading, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Systolic != nil {
		reading.Systolic = *in.Systolic
	}
	if in.Diastolic != nil {
		reading.Diastolic = *in.Diastolic
	}
	if in.Pulse != nil {
		reading.Pulse = in.Pulse
	}
	if strings.TrimSpace(in.Date) != "" {
		ts, parsed := s.tz.ParseToUTC(in.Date)
		if parsed {
			reading.Timestamp = ts
		} else {
			s.logger.Warn("unparseable date on update, keeping stored timestamp",
				zap.Int64("id", id), zap.String("date", in.Date))
		}
	}

	if err := reading.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, reading); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update reading: %w", err)
	}
	return reading, nil
}

func (s *readingService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	// Delete the archived photo first so a storage failure keeps the DB row
	// pointing at it.
	reading, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if reading.PhotoPath != "" {
		if err := s.store.Delete(ctx, reading.PhotoPath); err != nil {
			return fmt.Errorf("delete photo: %w", err)
		}
	}
	return s.repo.Delete(ctx, id)
}

// ImportCSV reads "MM/DD/YY, SYS/DIA" rows. Malformed or out-of-range rows are
// skipped, never failing the batch; repository errors do abort, since they
// indicate the store itself is unhealthy.
func (s *readingService) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	if r == nil {
		return nil, ErrReaderNil
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	res := &ImportResult{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Skipped++
			continue
		}

		in, ok := s.parseCSVRow(row)
		if !ok {
			res.Skipped++
			continue
		}
		if _, err := s.repo.Create(ctx, in); err != nil {
			return res, fmt.Errorf("save imported reading: %w", err)
		}
		res.Imported++
	}

	s.logger.Info("csv import finished",
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// parseCSVRow turns one CSV row into a reading. Rows need at least a date
// field and a "SYS/DIA" field; the CSV format carries no pulse.
func (s *readingService) parseCSVRow(row []string) (*model.Reading, bool) {
	if len(row) < 2 {
		return nil, false
	}
	dateText := strings.TrimSpace(row[0])
	bp := strings.TrimSpace(row[1])

	sysText, diaText, found := strings.Cut(bp, "/")
	if !found {
		return nil, false
	}
	systolic, err := strconv.Atoi(strings.TrimSpace(sysText))
	if err != nil {
		return nil, false
	}
	diastolic, err := strconv.Atoi(strings.TrimSpace(diaText))
	if err != nil {
		return nil, false
	}
	ts, ok := s.tz.ParseCSVDate(dateText)
	if !ok {
		return nil, false
	}
	if model.Validate(systolic, diastolic, nil) != nil {
		return nil, false
	}
	return &model.Reading{Timestamp: ts, Systolic: systolic, Diastolic: diastolic}, true
}

func (s *readingService) Stats(ctx context.Context, now time.Time) (*StatsResult, error) {
	readings, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsResult{
		Count:   len(readings),
		Overall: stats.Compute(readings),
		Rolling: stats.RollingAverages(readings, now, nil),
	}, nil
}

func (s *readingService) ExtractFromImage(ctx context.Context, image []byte, filename string) (*ExtractionResult, error) {
	if len(image) == 0 {
		return nil, ErrEmptyFile
	}
	mediaType, err := vision.MediaTypeForFilename(filename)
	if err != nil {
		return nil, err
	}

	// Archive the photo before calling out; the key is returned to the caller
	// so a confirmed reading can reference it.
	key := filepath.ToSlash(filepath.Join("photos", uuid.New().String()+strings.ToLower(filepath.Ext(filename))))
	_, err = s.store.Put(ctx, key, bytes.NewReader(image), storage.PutObjectOptions{
		Size:        int64(len(image)),
		ContentType: mediaType,
		Metadata: map[string]string{
			"original-filename": filename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("archive photo: %w", err)
	}

	text, err := s.vision.Describe(ctx, image, filename)
	if err != nil {
		s.rollbackPhoto(ctx, key)
		s.logger.Error("vision request failed", zap.String("photo_path", key), zap.Error(err))
		return nil, fmt.Errorf("%w: describe image: %v", ErrVisionUnavailable, err)
	}

	extraction, err := vision.ExtractReading(text)
	if err != nil {
		s.rollbackPhoto(ctx, key)
		return nil, fmt.Errorf("extract reading: %w", err)
	}

	s.logger.Info("extracted reading from photo",
		zap.String("photo_path", key),
		zap.Bool("has_pulse", extraction.Pulse != nil),
	)
	return &ExtractionResult{Extraction: extraction, PhotoPath: key}, nil
}

func (s *readingService) rollbackPhoto(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to remove archived photo after error",
			zap.String("photo_path", key), zap.Error(err))
	}
}
