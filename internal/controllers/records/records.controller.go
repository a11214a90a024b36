package recordsController

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"eyeshield/internal/logger"
	. "eyeshield/internal/models"
	"eyeshield/internal/repositories"
	"eyeshield/internal/utils"
)

var (
	ErrWriteFailed       = errors.New("screening record write failed")
	ErrReadFailed        = errors.New("screening record load failed")
	ErrMissingIdentifier = errors.New("screening record needs a patient id and a name")
	ErrNotLoaded         = errors.New("screening records have not been loaded")
	ErrExportIOFailure   = utils.ErrExportIOFailure
	ErrUnknownFormat     = errors.New("unknown export format")
	ErrRecordNotFound    = errors.New("screening record not found")
)

const DefaultRecentCount = 5

type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Notifier hears about every record after it is durable.
type Notifier interface {
	RecordAdded(record ScreeningRecord, total int) error
}

type Statistics struct {
	Total           int               `json:"total"`
	Positive        int               `json:"positive"`
	Today           int               `json:"today"`
	ImagesProcessed int               `json:"imagesProcessed"`
	Recent          []ScreeningRecord `json:"recent"`
}

// RecordStore keeps the in-memory view of every durable screening record.
// The view only ever holds rows whose write has committed, in insertion
// order, and only grows between loads.
type RecordStore struct {
	mu         sync.RWMutex
	recordRepo repositories.ScreeningRecordRepository
	notifier   Notifier
	view       []ScreeningRecord
	loaded     bool
	now        func() time.Time
	log        logger.Logger
}

func New(recordRepo repositories.ScreeningRecordRepository, notifier Notifier) *RecordStore {
	return &RecordStore{
		recordRepo: recordRepo,
		notifier:   notifier,
		now:        time.Now,
		log:        logger.New("RecordStore"),
	}
}

// Append persists record and, once the write has committed, adds it to the
// view and notifies subscribers. A failed write leaves the view untouched.
func (s *RecordStore) Append(ctx context.Context, record ScreeningRecord) (ScreeningRecord, error) {
	log := s.log.Function("Append")

	if strings.TrimSpace(record.PatientID) == "" || strings.TrimSpace(record.Name) == "" {
		return ScreeningRecord{}, ErrMissingIdentifier
	}

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ScreeningRecord{}, ErrNotLoaded
	}

	record.BaseModel = BaseModel{}
	if err := s.recordRepo.Create(ctx, &record); err != nil {
		s.mu.Unlock()
		log.Er("durable write failed, record not added to view", err, "patientID", record.PatientID)
		return ScreeningRecord{}, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	s.view = append(s.view, record)
	total := len(s.view)
	s.mu.Unlock()

	log.Info("screening record appended", "patientID", record.PatientID, "total", total)

	// Subscribers may read the store, so they run after the lock is gone.
	if s.notifier != nil {
		if err := s.notifier.RecordAdded(record, total); err != nil {
			log.Warn("record saved but notification failed", "patientID", record.PatientID, "error", err)
		}
	}

	return record, nil
}

// LoadAll replaces the view with everything in storage. On failure the view
// is emptied and the store returns to its unloaded state.
func (s *RecordStore) LoadAll(ctx context.Context) ([]ScreeningRecord, error) {
	log := s.log.Function("LoadAll")

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.recordRepo.GetAll(ctx)
	if err != nil {
		s.view = nil
		s.loaded = false
		log.Er("failed to load screening records, view cleared", err)
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	s.view = records
	s.loaded = true
	log.Info("screening records loaded", "count", len(records))

	return slices.Clone(s.view), nil
}

func (s *RecordStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Records returns a copy of the whole view.
func (s *RecordStore) Records() []ScreeningRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.view)
}

// Get returns the record with patientID from the view.
func (s *RecordStore) Get(patientID string) (ScreeningRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	patientID = strings.TrimSpace(patientID)
	for _, record := range s.view {
		if strings.EqualFold(record.PatientID, patientID) {
			return record, nil
		}
	}

	return ScreeningRecord{}, fmt.Errorf("%w: %s", ErrRecordNotFound, patientID)
}

// Filter matches query, trimmed and case-folded, as a substring of any
// non-empty field. A blank query returns the whole view. Order is the view's.
func (s *RecordStore) Filter(query string) []ScreeningRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return slices.Clone(s.view)
	}

	matches := make([]ScreeningRecord, 0)
	for _, record := range s.view {
		if matchesRecord(record, needle) {
			matches = append(matches, record)
		}
	}

	return matches
}

func matchesRecord(record ScreeningRecord, needle string) bool {
	for _, value := range record.Values() {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if strings.Contains(strings.ToLower(value), needle) {
			return true
		}
	}
	return false
}

// Stats is computed from the live view on every call. Recent lists the last
// recent records, newest first.
func (s *RecordStore) Stats(recent int) Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if recent < 0 {
		recent = 0
	}

	now := s.now()
	year, month, day := now.Date()

	stats := Statistics{Total: len(s.view)}
	for _, record := range s.view {
		if record.Finding == FindingPositive {
			stats.Positive++
		}
		if record.Result != "" {
			stats.ImagesProcessed++
		}
		y, m, d := record.CreatedAt.In(now.Location()).Date()
		if y == year && m == month && d == day {
			stats.Today++
		}
	}

	stats.Recent = make([]ScreeningRecord, 0, min(recent, len(s.view)))
	for i := len(s.view) - 1; i >= 0 && len(stats.Recent) < recent; i-- {
		stats.Recent = append(stats.Recent, s.view[i])
	}

	return stats
}

// Export serializes records to w. The caller picks filtered or full.
func (s *RecordStore) Export(w io.Writer, format ExportFormat, records []ScreeningRecord) error {
	log := s.log.Function("Export")

	var err error
	switch format {
	case FormatCSV:
		err = utils.WriteRecordsCSV(w, records)
	case FormatXLSX:
		err = utils.WriteRecordsXLSX(w, records)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return log.Err("failed to export screening records", err, "format", format, "count", len(records))
	}

	return nil
}

// ExportFile writes records to path through a temp file, so path either
// holds the complete export or is left as it was.
func (s *RecordStore) ExportFile(path string, format ExportFormat, records []ScreeningRecord) error {
	log := s.log.Function("ExportFile")

	var err error
	switch format {
	case FormatCSV:
		err = utils.ExportCSVFile(path, records)
	case FormatXLSX:
		err = utils.ExportXLSXFile(path, records)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return log.Err("failed to export screening records", err, "path", path, "format", format)
	}

	log.Info("screening records exported", "path", path, "format", format, "count", len(records))
	return nil
}
