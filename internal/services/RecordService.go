package services

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"dppmini/internal/expiry"
	"dppmini/internal/filter"
	"dppmini/internal/gtin"
	"dppmini/internal/models"
	"dppmini/internal/providers"
	"dppmini/internal/storage"
	"dppmini/internal/storage/interfaces"
)

const (
	MsgInvalidGTIN   = "GTIN must have 8, 12, 13 or 14 digits and a valid check digit"
	MsgEmptyBatch    = "Batch must not be empty"
	MsgInvalidExpiry = "Expiry must be a date in YYYY-MM-DD format"
	MsgPastExpiry    = "Expiry is in the past and 'Disallow past expiry dates' is ON."
)

var ErrRecordNotFound = errors.New("record not found")

// SettingsFileInterface loads and stores settings without ever failing the
// caller; problems come back as faults.
type SettingsFileInterface interface {
	Load() (models.Settings, *storage.SettingsFault)
	Save(settings models.Settings) *storage.SettingsFault
}

type RecordServiceInterface interface {
	Restore() error
	Add(in models.ItemInput) (models.Record, error)
	Upsert(record models.Record) (models.Record, error)
	BulkUpsert(rows []models.ItemInput) (*models.ImportReport, error)
	Import(r io.Reader) (*models.ImportReport, error)
	Edit(target models.Record, in models.ItemInput) (*EditResult, error)
	Delete(record models.Record) (bool, error)
	View(c filter.Criteria) ([]models.Record, filter.Warnings)
	Recent(n int) []models.Record
	Records() []models.Record
	Settings() models.Settings
	UpdateSettings(s models.Settings) models.Settings
	PatchSettings(p models.SettingsPatch) models.Settings
	Count() int
	Version() uint64
}

// EditResult reports the edited record and any record it displaced because
// the edit gave it an existing dedupe key.
type EditResult struct {
	Record     models.Record   `json:"record"`
	Superseded []models.Record `json:"superseded"`
}

// RecordService owns the record collection and the settings. Every operation
// holds the lock until it has been persisted and committed.
type RecordService struct {
	mu       sync.Mutex
	store    *models.RecordStore
	settings models.Settings
	version  uint64

	file         interfaces.RecordFileInterface
	settingsFile SettingsFileInterface
	policy       *expiry.Policy
	now          func() time.Time
	logger       providers.Logger
	metrics      providers.MetricsProviderInterface
}

func NewRecordService(file interfaces.RecordFileInterface, settingsFile SettingsFileInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *RecordService {
	return &RecordService{
		store:        models.NewRecordStore(nil),
		settings:     models.DefaultSettings(),
		file:         file,
		settingsFile: settingsFile,
		policy:       expiry.NewPolicy(),
		now:          time.Now,
		logger:       logger,
		metrics:      metrics,
	}
}

// SetClock replaces the time source used for timestamps and the expiry policy.
func (s *RecordService) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	s.policy = &expiry.Policy{Now: now}
}

// Restore loads the data and settings files. Data file errors are returned;
// settings problems are logged and defaults kept.
func (s *RecordService) Restore() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.file.Load()
	if err != nil {
		return fmt.Errorf("load data file %s: %w", s.file.Path(), err)
	}
	s.store = models.NewRecordStore(records)
	if collapsed := len(records) - s.store.Len(); collapsed > 0 {
		s.logger.Warnf(providers.TypeApp, "Collapsed %d duplicate records while loading %s", collapsed, s.file.Path())
	}

	settings, fault := s.settingsFile.Load()
	if fault != nil {
		s.logger.Warnf(providers.TypeApp, "Using default settings: %s", fault)
	}
	s.settings = settings

	s.version++
	s.metrics.SetRecordsTotal(s.store.Len())
	s.logger.Infof(providers.TypeApp, "Restored %d records from %s", s.store.Len(), s.file.Path())
	return nil
}

func (s *RecordService) Add(in models.ItemInput) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.validateInput(in)
	if err != nil {
		return models.Record{}, err
	}
	rec.CreatedAt = models.FormatTimestamp(s.now())

	if err := s.commit("add", s.store.WithAppended(rec)); err != nil {
		return models.Record{}, err
	}
	return rec, nil
}

// Upsert stores record as given after normalizing its GTIN and batch. An
// existing record with the same key is replaced.
func (s *RecordService) Upsert(record models.Record) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var verrs models.ValidationErrors
	code := gtin.Normalize(record.Gtin)
	if !gtin.IsValid(code) {
		verrs.Add("gtin", record.Gtin, MsgInvalidGTIN)
	}
	batch := strings.TrimSpace(record.Batch)
	if batch == "" {
		verrs.Add("batch", record.Batch, MsgEmptyBatch)
	}
	if err := verrs.Err(); err != nil {
		return models.Record{}, err
	}
	record.Gtin = code
	record.Batch = batch
	if record.CreatedAt == "" {
		record.CreatedAt = models.FormatTimestamp(s.now())
	}

	if err := s.commit("upsert", s.store.WithAppended(record)); err != nil {
		return models.Record{}, err
	}
	return record, nil
}

// BulkUpsert validates every row, drops the failures and merges the rest in
// one write. Accepted rows share one timestamp.
func (s *RecordService) BulkUpsert(rows []models.ItemInput) (*models.ImportReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := models.NewImportReport()
	report.ImportedAt = models.FormatTimestamp(s.now())
	report.Rows = len(rows)

	accepted := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		rec, reason, ok := s.acceptRow(row)
		if !ok {
			report.Drop(reason)
			continue
		}
		rec.CreatedAt = report.ImportedAt
		accepted = append(accepted, rec)
	}
	report.Accepted = len(accepted)

	for reason, n := range report.Dropped {
		s.metrics.AddImportDropped(string(reason), n)
	}

	if len(accepted) > 0 {
		before := s.store.Len()
		if err := s.commit("import", s.store.WithAppended(accepted...)); err != nil {
			return nil, err
		}
		report.Added = s.store.Len() - before
	}

	s.logger.Infof(providers.TypeWrite, "Import %s: %d rows, %d accepted, %d added, dropped [%s]",
		report.ID, report.Rows, report.Accepted, report.Added, report.DropSummary())
	return report, nil
}

// Import reads a bulk import CSV and merges it. Structural problems such as
// missing columns abort before anything is applied.
func (s *RecordService) Import(r io.Reader) (*models.ImportReport, error) {
	rows, err := storage.ReadImport(r)
	if err != nil {
		return nil, err
	}
	return s.BulkUpsert(rows)
}

// Edit replaces the exact target record with the validated input. The
// created_at of the target is kept.
func (s *RecordService) Edit(target models.Record, in models.ItemInput) (*EditResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.validateInput(in)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = target.CreatedAt

	candidate, superseded, ok := s.store.WithEdited(target, rec)
	if !ok {
		return nil, ErrRecordNotFound
	}
	if err := s.commit("edit", candidate); err != nil {
		return nil, err
	}
	for _, old := range superseded {
		s.logger.Warnf(providers.TypeWrite, "Edit of %s|%s|%s superseded %s|%s|%s|%s",
			target.Gtin, target.Batch, target.Expiry, old.Gtin, old.Batch, old.Expiry, old.CreatedAt)
	}
	return &EditResult{Record: rec, Superseded: superseded}, nil
}

// Delete removes the record matching all four fields. Nothing is written when
// there is no match.
func (s *RecordService) Delete(record models.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate, ok := s.store.WithoutRecord(record)
	if !ok {
		return false, nil
	}
	if err := s.commit("delete", candidate); err != nil {
		return false, err
	}
	return true, nil
}

// View filters the collection and orders it newest first.
func (s *RecordService) View(c filter.Criteria) ([]models.Record, filter.Warnings) {
	s.mu.Lock()
	records := s.store.Snapshot()
	s.mu.Unlock()

	out, warns := records, filter.Warnings{}
	if !c.IsZero() {
		out, warns = filter.Apply(records, c)
	}
	models.SortNewestFirst(out)
	return out, warns
}

func (s *RecordService) Recent(n int) []models.Record {
	out, _ := s.View(filter.Criteria{})
	if n < 0 {
		n = 0
	}
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// Records returns the collection in storage order.
func (s *RecordService) Records() []models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot()
}

func (s *RecordService) Settings() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings applies settings immediately. Saving them is best-effort.
func (s *RecordService) UpdateSettings(settings models.Settings) models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = settings
	if fault := s.settingsFile.Save(settings); fault != nil {
		s.logger.Warnf(providers.TypeApp, "Settings not saved: %s", fault)
	}
	return s.settings
}

// PatchSettings changes only the toggles set in p, reading and writing under
// one lock so concurrent patches to different toggles both survive.
func (s *RecordService) PatchSettings(p models.SettingsPatch) models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.IsEmpty() {
		return s.settings
	}
	s.settings = p.Apply(s.settings)
	if fault := s.settingsFile.Save(s.settings); fault != nil {
		s.logger.Warnf(providers.TypeApp, "Settings not saved: %s", fault)
	}
	return s.settings
}

func (s *RecordService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Len()
}

// Version changes after every committed mutation.
func (s *RecordService) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// commit persists candidate and only then makes it the live collection.
func (s *RecordService) commit(op string, candidate []models.Record) error {
	start := time.Now()
	err := s.file.Save(candidate)
	s.metrics.ObservePersistenceDuration(time.Since(start))
	if err != nil {
		s.logger.Errorf(providers.TypeWrite, "Persist after %s failed: %v", op, err)
		return fmt.Errorf("save data file %s: %w", s.file.Path(), err)
	}

	s.store.Replace(candidate)
	s.version++
	s.metrics.IncMutations(op)
	s.metrics.SetRecordsTotal(len(candidate))
	return nil
}

// validateInput normalizes a single add/edit input and reports every problem
// at once.
func (s *RecordService) validateInput(in models.ItemInput) (models.Record, error) {
	var verrs models.ValidationErrors

	code := gtin.Normalize(in.Gtin)
	if s.settings.AutoFixGTIN {
		if fixed, ok := gtin.TryRepair(code); ok {
			code = fixed
		}
	}
	if !gtin.IsValid(code) {
		verrs.Add("gtin", in.Gtin, MsgInvalidGTIN)
	}

	batch := strings.TrimSpace(in.Batch)
	if batch == "" {
		verrs.Add("batch", in.Batch, MsgEmptyBatch)
	}

	date, ok := expiry.Parse(in.Expiry)
	if !ok {
		verrs.Add("expiry", in.Expiry, MsgInvalidExpiry)
	} else if s.settings.EnforceFutureExpiry && date.Before(s.policy.Today()) {
		verrs.Add("expiry", in.Expiry, MsgPastExpiry)
	}

	if err := verrs.Err(); err != nil {
		return models.Record{}, err
	}
	return models.Record{Gtin: code, Batch: batch, Expiry: date.Format(expiry.Layout)}, nil
}

// acceptRow applies the bulk import checks in order and returns the first
// failing reason.
func (s *RecordService) acceptRow(row models.ItemInput) (models.Record, models.DropReason, bool) {
	code := gtin.Normalize(row.Gtin)
	if !gtin.IsValid(code) {
		return models.Record{}, models.DropInvalidGTIN, false
	}
	batch := strings.TrimSpace(row.Batch)
	if batch == "" {
		return models.Record{}, models.DropEmptyBatch, false
	}
	date, ok := expiry.Parse(row.Expiry)
	if !ok {
		return models.Record{}, models.DropInvalidExpiry, false
	}
	if s.settings.EnforceFutureExpiry && date.Before(s.policy.Today()) {
		return models.Record{}, models.DropPastExpiry, false
	}
	return models.Record{Gtin: code, Batch: batch, Expiry: date.Format(expiry.Layout)}, "", true
}
