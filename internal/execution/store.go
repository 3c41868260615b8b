// Package execution loads and persists execution records through the schema
// pipeline and records failures into them.
package execution

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/samuelfaj/claudiomiro-sub004/internal/filelock"
	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
	"github.com/samuelfaj/claudiomiro-sub004/internal/schema"
)

// RecordFileName is the execution record file inside a task folder.
const RecordFileName = "execution.json"

// RecordPath returns the execution record path for a task folder.
func RecordPath(taskDir string) string {
	return filepath.Join(taskDir, RecordFileName)
}

// Logger is the logging surface the store needs.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// InvalidRecordError is returned in strict mode when a record has
// non-critical defects.
type InvalidRecordError struct {
	Path   string
	Errors []schema.ValidationError
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("execution record %s failed validation:\n%s", e.Path, schema.FormatErrors(e.Errors))
}

// Store reads and writes execution records.
type Store struct {
	validator *schema.Validator
	logger    Logger
	lenient   bool
	now       func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLenient sets the default mode. Lenient stores heal non-critical
// defects; strict stores reject them.
func WithLenient(lenient bool) StoreOption {
	return func(s *Store) {
		s.lenient = lenient
	}
}

// WithClock sets the clock used for error timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a lenient Store.
func NewStore(v *schema.Validator, logger Logger, opts ...StoreOption) *Store {
	s := &Store{
		validator: v,
		logger:    logger,
		lenient:   true,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validator returns the validator used by the store.
func (s *Store) Validator() *schema.Validator {
	return s.validator
}

// Option overrides the store mode for one call.
type Option func(*callOptions)

type callOptions struct {
	lenient bool
}

// Strict rejects any defect instead of repairing it.
func Strict() Option {
	return func(o *callOptions) {
		o.lenient = false
	}
}

// Lenient repairs non-critical defects.
func Lenient() Option {
	return func(o *callOptions) {
		o.lenient = true
	}
}

func (s *Store) options(opts []Option) callOptions {
	o := callOptions{lenient: s.lenient}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Exists reports whether a record file is present at path.
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// readDocument reads and decodes path without validation. Missing,
// unreadable or unparseable files yield a *schema.CriticalError.
func readDocument(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		msg := "failed to read execution record"
		if errors.Is(err, os.ErrNotExist) {
			msg = "execution record not found"
		}
		return nil, &schema.CriticalError{Source: path, Messages: []string{msg}, Err: err}
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &schema.CriticalError{
			Source:   path,
			Messages: []string{"parse error: " + err.Error()},
			Err:      err,
		}
	}
	return doc, nil
}

// LoadRaw reads path and returns the validated document. In lenient mode
// non-critical defects are logged and the repaired document is returned.
func (s *Store) LoadRaw(path string, opts ...Option) (map[string]interface{}, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	return s.process(path, doc, "load", s.options(opts))
}

// Inspect runs the pipeline on the record at path without writing anything.
// Critical defects are returned as errors; the result lists the others and
// carries the repaired document when there were any.
func (s *Store) Inspect(path string) (*schema.Result, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	result, err := s.validator.Validate(doc, schema.DefaultOptions)
	if err != nil {
		var critical *schema.CriticalError
		if errors.As(err, &critical) && critical.Source == "" {
			critical.Source = path
		}
		return result, err
	}
	return result, nil
}

// Load reads path and returns the typed record.
func (s *Store) Load(path string, opts ...Option) (*models.ExecutionRecord, error) {
	doc, err := s.LoadRaw(path, opts...)
	if err != nil {
		return nil, err
	}
	return decodeRecord(doc)
}

// Save validates rec and writes it to path.
func (s *Store) Save(path string, rec *models.ExecutionRecord, opts ...Option) error {
	rec.Normalize()
	doc, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("failed to encode execution record: %w", err)
	}
	return s.SaveRaw(path, doc, opts...)
}

// SaveRaw validates doc and writes it to path. Critical defects always
// block the write; other defects are healed in lenient mode and rejected in
// strict mode.
func (s *Store) SaveRaw(path string, doc map[string]interface{}, opts ...Option) error {
	data, err := s.process(path, doc, "save", s.options(opts))
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode execution record: %w", err)
	}
	if err := filelock.LockAndWrite(path, append(out, '\n')); err != nil {
		return fmt.Errorf("failed to write execution record: %w", err)
	}
	return nil
}

func (s *Store) process(path string, doc interface{}, op string, o callOptions) (map[string]interface{}, error) {
	validateOpts := schema.Options{Sanitize: true, Repair: o.lenient}
	result, err := s.validator.Validate(doc, validateOpts)
	if err != nil {
		var critical *schema.CriticalError
		if errors.As(err, &critical) && critical.Source == "" {
			critical.Source = path
		}
		return nil, err
	}
	if result.Valid {
		return result.Data(doc.(map[string]interface{})), nil
	}
	if !o.lenient {
		return nil, &InvalidRecordError{Path: path, Errors: result.Errors}
	}

	if s.logger != nil {
		s.logger.Warnf("execution record %s repaired on %s (%d issues):\n%s",
			path, op, len(result.Errors), schema.FormatErrors(result.Errors))
	}
	return result.Data(doc.(map[string]interface{})), nil
}

// Init loads the record at path, or writes a seeded one when none exists.
// created reports whether a new record was written.
func (s *Store) Init(path, taskID, title string, phases []string) (rec *models.ExecutionRecord, created bool, err error) {
	if s.Exists(path) {
		rec, err = s.Load(path)
		return rec, false, err
	}

	rec = models.NewExecutionRecord(taskID, title, phases, s.now())
	if err := s.Save(path, rec); err != nil {
		return nil, false, err
	}
	if s.logger != nil {
		s.logger.Debugf("seeded execution record %s for %s", path, taskID)
	}
	return rec, true, nil
}

func encodeRecord(rec *models.ExecutionRecord) (map[string]interface{}, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeRecord(doc map[string]interface{}) (*models.ExecutionRecord, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode execution record: %w", err)
	}
	var rec models.ExecutionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode execution record: %w", err)
	}
	rec.Normalize()
	return &rec, nil
}
