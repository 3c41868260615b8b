package schema

import (
	"sync"
	"time"

	"github.com/samuelfaj/claudiomiro-sub004/internal/security"
)

// Validator runs the sanitize, check, classify and repair pipeline.
// Construct one with NewValidator and pass it to the components that need it.
// A Validator is safe for concurrent use.
type Validator struct {
	mu     sync.RWMutex
	schema *RecordSchema
	build  func() *RecordSchema
	policy *security.Policy
	now    func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithPolicy sets the policy used to classify critical defects.
func WithPolicy(p *security.Policy) Option {
	return func(v *Validator) {
		v.policy = p
	}
}

// WithClock sets the clock used for timestamp defaults.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

// WithSchema sets the schema constructor. Reset calls it again.
func WithSchema(build func() *RecordSchema) Option {
	return func(v *Validator) {
		v.build = build
	}
}

// NewValidator creates a Validator for execution records.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		build:  ExecutionSchema,
		policy: security.DefaultPolicy(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.schema = v.build()
	return v
}

// Reset rebuilds the compiled schema from its constructor.
func (v *Validator) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.schema = v.build()
}

// Schema returns the compiled schema.
func (v *Validator) Schema() *RecordSchema {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.schema
}

// Policy returns the classification policy.
func (v *Validator) Policy() *security.Policy {
	return v.policy
}

// Check returns the structural defects of doc without repairing it.
func (v *Validator) Check(doc map[string]interface{}) []ValidationError {
	return Check(doc, v.Schema())
}

// Repair returns a repaired copy of doc.
func (v *Validator) Repair(doc map[string]interface{}) map[string]interface{} {
	return Repair(SanitizeDocument(doc), v.Schema(), v.now())
}

// Validate checks doc and, depending on opts, sanitizes and repairs it.
//
// A *CriticalError is returned when doc is not an object or when any defect
// is classified critical by the policy; repair never runs in that case.
// Non-critical defects are reported in Result.Errors with Valid set to false,
// and Result.RepairedData holds the healed document when opts.Repair is set.
func (v *Validator) Validate(doc interface{}, opts Options) (*Result, error) {
	m, ok := doc.(map[string]interface{})
	if !ok || m == nil {
		msg := "parse error: execution record root must be an object, got " + typeName(doc)
		result := &Result{Errors: []ValidationError{{Message: msg}}}
		return result, &CriticalError{Messages: []string{msg}}
	}

	result := &Result{}
	target := m
	if opts.Sanitize {
		result.SanitizedData = SanitizeDocument(m)
		target = result.SanitizedData
	}

	result.Errors = v.Check(target)
	if len(result.Errors) == 0 {
		result.Valid = true
		return result, nil
	}

	var critical []string
	for _, e := range result.Errors {
		if v.policy != nil && v.policy.IsCriticalError(e.Message) {
			critical = append(critical, e.Error())
		}
	}
	if len(critical) > 0 {
		return result, &CriticalError{Messages: critical}
	}

	if opts.Repair {
		result.RepairedData = Repair(SanitizeDocument(target), v.Schema(), v.now())
	}
	return result, nil
}
