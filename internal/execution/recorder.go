package execution

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samuelfaj/claudiomiro-sub004/internal/filelock"
	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
)

const (
	// UnknownValidation is recorded when the failing validation kind is not known.
	UnknownValidation = "unknown"

	maxStackLinks = 5
	maxStackChars = 1000
)

// RecordError appends err to the record's error history and flags the task
// for recovery: status becomes in_progress, completion becomes
// pending_validation with lastError and failedValidation set, and
// failedValidation is added to pendingFixes once. Every other field is left
// as found, including attempts.
//
// The record is read without validation so a damaged record can still
// receive the entry. RecordError never fails; problems are logged.
func (s *Store) RecordError(path string, err error, failedValidation string) {
	if failedValidation == "" {
		failedValidation = UnknownValidation
	}
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}

	entry := map[string]interface{}{
		"timestamp":        s.now().UTC().Format(time.RFC3339),
		"message":          message,
		"failedValidation": failedValidation,
		"stack":            stackExcerpt(err),
	}

	updateErr := filelock.Update(path, func(current []byte) ([]byte, error) {
		if current == nil {
			return nil, fmt.Errorf("execution record not found")
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(current, &doc); err != nil {
			return nil, fmt.Errorf("parse error: %w", err)
		}
		if doc == nil {
			return nil, fmt.Errorf("parse error: execution record root must be an object")
		}

		applyError(doc, entry, message, failedValidation)

		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	})
	if updateErr != nil && s.logger != nil {
		s.logger.Warnf("could not record error in %s: %v (original error: %s)", path, updateErr, message)
	}
}

func applyError(doc, entry map[string]interface{}, message, failedValidation string) {
	history, _ := doc["errorHistory"].([]interface{})
	doc["errorHistory"] = append(history, entry)

	fixes, _ := doc["pendingFixes"].([]interface{})
	present := false
	for _, f := range fixes {
		if f == failedValidation {
			present = true
			break
		}
	}
	if !present {
		fixes = append(fixes, failedValidation)
	}
	doc["pendingFixes"] = fixes

	doc["status"] = models.TaskInProgress

	completion, ok := doc["completion"].(map[string]interface{})
	if !ok {
		completion = map[string]interface{}{}
		doc["completion"] = completion
	}
	completion["status"] = models.CompletionPendingValidation
	completion["lastError"] = message
	completion["failedValidation"] = failedValidation
}

// stackExcerpt renders the wrap chain of err, outermost first.
func stackExcerpt(err error) string {
	if err == nil {
		return ""
	}
	var links []string
	for e := err; e != nil && len(links) < maxStackLinks; e = errors.Unwrap(e) {
		links = append(links, fmt.Sprintf("%T: %s", e, e.Error()))
	}
	stack := strings.Join(links, "\n")
	if len(stack) > maxStackChars {
		cut := maxStackChars
		for cut > 0 && !utf8.RuneStart(stack[cut]) {
			cut--
		}
		stack = stack[:cut]
	}
	return stack
}
