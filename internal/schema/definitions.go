package schema

import (
	"fmt"
	"regexp"
	"time"

	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
)

var uncertaintyIDPattern = regexp.MustCompile(`^U[0-9]+$`)

func constant(v interface{}) func(DefaultContext) interface{} {
	return func(DefaultContext) interface{} { return v }
}

func emptyList(DefaultContext) interface{} { return []interface{}{} }

func emptyMap(DefaultContext) interface{} { return map[string]interface{}{} }

func timestampNow(c DefaultContext) interface{} {
	return c.Now.UTC().Format(time.RFC3339)
}

func nullValue(DefaultContext) interface{} { return nil }

// ExecutionSchema returns the definition of a version 1.0 execution record.
func ExecutionSchema() *RecordSchema {
	cleanup := NewRecordSchema("cleanup",
		Field{Name: "debugLogsRemoved", Kind: KindBoolean, Required: true, Default: constant(false)},
		Field{Name: "formattingConsistent", Kind: KindBoolean, Required: true, Default: constant(false)},
		Field{Name: "deadCodeRemoved", Kind: KindBoolean, Required: true, Default: constant(false)},
	)

	beyondTheBasics := NewRecordSchema("beyondTheBasics",
		Field{Name: "extras", Kind: KindStringArray, Required: true, Default: emptyList},
		Field{Name: "edgeCases", Kind: KindStringArray, Required: true, Default: emptyList},
		Field{Name: "downstreamImpact", Kind: KindMap, Required: true, Default: emptyMap},
		Field{Name: "cleanup", Kind: KindObject, Required: true, Record: cleanup, Default: emptyMap},
	)

	completion := NewRecordSchema("completion",
		Field{
			Name: "status", Kind: KindString, Required: true,
			Enum: models.CompletionStatuses, EnumFallback: models.CompletionPendingValidation,
			Default: constant(models.CompletionPendingValidation),
		},
		Field{Name: "summary", Kind: KindStringArray, Required: true, Default: emptyList},
		Field{Name: "deviations", Kind: KindStringArray, Required: true, Default: emptyList},
		Field{Name: "forFutureTasks", Kind: KindStringArray, Required: true, Default: emptyList},
		Field{Name: "blockedBy", Kind: KindStringArray, Default: emptyList},
		Field{Name: "lastError", Kind: KindString, Default: constant("")},
		Field{Name: "failedValidation", Kind: KindString, Default: constant("")},
	)

	errorEntry := NewRecordSchema("errorHistory",
		Field{Name: "timestamp", Kind: KindString, Required: true, Default: timestampNow},
		Field{Name: "message", Kind: KindString, Required: true, Default: constant(""), Fallbacks: []string{"error"}},
		Field{Name: "failedValidation", Kind: KindString, Required: true, Default: constant("unknown")},
		Field{Name: "stack", Kind: KindString, Required: true, Default: constant("")},
	)

	successCriterion := NewRecordSchema("successCriteria",
		Field{Name: "description", Kind: KindString, Required: true, Default: constant(""), Fallbacks: []string{"name", "task"}},
		Field{Name: "command", Kind: KindString, Required: true, Default: constant("")},
		Field{Name: "passed", Kind: KindBoolean, Required: true, Default: constant(false)},
		Field{Name: "evidence", Kind: KindString, Default: constant("")},
	)

	artifact := NewRecordSchema("artifacts",
		Field{
			Name: "type", Kind: KindString, Required: true,
			Enum: models.ArtifactTypes, EnumFallback: models.ArtifactModified,
			Default: constant(models.ArtifactModified),
		},
		Field{Name: "path", Kind: KindString, Required: true, Default: constant(""), Fallbacks: []string{"file"}},
		Field{Name: "verified", Kind: KindBoolean, Required: true, Default: constant(false)},
	)

	uncertainty := NewRecordSchema("uncertainties",
		Field{
			Name: "id", Kind: KindString, Required: true, Pattern: uncertaintyIDPattern,
			Default: func(c DefaultContext) interface{} { return fmt.Sprintf("U%d", c.Index+1) },
		},
		Field{Name: "topic", Kind: KindString, Required: true, Default: constant("")},
		Field{Name: "assumption", Kind: KindString, Required: true, Default: constant("")},
		Field{
			Name: "confidence", Kind: KindString, Required: true,
			Enum: models.Confidences, EnumFallback: models.ConfidenceMedium,
			Default: constant(models.ConfidenceMedium),
		},
		Field{Name: "resolution", Kind: KindString, Required: true, Nullable: true, Default: nullValue},
		Field{
			Name: "resolvedConfidence", Kind: KindString, Required: true, Nullable: true,
			Enum: models.Confidences, Default: nullValue,
		},
	)

	preCondition := NewRecordSchema("preConditions",
		Field{Name: "check", Kind: KindString, Required: true, Default: constant(""), Fallbacks: []string{"description", "name"}},
		Field{Name: "command", Kind: KindString, Required: true, Default: constant("")},
		Field{Name: "expected", Kind: KindString, Required: true, Default: constant("")},
		Field{Name: "passed", Kind: KindBoolean, Required: true, Default: constant(false)},
		Field{Name: "evidence", Kind: KindString, Default: constant("")},
	)

	phase := NewRecordSchema("phases",
		Field{
			Name: "id", Kind: KindInteger, Required: true,
			Default: func(c DefaultContext) interface{} { return float64(c.Index + 1) },
		},
		Field{
			Name: "name", Kind: KindString, Required: true,
			Default: func(c DefaultContext) interface{} { return fmt.Sprintf("Phase %d", c.Index+1) },
		},
		Field{
			Name: "status", Kind: KindString, Required: true,
			Enum: models.PhaseStatuses, EnumFallback: models.PhasePending,
			Default: constant(models.PhasePending),
		},
		Field{Name: "preConditions", Kind: KindArray, Required: true, Record: preCondition, Default: emptyList},
	)

	currentPhase := NewRecordSchema("currentPhase",
		Field{Name: "id", Kind: KindInteger, Required: true, Default: constant(float64(1))},
		Field{Name: "name", Kind: KindString, Required: true, Default: constant("")},
		Field{Name: "lastAction", Kind: KindString, Required: true, Default: constant("")},
	)

	return NewRecordSchema("execution",
		Field{
			Name: "$schema", Kind: KindString, Required: true,
			Enum: []string{models.SchemaMarker}, EnumFallback: models.SchemaMarker,
			Default: constant(models.SchemaMarker),
		},
		Field{Name: "version", Kind: KindString, Required: true, Default: constant(models.SchemaVersion)},
		Field{Name: "task", Kind: KindString, Required: true, Default: constant(""), Fallbacks: []string{"taskId"}},
		Field{Name: "title", Kind: KindString, Required: true, Default: constant(""), Fallbacks: []string{"name"}},
		Field{
			Name: "status", Kind: KindString, Required: true,
			Enum: models.TaskStatuses, EnumFallback: models.TaskPending,
			Default: constant(models.TaskPending),
		},
		Field{Name: "started", Kind: KindString, Required: true, Default: timestampNow},
		Field{Name: "attempts", Kind: KindInteger, Required: true, Minimum: 0, HasMinimum: true, Default: constant(float64(0))},
		Field{Name: "currentPhase", Kind: KindObject, Required: true, Record: currentPhase, Default: emptyMap},
		Field{Name: "phases", Kind: KindArray, Required: true, Record: phase, Default: emptyList},
		Field{Name: "uncertainties", Kind: KindArray, Required: true, Record: uncertainty, Default: emptyList},
		Field{Name: "artifacts", Kind: KindArray, Required: true, Record: artifact, Default: emptyList},
		Field{Name: "successCriteria", Kind: KindArray, Record: successCriterion, Default: emptyList},
		Field{Name: "errorHistory", Kind: KindArray, Record: errorEntry, Default: emptyList},
		Field{Name: "pendingFixes", Kind: KindStringArray, Default: emptyList},
		Field{Name: "completion", Kind: KindObject, Required: true, Record: completion, Default: emptyMap},
		Field{Name: "beyondTheBasics", Kind: KindObject, Record: beyondTheBasics, Default: emptyMap},
	)
}
