package schema

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Check validates doc against rs and returns every structural defect.
// Cross-field invariants of the execution record are checked when rs is the
// execution schema (it has a "currentPhase" field).
func Check(doc map[string]interface{}, rs *RecordSchema) []ValidationError {
	var errs []ValidationError
	checkRecord("", doc, rs, &errs)
	if _, ok := rs.Field("currentPhase"); ok {
		checkInvariants(doc, &errs)
	}
	return errs
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func checkRecord(path string, m map[string]interface{}, rs *RecordSchema, errs *[]ValidationError) {
	// Sorted keys keep error order stable for logs and tests.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := rs.Field(k); !ok {
			*errs = append(*errs, ValidationError{Path: joinPath(path, k), Message: "unknown property"})
		}
	}

	for i := range rs.Fields {
		f := &rs.Fields[i]
		v, present := m[f.Name]
		if !present {
			if f.Required {
				*errs = append(*errs, ValidationError{Path: joinPath(path, f.Name), Message: "required property is missing"})
			}
			continue
		}
		checkValue(joinPath(path, f.Name), v, f, errs)
	}
}

func checkValue(path string, v interface{}, f *Field, errs *[]ValidationError) {
	add := func(format string, args ...interface{}) {
		*errs = append(*errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if IsUndefined(v) {
		add("value is undefined")
		return
	}
	if v == nil {
		if !f.Nullable {
			add("must be %s, got null", f.Kind)
		}
		return
	}

	switch f.Kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			add("must be string, got %s", typeName(v))
			return
		}
		if len(f.Enum) > 0 && !contains(f.Enum, s) {
			add("must be one of %s", strings.Join(f.Enum, ", "))
		}
		if f.Pattern != nil && !f.Pattern.MatchString(s) {
			add("must match %s", f.Pattern.String())
		}
	case KindInteger:
		n, ok := asInteger(v)
		if !ok {
			add("must be integer, got %s", typeName(v))
			return
		}
		if f.HasMinimum && n < int64(f.Minimum) {
			add("must be >= %d", f.Minimum)
		}
	case KindBoolean:
		if _, ok := v.(bool); !ok {
			add("must be boolean, got %s", typeName(v))
		}
	case KindStringArray:
		switch arr := v.(type) {
		case []string:
		case []interface{}:
			for i, item := range arr {
				if _, ok := item.(string); !ok {
					*errs = append(*errs, ValidationError{
						Path:    fmt.Sprintf("%s[%d]", path, i),
						Message: fmt.Sprintf("must be string, got %s", typeName(item)),
					})
				}
			}
		default:
			add("must be array, got %s", typeName(v))
		}
	case KindArray:
		arr, ok := v.([]interface{})
		if !ok {
			add("must be array, got %s", typeName(v))
			return
		}
		for i, item := range arr {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			m, ok := item.(map[string]interface{})
			if !ok {
				*errs = append(*errs, ValidationError{Path: itemPath, Message: fmt.Sprintf("must be object, got %s", typeName(item))})
				continue
			}
			checkRecord(itemPath, m, f.Record, errs)
		}
	case KindObject:
		m, ok := v.(map[string]interface{})
		if !ok {
			add("must be object, got %s", typeName(v))
			return
		}
		checkRecord(path, m, f.Record, errs)
	case KindMap:
		if _, ok := v.(map[string]interface{}); !ok {
			add("must be object, got %s", typeName(v))
		}
	}
}

func checkInvariants(doc map[string]interface{}, errs *[]ValidationError) {
	if fixes, ok := stringItems(doc["pendingFixes"]); ok {
		seen := make(map[string]bool, len(fixes))
		for i, s := range fixes {
			if seen[s] {
				*errs = append(*errs, ValidationError{Path: fmt.Sprintf("pendingFixes[%d]", i), Message: "duplicate entry"})
			}
			seen[s] = true
		}
	}

	phases, ok := doc["phases"].([]interface{})
	if !ok || len(phases) == 0 {
		return
	}
	current, ok := doc["currentPhase"].(map[string]interface{})
	if !ok {
		return
	}
	id, ok := asInteger(current["id"])
	if !ok {
		return
	}
	for _, p := range phases {
		pm, ok := p.(map[string]interface{})
		if !ok {
			continue
		}
		if pid, ok := asInteger(pm["id"]); ok && pid == id {
			return
		}
	}
	*errs = append(*errs, ValidationError{Path: "currentPhase.id", Message: fmt.Sprintf("does not reference an existing phase (id %d)", id)})
}

// maxSafeInteger is the largest magnitude a JSON number holds exactly.
const maxSafeInteger = 1<<53 - 1

// asInteger accepts the integer encodings a decoded or in-memory document can
// hold. Values beyond maxSafeInteger or the range of int are not integers.
func asInteger(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return floatInteger(n)
	case float32:
		return floatInteger(float64(n))
	case int:
		return intInRange(int64(n))
	case int64:
		return intInRange(n)
	case int32:
		return int64(n), true
	default:
		return 0, false
	}
}

func floatInteger(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > maxSafeInteger {
		return 0, false
	}
	return intInRange(int64(f))
}

func intInRange(n int64) (int64, bool) {
	if n > maxSafeInteger || n < -maxSafeInteger || int64(int(n)) != n {
		return 0, false
	}
	return n, true
}
