package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Repair returns a repaired copy of doc that satisfies rs. Valid values are
// kept as they are, so repairing an already valid document is a no-op in
// content and Repair(Repair(x)) equals Repair(x).
func Repair(doc map[string]interface{}, rs *RecordSchema, now time.Time) map[string]interface{} {
	if doc == nil {
		doc = map[string]interface{}{}
	}
	out := repairRecord(doc, rs, DefaultContext{Now: now})
	if _, ok := rs.Field("currentPhase"); ok {
		repairInvariants(out)
	}
	return out
}

func repairRecord(m map[string]interface{}, rs *RecordSchema, c DefaultContext) map[string]interface{} {
	out := make(map[string]interface{}, len(rs.Fields))
	for i := range rs.Fields {
		f := &rs.Fields[i]
		v, present := m[f.Name]
		if present && IsUndefined(v) {
			present = false
		}
		if !present || (v == nil && !f.Nullable) {
			if fb, ok := fallbackValue(m, f); ok {
				v, present = fb, true
			}
		}
		if !present {
			if f.Required {
				out[f.Name] = repairValue(defaultValue(f, c), f, c)
			}
			continue
		}
		if v == nil && !f.Nullable && !f.Required {
			// Optional non-nullable field explicitly cleared: absent is valid.
			continue
		}
		out[f.Name] = repairValue(v, f, c)
	}
	return out
}

func fallbackValue(m map[string]interface{}, f *Field) (interface{}, bool) {
	for _, name := range f.Fallbacks {
		v, ok := m[name]
		if !ok || v == nil || IsUndefined(v) {
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

func defaultValue(f *Field, c DefaultContext) interface{} {
	if f.Default == nil {
		return nil
	}
	return f.Default(c)
}

func repairValue(v interface{}, f *Field, c DefaultContext) interface{} {
	if v == nil {
		if f.Nullable {
			return nil
		}
		v = defaultValue(f, c)
		if v == nil {
			return nil
		}
	}

	switch f.Kind {
	case KindString:
		return repairString(v, f, c)
	case KindInteger:
		return repairInteger(v, f, c)
	case KindBoolean:
		return repairBoolean(v, f, c)
	case KindStringArray:
		return repairStringArray(v)
	case KindArray:
		return repairArray(v, f, c)
	case KindObject:
		m, ok := v.(map[string]interface{})
		if !ok {
			m = map[string]interface{}{}
		}
		return repairRecord(m, f.Record, c)
	case KindMap:
		if m, ok := v.(map[string]interface{}); ok {
			return Sanitize(m)
		}
		return map[string]interface{}{}
	}
	return v
}

func repairString(v interface{}, f *Field, c DefaultContext) interface{} {
	s, ok := v.(string)
	if !ok {
		s = stringify(v)
	}
	if len(f.Enum) > 0 && !contains(f.Enum, s) {
		if normalized, ok := normalizeEnum(s, f.Enum); ok {
			s = normalized
		} else if f.EnumFallback != "" {
			s = f.EnumFallback
		} else if f.Nullable {
			return nil
		} else {
			s = f.Enum[0]
		}
	}
	if f.Pattern != nil && !f.Pattern.MatchString(s) {
		if d, ok := defaultValue(f, c).(string); ok {
			s = d
		}
	}
	return s
}

// normalizeEnum matches s against allowed ignoring case, surrounding
// whitespace and the separator used ("in progress", "In-Progress").
func normalizeEnum(s string, allowed []string) (string, bool) {
	key := enumKey(s)
	if key == "" {
		return "", false
	}
	for _, a := range allowed {
		if enumKey(a) == key {
			return a, true
		}
	}
	return "", false
}

func enumKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

func repairInteger(v interface{}, f *Field, c DefaultContext) interface{} {
	if n, ok := asInteger(v); ok {
		if f.HasMinimum && n < int64(f.Minimum) {
			return float64(f.Minimum)
		}
		return v
	}

	var n float64
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return defaultValue(f, c)
		}
		n = math.Floor(t)
	case float32:
		n = math.Floor(float64(t))
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return defaultValue(f, c)
		}
		n = math.Floor(parsed)
	default:
		return defaultValue(f, c)
	}
	if _, ok := floatInteger(n); !ok {
		return defaultValue(f, c)
	}
	if f.HasMinimum && n < float64(f.Minimum) {
		n = float64(f.Minimum)
	}
	return n
}

func repairBoolean(v interface{}, f *Field, c DefaultContext) interface{} {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1", "y":
			return true
		case "false", "no", "0", "n", "":
			return false
		}
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return defaultValue(f, c)
}

func repairStringArray(v interface{}) interface{} {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		valid := true
		for _, item := range t {
			if _, ok := item.(string); !ok {
				valid = false
				break
			}
		}
		if valid {
			out := make([]interface{}, len(t))
			copy(out, t)
			return out
		}
		out := make([]interface{}, 0, len(t))
		for _, item := range t {
			if item == nil || IsUndefined(item) {
				continue
			}
			out = append(out, stringify(item))
		}
		return out
	case string:
		if t == "" {
			return []interface{}{}
		}
		return []interface{}{t}
	case map[string]interface{}:
		return []interface{}{stringify(t)}
	default:
		return []interface{}{stringify(t)}
	}
}

func repairArray(v interface{}, f *Field, c DefaultContext) interface{} {
	var items []interface{}
	switch t := v.(type) {
	case []interface{}:
		items = t
	case []map[string]interface{}:
		for _, m := range t {
			items = append(items, m)
		}
	case map[string]interface{}:
		items = []interface{}{t}
	default:
		return []interface{}{}
	}

	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, repairRecord(m, f.Record, DefaultContext{Index: len(out), Now: c.Now}))
	}
	return out
}

func repairInvariants(doc map[string]interface{}) {
	if fixes, ok := stringItems(doc["pendingFixes"]); ok {
		seen := make(map[string]bool, len(fixes))
		deduped := make([]interface{}, 0, len(fixes))
		duplicate := false
		for _, s := range fixes {
			if seen[s] {
				duplicate = true
				continue
			}
			seen[s] = true
			deduped = append(deduped, s)
		}
		if duplicate {
			doc["pendingFixes"] = deduped
		}
	}

	phases, _ := doc["phases"].([]interface{})
	current, _ := doc["currentPhase"].(map[string]interface{})
	if len(phases) == 0 || current == nil {
		return
	}
	id, _ := asInteger(current["id"])

	var target map[string]interface{}
	for _, p := range phases {
		pm := p.(map[string]interface{})
		pid, _ := asInteger(pm["id"])
		if pid == id {
			return
		}
		if target == nil && pm["status"] != "completed" {
			target = pm
		}
	}
	if target == nil {
		target = phases[len(phases)-1].(map[string]interface{})
	}
	current["id"] = target["id"]
	current["name"] = target["name"]
}

// stringify renders a scalar the way a person would write it; composite
// values fall back to compact JSON.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	}
}
