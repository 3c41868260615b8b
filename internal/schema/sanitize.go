package schema

// undefinedValue marks a property or element that is absent, as opposed to
// one explicitly set to null. JSON cannot express it, but documents assembled
// in memory can carry it until they are sanitized.
type undefinedValue struct{}

// Undefined is the absent-value sentinel removed by Sanitize.
var Undefined interface{} = undefinedValue{}

// IsUndefined reports whether v is the Undefined sentinel.
func IsUndefined(v interface{}) bool {
	_, ok := v.(undefinedValue)
	return ok
}

// Sanitize returns a copy of v with every Undefined value removed from maps
// and slices at any depth. Explicit nil (JSON null) values are preserved.
func Sanitize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if IsUndefined(val) {
				continue
			}
			out[k] = Sanitize(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, val := range t {
			if IsUndefined(val) {
				continue
			}
			out = append(out, Sanitize(val))
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, 0, len(t))
		for _, val := range t {
			out = append(out, Sanitize(val))
		}
		return out
	default:
		return v
	}
}

// SanitizeDocument sanitizes a top-level document.
func SanitizeDocument(doc map[string]interface{}) map[string]interface{} {
	if doc == nil {
		return nil
	}
	return Sanitize(doc).(map[string]interface{})
}
