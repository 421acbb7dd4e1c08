package pm

import (
	"encoding/json"
	"regexp"
)

// sensitiveKeyPattern matches the field names whose values Redact
// replaces, per spec.md §4.6.
var sensitiveKeyPattern = regexp.MustCompile(`(?i)(^|[_-])(token|secret|api_key|access_key|password|authorization|bearer|session|refresh_token|client_secret)([_-]|$)`)

// redactedPlaceholder replaces any matched value.
const redactedPlaceholder = "[REDACTED]"

// Redact walks an arbitrary JSON-shaped value (as produced by
// json.Unmarshal into interface{}) and replaces the value of any
// object key matching sensitiveKeyPattern with redactedPlaceholder.
// The input is not mutated; a redacted copy is returned.
func Redact(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			if sensitiveKeyPattern.MatchString(k) {
				out[k] = redactedPlaceholder
				continue
			}
			out[k] = Redact(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = Redact(item)
		}
		return out
	default:
		return v
	}
}

// RedactJSON redacts a JSON document given as raw bytes, returning the
// re-marshaled redacted form, for output shown to external observers.
// The PM store does not call it: state and event snapshots are stored
// unredacted.
func RedactJSON(raw []byte) ([]byte, error) {
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return json.Marshal(Redact(value))
}
