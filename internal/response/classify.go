package response

import (
	"github.com/ctagard/gdb-mcp/internal/gdbmi"
)

const (
	// ErrorPrefix starts every message returned by ErrorMessage
	ErrorPrefix = "GDB Error: "

	unknownError = "Unknown GDB error."
)

// ErrorMessage scans records for the first structured record that reports
// an error, either through an "error" class or through a payload carrying a
// non-empty "reason". It returns the prefixed message and true on a match.
// Raw records never count as errors.
func ErrorMessage(records []gdbmi.Record) (string, bool) {
	for _, rec := range records {
		s, ok := rec.(gdbmi.Structured)
		if !ok {
			continue
		}

		payload, isTuple := s.PayloadTuple()
		isErrorMessage := s.Message == "error"
		isErrorPayload := false
		if isTuple {
			reason, _ := payload.Get("reason")
			isErrorPayload = truthy(reason)
		}
		if !isErrorMessage && !isErrorPayload {
			continue
		}

		msg := unknownError
		if isTuple {
			if m, ok := payload.Get("msg"); ok {
				msg = stringify(m)
			}
		} else if !isNil(s.Payload) {
			msg = stringify(s.Payload)
		}
		return ErrorPrefix + msg, true
	}
	return "", false
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return Marshal(v)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	t, ok := v.(*gdbmi.Tuple)
	return ok && t == nil
}

// truthy follows the usual dynamic-language notion: nil, false, zero,
// empty strings and empty containers are false.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case float64:
		return val != 0
	case []any:
		return len(val) > 0
	case *gdbmi.Tuple:
		return val != nil && val.Len() > 0
	case map[string]any:
		return len(val) > 0
	}
	return true
}
