// Package response turns GDB/MI records into compact text for MCP clients.
//
// Normalize shortens hexadecimal address strings anywhere in a record tree,
// Marshal renders a value as a single-line object literal with bare
// identifier keys, and ErrorMessage detects MI error records.
package response

import (
	"regexp"
	"strings"

	"github.com/ctagard/gdb-mcp/internal/gdbmi"
)

// hexAddress matches a whole string of the form 0x followed by hex digits
var hexAddress = regexp.MustCompile(`^0x[0-9a-fA-F]+$`)

// ShortenHex rewrites a full-match hex string such as "0x00004000" to
// "0x4000". Any other string is returned unchanged.
func ShortenHex(s string) string {
	if !hexAddress.MatchString(s) {
		return s
	}
	digits := strings.TrimLeft(s[2:], "0")
	if digits == "" {
		digits = "0"
	}
	return "0x" + strings.ToLower(digits)
}

// Normalize returns a copy of v with every hex address string shortened.
// Tuples keep their key order and lists their element order. Values of
// types it does not know are returned unchanged.
func Normalize(v any) any {
	switch val := v.(type) {
	case string:
		return ShortenHex(val)

	case gdbmi.Structured:
		val.Payload = Normalize(val.Payload)
		return val

	case gdbmi.Raw:
		val.Value = Normalize(val.Value)
		return val

	case []gdbmi.Record:
		out := make([]gdbmi.Record, len(val))
		for i, rec := range val {
			out[i] = Normalize(rec).(gdbmi.Record)
		}
		return out

	case *gdbmi.Tuple:
		if val == nil {
			return val
		}
		out := gdbmi.NewTuple()
		for pair := val.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, Normalize(pair.Value))
		}
		return out

	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Normalize(item)
		}
		return out

	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out

	case []string:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = ShortenHex(item)
		}
		return out
	}
	return v
}
