package response

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ctagard/gdb-mcp/internal/gdbmi"
)

// reservedWords cannot appear as bare object keys
var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true,
	"do": true, "else": true, "enum": true, "export": true, "extends": true,
	"false": true, "finally": true, "for": true, "function": true, "if": true,
	"implements": true, "import": true, "in": true, "instanceof": true,
	"interface": true, "let": true, "new": true, "null": true, "package": true,
	"private": true, "protected": true, "public": true, "return": true,
	"static": true, "super": true, "switch": true, "this": true, "throw": true,
	"true": true, "try": true, "typeof": true, "var": true, "void": true,
	"while": true, "with": true, "yield": true,
}

// Serialize normalizes v and renders it with Marshal.
func Serialize(v any) string {
	return Marshal(Normalize(v))
}

// Marshal renders v as a compact single-line object literal:
//
//	{result:[{type:"result",message:"done",payload:{"thread-id":"1"},token:1,stream:"stdout"}]}
//
// Keys that are plain identifiers are left bare, other keys and all string
// values are double-quoted, and there is no whitespace between elements.
func Marshal(v any) string {
	var b strings.Builder
	encode(&b, v)
	return b.String()
}

func encode(b *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")

	case gdbmi.Structured:
		encodeRecord(b, val)

	case gdbmi.Raw:
		encode(b, val.Value)

	case []gdbmi.Record:
		b.WriteByte('[')
		for i, rec := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			encode(b, rec)
		}
		b.WriteByte(']')

	case *gdbmi.Tuple:
		if val == nil {
			b.WriteString("null")
			return
		}
		b.WriteByte('{')
		for pair := val.Oldest(); pair != nil; pair = pair.Next() {
			if pair.Prev() != nil {
				b.WriteByte(',')
			}
			encodeKey(b, pair.Key)
			b.WriteByte(':')
			encode(b, pair.Value)
		}
		b.WriteByte('}')

	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			encodeKey(b, k)
			b.WriteByte(':')
			encode(b, val[k])
		}
		b.WriteByte('}')

	case []any:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			encode(b, item)
		}
		b.WriteByte(']')

	case string:
		quote(b, val)
	case bool:
		b.WriteString(strconv.FormatBool(val))
	case int:
		b.WriteString(strconv.Itoa(val))
	case int64:
		b.WriteString(strconv.FormatInt(val, 10))
	case uint64:
		b.WriteString(strconv.FormatUint(val, 10))
	case float64:
		encodeFloat(b, val)
	case float32:
		encodeFloat(b, float64(val))
	case error:
		quote(b, val.Error())
	case fmt.Stringer:
		quote(b, val.String())
	default:
		encodeReflect(b, v)
	}
}

// encodeRecord writes a structured record with its fields in a fixed order.
// An empty message and a missing token are written as null.
func encodeRecord(b *strings.Builder, rec gdbmi.Structured) {
	b.WriteString("{type:")
	quote(b, rec.Type)
	b.WriteString(",message:")
	if rec.Message == "" {
		b.WriteString("null")
	} else {
		quote(b, rec.Message)
	}
	b.WriteString(",payload:")
	encode(b, rec.Payload)
	b.WriteString(",token:")
	if rec.Token == nil {
		b.WriteString("null")
	} else {
		b.WriteString(strconv.Itoa(*rec.Token))
	}
	b.WriteString(",stream:")
	quote(b, rec.Stream)
	b.WriteByte('}')
}

func encodeReflect(b *strings.Builder, v any) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			b.WriteString("null")
			return
		}
		encode(b, rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			b.WriteString("[]")
			return
		}
		b.WriteByte('[')
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			encode(b, rv.Index(i).Interface())
		}
		b.WriteByte(']')
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			quote(b, fmt.Sprint(v))
			return
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			encodeKey(b, k.String())
			b.WriteByte(':')
			encode(b, rv.MapIndex(k).Interface())
		}
		b.WriteByte('}')
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.String:
		quote(b, rv.String())
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(rv.Bool()))
	default:
		quote(b, fmt.Sprint(v))
	}
}

func encodeFloat(b *strings.Builder, f float64) {
	switch {
	case math.IsNaN(f):
		b.WriteString("NaN")
	case math.IsInf(f, 1):
		b.WriteString("Infinity")
	case math.IsInf(f, -1):
		b.WriteString("-Infinity")
	default:
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
}

func encodeKey(b *strings.Builder, key string) {
	if isIdentifier(key) && !reservedWords[key] {
		b.WriteString(key)
		return
	}
	quote(b, key)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

func quote(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f || r == '\u2028' || r == '\u2029' {
				fmt.Fprintf(b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}
