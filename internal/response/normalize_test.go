package response

import (
	"testing"

	"github.com/ctagard/gdb-mcp/internal/gdbmi"
)

func TestShortenHex(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0x00004000", "0x4000"},
		{"0x0", "0x0"},
		{"0x0000", "0x0"},
		{"0x4000", "0x4000"},
		{"0xDEADBEEF", "0xdeadbeef"},
		{"0x10abc", "0x10abc"},
		{"0x00000000000000000000ffffffffffffffffffff", "0xffffffffffffffffffff"},
		{"hello0x10", "hello0x10"},
		{"0x12zz", "0x12zz"},
		{"abc0x12", "abc0x12"},
		{"0x1234extra", "0x1234extra"},
		{"0x", "0x"},
		{"0X10", "0X10"},
		{"0x10\n", "0x10\n"},
		{"", ""},
		{"main", "main"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ShortenHex(tt.in); got != tt.want {
				t.Errorf("ShortenHex(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestShortenHex_Idempotent(t *testing.T) {
	for _, in := range []string{"0x00004000", "0x0", "0xABCDEF", "0x1234extra", "plain"} {
		once := ShortenHex(in)
		if twice := ShortenHex(once); twice != once {
			t.Errorf("ShortenHex not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalize_Tuple(t *testing.T) {
	frame := gdbmi.NewTuple()
	frame.Set("addr", "0x0000000000401136")
	frame.Set("func", "main")
	frame.Set("level", "0")

	payload := gdbmi.NewTuple()
	payload.Set("frame", frame)
	payload.Set("regs", []any{"0x00ff", "rax", 7})

	got := Normalize(payload).(*gdbmi.Tuple)

	v, _ := got.Get("frame")
	gotFrame := v.(*gdbmi.Tuple)
	if addr, _ := gotFrame.Get("addr"); addr != "0x401136" {
		t.Errorf("expected shortened addr, got %v", addr)
	}

	var keys []string
	for pair := gotFrame.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	if len(keys) != 3 || keys[0] != "addr" || keys[1] != "func" || keys[2] != "level" {
		t.Errorf("expected key order preserved, got %v", keys)
	}

	v, _ = got.Get("regs")
	regs := v.([]any)
	if regs[0] != "0xff" || regs[1] != "rax" || regs[2] != 7 {
		t.Errorf("unexpected list normalization: %#v", regs)
	}

	// The input is left untouched
	if addr, _ := frame.Get("addr"); addr != "0x0000000000401136" {
		t.Errorf("Normalize modified its input: %v", addr)
	}
}

func TestNormalize_Records(t *testing.T) {
	payload := gdbmi.NewTuple()
	payload.Set("value", "0x0010")

	records := []gdbmi.Record{
		gdbmi.Structured{Type: gdbmi.TypeResult, Message: "done", Payload: payload, Stream: gdbmi.StreamStdout},
		gdbmi.Structured{Type: gdbmi.TypeConsole, Payload: "0x0010", Stream: gdbmi.StreamStdout},
		gdbmi.Raw{Value: "0x0010"},
		gdbmi.Raw{Value: "x = 0x0010"},
	}

	got := Normalize(records).([]gdbmi.Record)
	if len(got) != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), len(got))
	}

	p, _ := got[0].(gdbmi.Structured).PayloadTuple()
	if v, _ := p.Get("value"); v != "0x10" {
		t.Errorf("expected tuple value shortened, got %v", v)
	}
	if v := got[1].(gdbmi.Structured).Payload; v != "0x10" {
		t.Errorf("expected stream payload shortened, got %v", v)
	}
	if v := got[2].(gdbmi.Raw).Value; v != "0x10" {
		t.Errorf("expected raw value shortened, got %v", v)
	}
	if v := got[3].(gdbmi.Raw).Value; v != "x = 0x0010" {
		t.Errorf("expected partial match left alone, got %v", v)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inner := gdbmi.NewTuple()
	inner.Set("pc", "0x000000000000abcd")
	outer := map[string]any{
		"frames": []any{inner, "0x01"},
		"count":  3,
		"names":  []string{"0x0a", "b"},
	}

	once := Marshal(Normalize(outer))
	twice := Marshal(Normalize(Normalize(outer)))
	if once != twice {
		t.Errorf("Normalize not idempotent:\n%s\n%s", once, twice)
	}
}

func TestNormalize_PassThrough(t *testing.T) {
	for _, v := range []any{nil, 42, 3.5, true, struct{ A int }{1}} {
		if got := Normalize(v); got != v {
			t.Errorf("Normalize(%#v) = %#v, want unchanged", v, got)
		}
	}
}
