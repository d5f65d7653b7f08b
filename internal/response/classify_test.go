package response

import (
	"testing"

	"github.com/ctagard/gdb-mcp/internal/gdbmi"
)

func tuple(kv ...any) *gdbmi.Tuple {
	t := gdbmi.NewTuple()
	for i := 0; i+1 < len(kv); i += 2 {
		t.Set(kv[i].(string), kv[i+1])
	}
	return t
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name    string
		records []gdbmi.Record
		want    string
		wantErr bool
	}{
		{
			name: "error class with msg",
			records: []gdbmi.Record{
				gdbmi.Structured{Type: gdbmi.TypeResult, Message: "error", Payload: tuple("msg", "no such file")},
			},
			want:    "GDB Error: no such file",
			wantErr: true,
		},
		{
			name: "done is not an error",
			records: []gdbmi.Record{
				gdbmi.Structured{Type: gdbmi.TypeResult, Message: "done"},
			},
		},
		{
			name: "raw string never counts",
			records: []gdbmi.Record{
				gdbmi.Raw{Value: "^error,msg=\"looks bad\""},
				gdbmi.Raw{Value: "error"},
			},
		},
		{
			name: "reason in payload",
			records: []gdbmi.Record{
				gdbmi.Structured{Type: gdbmi.TypeResult, Message: "done", Payload: tuple("reason", "timeout", "msg", "connection timed out")},
			},
			want:    "GDB Error: connection timed out",
			wantErr: true,
		},
		{
			name: "empty reason is not truthy",
			records: []gdbmi.Record{
				gdbmi.Structured{Type: gdbmi.TypeNotify, Message: "stopped", Payload: tuple("reason", "")},
			},
		},
		{
			name: "error without msg",
			records: []gdbmi.Record{
				gdbmi.Structured{Type: gdbmi.TypeResult, Message: "error", Payload: tuple("code", "undefined-command")},
			},
			want:    "GDB Error: Unknown GDB error.",
			wantErr: true,
		},
		{
			name: "error without payload",
			records: []gdbmi.Record{
				gdbmi.Structured{Type: gdbmi.TypeResult, Message: "error"},
			},
			want:    "GDB Error: Unknown GDB error.",
			wantErr: true,
		},
		{
			name: "string payload is the message",
			records: []gdbmi.Record{
				gdbmi.Structured{Type: gdbmi.TypeLog, Message: "error", Payload: "target not responding"},
			},
			want:    "GDB Error: target not responding",
			wantErr: true,
		},
		{
			name: "first match wins",
			records: []gdbmi.Record{
				gdbmi.Structured{Type: gdbmi.TypeConsole, Payload: "connecting"},
				gdbmi.Structured{Type: gdbmi.TypeResult, Message: "error", Payload: tuple("msg", "first")},
				gdbmi.Structured{Type: gdbmi.TypeResult, Message: "error", Payload: tuple("msg", "second")},
			},
			want:    "GDB Error: first",
			wantErr: true,
		},
		{
			name:    "empty input",
			records: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, isErr := ErrorMessage(tt.records)
			if isErr != tt.wantErr {
				t.Fatalf("expected error=%v, got %v (%q)", tt.wantErr, isErr, got)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestErrorMessage_ParsedLine(t *testing.T) {
	rec, _ := gdbmi.ParseLine(`^error,msg="localhost:1234: Connection timed out."`, gdbmi.StreamStdout)

	got, isErr := ErrorMessage([]gdbmi.Record{rec})
	if !isErr {
		t.Fatal("expected parsed ^error to classify as error")
	}
	if got != "GDB Error: localhost:1234: Connection timed out." {
		t.Errorf("unexpected message %q", got)
	}
}
