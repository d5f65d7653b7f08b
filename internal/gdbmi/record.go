// Package gdbmi drives a GDB process over its machine interface (MI).
//
// It provides:
//   - Controller: spawns GDB with an MI interpreter, writes commands and
//     collects the records GDB emits in reply
//   - ParseLine: turns one line of MI output into a Record
//   - Record: a tagged variant of Structured (MI syntax) and Raw (anything else)
//
// The MI output grammar is described at:
// https://sourceware.org/gdb/current/onlinedocs/gdb.html/GDB_002fMI-Output-Syntax.html
package gdbmi

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record types
const (
	TypeResult  = "result"  // ^done, ^running, ^connected, ^error, ^exit
	TypeNotify  = "notify"  // *stopped, *running, =thread-created, ...
	TypeStatus  = "status"  // +download, ...
	TypeConsole = "console" // ~"..."
	TypeTarget  = "target"  // @"..."
	TypeLog     = "log"     // &"..."
)

// Streams a record can originate from
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

// Tuple is an MI tuple: name/value pairs in the order GDB emitted them
type Tuple = orderedmap.OrderedMap[string, any]

// NewTuple returns an empty tuple
func NewTuple() *Tuple {
	return orderedmap.New[string, any]()
}

// Record is one unit of GDB output. It is either Structured or Raw.
type Record interface {
	record()
}

// Structured is a record that follows MI output syntax.
type Structured struct {
	// Type is one of the Type* constants
	Type string

	// Message is the result or async class ("done", "error", "stopped").
	// It is empty for stream records.
	Message string

	// Payload is a *Tuple for result and async records, a string for stream
	// records, or nil when the record carried no results.
	Payload any

	// Token is the numeric token prefixing the record, if any
	Token *int

	// Stream is StreamStdout or StreamStderr
	Stream string
}

// Raw is a line that is not MI syntax, such as inferior output.
type Raw struct {
	Value any
}

func (Structured) record() {}
func (Raw) record()        {}

// PayloadTuple returns the payload as a tuple when it is one
func (s Structured) PayloadTuple() (*Tuple, bool) {
	t, ok := s.Payload.(*Tuple)
	return t, ok && t != nil
}

// IsResult reports whether the record is a result record (^...)
func (s Structured) IsResult() bool {
	return s.Type == TypeResult
}
